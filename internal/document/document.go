// Package document loads the parsed resume and job description documents produced upstream.
package document

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var schema string

var schemaLoader = gojsonschema.NewStringLoader(schema)

// Source selects the text a document is embedded from.
type Source string

const (
	// SourceKeywords embeds the extracted keywords joined by spaces.
	SourceKeywords Source = "keywords"
	// SourceText embeds the cleaned document text.
	SourceText Source = "text"
)

// Document holds the signals extracted from one resume or job description.
type Document struct {
	ID                string    `mapstructure:"id" json:"id"`
	CleanData         string    `mapstructure:"clean_data" json:"clean_data"`
	ExtractedKeywords []string  `mapstructure:"extracted_keywords" json:"extracted_keywords"`
	KeyTerms          []KeyTerm `mapstructure:"keyterms" json:"keyterms"`
	Experience        string    `mapstructure:"experience" json:"experience"`
	Name              []string  `mapstructure:"name" json:"name"`
	Emails            []string  `mapstructure:"emails" json:"emails"`
	Phones            []string  `mapstructure:"phones" json:"phones"`
}

// KeyTerm is a weighted key term. Weight is zero when the producer did not score terms.
type KeyTerm struct {
	Term   string  `json:"term"`
	Weight float64 `json:"weight"`
}

// Terms returns the key term names.
func (d Document) Terms() []string {
	terms := make([]string, 0, len(d.KeyTerms))
	for _, kt := range d.KeyTerms {
		terms = append(terms, kt.Term)
	}
	return terms
}

// HasSkills reports whether the document carries a skills section.
func (d Document) HasSkills() bool {
	return len(d.KeyTerms) > 0
}

// HasExperience reports whether the document describes work experience.
func (d Document) HasExperience() bool {
	return strings.TrimSpace(d.Experience) != ""
}

// Text returns the text to embed for source. Unknown sources fall back to the cleaned text.
func (d Document) Text(source Source) string {
	if source == SourceKeywords {
		return strings.Join(d.ExtractedKeywords, " ")
	}
	return d.CleanData
}

// Load reads, validates and decodes the document at path. A document without an id takes the
// file name without extension.
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read document: %w", err)
	}

	doc, err := Parse(data)
	if err != nil {
		return Document{}, fmt.Errorf("%s: %w", path, err)
	}

	if doc.ID == "" {
		doc.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	return doc, nil
}

// Parse validates raw JSON against the document schema and decodes it.
func Parse(data []byte) (Document, error) {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return Document{}, fmt.Errorf("validate document: %w", err)
	}

	if !result.Valid() {
		validationErr := &ValidationError{Errors: make([]FieldError, 0, len(result.Errors()))}
		for _, desc := range result.Errors() {
			field := desc.Field()
			if field == "" {
				field = "(root)"
			}
			validationErr.Errors = append(validationErr.Errors, FieldError{Field: field, Message: desc.Description()})
		}
		return Document{}, validationErr
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Document{}, fmt.Errorf("decode document: %w", err)
	}

	return Decode(raw)
}

// Decode maps an already parsed JSON object onto a Document.
func Decode(raw map[string]any) (Document, error) {
	var doc Document

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(keyTermHook, stringToSliceHook),
		Result:     &doc,
	})
	if err != nil {
		return Document{}, err
	}

	if err := decoder.Decode(raw); err != nil {
		return Document{}, fmt.Errorf("decode document: %w", err)
	}

	return doc, nil
}

var (
	keyTermType     = reflect.TypeOf(KeyTerm{})
	stringSliceType = reflect.TypeOf([]string{})
)

// keyTermHook accepts either "term" or ["term", weight].
func keyTermHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != keyTermType {
		return data, nil
	}

	switch v := data.(type) {
	case string:
		return KeyTerm{Term: v}, nil
	case []any:
		if len(v) == 0 {
			return nil, fmt.Errorf("empty key term")
		}
		term, ok := v[0].(string)
		if !ok {
			return nil, fmt.Errorf("key term %v is not a string", v[0])
		}
		kt := KeyTerm{Term: term}
		if len(v) > 1 {
			weight, ok := v[1].(float64)
			if !ok {
				return nil, fmt.Errorf("key term %q weight %v is not a number", term, v[1])
			}
			kt.Weight = weight
		}
		return kt, nil
	default:
		return data, nil
	}
}

func stringToSliceHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != stringSliceType || from.Kind() != reflect.String {
		return data, nil
	}
	s := data.(string)
	if s == "" {
		return []string{}, nil
	}
	return []string{s}, nil
}

// ValidationError lists schema violations.
type ValidationError struct {
	Errors []FieldError
}

// FieldError is a single violation at a field path.
type FieldError struct {
	Field   string
	Message string
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("invalid document:")
	for _, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf(" %s: %s;", err.Field, err.Message))
	}
	return strings.TrimSuffix(sb.String(), ";")
}
