package filtering

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"time"
)

// Candidate is one ranked resume.
type Candidate struct {
	ID      string  `json:"id"`
	Score   float64 `json:"score"`
	Preview string  `json:"preview"`
}

// Candidates is a ranked list, best first.
type Candidates struct {
	Items []*Candidate `json:"items"`
}

func (c *Candidates) Len() int {
	return len(c.Items)
}

func (c *Candidates) IDs() []string {
	ids := make([]string, 0, len(c.Items))
	for _, item := range c.Items {
		ids = append(ids, item.ID)
	}
	return ids
}

func (c *Candidates) FindByID(id string) *Candidate {
	for _, item := range c.Items {
		if item.ID == id {
			return item
		}
	}
	return nil
}

// Exclude removes candidates with the given ids and returns the removed ids.
func (c *Candidates) Exclude(ids []string) []string {
	return c.excludeFunc(func(item *Candidate) bool { return slices.Contains(ids, item.ID) })
}

// ExcludeBelow removes candidates scoring under minimum and returns the removed ids.
func (c *Candidates) ExcludeBelow(minimum float64) []string {
	return c.excludeFunc(func(item *Candidate) bool { return item.Score < minimum })
}

func (c *Candidates) excludeFunc(drop func(*Candidate) bool) []string {
	removed := make([]string, 0)
	kept := c.Items[:0]
	for _, item := range c.Items {
		if drop(item) {
			removed = append(removed, item.ID)
			continue
		}
		kept = append(kept, item)
	}
	c.Items = kept
	return removed
}

func (c *Candidates) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "candidates_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return "", err
	}
	return file.Name(), nil
}

// ExcludedCandidates is the on-disk list of candidates already reviewed.
type ExcludedCandidates struct {
	Items []*ExcludedCandidate
}

type ExcludedCandidate struct {
	ID         string
	Score      float64
	ExcludedAt time.Time
}

func (c *Candidates) ToExcluded() *ExcludedCandidates {
	excluded := &ExcludedCandidates{}
	for _, item := range c.Items {
		excluded.Items = append(excluded.Items, &ExcludedCandidate{
			ID:         item.ID,
			Score:      item.Score,
			ExcludedAt: time.Now().UTC(),
		})
	}
	return excluded
}

// ExcludedFromFile reads an exclude file. A missing or empty file is an empty list.
func ExcludedFromFile(path string) (*ExcludedCandidates, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &ExcludedCandidates{}, nil
		}
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if stat.Size() == 0 {
		return &ExcludedCandidates{}, nil
	}

	var excluded ExcludedCandidates
	if err := json.NewDecoder(file).Decode(&excluded); err != nil {
		return nil, fmt.Errorf("decode exclude file %s: %w", path, err)
	}
	return &excluded, nil
}

func (e *ExcludedCandidates) Append(s *ExcludedCandidates) {
	for _, item := range s.Items {
		if !slices.Contains(e.IDs(), item.ID) {
			e.Items = append(e.Items, item)
		}
	}
}

func (e *ExcludedCandidates) IDs() []string {
	ids := make([]string, 0, len(e.Items))
	for _, item := range e.Items {
		ids = append(ids, item.ID)
	}
	return ids
}

func (e *ExcludedCandidates) ToFile(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}
