package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spigell/resume-matcher/internal/filtering"
	"github.com/spigell/resume-matcher/internal/matcherr"
	"github.com/spigell/resume-matcher/internal/pipeline"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderReport(w io.Writer, format string, report *pipeline.Report) error {
	if format != outputText {
		return writeJSON(w, report)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Match score: %.2f\n", report.Score)

	if len(report.Contact.Name) > 0 {
		fmt.Fprintf(&b, "Candidate: %s\n", strings.Join(report.Contact.Name, ", "))
	}
	if len(report.Contact.Emails) > 0 {
		fmt.Fprintf(&b, "Email: %s\n", strings.Join(report.Contact.Emails, ", "))
	}
	if len(report.Contact.Phones) > 0 {
		fmt.Fprintf(&b, "Phone: %s\n", strings.Join(report.Contact.Phones, ", "))
	}

	writeList(&b, "Matched skills", report.Details.Gap.Matched)
	writeList(&b, "Missing skills", report.Details.Gap.Missing)
	writeList(&b, "Recommendations", report.Recommendations)

	_, err := io.WriteString(w, b.String())
	return err
}

func renderCandidates(w io.Writer, format string, candidates *filtering.Candidates) error {
	if format != outputText {
		return writeJSON(w, candidates)
	}

	var b strings.Builder
	for i, c := range candidates.Items {
		fmt.Fprintf(&b, "%2d. %-24s %.4f  %s\n", i+1, c.ID, c.Score, c.Preview)
	}
	if candidates.Len() == 0 {
		b.WriteString("No candidates left.\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// renderError prints err once: as a JSON payload on stdout for json output, as text on stderr
// otherwise.
func renderError(stdout, stderr io.Writer, format string, err error) {
	payload := matcherr.NewPayload(err)
	if format == outputText {
		if payload.Error.Stage != "" {
			fmt.Fprintf(stderr, "Error in %s (%s): %s\n", payload.Error.Stage, payload.Error.Kind, payload.Error.Message)
			return
		}
		fmt.Fprintf(stderr, "Error (%s): %s\n", payload.Error.Kind, payload.Error.Message)
		return
	}
	_ = writeJSON(stdout, payload)
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "  - %s\n", item)
	}
}

// sortedSkills returns skill names with matched skills first.
func sortedSkills(skills map[string]bool) []string {
	names := make([]string, 0, len(skills))
	for name := range skills {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if skills[names[i]] != skills[names[j]] {
			return skills[names[i]]
		}
		return names[i] < names[j]
	})
	return names
}
