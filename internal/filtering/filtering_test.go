package filtering

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func sampleCandidates() *Candidates {
	return &Candidates{Items: []*Candidate{
		{ID: "alice", Score: 0.91},
		{ID: "bob", Score: 0.74},
		{ID: "carol", Score: 0.55},
		{ID: "dave", Score: 0.12},
	}}
}

func TestRunAppliesStepsInOrder(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	dir := t.TempDir()
	excludePath := filepath.Join(dir, "excluded.json")
	reviewed := &Candidates{Items: []*Candidate{{ID: "bob", Score: 0.74}}}
	if err := reviewed.ToExcluded().ToFile(excludePath); err != nil {
		t.Fatalf("write exclude file: %v", err)
	}

	c := sampleCandidates()
	steps := []Filter{NewExcludeFile(excludePath, logger), NewMinimumScore(0.6, logger)}

	if err := Run(context.Background(), logger, steps, c); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := c.IDs(); len(got) != 1 || got[0] != "alice" {
		t.Fatalf("unexpected candidates left: %v", got)
	}

	entries := logs.FilterMessage("filter step").All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 filter step logs, got %d", len(entries))
	}

	last := entries[1].ContextMap()
	if last["name"] != "minimum_score" || last["initial"] != int64(3) || last["dropped"] != int64(2) || last["left"] != int64(1) {
		t.Fatalf("unexpected step fields: %v", last)
	}
}

func TestRunSkipsDisabledFilters(t *testing.T) {
	c := sampleCandidates()
	steps := []Filter{NewMinimumScore(0.6, nil), NewExcludeFile("", nil)}
	DisableByName(steps, "minimum_score", "disabled by flag")

	if err := Run(context.Background(), nil, steps, c); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if c.Len() != 4 {
		t.Fatalf("expected no candidates dropped, got %d left", c.Len())
	}

	statuses := Describe(steps)
	if statuses[0].Enabled || statuses[0].Reason != "disabled by flag" {
		t.Fatalf("unexpected status: %+v", statuses[0])
	}
	if statuses[1].Enabled {
		t.Fatal("exclude file filter without path must be disabled")
	}
}

func TestRunValidatesBeforeApplying(t *testing.T) {
	c := sampleCandidates()
	steps := []Filter{NewExcludeFile("", nil), NewMinimumScore(1.5, nil)}

	if err := Run(context.Background(), nil, steps, c); err == nil {
		t.Fatal("expected validation error")
	}
	if c.Len() != 4 {
		t.Fatal("candidates must be untouched when validation fails")
	}
}

func TestExcludedFromFileMissingIsEmpty(t *testing.T) {
	excluded, err := ExcludedFromFile(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(excluded.Items) != 0 {
		t.Fatalf("expected empty list, got %d", len(excluded.Items))
	}
}

func TestExcludedAppendSkipsKnownIDs(t *testing.T) {
	base := sampleCandidates().ToExcluded()
	extra := (&Candidates{Items: []*Candidate{{ID: "alice"}, {ID: "erin"}}}).ToExcluded()

	base.Append(extra)

	if got := len(base.Items); got != 5 {
		t.Fatalf("expected 5 excluded candidates, got %d", got)
	}
}

func TestDumpToTmpFile(t *testing.T) {
	filename, err := sampleCandidates().DumpToTmpFile()
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	t.Cleanup(func() { os.Remove(filename) })

	data, err := os.ReadFile(filename)
	if err != nil {
		t.Fatalf("read dump: %v", err)
	}

	var dumped Candidates
	if err := json.Unmarshal(data, &dumped); err != nil {
		t.Fatalf("decode dump: %v", err)
	}
	if dumped.Len() != 4 || dumped.Items[0].ID != "alice" {
		t.Fatalf("unexpected dump content: %s", data)
	}
}
