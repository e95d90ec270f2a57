package filtering

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

type minimumScoreFilter struct {
	enabled bool
	reason  string
	minimum float64
	logger  *zap.Logger
}

// NewMinimumScore creates a filter that drops candidates scoring under minimum.
func NewMinimumScore(minimum float64, logger *zap.Logger) Filter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &minimumScoreFilter{enabled: true, minimum: minimum, logger: logger}
}

func (f *minimumScoreFilter) Name() string { return "minimum_score" }

func (f *minimumScoreFilter) Disable(reason string) {
	f.enabled = false
	f.reason = reason
}

func (f *minimumScoreFilter) IsEnabled() bool { return f.enabled }

func (f *minimumScoreFilter) Validate() error {
	if f.minimum < -1 || f.minimum > 1 {
		return fmt.Errorf("minimum score %.2f is outside [-1, 1]", f.minimum)
	}
	return nil
}

func (f *minimumScoreFilter) Apply(_ context.Context, c *Candidates) (Step, error) {
	initial := c.Len()

	removed := c.ExcludeBelow(f.minimum)
	for _, id := range removed {
		f.logger.Debug("candidate rejected by score",
			zap.String("document_id", id),
			zap.Float64("minimum_score", f.minimum),
		)
	}

	return Step{Initial: initial, Dropped: len(removed), Left: c.Len()}, nil
}

func (f *minimumScoreFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"minimum_score": fmt.Sprintf("%.2f", f.minimum)},
	}
}
