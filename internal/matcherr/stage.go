package matcherr

import (
	"errors"
	"fmt"
)

// Stage identifies a step of the analysis state machine.
type Stage string

const (
	StageInit          Stage = "Init"
	StageNormalizeBoth Stage = "NormalizeBoth"
	StageEmbed         Stage = "Embed"
	StageScore         Stage = "Score"
	StageGapAnalyze    Stage = "GapAnalyze"
	StageRecommend     Stage = "Recommend"
	StageDone          Stage = "Done"
	StageFailed        Stage = "Failed"
)

// StageError records the stage an analysis failed in. It is the Failed(reason) state of the
// pipeline.
type StageError struct {
	Stage Stage
	Err   error
}

// WrapStage attaches stage identity to err. An error that already carries a stage is returned
// unchanged so the originating stage wins.
func WrapStage(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	var existing *StageError
	if errors.As(err, &existing) {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Kind returns the taxonomy kind of the wrapped error.
func (e *StageError) Kind() Kind { return KindOf(e.Err) }

// StageOf returns the failed stage recorded in err, if any.
func StageOf(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}

// Payload is the single structured error rendered by the boundary layer.
type Payload struct {
	Error PayloadError `json:"error"`
}

// PayloadError carries the human-readable failure description.
type PayloadError struct {
	Stage   Stage  `json:"stage,omitempty"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// NewPayload converts err into a boundary payload.
func NewPayload(err error) Payload {
	if err == nil {
		return Payload{}
	}

	p := PayloadError{Kind: KindOf(err), Message: err.Error()}
	var se *StageError
	if errors.As(err, &se) {
		p.Stage = se.Stage
		p.Message = se.Err.Error()
	}
	return Payload{Error: p}
}
