package maintenance

import (
	"errors"
	"fmt"
)

// Step identifies one phase of a run.
type Step string

const (
	StepConnect Step = "connect"
	StepMeasure Step = "measure"
	StepReindex Step = "reindex"
	StepAnalyze Step = "analyze"
	StepVacuum  Step = "vacuum"
	StepFTS     Step = "fts"
)

// Kind groups failures by what a caller might do about them.
type Kind int

const (
	// KindConnection covers opening the database and sampling its size.
	KindConnection Kind = iota
	// KindStatement covers reindex, ANALYZE and VACUUM.
	KindStatement
	// KindFTS covers the full-text index update.
	KindFTS
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindStatement:
		return "statement"
	case KindFTS:
		return "fts"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// StepError is the error returned by a failed run.
type StepError struct {
	Step Step
	Kind Kind
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// ConnectionError tags a failure to reach the database.
func ConnectionError(err error) error {
	return &StepError{Step: StepConnect, Kind: KindConnection, Err: err}
}

// KindOf reports the kind of a run failure, false if err is not a *StepError.
func KindOf(err error) (Kind, bool) {
	var se *StepError
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return 0, false
}
