package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownTransform reports a step name that no registered transform
	// implements.
	ErrUnknownTransform = errors.New("unknown transform")

	// ErrTransformPrecondition reports a document that does not satisfy a
	// transform's preconditions (e.g. no page-reference found, measure
	// count mismatch). Transforms raise it instead of returning an
	// inconsistent document.
	ErrTransformPrecondition = errors.New("transform precondition failed")
)

// StepError wraps a failure inside one pipeline step with the step's name.
// The underlying error propagates unmodified through Unwrap so callers can
// still match the taxonomy sentinels with errors.Is.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Preconditionf builds an ErrTransformPrecondition with detail. The
// transform implementations use it for their fail-fast consistency checks.
func Preconditionf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrTransformPrecondition, fmt.Sprintf(format, args...))
}
