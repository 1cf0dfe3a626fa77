package flow

import (
	"errors"
	"fmt"
)

var (
	// ErrTargetUnreachable means the app under test could not be reached.
	ErrTargetUnreachable = errors.New("target unreachable")

	// ErrTimeout means a wait or action ran past its budget.
	ErrTimeout = errors.New("timed out")

	// ErrAssertion means the page reached a state the run does not accept.
	ErrAssertion = errors.New("assertion failed")
)

// StepError reports which step stopped the run.
type StepError struct {
	Index int
	Step  string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Index+1, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// FailedStep returns the name of the step that failed, or "" if err did not
// come from a step.
func FailedStep(err error) string {
	var se *StepError
	if errors.As(err, &se) {
		return se.Step
	}
	return ""
}
