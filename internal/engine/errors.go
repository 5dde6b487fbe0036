package engine

import (
	"errors"
	"fmt"
)

// ValidationError rejects an operation before any computation: non-positive
// amounts, invalid days-of-month, same-account transfers, count < 1.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Msg
}

func validationf(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// InconsistentStateError flags an anomaly the engine reports but does not
// veto, such as installments that no longer sum to their transaction amount.
// Operations which detect one still complete; the caller decides what to
// surface.
type InconsistentStateError struct {
	Msg string
}

func (e *InconsistentStateError) Error() string {
	return "inconsistent state: " + e.Msg
}

// Operating on an id absent from the provided collections is not an error:
// mutators return a result with Applied=false so a stale UI click is
// harmless.
