package command

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInconsistent marks a payload that normalized into a state violating an
// invariant (e.g. a reminder with no anchor date). Fatal to that command.
var ErrInconsistent = errors.New("inconsistent payload")

// Violation is one offending field in a rejected payload.
type Violation struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError reports every offending field of a payload, not just the
// first one found.
type ValidationError struct {
	Action     Action
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s: %s", v.Field, v.Reason))
	}
	return fmt.Sprintf("invalid %s payload: %s", e.Action, strings.Join(parts, "; "))
}

// AsValidationError unwraps err into a ValidationError if it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
