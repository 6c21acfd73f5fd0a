package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ent0n29/daybook/internal/tasks"
)

// The raw protocol is the structured text fallback for clients that skip the
// language model: one line, an operation tag, then semicolon-separated
// key=value pairs.
//
//	ADD: title=Buy milk; start_date=2025-08-25; repeat_rule=daily
//	UPDATE: id=<uuid>; priority=high
//	DELETE: id=<uuid>
var ErrBadRawInput = errors.New("malformed raw input")

var rawOps = map[string]Action{
	"ADD":    ActionCreate,
	"UPDATE": ActionUpdate,
	"DELETE": ActionDelete,
}

// ParseRaw splits a raw-protocol line into an unvalidated Command. Values
// stay strings; Validate owns the typing.
func ParseRaw(input string) (Command, error) {
	trimmed := strings.TrimSpace(input)
	op, rest, found := strings.Cut(trimmed, ":")
	if !found {
		return Command{}, fmt.Errorf("%w: missing operation tag", ErrBadRawInput)
	}
	action, ok := rawOps[strings.ToUpper(strings.TrimSpace(op))]
	if !ok {
		return Command{}, fmt.Errorf("%w: unknown operation %q", ErrBadRawInput, strings.TrimSpace(op))
	}

	fields := make(map[string]any)
	for _, pair := range strings.Split(rest, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, found := strings.Cut(pair, "=")
		if !found {
			return Command{}, fmt.Errorf("%w: field %q has no value", ErrBadRawInput, pair)
		}
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			return Command{}, fmt.Errorf("%w: empty field name", ErrBadRawInput)
		}
		fields[key] = strings.TrimSpace(value)
	}
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("%w: no fields", ErrBadRawInput)
	}
	return Command{Action: action, Fields: fields}, nil
}

// RawResponse is the JSON envelope returned for a raw-protocol submission.
type RawResponse struct {
	Operation Action      `json:"operation"`
	Result    string      `json:"result"`
	Task      *tasks.Task `json:"task,omitempty"`
	Error     string      `json:"error,omitempty"`
}
