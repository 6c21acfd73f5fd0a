package brain

import (
	"context"
	"strings"

	"github.com/ent0n29/daybook/internal/command"
)

// MockAdapter is the offline interpreter used in development and tests. It
// understands the raw protocol verbatim and a few fixed phrasings; anything
// else is a no-action.
type MockAdapter struct{}

func NewMockAdapter() *MockAdapter { return &MockAdapter{} }

func (a *MockAdapter) Interpret(_ context.Context, req Request) (Reply, error) {
	input := strings.TrimSpace(req.Input)
	if cmd, err := command.ParseRaw(input); err == nil {
		return Reply{Commands: []command.Command{cmd}}, nil
	}

	lower := strings.ToLower(input)
	switch {
	case strings.HasPrefix(lower, "add "):
		return Reply{Commands: []command.Command{{
			Action: command.ActionCreate,
			Fields: map[string]any{
				"title":       strings.TrimSpace(input[len("add "):]),
				"start_date":  req.Today,
				"repeat_rule": "none",
			},
		}}}, nil
	case lower == "list" || strings.HasPrefix(lower, "list "):
		fields := map[string]any{}
		if rest := strings.TrimSpace(strings.TrimPrefix(lower, "list")); rest != "" {
			fields["date"] = rest
		}
		return Reply{Commands: []command.Command{{Action: command.ActionList, Fields: fields}}}, nil
	default:
		return Reply{NoAction: true}, nil
	}
}
