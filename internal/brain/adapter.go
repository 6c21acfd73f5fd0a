package brain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ent0n29/daybook/internal/command"
)

// ErrRequestFailed marks a transport-level interpreter failure. Callers keep
// the user's input queued instead of discarding it.
var ErrRequestFailed = errors.New("interpreter request failed")

// TaskContext is the slim task view shipped with every interpreter request
// so the model can reference existing tasks by id.
type TaskContext struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Day    string `json:"day"`
	Done   bool   `json:"done"`
	Repeat string `json:"repeat"`
}

// Request is one natural-language utterance plus the context needed to
// resolve relative dates and task references.
type Request struct {
	Input    string
	Today    string
	Timezone string
	Tasks    []TaskContext
}

// Reply is the interpreter's verdict: commands to run, an explicit no-action
// (the model declined, optionally with a conversational message), or an
// unactionable parse that yielded neither commands nor prose.
type Reply struct {
	Commands     []command.Command
	NoAction     bool
	Unactionable bool
	Message      string
}

// Adapter bridges the assistant with a command interpreter.
type Adapter interface {
	Interpret(ctx context.Context, req Request) (Reply, error)
}

// Config controls adapter construction.
type Config struct {
	Mode    string
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

func NewAdapter(cfg Config) (Adapter, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.APIKey) != "" {
			return NewOpenAIAdapter(cfg), nil
		}
		return NewMockAdapter(), nil
	case "openai":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, errors.New("api key is required for openai mode")
		}
		return NewOpenAIAdapter(cfg), nil
	case "mock":
		return NewMockAdapter(), nil
	default:
		return nil, fmt.Errorf("unsupported interpreter mode %q", cfg.Mode)
	}
}
