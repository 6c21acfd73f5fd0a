package brain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ent0n29/daybook/internal/command"
)

const defaultBaseURL = "https://api.openai.com/v1"

// OpenAIAdapter interprets input through an OpenAI-compatible
// chat-completions endpoint with function tools.
type OpenAIAdapter struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
	tools   []map[string]any
}

func NewOpenAIAdapter(cfg Config) *OpenAIAdapter {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4o-mini"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &OpenAIAdapter{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: base,
		model:   model,
		client:  &http.Client{Timeout: timeout},
		tools:   toolDefinitions(),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatToolCall struct {
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type chatCompletion struct {
	Choices []struct {
		Message struct {
			Content   string         `json:"content"`
			ToolCalls []chatToolCall `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
}

func (a *OpenAIAdapter) Interpret(ctx context.Context, req Request) (Reply, error) {
	body, err := json.Marshal(map[string]any{
		"model":       a.model,
		"temperature": 0,
		"messages": []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildUserMessage(req)},
		},
		"tools":       a.tools,
		"tool_choice": "auto",
	})
	if err != nil {
		return Reply{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Reply{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)

	res, err := a.client.Do(httpReq)
	if err != nil {
		return Reply{}, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return Reply{}, fmt.Errorf("%w: status %d: %s", ErrRequestFailed, res.StatusCode, string(snippet))
	}

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return Reply{}, fmt.Errorf("%w: read response: %v", ErrRequestFailed, err)
	}
	var completion chatCompletion
	if err := json.Unmarshal(raw, &completion); err != nil {
		return Reply{}, fmt.Errorf("%w: decode response: %v", ErrRequestFailed, err)
	}
	if len(completion.Choices) == 0 {
		return Reply{}, fmt.Errorf("%w: empty completion", ErrRequestFailed)
	}
	return decodeChoice(completion.Choices[0].Message.Content, completion.Choices[0].Message.ToolCalls)
}

func decodeChoice(content string, calls []chatToolCall) (Reply, error) {
	if len(calls) == 0 {
		text := strings.TrimSpace(content)
		if strings.Contains(text, noActionToken) {
			return Reply{NoAction: true}, nil
		}
		if text == "" {
			// No tool calls, no token, no prose: the parse yielded nothing.
			return Reply{Unactionable: true}, nil
		}
		return Reply{NoAction: true, Message: text}, nil
	}

	commands := make([]command.Command, 0, len(calls))
	for _, call := range calls {
		action, ok := toolActions[call.Function.Name]
		if !ok {
			return Reply{}, fmt.Errorf("%w: unknown tool %q", ErrRequestFailed, call.Function.Name)
		}
		fields := map[string]any{}
		args := strings.TrimSpace(call.Function.Arguments)
		if args != "" {
			if err := json.Unmarshal([]byte(args), &fields); err != nil {
				return Reply{}, fmt.Errorf("%w: tool %s arguments: %v", ErrRequestFailed, call.Function.Name, err)
			}
		}
		commands = append(commands, command.Command{Action: action, Fields: fields})
	}
	return Reply{Commands: commands}, nil
}

func buildUserMessage(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Current date: %s\n", req.Today)
	if req.Timezone != "" {
		fmt.Fprintf(&b, "Timezone: %s\n", req.Timezone)
	}
	if len(req.Tasks) > 0 {
		b.WriteString("Existing tasks:\n")
		for _, t := range req.Tasks {
			status := "open"
			if t.Done {
				status = "done"
			}
			fmt.Fprintf(&b, "- id=%s day=%s repeat=%s status=%s title=%q\n", t.ID, t.Day, t.Repeat, status, t.Title)
		}
	}
	b.WriteString("\nMessage: ")
	b.WriteString(req.Input)
	return b.String()
}
