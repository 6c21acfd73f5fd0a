package brain

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ent0n29/daybook/internal/command"
)

func TestNewAdapterModes(t *testing.T) {
	if _, err := NewAdapter(Config{Mode: "openai"}); err == nil {
		t.Error("openai mode without key should fail")
	}
	if _, err := NewAdapter(Config{Mode: "quantum"}); err == nil {
		t.Error("unknown mode should fail")
	}
	a, err := NewAdapter(Config{Mode: "auto"})
	if err != nil {
		t.Fatalf("auto mode: %v", err)
	}
	if _, ok := a.(*MockAdapter); !ok {
		t.Errorf("auto without key should pick mock, got %T", a)
	}
	a, err = NewAdapter(Config{Mode: "auto", APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("auto mode with key: %v", err)
	}
	if _, ok := a.(*OpenAIAdapter); !ok {
		t.Errorf("auto with key should pick openai, got %T", a)
	}
}

func TestOpenAIAdapterDecodesToolCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("auth header = %q", got)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req["model"] != "test-model" {
			t.Errorf("model = %v", req["model"])
		}
		if _, ok := req["tools"].([]any); !ok {
			t.Error("tools missing from request")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"tool_calls":[
			{"function":{"name":"create_task","arguments":"{\"title\":\"Buy milk\",\"start_date\":\"2025-08-25\",\"repeat_rule\":\"none\"}"}},
			{"function":{"name":"complete_task","arguments":"{\"id\":\"abc\"}"}}
		]}}]}`))
	}))
	defer srv.Close()

	a := NewOpenAIAdapter(Config{APIKey: "sk-test", BaseURL: srv.URL, Model: "test-model", Timeout: time.Second})
	reply, err := a.Interpret(context.Background(), Request{Input: "buy milk tomorrow", Today: "2025-08-24"})
	if err != nil {
		t.Fatalf("interpret: %v", err)
	}
	if len(reply.Commands) != 2 {
		t.Fatalf("commands = %d, want 2", len(reply.Commands))
	}
	if reply.Commands[0].Action != command.ActionCreate {
		t.Errorf("first action = %s", reply.Commands[0].Action)
	}
	if reply.Commands[0].Fields["title"] != "Buy milk" {
		t.Errorf("title = %v", reply.Commands[0].Fields["title"])
	}
	if reply.Commands[1].Action != command.ActionComplete {
		t.Errorf("second action = %s", reply.Commands[1].Action)
	}
}

func TestOpenAIAdapterNoActionToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"__NO_ACTION__"}}]}`))
	}))
	defer srv.Close()

	a := NewOpenAIAdapter(Config{APIKey: "sk-test", BaseURL: srv.URL})
	reply, err := a.Interpret(context.Background(), Request{Input: "how are you"})
	if err != nil {
		t.Fatalf("interpret: %v", err)
	}
	if !reply.NoAction || len(reply.Commands) != 0 {
		t.Fatalf("want no-action reply, got %+v", reply)
	}
}

func TestOpenAIAdapterEmptyReplyIsUnactionable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":""}}]}`))
	}))
	defer srv.Close()

	a := NewOpenAIAdapter(Config{APIKey: "sk-test", BaseURL: srv.URL})
	reply, err := a.Interpret(context.Background(), Request{Input: "mumble"})
	if err != nil {
		t.Fatalf("interpret: %v", err)
	}
	if !reply.Unactionable || reply.NoAction || len(reply.Commands) != 0 {
		t.Fatalf("empty reply should be unactionable, not no-action: %+v", reply)
	}
}

func TestOpenAIAdapterServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	a := NewOpenAIAdapter(Config{APIKey: "sk-test", BaseURL: srv.URL})
	_, err := a.Interpret(context.Background(), Request{Input: "add thing"})
	if !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("want ErrRequestFailed, got %v", err)
	}
}

func TestOpenAIAdapterUnknownTool(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"tool_calls":[{"function":{"name":"summon_demon","arguments":"{}"}}]}}]}`))
	}))
	defer srv.Close()

	a := NewOpenAIAdapter(Config{APIKey: "sk-test", BaseURL: srv.URL})
	if _, err := a.Interpret(context.Background(), Request{Input: "x"}); !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("want ErrRequestFailed, got %v", err)
	}
}

func TestMockAdapter(t *testing.T) {
	a := NewMockAdapter()

	reply, err := a.Interpret(context.Background(), Request{Input: "ADD: title=Gym; start_date=2025-08-25; repeat_rule=daily"})
	if err != nil {
		t.Fatalf("interpret: %v", err)
	}
	if len(reply.Commands) != 1 || reply.Commands[0].Action != command.ActionCreate {
		t.Fatalf("raw line not parsed: %+v", reply)
	}

	reply, err = a.Interpret(context.Background(), Request{Input: "add buy milk", Today: "2025-08-24"})
	if err != nil {
		t.Fatalf("interpret: %v", err)
	}
	if len(reply.Commands) != 1 || reply.Commands[0].Fields["title"] != "buy milk" {
		t.Fatalf("add phrase not parsed: %+v", reply)
	}
	if reply.Commands[0].Fields["start_date"] != "2025-08-24" {
		t.Errorf("start_date = %v", reply.Commands[0].Fields["start_date"])
	}

	reply, err = a.Interpret(context.Background(), Request{Input: "nice weather today"})
	if err != nil {
		t.Fatalf("interpret: %v", err)
	}
	if !reply.NoAction {
		t.Fatalf("small talk should be no-action: %+v", reply)
	}
}

func TestGateCancelsPrevious(t *testing.T) {
	var g Gate
	first, release1 := g.Start(context.Background())
	second, release2 := g.Start(context.Background())
	defer release2()

	select {
	case <-first.Done():
	default:
		t.Fatal("starting a second request should cancel the first")
	}
	select {
	case <-second.Done():
		t.Fatal("second request should still be live")
	default:
	}
	release1()
	select {
	case <-second.Done():
		t.Fatal("stale release must not cancel the current request")
	default:
	}
}
