package assistant

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ent0n29/daybook/internal/command"
)

var (
	ErrNothingPlanned    = errors.New("nothing to plan")
	ErrNothingActionable = errors.New("no actionable commands")
	ErrPlanNotFound      = errors.New("plan not found or expired")
)

// Operation is one planned command, summarized for display.
type Operation struct {
	ID      string         `json:"id"`
	Action  command.Action `json:"action"`
	Summary string         `json:"summary"`
}

// Plan is a held set of interpreted commands awaiting confirmation.
type Plan struct {
	ID         string      `json:"id"`
	Input      string      `json:"input"`
	Operations []Operation `json:"operations"`
	ExpiresAt  time.Time   `json:"expires_at"`
}

type heldPlan struct {
	plan Plan
	cmds []command.Command
}

type planRegistry struct {
	mu   sync.Mutex
	ttl  time.Duration
	held map[string]heldPlan
	now  func() time.Time
}

func newPlanRegistry(ttl time.Duration) *planRegistry {
	return &planRegistry{
		ttl:  ttl,
		held: make(map[string]heldPlan),
		now:  func() time.Time { return time.Now() },
	}
}

func (r *planRegistry) add(input string, cmds []command.Command) Plan {
	ops := make([]Operation, 0, len(cmds))
	for _, cmd := range cmds {
		ops = append(ops, Operation{
			ID:      uuid.NewString(),
			Action:  cmd.Action,
			Summary: summarize(cmd),
		})
	}
	plan := Plan{
		ID:         uuid.NewString(),
		Input:      input,
		Operations: ops,
		ExpiresAt:  r.now().Add(r.ttl),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()
	r.held[plan.ID] = heldPlan{plan: plan, cmds: cmds}
	return plan
}

// take removes and returns a plan's commands. Consume-once.
func (r *planRegistry) take(planID string) ([]command.Command, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()
	held, ok := r.held[planID]
	if !ok {
		return nil, ErrPlanNotFound
	}
	delete(r.held, planID)
	return held.cmds, nil
}

func (r *planRegistry) sweepLocked() {
	now := r.now()
	for id, held := range r.held {
		if now.After(held.plan.ExpiresAt) {
			delete(r.held, id)
		}
	}
}

func summarize(cmd command.Command) string {
	var b strings.Builder
	b.WriteString(string(cmd.Action))
	if title, ok := cmd.Fields["title"].(string); ok && title != "" {
		fmt.Fprintf(&b, " %q", title)
	}
	if id, ok := cmd.Fields["id"].(string); ok && id != "" {
		fmt.Fprintf(&b, " task %s", id)
	}
	for _, key := range []string{"start_date", "due_date", "on_date", "date"} {
		if v, ok := cmd.Fields[key].(string); ok && v != "" {
			fmt.Fprintf(&b, " (%s %s)", strings.ReplaceAll(key, "_", " "), v)
		}
	}
	return b.String()
}
