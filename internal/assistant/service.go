package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ent0n29/daybook/internal/brain"
	"github.com/ent0n29/daybook/internal/command"
	"github.com/ent0n29/daybook/internal/observability"
	"github.com/ent0n29/daybook/internal/tasks"
	"github.com/ent0n29/daybook/internal/timeparse"
)

type Config struct {
	Location           *time.Location
	DefaultClock       string
	DefaultReminderMin int
	PlanTTL            time.Duration
}

// Service sits between the HTTP layer and the task core: it turns natural
// language into commands via the interpreter, validates and normalizes them,
// and routes each action to the manager.
type Service struct {
	manager *tasks.Manager
	adapter brain.Adapter
	metrics *observability.Metrics
	cfg     Config
	gate    brain.Gate
	plans   *planRegistry
	now     func() time.Time
}

func New(manager *tasks.Manager, adapter brain.Adapter, metrics *observability.Metrics, cfg Config) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.PlanTTL <= 0 {
		cfg.PlanTTL = 10 * time.Minute
	}
	return &Service{
		manager: manager,
		adapter: adapter,
		metrics: metrics,
		cfg:     cfg,
		plans:   newPlanRegistry(cfg.PlanTTL),
		now:     func() time.Time { return time.Now() },
	}
}

// SetClock overrides the time source, for tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
	s.plans.now = now
}

// nctxAt anchors normalization at ref; a zero ref means the current moment.
func (s *Service) nctxAt(ref time.Time) command.Context {
	if ref.IsZero() {
		ref = s.now()
	}
	return command.Context{
		Now:                ref.In(s.cfg.Location),
		Location:           s.cfg.Location,
		DefaultClock:       s.cfg.DefaultClock,
		DefaultReminderMin: s.cfg.DefaultReminderMin,
	}
}

// Process interprets one utterance and executes every resulting command in
// order. A failing command never blocks the ones after it. A non-zero ref
// shifts "today" for relative-date resolution.
func (s *Service) Process(ctx context.Context, input string, ref time.Time) ([]Result, error) {
	reply, unactionable, err := s.interpret(ctx, input, ref)
	if err != nil {
		return nil, err
	}
	if unactionable || reply.Unactionable {
		return []Result{{Kind: ResultUnactionable}}, nil
	}
	if reply.NoAction {
		return []Result{{Kind: ResultNoAction, Message: reply.Message}}, nil
	}
	return s.executeAt(ctx, reply.Commands, ref), nil
}

// Plan interprets an utterance but holds the commands for confirmation
// instead of executing them.
func (s *Service) Plan(ctx context.Context, input string, ref time.Time) (Plan, error) {
	reply, unactionable, err := s.interpret(ctx, input, ref)
	if err != nil {
		return Plan{}, err
	}
	if unactionable || reply.Unactionable {
		return Plan{}, ErrNothingActionable
	}
	if reply.NoAction {
		return Plan{}, ErrNothingPlanned
	}
	return s.plans.add(input, reply.Commands), nil
}

// Confirm executes a held plan. Plans are consume-once: a second confirm of
// the same id fails.
func (s *Service) Confirm(ctx context.Context, planID string) ([]Result, error) {
	cmds, err := s.plans.take(planID)
	if err != nil {
		return nil, err
	}
	return s.Execute(ctx, cmds), nil
}

// Execute runs validated-or-not commands directly, bypassing the
// interpreter. The raw-protocol endpoint and Confirm both land here.
func (s *Service) Execute(ctx context.Context, cmds []command.Command) []Result {
	return s.executeAt(ctx, cmds, time.Time{})
}

func (s *Service) executeAt(ctx context.Context, cmds []command.Command, ref time.Time) []Result {
	results := make([]Result, 0, len(cmds))
	for _, cmd := range cmds {
		results = append(results, s.runCommand(ctx, cmd, ref))
	}
	return results
}

// ExecuteRaw parses one raw-protocol line and executes it, returning the
// wire envelope.
func (s *Service) ExecuteRaw(ctx context.Context, line string) command.RawResponse {
	cmd, err := command.ParseRaw(line)
	if err != nil {
		return command.RawResponse{Result: "error", Error: err.Error()}
	}
	res := s.runCommand(ctx, cmd, time.Time{})
	out := command.RawResponse{Operation: cmd.Action, Result: string(res.Kind), Task: res.Task}
	if res.Error != "" {
		out.Result = "error"
		out.Error = res.Error
	}
	return out
}

func (s *Service) interpret(ctx context.Context, input string, ref time.Time) (brain.Reply, bool, error) {
	if !brain.IsLikelyTaskCommand(input) {
		if s.metrics != nil {
			s.metrics.ClassifierRejections.Inc()
		}
		return brain.Reply{}, true, nil
	}

	now := s.nctxAt(ref).Now
	req := brain.Request{
		Input:    input,
		Today:    tasks.DayKey(now),
		Timezone: s.cfg.Location.String(),
		Tasks:    s.snapshot(ctx, now),
	}

	gctx, release := s.gate.Start(ctx)
	defer release()

	started := s.now()
	reply, err := s.adapter.Interpret(gctx, req)
	if s.metrics != nil {
		s.metrics.ObserveInterpreterLatency(s.now().Sub(started))
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		s.metrics.InterpreterRequests.WithLabelValues(outcome).Inc()
	}
	if err != nil {
		return brain.Reply{}, false, fmt.Errorf("interpret %q: %w", input, err)
	}
	return reply, false, nil
}

// snapshot collects today's and tomorrow's tasks as interpreter context, so
// the model can resolve references like "the gym task".
func (s *Service) snapshot(ctx context.Context, now time.Time) []brain.TaskContext {
	var out []brain.TaskContext
	for _, day := range []time.Time{now, now.AddDate(0, 0, 1)} {
		list, err := s.manager.TasksForDay(ctx, day)
		if err != nil {
			continue
		}
		for _, t := range list {
			out = append(out, brain.TaskContext{
				ID:     t.ID,
				Title:  t.Title,
				Day:    tasks.DayKey(t.StartDay()),
				Done:   t.Done,
				Repeat: t.Repeat.String(),
			})
		}
	}
	return out
}

func (s *Service) runCommand(ctx context.Context, cmd command.Command, ref time.Time) Result {
	res := s.dispatch(ctx, cmd, ref)
	if s.metrics != nil {
		outcome := "ok"
		if res.Error != "" {
			outcome = "error"
		}
		s.metrics.CommandsTotal.WithLabelValues(string(cmd.Action), outcome).Inc()
	}
	return res
}

func (s *Service) dispatch(ctx context.Context, cmd command.Command, ref time.Time) Result {
	payload, err := command.Validate(cmd)
	if err != nil {
		return invalid(cmd.Action, err)
	}
	nctx := s.nctxAt(ref)

	switch p := payload.(type) {
	case command.CreatePayload:
		title, startAt, details, err := command.NormalizeCreate(p, nctx)
		if err != nil {
			return invalid(cmd.Action, err)
		}
		task, err := s.manager.Create(ctx, CleanTitle(title), startAt, details)
		if err != nil {
			return failed(cmd.Action, err)
		}
		return ok(ResultCreated, cmd.Action, task)

	case command.UpdatePayload:
		current, err := s.manager.Get(ctx, p.ID)
		if err != nil {
			return failed(cmd.Action, err)
		}
		details, err := command.NormalizeUpdate(p, current, nctx)
		if err != nil {
			return invalid(cmd.Action, err)
		}
		task, err := s.manager.ApplyDetails(ctx, p.ID, details)
		if err != nil {
			return failed(cmd.Action, err)
		}
		return ok(ResultUpdated, cmd.Action, task)

	case command.CompletePayload:
		var on time.Time
		if p.CompletedOn != "" {
			on, err = timeparse.Resolve(p.CompletedOn, nctx.Now)
			if err != nil {
				return invalid(cmd.Action, err)
			}
		}
		task, err := s.manager.Complete(ctx, p.ID, on)
		if err != nil {
			return failed(cmd.Action, err)
		}
		return ok(ResultCompleted, cmd.Action, task)

	case command.DeletePayload:
		task, err := s.manager.Get(ctx, p.ID)
		if err != nil {
			return failed(cmd.Action, err)
		}
		if err := s.manager.Delete(ctx, p.ID); err != nil {
			return failed(cmd.Action, err)
		}
		return ok(ResultDeleted, cmd.Action, task)

	case command.RestorePayload:
		task, err := s.manager.Restore(ctx, p.ID)
		if err != nil {
			return failed(cmd.Action, err)
		}
		return ok(ResultRestored, cmd.Action, task)

	case command.TruncatePayload:
		cutoff, err := timeparse.ResolveDay(p.OnDate, nctx.Now)
		if err != nil {
			return invalid(cmd.Action, err)
		}
		task, err := s.manager.Truncate(ctx, p.ID, cutoff)
		if err != nil {
			return failed(cmd.Action, err)
		}
		return ok(ResultTruncated, cmd.Action, task)

	case command.ListPayload:
		day := nctx.Now
		if p.Date != "" {
			day, err = timeparse.ResolveDay(p.Date, nctx.Now)
			if err != nil {
				return invalid(cmd.Action, err)
			}
		}
		list, err := s.manager.TasksForDay(ctx, day)
		if err != nil {
			return failed(cmd.Action, err)
		}
		return Result{Kind: ResultListed, Action: cmd.Action, Tasks: list, Message: tasks.DayKey(timeparse.StartOfDay(day))}

	default:
		return failed(cmd.Action, fmt.Errorf("unhandled payload %T", payload))
	}
}

func invalid(action command.Action, err error) Result {
	return Result{Kind: ResultInvalid, Action: action, Error: err.Error()}
}

func failed(action command.Action, err error) Result {
	kind := ResultFailed
	if errors.Is(err, tasks.ErrTaskNotFound) {
		kind = ResultNotFound
	}
	return Result{Kind: kind, Action: action, Error: err.Error()}
}

func ok(kind ResultKind, action command.Action, task tasks.Task) Result {
	return Result{Kind: kind, Action: action, Task: &task}
}

// Relative-date words the interpreter sometimes leaves dangling at the end
// of a title ("buy milk tomorrow").
var trailingDateWords = []string{"today", "tomorrow", "tonight", "tmr", "yesterday"}

// CleanTitle strips the quoting, trailing punctuation and dangling date
// words language models like to carry over from the utterance.
func CleanTitle(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"'“”‘’「」")
	s = strings.TrimRight(s, ".。!！?？,，;；:：")
	lower := strings.ToLower(s)
	for _, word := range trailingDateWords {
		if strings.HasSuffix(lower, " "+word) {
			s = strings.TrimSpace(s[:len(s)-len(word)-1])
			break
		}
	}
	return strings.TrimSpace(s)
}
