package tasks

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCompleteIsIdempotent(t *testing.T) {
	m := newTestManager(t, 365)
	task, err := m.Create(context.Background(), "Call mom", day(2025, 8, 25), Details{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	on := time.Date(2025, 8, 25, 20, 0, 0, 0, time.UTC)
	first, err := m.Complete(context.Background(), task.ID, on)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !first.Done || first.CompletedAt == nil || !first.CompletedAt.Equal(on) {
		t.Fatalf("first completion = %+v", first)
	}

	second, err := m.Complete(context.Background(), task.ID, on.Add(time.Hour))
	if err != nil {
		t.Fatalf("second complete: %v", err)
	}
	if !second.CompletedAt.Equal(on) {
		t.Errorf("second completion moved the timestamp: %v", second.CompletedAt)
	}
}

func TestCompleteUnknownTask(t *testing.T) {
	m := newTestManager(t, 365)
	if _, err := m.Complete(context.Background(), "nope", time.Time{}); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("want ErrTaskNotFound, got %v", err)
	}
}

func TestDeleteRestorePurge(t *testing.T) {
	m := newTestManager(t, 365)
	task, err := m.Create(context.Background(), "Old chore", day(2025, 8, 25), Details{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := m.Delete(context.Background(), task.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := m.Get(context.Background(), task.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("deleted task still readable: %v", err)
	}
	trash, err := m.Trash(context.Background())
	if err != nil || len(trash) != 1 {
		t.Fatalf("trash = %v, %v", trash, err)
	}

	restored, err := m.Restore(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.ID != task.ID || restored.Title != task.Title {
		t.Fatalf("restored = %+v", restored)
	}
	if trash, _ = m.Trash(context.Background()); len(trash) != 0 {
		t.Fatalf("trash not emptied after restore: %v", trash)
	}

	if err := m.PurgeTrash(context.Background(), task.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("purge after restore: want ErrTaskNotFound, got %v", err)
	}
}

func TestDeferIncompleteSkipsPinnedTasks(t *testing.T) {
	m := newTestManager(t, 365)
	start := day(2025, 8, 25)

	movable, err := m.Create(context.Background(), "Loose end", start, Details{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	done, err := m.Create(context.Background(), "Finished", start, Details{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := m.Complete(context.Background(), done.ID, time.Time{}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	end := day(2025, 8, 26)
	if _, err := m.Create(context.Background(), "Routine", start, Details{Repeat: EveryDay(), RepeatEnd: &end}); err != nil {
		t.Fatalf("create repeating: %v", err)
	}
	due := time.Date(2025, 8, 28, 9, 0, 0, 0, time.UTC)
	if _, err := m.Create(context.Background(), "Deadline", start, Details{Due: &due}); err != nil {
		t.Fatalf("create due: %v", err)
	}

	moved, err := m.DeferIncomplete(context.Background(), start)
	if err != nil {
		t.Fatalf("defer: %v", err)
	}
	if moved != 1 {
		t.Fatalf("moved = %d, want 1", moved)
	}
	got, err := m.Get(context.Background(), movable.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if DayKey(got.StartDay()) != "2025-08-26" {
		t.Errorf("movable task day = %s, want 2025-08-26", DayKey(got.StartDay()))
	}
}

func TestListDayIncludesDueSpan(t *testing.T) {
	m := newTestManager(t, 365)
	due := time.Date(2025, 8, 28, 18, 0, 0, 0, time.UTC)
	if _, err := m.Create(context.Background(), "Write report", day(2025, 8, 25), Details{Due: &due}); err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, dayKey := range []string{"2025-08-25", "2025-08-26", "2025-08-28"} {
		list, err := m.TasksForDay(context.Background(), mustDay(t, dayKey))
		if err != nil || len(list) != 1 {
			t.Errorf("day %s: tasks = %v, %v", dayKey, list, err)
		}
	}
	list, _ := m.TasksForDay(context.Background(), mustDay(t, "2025-08-29"))
	if len(list) != 0 {
		t.Errorf("day after due should be empty, got %d", len(list))
	}
}

func TestSettingDueOnSeriesInstanceTruncates(t *testing.T) {
	m := newTestManager(t, 365)
	end := day(2025, 8, 28)
	origin, err := m.Create(context.Background(), "Routine", day(2025, 8, 25), Details{
		Repeat:    EveryDay(),
		RepeatEnd: &end,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	members, _ := m.Series(context.Background(), origin.SeriesID)
	second := members[1] // 2025-08-26

	due := time.Date(2025, 8, 30, 9, 0, 0, 0, time.UTC)
	edited, err := m.ApplyDetails(context.Background(), second.ID, Details{Due: &due})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if edited.SeriesID != "" || edited.Repeat.Repeats() {
		t.Errorf("edited instance should leave the series: %+v", edited)
	}
	if edited.DueAt == nil || !edited.DueAt.Equal(due) {
		t.Errorf("due = %v, want %v", edited.DueAt, due)
	}

	// Siblings after the instance's day are gone; earlier ones survive.
	got := seriesDays(t, m, origin.SeriesID)
	if len(got) != 1 || got[0] != "2025-08-25" {
		t.Fatalf("surviving days = %v, want [2025-08-25]", got)
	}
}

func TestSubscribePublishesMutations(t *testing.T) {
	m := newTestManager(t, 365)
	events, cancel := m.Subscribe()
	defer cancel()

	task, err := m.Create(context.Background(), "Ping", day(2025, 8, 25), Details{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	select {
	case ev := <-events:
		if ev.Type != EventTaskCreated || ev.TaskID != task.ID {
			t.Fatalf("event = %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}
}

func TestTruncateStandaloneClearsRepeatEnd(t *testing.T) {
	m := newTestManager(t, 365)
	task, err := m.Create(context.Background(), "One-off", day(2025, 8, 25), Details{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := m.Truncate(context.Background(), task.ID, day(2025, 8, 27))
	if err != nil {
		t.Fatalf("truncate: %v", err)
	}
	if got.Repeat.Repeats() || got.RepeatEnd != nil {
		t.Fatalf("standalone task kept a repeat end: %+v", got)
	}
	stored, err := m.Get(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.RepeatEnd != nil {
		t.Errorf("persisted repeat end = %v, want nil", stored.RepeatEnd)
	}
}

func TestCreateDefaultsRepeatKind(t *testing.T) {
	m := newTestManager(t, 365)
	task, err := m.Create(context.Background(), "Plain", day(2025, 8, 25), Details{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.Repeat.Kind != RepeatNone {
		t.Fatalf("repeat kind = %q, want %q", task.Repeat.Kind, RepeatNone)
	}

	updated, err := m.ApplyDetails(context.Background(), task.ID, Details{})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if updated.Repeat.Kind != RepeatNone {
		t.Errorf("repeat kind after empty patch = %q, want %q", updated.Repeat.Kind, RepeatNone)
	}
}

func TestCreateRequiresTitle(t *testing.T) {
	m := newTestManager(t, 365)
	if _, err := m.Create(context.Background(), "   ", day(2025, 8, 25), Details{}); err == nil {
		t.Fatal("empty title accepted")
	}
}
