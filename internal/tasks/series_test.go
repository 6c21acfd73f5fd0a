package tasks

import (
	"context"
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestManager(t *testing.T, horizonDays int) *Manager {
	t.Helper()
	m := NewManager(NewInMemoryStore(), horizonDays)
	m.SetClock(func() time.Time { return time.Date(2025, 8, 24, 12, 0, 0, 0, time.UTC) })
	return m
}

func seriesDays(t *testing.T, m *Manager, seriesID string) []string {
	t.Helper()
	members, err := m.Series(context.Background(), seriesID)
	if err != nil {
		t.Fatalf("series: %v", err)
	}
	out := make([]string, 0, len(members))
	for _, member := range members {
		out = append(out, DayKey(member.StartDay()))
	}
	return out
}

func TestCreateDailySeriesMaterializesDense(t *testing.T) {
	m := newTestManager(t, 365)
	end := day(2025, 8, 28)
	task, err := m.Create(context.Background(), "Gym", day(2025, 8, 25), Details{
		Repeat:    EveryDay(),
		RepeatEnd: &end,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.SeriesID != task.ID {
		t.Errorf("origin should seed its own series id, got %q", task.SeriesID)
	}
	got := seriesDays(t, m, task.SeriesID)
	want := []string{"2025-08-25", "2025-08-26", "2025-08-27", "2025-08-28"}
	if len(got) != len(want) {
		t.Fatalf("series days = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("series days = %v, want %v", got, want)
		}
	}
}

func TestMaterializationIsIdempotent(t *testing.T) {
	m := newTestManager(t, 365)
	end := day(2025, 8, 28)
	task, err := m.Create(context.Background(), "Gym", day(2025, 8, 25), Details{
		Repeat:    EveryDay(),
		RepeatEnd: &end,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// An edit that keeps the rule re-runs the cascade; nothing may double.
	title := "Gym (morning)"
	if _, err := m.ApplyDetails(context.Background(), task.ID, Details{
		Title:     &title,
		Repeat:    EveryDay(),
		RepeatEnd: &end,
	}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := seriesDays(t, m, task.SeriesID); len(got) != 4 {
		t.Fatalf("series days after re-cascade = %v, want 4", got)
	}
}

func TestEveryNDaysHonorsHorizon(t *testing.T) {
	m := newTestManager(t, 10)
	task, err := m.Create(context.Background(), "Water plants", day(2025, 8, 25), Details{
		Repeat: EveryNDays(3),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got := seriesDays(t, m, task.SeriesID)
	// Steps of 3 from Aug 25 up to Aug 25+10d inclusive.
	want := []string{"2025-08-25", "2025-08-28", "2025-08-31", "2025-09-03"}
	if len(got) != len(want) {
		t.Fatalf("series days = %v, want %v", got, want)
	}
}

func TestDueDateWinsOverRepeat(t *testing.T) {
	m := newTestManager(t, 365)
	due := time.Date(2025, 8, 30, 9, 0, 0, 0, time.UTC)
	task, err := m.Create(context.Background(), "File taxes", day(2025, 8, 25), Details{
		Due:    &due,
		Repeat: EveryDay(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.Repeat.Repeats() || task.SeriesID != "" {
		t.Errorf("due-dated task must not repeat: %+v", task)
	}
	if task.DueAt == nil || !task.DueAt.Equal(due) {
		t.Errorf("due = %v, want %v", task.DueAt, due)
	}
}

func TestTruncateMidSeries(t *testing.T) {
	m := newTestManager(t, 365)
	end := day(2025, 8, 29)
	origin, err := m.Create(context.Background(), "Standup", day(2025, 8, 25), Details{
		Repeat:    EveryDay(),
		RepeatEnd: &end,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	members, _ := m.Series(context.Background(), origin.SeriesID)
	if len(members) != 5 {
		t.Fatalf("series size = %d, want 5", len(members))
	}
	third := members[2] // 2025-08-27

	edited, err := m.Truncate(context.Background(), third.ID, day(2025, 8, 27))
	if err != nil {
		t.Fatalf("truncate: %v", err)
	}
	if edited.SeriesID != "" || edited.Repeat.Repeats() || edited.RepeatEnd != nil {
		t.Errorf("edited instance should leave the series: %+v", edited)
	}

	// Instances after the cutoff are gone.
	got := seriesDays(t, m, origin.SeriesID)
	want := []string{"2025-08-25", "2025-08-26"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("surviving days = %v, want %v", got, want)
	}

	// Survivors carry the cutoff as their repeat end.
	for _, dayKey := range want {
		list, _ := m.TasksForDay(context.Background(), mustDay(t, dayKey))
		if len(list) != 1 {
			t.Fatalf("day %s: %d tasks", dayKey, len(list))
		}
		if list[0].RepeatEnd == nil || DayKey(*list[0].RepeatEnd) != "2025-08-27" {
			t.Errorf("day %s survivor repeat end = %v", dayKey, list[0].RepeatEnd)
		}
	}

	// Nothing left on the removed days.
	for _, dayKey := range []string{"2025-08-28", "2025-08-29"} {
		list, _ := m.TasksForDay(context.Background(), mustDay(t, dayKey))
		if len(list) != 0 {
			t.Errorf("day %s should be empty, got %d tasks", dayKey, len(list))
		}
	}
}

func TestTruncateDoesNotResurrect(t *testing.T) {
	m := newTestManager(t, 365)
	end := day(2025, 8, 29)
	origin, err := m.Create(context.Background(), "Standup", day(2025, 8, 25), Details{
		Repeat:    EveryDay(),
		RepeatEnd: &end,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	members, _ := m.Series(context.Background(), origin.SeriesID)
	if _, err := m.Truncate(context.Background(), members[2].ID, day(2025, 8, 27)); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	// Editing a survivor re-runs propagation and materialization; the days
	// beyond the cutoff must stay gone.
	title := "Standup (short)"
	endAt := day(2025, 8, 27)
	if _, err := m.ApplyDetails(context.Background(), origin.ID, Details{
		Title:     &title,
		Repeat:    EveryDay(),
		RepeatEnd: &endAt,
	}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	for _, dayKey := range []string{"2025-08-28", "2025-08-29"} {
		list, _ := m.TasksForDay(context.Background(), mustDay(t, dayKey))
		if len(list) != 0 {
			t.Errorf("day %s resurrected: %d tasks", dayKey, len(list))
		}
	}
}

func TestPropagationPreservesStartAndDone(t *testing.T) {
	m := newTestManager(t, 365)
	end := day(2025, 8, 27)
	origin, err := m.Create(context.Background(), "Jog", day(2025, 8, 25), Details{
		Repeat:    EveryDay(),
		RepeatEnd: &end,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	members, _ := m.Series(context.Background(), origin.SeriesID)
	if _, err := m.Complete(context.Background(), members[1].ID, time.Time{}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	title := "Jog (5k)"
	high := PriorityHigh
	if _, err := m.ApplyDetails(context.Background(), members[0].ID, Details{
		Title:     &title,
		Priority:  &high,
		Repeat:    EveryDay(),
		RepeatEnd: &end,
	}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	after, _ := m.Series(context.Background(), origin.SeriesID)
	if len(after) != 3 {
		t.Fatalf("series size = %d, want 3", len(after))
	}
	for i, member := range after {
		if member.Title != title || member.Priority != PriorityHigh {
			t.Errorf("member %d missed propagation: %+v", i, member)
		}
		if DayKey(member.StartDay()) != DayKey(members[i].StartDay()) {
			t.Errorf("member %d start day changed: %s -> %s", i, DayKey(members[i].StartDay()), DayKey(member.StartDay()))
		}
	}
	if !after[1].Done {
		t.Error("completion state lost during propagation")
	}
	if after[0].Done || after[2].Done {
		t.Error("completion state leaked to other members")
	}
}

func TestStandaloneBecomesSeries(t *testing.T) {
	m := newTestManager(t, 365)
	task, err := m.Create(context.Background(), "Read", day(2025, 8, 25), Details{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.SeriesID != "" {
		t.Fatalf("plain task should not be in a series: %+v", task)
	}

	end := day(2025, 8, 27)
	updated, err := m.ApplyDetails(context.Background(), task.ID, Details{
		Repeat:    EveryDay(),
		RepeatEnd: &end,
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if updated.SeriesID != task.ID {
		t.Errorf("series should seed from the task id, got %q", updated.SeriesID)
	}
	if got := seriesDays(t, m, updated.SeriesID); len(got) != 3 {
		t.Fatalf("series days = %v, want 3", got)
	}
}

func mustDay(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse day %q: %v", s, err)
	}
	return parsed.UTC()
}
