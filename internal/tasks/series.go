package tasks

import (
	"context"
	"time"
)

// cascadeLocked runs the series side effects of a just-saved edit. The
// caller holds m.mu and passes the saved task; cascadeLocked may rewrite it
// (series seeding, detachment) and saves any change back.
func (m *Manager) cascadeLocked(ctx context.Context, task *Task) error {
	if task.SeriesID == "" {
		if !task.Repeat.Repeats() {
			// A non-repeating standalone task never keeps a repeat end; it
			// only carries a cutoff into the series truncation below.
			if task.RepeatEnd != nil {
				task.RepeatEnd = nil
				task.UpdatedAt = m.now()
				return m.store.Update(ctx, *task)
			}
			return nil
		}
		// A standalone task that starts repeating becomes its own origin.
		task.SeriesID = task.ID
		if err := m.store.Update(ctx, *task); err != nil {
			return err
		}
		if err := m.materializeLocked(ctx, *task); err != nil {
			return err
		}
		return m.trimBeyondEndLocked(ctx, *task)
	}

	if !task.Repeat.Repeats() {
		return m.truncateLocked(ctx, task)
	}

	// Still repeating: push shared fields to every member, then rebuild the
	// instance set from the earliest member so the cadence never drifts.
	if err := m.propagateLocked(ctx, task.SeriesID, *task); err != nil {
		return err
	}
	origin, ok, err := m.earliestLocked(ctx, task.SeriesID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if err := m.materializeLocked(ctx, origin); err != nil {
		return err
	}
	if err := m.trimBeyondEndLocked(ctx, origin); err != nil {
		return err
	}
	m.publish(Event{Type: EventSeriesChanged, SeriesID: task.SeriesID, Title: task.Title})
	return nil
}

// truncateLocked handles an instance whose rule was set to none while it
// still carried a series id: siblings after the cutoff are removed, the
// survivors get repeat-end = cutoff, and the instance leaves the series.
func (m *Manager) truncateLocked(ctx context.Context, task *Task) error {
	seriesID := task.SeriesID
	cutoff := task.StartDay()
	if task.RepeatEnd != nil {
		cutoff = startOfDay(*task.RepeatEnd)
	}

	members, err := m.store.ListSeries(ctx, seriesID)
	if err != nil {
		return err
	}
	now := m.now()
	for _, member := range members {
		if member.ID == task.ID {
			continue
		}
		if member.StartDay().After(cutoff) {
			if err := m.store.Delete(ctx, member.ID); err != nil {
				return err
			}
			continue
		}
		end := cutoff
		member.RepeatEnd = &end
		member.UpdatedAt = now
		if err := m.store.Update(ctx, member); err != nil {
			return err
		}
	}

	task.SeriesID = ""
	task.RepeatEnd = nil
	task.UpdatedAt = now
	if err := m.store.Update(ctx, *task); err != nil {
		return err
	}
	m.publish(Event{Type: EventSeriesChanged, SeriesID: seriesID, Title: task.Title, Day: DayKey(cutoff)})
	return nil
}

// propagateLocked applies src's shared fields to every series member,
// leaving each member's start date and completion state untouched.
func (m *Manager) propagateLocked(ctx context.Context, seriesID string, src Task) error {
	members, err := m.store.ListSeries(ctx, seriesID)
	if err != nil {
		return err
	}
	now := m.now()
	for _, member := range members {
		if member.ID == src.ID {
			continue
		}
		member.Title = src.Title
		member.Priority = src.Priority
		member.Notes = src.Notes
		member.Labels = append([]string(nil), src.Labels...)
		member.DurationMinutes = src.DurationMinutes
		member.ReminderOffsets = append([]int(nil), src.ReminderOffsets...)
		member.Repeat = src.Repeat
		member.RepeatEnd = copyTime(src.RepeatEnd)
		if member.Repeat.Repeats() {
			member.DueAt = nil
		}
		member.UpdatedAt = now
		if err := m.store.Update(ctx, member); err != nil {
			return err
		}
	}
	return nil
}

// materializeLocked fills the gaps in a series at the origin's cadence up to
// min(repeat-end, horizon). Existing instances make it a no-op for their
// day, so the call is idempotent after any edit.
func (m *Manager) materializeLocked(ctx context.Context, origin Task) error {
	step := origin.Repeat.StepDays()
	if step == 0 || origin.SeriesID == "" {
		return nil
	}
	startDay := origin.StartDay()
	endLimit := startDay.AddDate(0, 0, m.horizonDays)
	if origin.RepeatEnd != nil {
		if end := startOfDay(*origin.RepeatEnd); end.Before(endLimit) {
			endLimit = end
		}
	}

	members, err := m.store.ListSeries(ctx, origin.SeriesID)
	if err != nil {
		return err
	}
	taken := make(map[string]bool, len(members))
	for _, member := range members {
		taken[DayKey(member.StartDay())] = true
	}

	now := m.now()
	created := 0
	for day := startDay.AddDate(0, 0, step); !day.After(endLimit); day = day.AddDate(0, 0, step) {
		if taken[DayKey(day)] {
			continue
		}
		start := day
		clone := Task{
			ID:              m.newID(),
			Title:           origin.Title,
			CreatedAt:       now,
			StartAt:         &start,
			Repeat:          origin.Repeat,
			RepeatEnd:       copyTime(origin.RepeatEnd),
			SeriesID:        origin.SeriesID,
			Priority:        origin.Priority,
			Notes:           origin.Notes,
			Labels:          append([]string(nil), origin.Labels...),
			DurationMinutes: origin.DurationMinutes,
			ReminderOffsets: append([]int(nil), origin.ReminderOffsets...),
			UpdatedAt:       now,
		}
		if err := m.store.Insert(ctx, clone); err != nil {
			return err
		}
		created++
	}
	if created > 0 && m.onMaterialize != nil {
		m.onMaterialize(created)
	}
	return nil
}

// trimBeyondEndLocked removes series instances dated after the origin's
// repeat-end day.
func (m *Manager) trimBeyondEndLocked(ctx context.Context, origin Task) error {
	if origin.SeriesID == "" || origin.RepeatEnd == nil {
		return nil
	}
	endDay := startOfDay(*origin.RepeatEnd)
	members, err := m.store.ListSeries(ctx, origin.SeriesID)
	if err != nil {
		return err
	}
	for _, member := range members {
		if member.StartDay().After(endDay) {
			if err := m.store.Delete(ctx, member.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// earliestLocked finds the series origin: the member with the earliest start
// day. Cadence is always computed from it, never from the edited instance.
func (m *Manager) earliestLocked(ctx context.Context, seriesID string) (Task, bool, error) {
	members, err := m.store.ListSeries(ctx, seriesID)
	if err != nil {
		return Task{}, false, err
	}
	if len(members) == 0 {
		return Task{}, false, nil
	}
	origin := members[0]
	for _, member := range members[1:] {
		if member.StartDay().Before(origin.StartDay()) {
			origin = member
		}
	}
	return origin, true, nil
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
