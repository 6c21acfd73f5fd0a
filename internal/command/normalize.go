package command

import (
	"fmt"
	"strings"
	"time"

	"github.com/ent0n29/daybook/internal/tasks"
	"github.com/ent0n29/daybook/internal/timeparse"
)

// Context carries the ambient inputs of normalization: the reference clock
// for relative dates, the display timezone, and the fallback values applied
// when a payload leaves a slot empty.
type Context struct {
	Now                time.Time
	Location           *time.Location
	DefaultClock       string
	DefaultReminderMin int
}

func (c Context) loc() *time.Location {
	if c.Location != nil {
		return c.Location
	}
	return time.UTC
}

func (c Context) ref() time.Time {
	now := c.Now
	if now.IsZero() {
		now = time.Now()
	}
	return now.In(c.loc())
}

func (c Context) clock() string {
	if c.DefaultClock != "" {
		return c.DefaultClock
	}
	return "09:00"
}

func (c Context) advance() int {
	if c.DefaultReminderMin > 0 {
		return c.DefaultReminderMin
	}
	return 10
}

// NormalizeCreate resolves a validated create payload into a title, an
// absolute start timestamp and a Details patch ready for the manager.
// Normalization is a fixed point: feeding its output back through produces
// the same result.
func NormalizeCreate(p CreatePayload, nctx Context) (string, time.Time, tasks.Details, error) {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return "", time.Time{}, tasks.Details{}, fmt.Errorf("%w: empty title", ErrInconsistent)
	}
	ref := nctx.ref()
	loc := nctx.loc()

	resolved, err := timeparse.Resolve(p.StartDate, ref)
	if err != nil {
		return "", time.Time{}, tasks.Details{}, fmt.Errorf("start_date %q: %w", p.StartDate, err)
	}
	startAt, err := applyClock(resolved, p.StartTime, p.EnableStartTime, nctx)
	if err != nil {
		return "", time.Time{}, tasks.Details{}, err
	}

	dueEnabled := p.DueDate != ""
	if p.EnableDueDate != nil {
		dueEnabled = *p.EnableDueDate
	}
	var due *time.Time
	if dueEnabled {
		if p.DueDate == "" {
			return "", time.Time{}, tasks.Details{}, fmt.Errorf("%w: due date enabled without a date", ErrInconsistent)
		}
		dueResolved, err := timeparse.Resolve(p.DueDate, ref)
		if err != nil {
			return "", time.Time{}, tasks.Details{}, fmt.Errorf("due_date %q: %w", p.DueDate, err)
		}
		enable := true
		d, err := applyClock(dueResolved, p.DueTime, &enable, nctx)
		if err != nil {
			return "", time.Time{}, tasks.Details{}, err
		}
		due = &d
	}

	// A due date and a repeat rule are mutually exclusive; the due date wins.
	repeat := tasks.NoRepeat()
	if !dueEnabled {
		repeat = tasks.ParseRepeatRule(p.RepeatRule, p.RepeatInterval)
	}
	var repeatEnd *time.Time
	if repeat.Repeats() && p.RepeatEndDate != "" {
		end, err := timeparse.ResolveDay(p.RepeatEndDate, ref)
		if err != nil {
			return "", time.Time{}, tasks.Details{}, fmt.Errorf("repeat_end_date %q: %w", p.RepeatEndDate, err)
		}
		if end.Before(timeparse.StartOfDay(startAt)) {
			return "", time.Time{}, tasks.Details{}, fmt.Errorf("%w: repeat end before start", ErrInconsistent)
		}
		repeatEnd = &end
	}

	// A declared reminder is due exactly when it fires: the fire time becomes
	// the due timestamp, which in turn displaces any repeat rule.
	if p.ReminderTime != "" {
		at, err := time.ParseInLocation(timeparse.LayoutDateTime, p.ReminderTime, loc)
		if err != nil {
			return "", time.Time{}, tasks.Details{}, fmt.Errorf("reminder_time %q: %w", p.ReminderTime, timeparse.ErrUnparseable)
		}
		due = &at
		repeat = tasks.NoRepeat()
		repeatEnd = nil
	}

	d := tasks.Details{
		Due:       due,
		Repeat:    repeat,
		RepeatEnd: repeatEnd,
		Labels:    canonicalLabels(p.Labels),
	}
	if p.Priority != "" {
		pr := tasks.ParsePriority(p.Priority)
		d.Priority = &pr
	}
	if p.Notes != "" {
		notes := p.Notes
		d.Notes = &notes
	}
	if p.DurationMinutes > 0 {
		dur := p.DurationMinutes
		d.DurationMinutes = &dur
	}

	offsets := canonicalOffsets(p.ReminderOffsets)
	if p.IsReminder || p.ReminderTime != "" || p.ReminderAdvance != nil {
		off, err := reminderAdvance(p.ReminderAdvance, nctx)
		if err != nil {
			return "", time.Time{}, tasks.Details{}, err
		}
		offsets = appendOffset(offsets, off)
	}
	d.ReminderOffsets = offsets

	return title, startAt, d, nil
}

// NormalizeUpdate folds a validated update payload into the task's current
// state and emits explicit finals for the due/repeat pair, so the manager
// never has to guess what an absent field meant.
func NormalizeUpdate(p UpdatePayload, current tasks.Task, nctx Context) (tasks.Details, error) {
	ref := nctx.ref()
	loc := nctx.loc()
	d := tasks.Details{}

	if p.Title != nil {
		if t := strings.TrimSpace(*p.Title); t != "" {
			d.Title = &t
		}
	}

	// Start resolution: a new date keeps the task's wall clock unless the
	// payload says otherwise.
	finalStart := timeparse.StartOfDay(ref)
	if current.StartAt != nil {
		finalStart = current.StartAt.In(loc)
	}
	startTouched := p.StartDate != nil || p.StartTime != nil || p.EnableStartTime != nil
	if startTouched {
		base := finalStart
		if p.StartDate != nil {
			resolved, err := timeparse.Resolve(*p.StartDate, ref)
			if err != nil {
				return tasks.Details{}, fmt.Errorf("start_date %q: %w", *p.StartDate, err)
			}
			base = resolved
			if hasWallClock(finalStart) && !hasWallClock(resolved) && p.StartTime == nil {
				base, err = timeparse.CombineDayClock(tasks.DayKey(resolved), finalStart.Format(timeparse.LayoutClock), loc)
				if err != nil {
					return tasks.Details{}, err
				}
			}
		}
		enable := p.EnableStartTime
		if enable == nil && p.StartTime == nil && hasWallClock(base) {
			keep := true
			enable = &keep
		}
		clock := ""
		if p.StartTime != nil {
			clock = *p.StartTime
		}
		start, err := applyClock(base, clock, enable, nctx)
		if err != nil {
			return tasks.Details{}, err
		}
		finalStart = start
		d.StartAt = &start
	}

	// Due/repeat finals. An explicit due-side edit wins over the repeat
	// rule; an explicit repeat rule clears an inherited due date.
	dueTouched := p.EnableDueDate != nil || p.DueDate != nil || p.DueTime != nil
	repeatTouched := p.RepeatRule != nil

	dueEnabled := current.DueAt != nil
	if p.DueDate != nil {
		dueEnabled = true
	}
	if p.EnableDueDate != nil {
		dueEnabled = *p.EnableDueDate
	}

	finalRepeat := current.Repeat
	if p.RepeatRule != nil {
		finalRepeat = tasks.ParseRepeatRule(*p.RepeatRule, p.RepeatInterval)
	}

	switch {
	case dueTouched && dueEnabled:
		finalRepeat = tasks.NoRepeat()
	case repeatTouched && finalRepeat.Repeats():
		dueEnabled = false
	case dueEnabled:
		finalRepeat = tasks.NoRepeat()
	}

	var due *time.Time
	if dueEnabled {
		var day time.Time
		switch {
		case p.DueDate != nil:
			resolved, err := timeparse.ResolveDay(*p.DueDate, ref)
			if err != nil {
				return tasks.Details{}, fmt.Errorf("due_date %q: %w", *p.DueDate, err)
			}
			day = resolved
		case current.DueAt != nil:
			day = timeparse.StartOfDay(current.DueAt.In(loc))
		default:
			return tasks.Details{}, fmt.Errorf("%w: due date enabled without a date", ErrInconsistent)
		}
		clock := nctx.clock()
		if p.DueTime != nil {
			clock = *p.DueTime
		} else if current.DueAt != nil && hasWallClock(current.DueAt.In(loc)) {
			clock = current.DueAt.In(loc).Format(timeparse.LayoutClock)
		}
		at, err := timeparse.CombineDayClock(tasks.DayKey(day), clock, loc)
		if err != nil {
			return tasks.Details{}, err
		}
		due = &at
	}

	// A reminder fire time overrides the due pair the same way it does on
	// create.
	if p.ReminderTime != nil {
		at, err := time.ParseInLocation(timeparse.LayoutDateTime, *p.ReminderTime, loc)
		if err != nil {
			return tasks.Details{}, fmt.Errorf("reminder_time %q: %w", *p.ReminderTime, timeparse.ErrUnparseable)
		}
		due = &at
		finalRepeat = tasks.NoRepeat()
	}
	d.Due = due
	d.Repeat = finalRepeat

	var end *time.Time
	if p.RepeatEndDate != nil {
		e, err := timeparse.ResolveDay(*p.RepeatEndDate, ref)
		if err != nil {
			return tasks.Details{}, fmt.Errorf("repeat_end_date %q: %w", *p.RepeatEndDate, err)
		}
		end = &e
	} else if finalRepeat.Repeats() && due == nil {
		end = copyTimePtr(current.RepeatEnd)
	}
	if due != nil {
		end = nil
	}
	d.RepeatEnd = end

	if p.Priority != nil {
		pr := tasks.ParsePriority(*p.Priority)
		d.Priority = &pr
	}
	if p.Notes != nil {
		d.Notes = p.Notes
	}
	if p.Labels != nil {
		d.Labels = canonicalLabels(p.Labels)
	}
	if p.DurationMinutes != nil {
		d.DurationMinutes = p.DurationMinutes
	}

	var offsets []int
	if p.ReminderOffsets != nil {
		offsets = canonicalOffsets(p.ReminderOffsets)
	}
	if p.IsReminder || p.ReminderTime != nil || p.ReminderAdvance != nil {
		off, err := reminderAdvance(p.ReminderAdvance, nctx)
		if err != nil {
			return tasks.Details{}, err
		}
		if offsets == nil {
			offsets = canonicalOffsets(current.ReminderOffsets)
		}
		offsets = appendOffset(offsets, off)
	}
	if offsets != nil {
		d.ReminderOffsets = offsets
	}

	return d, nil
}

// applyClock settles a resolved timestamp's wall clock. enable nil means
// "infer": keep an embedded or explicit clock, otherwise midnight. An
// enabled slot with no clock anywhere gets the default wall clock.
func applyClock(resolved time.Time, clock string, enable *bool, nctx Context) (time.Time, error) {
	embedded := hasWallClock(resolved)
	enabled := embedded || clock != ""
	if enable != nil {
		enabled = *enable
	}
	if !enabled {
		return timeparse.StartOfDay(resolved), nil
	}
	if clock == "" {
		if embedded {
			return resolved, nil
		}
		clock = nctx.clock()
	}
	return timeparse.CombineDayClock(tasks.DayKey(resolved), clock, nctx.loc())
}

func reminderAdvance(advance *int, nctx Context) (int, error) {
	if advance != nil {
		if *advance < 0 {
			return 0, fmt.Errorf("%w: negative reminder advance", ErrInconsistent)
		}
		return *advance, nil
	}
	return nctx.advance(), nil
}

func hasWallClock(t time.Time) bool {
	return t.Hour() != 0 || t.Minute() != 0 || t.Second() != 0
}

// canonicalLabels trims, drops empties and dedups while keeping first-seen
// order.
func canonicalLabels(in []string) []string {
	if in == nil {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, label := range in {
		trimmed := strings.TrimSpace(label)
		if trimmed == "" || seen[trimmed] {
			continue
		}
		seen[trimmed] = true
		out = append(out, trimmed)
	}
	return out
}

func canonicalOffsets(in []int) []int {
	if in == nil {
		return nil
	}
	seen := make(map[int]bool, len(in))
	out := make([]int, 0, len(in))
	for _, off := range in {
		if off < 0 || seen[off] {
			continue
		}
		seen[off] = true
		out = append(out, off)
	}
	return out
}

func appendOffset(offsets []int, off int) []int {
	for _, have := range offsets {
		if have == off {
			return offsets
		}
	}
	return append(offsets, off)
}

func copyTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
