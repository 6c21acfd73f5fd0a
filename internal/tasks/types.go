package tasks

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type RepeatKind string

const (
	RepeatNone      RepeatKind = "none"
	RepeatEveryDay  RepeatKind = "everyDay"
	RepeatEveryNDay RepeatKind = "everyNDays"
)

// RepeatRule is the task cadence. IntervalDays is meaningful only for
// RepeatEveryNDay and is always >= 2 there.
type RepeatRule struct {
	Kind         RepeatKind `json:"kind"`
	IntervalDays int        `json:"interval_days,omitempty"`
}

func NoRepeat() RepeatRule { return RepeatRule{Kind: RepeatNone} }

func EveryDay() RepeatRule { return RepeatRule{Kind: RepeatEveryDay} }

func EveryNDays(n int) RepeatRule {
	if n < 2 {
		n = 2
	}
	return RepeatRule{Kind: RepeatEveryNDay, IntervalDays: n}
}

func (r RepeatRule) Repeats() bool { return r.Kind == RepeatEveryDay || r.Kind == RepeatEveryNDay }

// StepDays is the day interval between series instances; 0 when not repeating.
func (r RepeatRule) StepDays() int {
	switch r.Kind {
	case RepeatEveryDay:
		return 1
	case RepeatEveryNDay:
		if r.IntervalDays < 2 {
			return 2
		}
		return r.IntervalDays
	default:
		return 0
	}
}

// String renders the wire alias used by the raw protocol and the tool schema.
func (r RepeatRule) String() string {
	switch r.Kind {
	case RepeatEveryDay:
		return "daily"
	case RepeatEveryNDay:
		return fmt.Sprintf("every_%d_days", r.StepDays())
	default:
		return "none"
	}
}

// ParseRepeatRule accepts both canonical names and wire aliases. Unknown
// cadences fall back to none; intervals below 2 are clamped.
func ParseRepeatRule(s string, interval int) RepeatRule {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "everyday", "daily", "每天":
		return EveryDay()
	case "everyndays":
		return EveryNDays(interval)
	default:
		if strings.HasPrefix(v, "every_") && strings.HasSuffix(v, "_days") {
			mid := strings.TrimSuffix(strings.TrimPrefix(v, "every_"), "_days")
			if n, err := strconv.Atoi(mid); err == nil && n >= 2 {
				return EveryNDays(n)
			}
			if mid == "1" {
				return EveryDay()
			}
		}
		return NoRepeat()
	}
}

type Priority string

const (
	PriorityNone   Priority = "none"
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

var priorityAliases = map[string]Priority{
	"none": PriorityNone,
	"low":  PriorityLow, "低": PriorityLow,
	"medium": PriorityMedium, "中": PriorityMedium,
	"high": PriorityHigh, "高": PriorityHigh,
}

// ParsePriority maps aliases (including localized tokens) to a canonical
// priority; unrecognized input defaults to none.
func ParsePriority(s string) Priority {
	if p, ok := priorityAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return p
	}
	return PriorityNone
}

// ValidPriority reports whether s names a canonical priority exactly.
func ValidPriority(s string) bool {
	switch Priority(strings.ToLower(strings.TrimSpace(s))) {
	case PriorityNone, PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// Task is one checklist entry. A task carries a due date or a repeating
// rule, never both; ApplyDetails enforces the exclusion on every write.
type Task struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Done            bool       `json:"done"`
	CreatedAt       time.Time  `json:"created_at"`
	StartAt         *time.Time `json:"start_at,omitempty"`
	DueAt           *time.Time `json:"due_at,omitempty"`
	Repeat          RepeatRule `json:"repeat"`
	RepeatEnd       *time.Time `json:"repeat_end,omitempty"`
	SeriesID        string     `json:"series_id,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	Priority        Priority   `json:"priority"`
	Notes           string     `json:"notes,omitempty"`
	Labels          []string   `json:"labels,omitempty"`
	DurationMinutes int        `json:"duration_minutes,omitempty"`
	ReminderOffsets []int      `json:"reminder_offsets,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (t Task) Clone() Task {
	out := t
	if t.StartAt != nil {
		v := *t.StartAt
		out.StartAt = &v
	}
	if t.DueAt != nil {
		v := *t.DueAt
		out.DueAt = &v
	}
	if t.RepeatEnd != nil {
		v := *t.RepeatEnd
		out.RepeatEnd = &v
	}
	if t.CompletedAt != nil {
		v := *t.CompletedAt
		out.CompletedAt = &v
	}
	if t.Labels != nil {
		out.Labels = append([]string(nil), t.Labels...)
	}
	if t.ReminderOffsets != nil {
		out.ReminderOffsets = append([]int(nil), t.ReminderOffsets...)
	}
	return out
}

// StartDay is the calendar day the task lives on, falling back to creation.
func (t Task) StartDay() time.Time {
	at := t.CreatedAt
	if t.StartAt != nil {
		at = *t.StartAt
	}
	return time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, at.Location())
}

// DayKey formats a day-bucket key, shared by stores and the HTTP layer.
func DayKey(t time.Time) string { return t.Format("2006-01-02") }

// Trashed is a recently deleted task held for restore.
type Trashed struct {
	Task      Task      `json:"task"`
	DeletedAt time.Time `json:"deleted_at"`
}

type EventType string

const (
	EventTaskCreated   EventType = "task_created"
	EventTaskUpdated   EventType = "task_updated"
	EventTaskCompleted EventType = "task_completed"
	EventTaskDeleted   EventType = "task_deleted"
	EventTaskRestored  EventType = "task_restored"
	EventSeriesChanged EventType = "series_changed"
)

// Event describes one store mutation for live clients.
type Event struct {
	Type     EventType `json:"type"`
	TaskID   string    `json:"task_id,omitempty"`
	SeriesID string    `json:"series_id,omitempty"`
	Title    string    `json:"title,omitempty"`
	Day      string    `json:"day,omitempty"`
	At       time.Time `json:"at"`
}
