package command

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/ent0n29/daybook/internal/tasks"
	"github.com/ent0n29/daybook/internal/timeparse"
)

var reminderTimeRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}$`)

// Validate turns an action plus untyped field map into a typed payload, or a
// ValidationError listing every offending field. Dates must already be
// absolute (YYYY-MM-DD or a full date-time); relative-keyword resolution is
// the caller's job on natural-language paths.
func Validate(cmd Command) (Payload, error) {
	v := newFieldReader(cmd.Fields)
	switch cmd.Action {
	case ActionCreate:
		return validateCreate(v)
	case ActionUpdate:
		return validateUpdate(v)
	case ActionComplete:
		p := CompletePayload{ID: v.requireID("id"), CompletedOn: v.optionalDate("completed_on")}
		return p, v.result(ActionComplete)
	case ActionDelete:
		p := DeletePayload{ID: v.requireID("id")}
		return p, v.result(ActionDelete)
	case ActionRestore:
		p := RestorePayload{ID: v.requireID("id")}
		return p, v.result(ActionRestore)
	case ActionTruncate:
		p := TruncatePayload{ID: v.requireID("id"), OnDate: v.requireDate("on_date")}
		return p, v.result(ActionTruncate)
	case ActionList:
		p := ListPayload{Date: v.optionalDate("date")}
		return p, v.result(ActionList)
	default:
		return nil, &ValidationError{Action: cmd.Action, Violations: []Violation{{Field: "action", Reason: "unsupported action"}}}
	}
}

func validateCreate(v *fieldReader) (Payload, error) {
	p := CreatePayload{
		Title:           v.requireString("title"),
		StartDate:       v.requireDate("start_date"),
		StartTime:       v.optionalClock("start_time"),
		EnableStartTime: v.optionalBool("enable_start_time"),
		DueDate:         v.optionalDate("due_date"),
		DueTime:         v.optionalClock("due_time"),
		EnableDueDate:   v.optionalBool("enable_due_date"),
		RepeatRule:      v.requireRepeat("repeat_rule"),
		RepeatInterval:  v.optionalInt("repeat_interval", 0),
		RepeatEndDate:   v.optionalDate("repeat_end_date"),
		Priority:        v.optionalPriority("priority"),
		Notes:           v.stringOr("notes", ""),
		Labels:          v.optionalLabels(),
		DurationMinutes: v.optionalMinutes("duration_minutes"),
		ReminderOffsets: v.optionalOffsets("reminder_offsets"),
		IsReminder:      v.boolOr("is_reminder", false),
		ReminderTime:    v.optionalReminderTime("reminder_time"),
		ReminderAdvance: v.optionalAdvance("reminder_advance"),
	}
	return p, v.result(ActionCreate)
}

func validateUpdate(v *fieldReader) (Payload, error) {
	p := UpdatePayload{
		ID:              v.requireID("id"),
		Title:           v.optionalString("title"),
		StartDate:       v.optionalDatePtr("start_date"),
		StartTime:       v.optionalClockPtr("start_time"),
		EnableStartTime: v.optionalBool("enable_start_time"),
		DueDate:         v.optionalDatePtr("due_date"),
		DueTime:         v.optionalClockPtr("due_time"),
		EnableDueDate:   v.optionalBool("enable_due_date"),
		RepeatRule:      v.optionalRepeatPtr("repeat_rule"),
		RepeatInterval:  v.optionalInt("repeat_interval", 0),
		RepeatEndDate:   v.optionalDatePtr("repeat_end_date"),
		Priority:        v.optionalPriorityPtr("priority"),
		Notes:           v.optionalString("notes"),
		Labels:          v.optionalLabels(),
		DurationMinutes: v.optionalMinutesPtr("duration_minutes"),
		ReminderOffsets: v.optionalOffsets("reminder_offsets"),
		IsReminder:      v.boolOr("is_reminder", false),
		ReminderTime:    v.optionalReminderTimePtr("reminder_time"),
		ReminderAdvance: v.optionalAdvance("reminder_advance"),
	}
	return p, v.result(ActionUpdate)
}

// fieldReader pulls typed values out of the untyped map, recording every
// violation instead of stopping at the first.
type fieldReader struct {
	fields     map[string]any
	violations []Violation
}

func newFieldReader(fields map[string]any) *fieldReader {
	if fields == nil {
		fields = map[string]any{}
	}
	return &fieldReader{fields: fields}
}

func (v *fieldReader) result(action Action) error {
	if len(v.violations) == 0 {
		return nil
	}
	return &ValidationError{Action: action, Violations: v.violations}
}

func (v *fieldReader) fail(field, reason string) {
	v.violations = append(v.violations, Violation{Field: field, Reason: reason})
}

func (v *fieldReader) raw(field string) (string, bool) {
	val, ok := v.fields[field]
	if !ok || val == nil {
		return "", false
	}
	switch t := val.(type) {
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return fmt.Sprintf("%v", t), true
	}
}

func (v *fieldReader) requireString(field string) string {
	s, ok := v.raw(field)
	if !ok {
		v.fail(field, "required")
	}
	return s
}

func (v *fieldReader) stringOr(field, fallback string) string {
	if s, ok := v.raw(field); ok {
		return s
	}
	return fallback
}

func (v *fieldReader) optionalString(field string) *string {
	if _, present := v.fields[field]; !present {
		return nil
	}
	s, ok := v.raw(field)
	if !ok {
		return nil
	}
	return &s
}

func (v *fieldReader) requireID(field string) string {
	s, ok := v.raw(field)
	if !ok {
		v.fail(field, "required")
		return ""
	}
	if _, err := uuid.Parse(s); err != nil {
		v.fail(field, "not a valid identifier")
	}
	return s
}

func isAbsoluteDate(s string) bool {
	return timeparse.IsDay(s) || timeparse.IsDateTime(s)
}

func (v *fieldReader) requireDate(field string) string {
	s, ok := v.raw(field)
	if !ok {
		v.fail(field, "required")
		return ""
	}
	if !isAbsoluteDate(s) {
		v.fail(field, "expected YYYY-MM-DD or full date-time")
	}
	return s
}

func (v *fieldReader) optionalDate(field string) string {
	s, ok := v.raw(field)
	if !ok {
		return ""
	}
	if !isAbsoluteDate(s) {
		v.fail(field, "expected YYYY-MM-DD or full date-time")
	}
	return s
}

func (v *fieldReader) optionalDatePtr(field string) *string {
	s, ok := v.raw(field)
	if !ok {
		return nil
	}
	if !isAbsoluteDate(s) {
		v.fail(field, "expected YYYY-MM-DD or full date-time")
		return nil
	}
	return &s
}

func (v *fieldReader) optionalClock(field string) string {
	s, ok := v.raw(field)
	if !ok {
		return ""
	}
	if !timeparse.IsClock(s) {
		v.fail(field, "expected HH:MM")
	}
	return s
}

func (v *fieldReader) optionalClockPtr(field string) *string {
	s, ok := v.raw(field)
	if !ok {
		return nil
	}
	if !timeparse.IsClock(s) {
		v.fail(field, "expected HH:MM")
		return nil
	}
	return &s
}

func (v *fieldReader) optionalReminderTime(field string) string {
	s, ok := v.raw(field)
	if !ok {
		return ""
	}
	if !reminderTimeRe.MatchString(s) {
		v.fail(field, "expected YYYY-MM-DD HH:MM")
	}
	return s
}

func (v *fieldReader) optionalReminderTimePtr(field string) *string {
	s, ok := v.raw(field)
	if !ok {
		return nil
	}
	if !reminderTimeRe.MatchString(s) {
		v.fail(field, "expected YYYY-MM-DD HH:MM")
		return nil
	}
	return &s
}

func validRepeatToken(s string) bool {
	switch strings.ToLower(s) {
	case "none", "everyday", "daily", "everyndays", "每天":
		return true
	}
	r := tasks.ParseRepeatRule(s, 2)
	return r.Repeats()
}

func (v *fieldReader) requireRepeat(field string) string {
	s, ok := v.raw(field)
	if !ok {
		v.fail(field, "required")
		return ""
	}
	if !validRepeatToken(s) {
		v.fail(field, "unknown repeat rule")
	}
	return s
}

func (v *fieldReader) optionalRepeatPtr(field string) *string {
	s, ok := v.raw(field)
	if !ok {
		return nil
	}
	if !validRepeatToken(s) {
		v.fail(field, "unknown repeat rule")
		return nil
	}
	return &s
}

func validPriorityToken(s string) bool {
	switch strings.ToLower(s) {
	case "none", "low", "medium", "high", "低", "中", "高":
		return true
	default:
		return false
	}
}

func (v *fieldReader) optionalPriority(field string) string {
	s, ok := v.raw(field)
	if !ok {
		return ""
	}
	if !validPriorityToken(s) {
		v.fail(field, "unknown priority")
	}
	return s
}

func (v *fieldReader) optionalPriorityPtr(field string) *string {
	s, ok := v.raw(field)
	if !ok {
		return nil
	}
	if !validPriorityToken(s) {
		v.fail(field, "unknown priority")
		return nil
	}
	return &s
}

func (v *fieldReader) optionalBool(field string) *bool {
	val, ok := v.fields[field]
	if !ok || val == nil {
		return nil
	}
	switch t := val.(type) {
	case bool:
		b := t
		return &b
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "1", "true", "t", "yes", "y", "on":
			b := true
			return &b
		case "0", "false", "f", "no", "n", "off":
			b := false
			return &b
		case "":
			return nil
		}
	}
	v.fail(field, "expected boolean")
	return nil
}

func (v *fieldReader) boolOr(field string, fallback bool) bool {
	if b := v.optionalBool(field); b != nil {
		return *b
	}
	return fallback
}

func (v *fieldReader) intValue(field string) (int, bool) {
	val, ok := v.fields[field]
	if !ok || val == nil {
		return 0, false
	}
	switch t := val.(type) {
	case float64:
		return int(t), true
	case int:
		return t, true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			v.fail(field, "expected integer")
			return 0, false
		}
		return n, true
	default:
		v.fail(field, "expected integer")
		return 0, false
	}
}

func (v *fieldReader) optionalInt(field string, fallback int) int {
	if n, ok := v.intValue(field); ok {
		return n
	}
	return fallback
}

func (v *fieldReader) optionalMinutes(field string) int {
	n, ok := v.intValue(field)
	if !ok {
		return 0
	}
	if n < 0 {
		v.fail(field, "must be >= 0")
		return 0
	}
	return n
}

func (v *fieldReader) optionalMinutesPtr(field string) *int {
	n, ok := v.intValue(field)
	if !ok {
		return nil
	}
	if n < 0 {
		v.fail(field, "must be >= 0")
		return nil
	}
	return &n
}

func (v *fieldReader) optionalAdvance(field string) *int {
	n, ok := v.intValue(field)
	if !ok {
		return nil
	}
	if n < 0 {
		v.fail(field, "must be >= 0")
		return nil
	}
	return &n
}

// optionalLabels accepts both the array form ("labels") and the legacy
// comma-joined string form ("tags"); the two source pipelines disagreed and
// the core speaks only []string.
func (v *fieldReader) optionalLabels() []string {
	if val, ok := v.fields["labels"]; ok && val != nil {
		switch t := val.(type) {
		case []string:
			return t
		case []any:
			out := make([]string, 0, len(t))
			for _, item := range t {
				s, ok := item.(string)
				if !ok {
					v.fail("labels", "expected array of strings")
					return nil
				}
				out = append(out, s)
			}
			return out
		case string:
			return splitComma(t)
		default:
			v.fail("labels", "expected array of strings")
			return nil
		}
	}
	if s, ok := v.raw("tags"); ok {
		return splitComma(s)
	}
	return nil
}

func (v *fieldReader) optionalOffsets(field string) []int {
	val, ok := v.fields[field]
	if !ok || val == nil {
		return nil
	}
	var raw []any
	switch t := val.(type) {
	case []any:
		raw = t
	case []int:
		out := make([]int, len(t))
		copy(out, t)
		for _, n := range out {
			if n < 0 {
				v.fail(field, "offsets must be >= 0")
				return nil
			}
		}
		return out
	case string:
		out := make([]int, 0)
		for _, part := range splitComma(t) {
			n, err := strconv.Atoi(part)
			if err != nil {
				v.fail(field, "expected integers")
				return nil
			}
			if n < 0 {
				v.fail(field, "offsets must be >= 0")
				return nil
			}
			out = append(out, n)
		}
		if len(out) == 0 {
			return nil
		}
		return out
	default:
		v.fail(field, "expected array of integers")
		return nil
	}
	out := make([]int, 0, len(raw))
	for _, item := range raw {
		f, ok := item.(float64)
		if !ok {
			if n, isInt := item.(int); isInt {
				f = float64(n)
			} else {
				v.fail(field, "expected integers")
				return nil
			}
		}
		if f < 0 {
			v.fail(field, "offsets must be >= 0")
			return nil
		}
		out = append(out, int(f))
	}
	return out
}

func splitComma(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
