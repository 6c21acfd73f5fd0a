package command

import (
	"testing"

	"github.com/google/uuid"
)

func TestValidateCreateCollectsAllViolations(t *testing.T) {
	cmd := Command{Action: ActionCreate, Fields: map[string]any{
		"start_date":  "next thursday-ish",
		"repeat_rule": "fortnightly",
	}}
	_, err := Validate(cmd)
	ve, ok := AsValidationError(err)
	if !ok {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if len(ve.Violations) != 3 {
		t.Fatalf("want 3 violations (title, start_date, repeat_rule), got %d: %v", len(ve.Violations), ve.Violations)
	}
	fields := map[string]bool{}
	for _, v := range ve.Violations {
		fields[v.Field] = true
	}
	for _, f := range []string{"title", "start_date", "repeat_rule"} {
		if !fields[f] {
			t.Errorf("missing violation for %s: %v", f, ve.Violations)
		}
	}
}

func TestValidateCreateAcceptsJSONTypes(t *testing.T) {
	// Tool-call arguments arrive as decoded JSON: numbers are float64,
	// lists are []any.
	cmd := Command{Action: ActionCreate, Fields: map[string]any{
		"title":            "Buy milk",
		"start_date":       "2025-08-25",
		"start_time":       "18:30",
		"repeat_rule":      "every_3_days",
		"duration_minutes": float64(45),
		"reminder_offsets": []any{float64(10), float64(30)},
		"labels":           []any{"errands", "home"},
		"is_reminder":      true,
	}}
	payload, err := Validate(cmd)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	p, ok := payload.(CreatePayload)
	if !ok {
		t.Fatalf("want CreatePayload, got %T", payload)
	}
	if p.DurationMinutes != 45 {
		t.Errorf("duration = %d, want 45", p.DurationMinutes)
	}
	if len(p.ReminderOffsets) != 2 || p.ReminderOffsets[1] != 30 {
		t.Errorf("offsets = %v", p.ReminderOffsets)
	}
	if len(p.Labels) != 2 || p.Labels[0] != "errands" {
		t.Errorf("labels = %v", p.Labels)
	}
	if !p.IsReminder {
		t.Error("is_reminder not carried")
	}
}

func TestValidateCreateLegacyTagsString(t *testing.T) {
	cmd := Command{Action: ActionCreate, Fields: map[string]any{
		"title":       "Plan trip",
		"start_date":  "2025-08-25",
		"repeat_rule": "none",
		"tags":        "travel, summer , ,travel",
	}}
	payload, err := Validate(cmd)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	p := payload.(CreatePayload)
	if len(p.Labels) != 3 {
		t.Fatalf("labels = %v, want 3 raw entries", p.Labels)
	}
}

func TestValidateUpdateRequiresIdentifier(t *testing.T) {
	for _, id := range []string{"", "not-a-uuid"} {
		fields := map[string]any{"title": "x"}
		if id != "" {
			fields["id"] = id
		}
		if _, err := Validate(Command{Action: ActionUpdate, Fields: fields}); err == nil {
			t.Errorf("id=%q: want error", id)
		}
	}
	id := uuid.NewString()
	payload, err := Validate(Command{Action: ActionUpdate, Fields: map[string]any{"id": id, "priority": "高"}})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	p := payload.(UpdatePayload)
	if p.ID != id || p.Priority == nil || *p.Priority != "高" {
		t.Fatalf("payload = %+v", p)
	}
}

func TestValidateUpdateRejectsBadDates(t *testing.T) {
	cmd := Command{Action: ActionUpdate, Fields: map[string]any{
		"id":         uuid.NewString(),
		"due_date":   "whenever",
		"start_time": "25:99",
	}}
	_, err := Validate(cmd)
	ve, ok := AsValidationError(err)
	if !ok || len(ve.Violations) != 2 {
		t.Fatalf("want 2 violations, got %v", err)
	}
}

func TestValidateTruncate(t *testing.T) {
	if _, err := Validate(Command{Action: ActionTruncate, Fields: map[string]any{"id": uuid.NewString()}}); err == nil {
		t.Fatal("truncate without on_date should fail")
	}
	payload, err := Validate(Command{Action: ActionTruncate, Fields: map[string]any{
		"id":      uuid.NewString(),
		"on_date": "2025-08-27",
	}})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if p := payload.(TruncatePayload); p.OnDate != "2025-08-27" {
		t.Fatalf("on_date = %q", p.OnDate)
	}
}

func TestValidateUnsupportedAction(t *testing.T) {
	if _, err := Validate(Command{Action: Action("PONDER")}); err == nil {
		t.Fatal("want error for unsupported action")
	}
}
