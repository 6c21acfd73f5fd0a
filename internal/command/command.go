package command

// Action tags a parsed command. NO_ACTION and ERROR never reach the
// executor; they exist so callers can distinguish "nothing to do" from a
// refused parse.
type Action string

const (
	ActionCreate   Action = "CREATE"
	ActionUpdate   Action = "UPDATE"
	ActionComplete Action = "COMPLETE"
	ActionDelete   Action = "DELETE"
	ActionRestore  Action = "RESTORE"
	ActionTruncate Action = "TRUNCATE"
	ActionList     Action = "LIST"
	ActionNoAction Action = "NO_ACTION"
	ActionError    Action = "ERROR"
)

// Command is a transient parsed result: an action plus the untyped field map
// that came with it (tool-call arguments or raw-protocol fields). It is
// consumed immediately by Validate and never stored.
type Command struct {
	Action Action
	Fields map[string]any
}

// Payload is the tagged union of validated command payloads. Downstream code
// never sees an untyped map again after Validate.
type Payload interface {
	isPayload()
}

type CreatePayload struct {
	Title           string
	StartDate       string
	StartTime       string
	EnableStartTime *bool
	DueDate         string
	DueTime         string
	EnableDueDate   *bool
	RepeatRule      string
	RepeatInterval  int
	RepeatEndDate   string
	Priority        string
	Notes           string
	Labels          []string
	DurationMinutes int
	ReminderOffsets []int
	IsReminder      bool
	ReminderTime    string
	ReminderAdvance *int
}

type UpdatePayload struct {
	ID              string
	Title           *string
	StartDate       *string
	StartTime       *string
	EnableStartTime *bool
	DueDate         *string
	DueTime         *string
	EnableDueDate   *bool
	RepeatRule      *string
	RepeatInterval  int
	RepeatEndDate   *string
	Priority        *string
	Notes           *string
	Labels          []string
	DurationMinutes *int
	ReminderOffsets []int
	IsReminder      bool
	ReminderTime    *string
	ReminderAdvance *int
}

type CompletePayload struct {
	ID          string
	CompletedOn string
}

type DeletePayload struct {
	ID string
}

type RestorePayload struct {
	ID string
}

type TruncatePayload struct {
	ID     string
	OnDate string
}

type ListPayload struct {
	Date string
}

func (CreatePayload) isPayload()   {}
func (UpdatePayload) isPayload()   {}
func (CompletePayload) isPayload() {}
func (DeletePayload) isPayload()   {}
func (RestorePayload) isPayload()  {}
func (TruncatePayload) isPayload() {}
func (ListPayload) isPayload()     {}
