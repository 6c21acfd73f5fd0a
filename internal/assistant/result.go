package assistant

import (
	"github.com/ent0n29/daybook/internal/command"
	"github.com/ent0n29/daybook/internal/tasks"
)

type ResultKind string

const (
	ResultCreated   ResultKind = "created"
	ResultUpdated   ResultKind = "updated"
	ResultCompleted ResultKind = "completed"
	ResultDeleted   ResultKind = "deleted"
	ResultRestored  ResultKind = "restored"
	ResultTruncated ResultKind = "truncated"
	ResultListed    ResultKind = "listed"

	// ResultNoAction: the interpreter looked and decided there is nothing
	// to do. ResultUnactionable: the input never reached the interpreter.
	ResultNoAction     ResultKind = "no_action"
	ResultUnactionable ResultKind = "unactionable"

	ResultInvalid  ResultKind = "invalid"
	ResultNotFound ResultKind = "not_found"
	ResultFailed   ResultKind = "failed"
)

// Result is the outcome of one executed command.
type Result struct {
	Kind    ResultKind     `json:"kind"`
	Action  command.Action `json:"action,omitempty"`
	Task    *tasks.Task    `json:"task,omitempty"`
	Tasks   []tasks.Task   `json:"tasks,omitempty"`
	Message string         `json:"message,omitempty"`
	Error   string         `json:"error,omitempty"`
}
