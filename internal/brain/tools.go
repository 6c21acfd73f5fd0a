package brain

import "github.com/ent0n29/daybook/internal/command"

// noActionToken is what the model answers with when the input is
// conversational rather than a task command.
const noActionToken = "__NO_ACTION__"

const systemPrompt = `You are the command interpreter of a daily task planner.
Turn the user's message into tool calls, or answer with the literal token ` + noActionToken + ` when the message is not a task command.

Rules:
- Resolve relative dates ("tomorrow", "next friday") against the provided current date and emit absolute YYYY-MM-DD dates.
- Times are 24h HH:MM. Only set a time the user actually mentioned.
- A task has either a due date or a repeat rule, never both. If the user asks for both, keep the due date.
- Repeat rules: "none", "daily", or "every_N_days" with N >= 2.
- "remind me" requests: set reminder_time to the absolute fire moment (YYYY-MM-DD HH:MM); the task becomes due at exactly that moment.
- To stop a repeating task from a given day on, call set_non_repeating_and_truncate.
- Reference existing tasks strictly by the ids in the task list; never invent ids.
- Emit one tool call per requested operation, in the order the user stated them.`

var toolActions = map[string]command.Action{
	"create_task":                    command.ActionCreate,
	"update_task":                    command.ActionUpdate,
	"complete_task":                  command.ActionComplete,
	"delete_task":                    command.ActionDelete,
	"restore_task":                   command.ActionRestore,
	"set_non_repeating_and_truncate": command.ActionTruncate,
	"list_tasks":                     command.ActionList,
}

func toolDefinitions() []map[string]any {
	fn := func(name, desc string, params map[string]any, required []string) map[string]any {
		return map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        name,
				"description": desc,
				"parameters": map[string]any{
					"type":       "object",
					"properties": params,
					"required":   required,
				},
			},
		}
	}
	str := func(desc string) map[string]any { return map[string]any{"type": "string", "description": desc} }
	boolean := func(desc string) map[string]any { return map[string]any{"type": "boolean", "description": desc} }
	integer := func(desc string) map[string]any { return map[string]any{"type": "integer", "description": desc} }

	taskFields := map[string]any{
		"title":             str("task title"),
		"start_date":        str("start day, YYYY-MM-DD"),
		"start_time":        str("start wall clock, HH:MM"),
		"enable_start_time": boolean("whether the start time is meaningful"),
		"due_date":          str("due day, YYYY-MM-DD"),
		"due_time":          str("due wall clock, HH:MM"),
		"enable_due_date":   boolean("whether the due date is meaningful"),
		"repeat_rule":       str("none, daily, or every_N_days"),
		"repeat_interval":   integer("interval in days for every_N_days"),
		"repeat_end_date":   str("last day of the series, YYYY-MM-DD"),
		"priority":          str("none, low, medium or high"),
		"notes":             str("free-form notes"),
		"labels": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"description": "labels to attach",
		},
		"duration_minutes": integer("expected duration in minutes"),
		"is_reminder":      boolean("whether the user asked to be reminded"),
		"reminder_time":    str("absolute reminder moment, YYYY-MM-DD HH:MM"),
		"reminder_advance": integer("minutes of advance notice"),
	}

	create := map[string]any{}
	for k, v := range taskFields {
		create[k] = v
	}
	update := map[string]any{"id": str("id of the task to change")}
	for k, v := range taskFields {
		update[k] = v
	}

	return []map[string]any{
		fn("create_task", "Create a new task.", create, []string{"title", "start_date", "repeat_rule"}),
		fn("update_task", "Change fields of an existing task.", update, []string{"id"}),
		fn("complete_task", "Mark a task as done.", map[string]any{
			"id":           str("id of the task to complete"),
			"completed_on": str("completion day, YYYY-MM-DD; omit for now"),
		}, []string{"id"}),
		fn("delete_task", "Move a task to the trash.", map[string]any{
			"id": str("id of the task to delete"),
		}, []string{"id"}),
		fn("restore_task", "Restore a task from the trash.", map[string]any{
			"id": str("id of the trashed task"),
		}, []string{"id"}),
		fn("set_non_repeating_and_truncate", "Stop a repeating task and drop its future instances after the given day.", map[string]any{
			"id":      str("id of the series instance the user pointed at"),
			"on_date": str("last day the task should occur, YYYY-MM-DD"),
		}, []string{"id", "on_date"}),
		fn("list_tasks", "List the tasks of a day.", map[string]any{
			"date": str("day to list, YYYY-MM-DD; omit for today"),
		}, nil),
	}
}
