package brain

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Keyword and pattern gate that runs before any interpreter call. Greetings
// and small talk never leave the process.
var commandKeywords = []string{
	"add", "create", "new task", "remind", "reminder", "todo", "task",
	"schedule", "plan", "every day", "every ", "daily", "repeat",
	"buy", "pick up", "pay ", "call ", "email", "book ", "order ",
	"delete", "remove", "cancel", "trash", "restore",
	"complete", "done with", "finish", "finished", "mark ",
	"update", "change", "rename", "move", "postpone", "defer", "reschedule",
	"due", "deadline", "priority",
	"today", "tomorrow", "tonight", "next week", "list",
	"添加", "创建", "提醒", "任务", "待办", "日程",
	"删除", "取消", "恢复", "完成", "修改", "推迟",
	"买", "每天", "今天", "明天", "下周",
}

var timeHintRe = regexp.MustCompile(`(?i)\d{4}-\d{1,2}-\d{1,2}|\b\d{1,2}:\d{2}\b|\b\d{1,2}\s?(am|pm)\b`)

// IsLikelyTaskCommand reports whether input plausibly asks for a task
// operation. Short spaceless inputs ("ok", "thanks", "好的") are rejected
// outright.
func IsLikelyTaskCommand(input string) bool {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return false
	}
	lower := strings.ToLower(trimmed)
	for _, kw := range commandKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	// A bare short token with a time-ish shape ("12:30") is still noise.
	if !strings.ContainsAny(trimmed, " \t") && utf8.RuneCountInString(trimmed) <= 8 {
		return false
	}
	return timeHintRe.MatchString(lower)
}
