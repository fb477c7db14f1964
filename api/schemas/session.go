package schemas

import (
	"fmt"
	"time"
)

// -- Conversation Schemas --

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ToolCallView is a tool call as rendered in the transcript: name plus the
// outcome text shown under it.
type ToolCallView struct {
	Name   string `json:"name"`
	Result string `json:"result"`
}

// ChatMessage is one turn of the conversation.
type ChatMessage struct {
	ID        string         `json:"id"`
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	ToolCalls []ToolCallView `json:"tool_calls,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// ActionRecord is one ledger entry: an executed action with its outcome and
// timing.
type ActionRecord struct {
	Kind      ActionKind    `json:"kind"`
	Status    Status        `json:"status"`
	Message   string        `json:"message"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// SessionStats summarizes a session for reporting and export.
type SessionStats struct {
	SessionID     string        `json:"session_id"`
	TotalMessages int           `json:"total_messages"`
	TotalActions  int           `json:"total_actions"`
	FailedActions int           `json:"failed_actions"`
	FirstMessage  string        `json:"first_message"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration"`
}

// FormatDuration renders a duration the way the transcript shows it:
// "3m 12s", or "45s" under a minute.
func FormatDuration(d time.Duration) string {
	total := int(d.Round(time.Second).Seconds())
	if total < 0 {
		total = 0
	}
	minutes := total / 60
	seconds := total % 60
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
