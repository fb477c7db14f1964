// File: internal/ledger/ledger.go
// Package ledger accumulates the per-action history of a session and derives
// the summary statistics shown in session reports and exports.
package ledger

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/formpilot/formpilot/api/schemas"
)

// Ledger records executed actions and message traffic for one session. It is
// safe for concurrent use; the orchestrator records actions while the session
// layer counts messages.
type Ledger struct {
	mu sync.Mutex

	sessionID    string
	startedAt    time.Time
	firstMessage string

	actions  []schemas.ActionRecord
	messages int
	failed   int
}

// New starts an empty ledger with a fresh session identity.
func New() *Ledger {
	return &Ledger{
		sessionID: uuid.NewString(),
		startedAt: time.Now(),
	}
}

// SessionID returns the ledger's session identity.
func (l *Ledger) SessionID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sessionID
}

// RecordAction appends one executed action.
func (l *Ledger) RecordAction(kind schemas.ActionKind, outcome schemas.Outcome, startedAt time.Time, took time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.actions = append(l.actions, schemas.ActionRecord{
		Kind:      kind,
		Status:    outcome.Status,
		Message:   outcome.Message,
		StartedAt: startedAt,
		Duration:  took,
	})
	if outcome.Failed() {
		l.failed++
	}
}

// RecordMessage counts one conversation turn. The first user message is kept
// verbatim for the session summary.
func (l *Ledger) RecordMessage(role schemas.Role, content string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages++
	if role == schemas.RoleUser && l.firstMessage == "" {
		l.firstMessage = content
	}
}

// Actions returns a copy of the recorded actions in execution order.
func (l *Ledger) Actions() []schemas.ActionRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]schemas.ActionRecord, len(l.actions))
	copy(out, l.actions)
	return out
}

// Stats derives the session statistics as of now.
func (l *Ledger) Stats() schemas.SessionStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return schemas.SessionStats{
		SessionID:     l.sessionID,
		TotalMessages: l.messages,
		TotalActions:  len(l.actions),
		FailedActions: l.failed,
		FirstMessage:  l.firstMessage,
		StartedAt:     l.startedAt,
		Duration:      time.Since(l.startedAt),
	}
}

// Reset clears history and starts a new session identity.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sessionID = uuid.NewString()
	l.startedAt = time.Now()
	l.firstMessage = ""
	l.actions = nil
	l.messages = 0
	l.failed = 0
}
