// File: internal/session/session.go
// Package session manages one conversation: history, planner round trips,
// batch execution and the export surface. It owns the message list; everything
// else is delegated to its collaborators.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/formpilot/formpilot/api/schemas"
	"github.com/formpilot/formpilot/internal/config"
	"github.com/formpilot/formpilot/internal/export"
	"github.com/formpilot/formpilot/internal/ledger"
	"github.com/formpilot/formpilot/internal/orchestrator"
)

// welcomeText opens every fresh conversation.
const welcomeText = "Hi! I can navigate the app, fill in forms and manage records for you. What would you like to do?"

// Session is one user conversation against one host surface.
type Session struct {
	mu sync.Mutex

	host    schemas.Host
	planner schemas.Planner
	orch    *orchestrator.Orchestrator
	led     *ledger.Ledger
	store   schemas.TranscriptStore

	user       string
	sessionKey string
	log        *zap.Logger

	messages    []schemas.ChatMessage
	remoteStats *schemas.SessionStats
	hasActions  bool
}

// New creates a Session. Call Start before the first Ask.
func New(host schemas.Host, planner schemas.Planner, orch *orchestrator.Orchestrator,
	led *ledger.Ledger, store schemas.TranscriptStore, cfg config.PlannerConfig, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		host:       host,
		planner:    planner,
		orch:       orch,
		led:        led,
		store:      store,
		user:       cfg.User,
		sessionKey: cfg.SessionKey,
		log:        log.Named("session"),
	}
}

// SetStepObserver forwards a live step callback to the batch runner so a
// frontend can render actions as they happen.
func (s *Session) SetStepObserver(fn func(schemas.StepOutcome)) {
	s.orch.SetStepObserver(fn)
}

// Start loads any persisted transcript, falling back to a fresh greeting.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs, err := s.store.Load(ctx, s.sessionKey)
	if err != nil {
		return fmt.Errorf("loading transcript: %w", err)
	}
	if len(msgs) == 0 {
		msgs = []schemas.ChatMessage{s.greeting()}
	}
	s.messages = msgs
	return nil
}

func (s *Session) greeting() schemas.ChatMessage {
	return schemas.ChatMessage{
		ID:        uuid.NewString(),
		Role:      schemas.RoleAssistant,
		Content:   welcomeText,
		Timestamp: time.Now(),
	}
}

// Messages returns a copy of the conversation so far.
func (s *Session) Messages() []schemas.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]schemas.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// ExportAvailable reports whether the session has enough substance to be
// worth exporting: a real exchange plus at least one executed visible action.
func (s *Session) ExportAvailable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages) > 2 && s.hasActions
}

// Ask runs one conversation turn: plan, execute, summarize, persist. The
// returned assistant message is always usable; planner failures are folded
// into its content rather than dropping the turn.
func (s *Session) Ask(ctx context.Context, text string) schemas.ChatMessage {
	userMsg := schemas.ChatMessage{
		ID:        uuid.NewString(),
		Role:      schemas.RoleUser,
		Content:   text,
		Timestamp: time.Now(),
	}

	s.mu.Lock()
	s.messages = append(s.messages, userMsg)
	history := make([]schemas.ChatMessage, len(s.messages))
	copy(history, s.messages)
	s.mu.Unlock()

	s.led.RecordMessage(schemas.RoleUser, text)

	resp, err := s.planner.Plan(ctx, schemas.PlanRequest{
		Message: text,
		Context: schemas.PlanContext{
			CurrentLocation: routeString(s.host.Chrome().Route()),
			User:            s.user,
		},
		History: history,
	})
	if err != nil {
		s.log.Error("planner round trip failed", zap.Error(err))
		return s.finishTurn(ctx, schemas.ChatMessage{
			ID:        uuid.NewString(),
			Role:      schemas.RoleAssistant,
			Content:   fmt.Sprintf("Error: %v", err),
			Timestamp: time.Now(),
		})
	}

	result := s.orch.RunBatch(ctx, resp.Batch)
	toolCalls := orchestrator.ToolCallViews(result)

	assistant := schemas.ChatMessage{
		ID:        uuid.NewString(),
		Role:      schemas.RoleAssistant,
		Content:   result.Summary,
		ToolCalls: toolCalls,
		Timestamp: time.Now(),
	}

	s.mu.Lock()
	if resp.SessionData != nil && resp.SessionData.TotalActions > 0 {
		s.remoteStats = resp.SessionData
	}
	if len(toolCalls) > 0 {
		s.hasActions = true
	}
	s.mu.Unlock()

	return s.finishTurn(ctx, assistant)
}

func (s *Session) finishTurn(ctx context.Context, assistant schemas.ChatMessage) schemas.ChatMessage {
	s.led.RecordMessage(schemas.RoleAssistant, assistant.Content)

	s.mu.Lock()
	s.messages = append(s.messages, assistant)
	snapshot := make([]schemas.ChatMessage, len(s.messages))
	copy(snapshot, s.messages)
	s.mu.Unlock()

	if err := s.store.Save(ctx, s.sessionKey, snapshot); err != nil {
		// Persistence is a convenience; the turn already happened.
		s.log.Warn("failed to persist transcript", zap.Error(err))
	}
	return assistant
}

// Clear wipes the conversation and starts a new session identity. Stored
// transcript removal is best effort; a failure is logged and the in-memory
// reset proceeds regardless.
func (s *Session) Clear(ctx context.Context) {
	if err := s.store.Clear(ctx, s.sessionKey); err != nil {
		s.log.Warn("failed to clear stored transcript", zap.Error(err))
	}
	s.led.Reset()

	s.mu.Lock()
	s.messages = []schemas.ChatMessage{s.greeting()}
	s.remoteStats = nil
	s.hasActions = false
	s.mu.Unlock()
}

// Report assembles the exportable session report. Planner-reported statistics
// win over locally derived ones when present, since the planner sees the whole
// multi-client session.
func (s *Session) Report() *export.Report {
	s.mu.Lock()
	remote := s.remoteStats
	msgs := make([]schemas.ChatMessage, len(s.messages))
	copy(msgs, s.messages)
	s.mu.Unlock()

	stats := s.led.Stats()
	if remote != nil {
		merged := *remote
		if merged.SessionID == "" {
			merged.SessionID = stats.SessionID
		}
		if merged.StartedAt.IsZero() {
			merged.StartedAt = stats.StartedAt
		}
		if merged.Duration == 0 {
			merged.Duration = stats.Duration
		}
		if merged.FirstMessage == "" {
			merged.FirstMessage = stats.FirstMessage
		}
		stats = merged
	}

	return &export.Report{
		Stats:    stats,
		Messages: msgs,
		Actions:  s.led.Actions(),
	}
}

// routeString renders a route the way planners expect location context:
// "View/Doctype/Name" with empty segments dropped.
func routeString(r schemas.Route) string {
	parts := []string{r.View, r.Doctype, r.Name}
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "/")
}
