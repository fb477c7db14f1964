package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formpilot/formpilot/api/schemas"
	"github.com/formpilot/formpilot/internal/config"
	"github.com/formpilot/formpilot/internal/executor"
	"github.com/formpilot/formpilot/internal/ledger"
	"github.com/formpilot/formpilot/internal/locator"
	"github.com/formpilot/formpilot/internal/mocks"
	"github.com/formpilot/formpilot/internal/observer"
	"github.com/formpilot/formpilot/internal/orchestrator"
)

type harness struct {
	session *Session
	host    *mocks.FakeHost
	planner *mocks.FakePlanner
	store   *mocks.FakeTranscript
	led     *ledger.Ledger
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	host := mocks.NewFakeHost()
	host.Surface = mocks.NewFakeSurface("Sales Order", "SO-0001",
		schemas.FieldMeta{Name: "customer", Label: "Customer", Type: "Link"},
	)

	waits := config.WaitConfig{
		NavigateSettle:             time.Millisecond,
		CreatePollInterval:         time.Millisecond,
		CreatePollAttempts:         2,
		CreateGrace:                time.Millisecond,
		FieldRegistryRetryInterval: time.Millisecond,
		FieldRegistryRetries:       2,
		DialogDismiss:              time.Millisecond,
		FocusSettle:                time.Millisecond,
		FieldValidation:            time.Millisecond,
		ClickSettle:                time.Millisecond,
		ScrollSettle:               time.Millisecond,
		TableCellSettle:            time.Millisecond,
		TableItemSettle:            time.Millisecond,
		LocatePollInterval:         time.Millisecond,
		StepThrottle:               time.Millisecond,
	}
	engCfg := config.EngineConfig{Waits: waits, AnalyzeFieldCap: 10, AnalyzeControlCap: 8}
	exec := executor.New(host, locator.New(time.Millisecond, nil), observer.New(nil), engCfg, nil)
	led := ledger.New()
	orch := orchestrator.New(exec, led, 0, nil)

	planner := &mocks.FakePlanner{}
	store := mocks.NewFakeTranscript()

	cfg := config.PlannerConfig{User: "alice@example.com", SessionKey: "formpilot_session"}
	s := New(host, planner, orch, led, store, cfg, nil)
	require.NoError(t, s.Start(context.Background()))

	return &harness{session: s, host: host, planner: planner, store: store, led: led}
}

func plannedBatch(t *testing.T, content string, steps ...schemas.Step) mocks.PlannedResponse {
	t.Helper()
	return mocks.PlannedResponse{
		Resp: &schemas.PlanResponse{
			Content: content,
			Batch:   schemas.Batch{ID: uuid.NewString(), Steps: steps, FinalContent: content},
		},
	}
}

func mustStep(t *testing.T, kind schemas.ActionKind, raw map[string]any) schemas.Step {
	t.Helper()
	step, err := schemas.NewStep(kind, raw)
	require.NoError(t, err)
	return step
}

func TestStartGreetsFreshSession(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	msgs := h.session.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, schemas.RoleAssistant, msgs[0].Role)
	assert.NotEmpty(t, msgs[0].Content)
}

func TestStartRestoresPersistedTranscript(t *testing.T) {
	t.Parallel()

	host := mocks.NewFakeHost()
	store := mocks.NewFakeTranscript()
	stored := []schemas.ChatMessage{
		{ID: "a", Role: schemas.RoleAssistant, Content: "welcome back"},
		{ID: "b", Role: schemas.RoleUser, Content: "where were we"},
	}
	require.NoError(t, store.Save(context.Background(), "formpilot_session", stored))

	led := ledger.New()
	orch := orchestrator.New(
		executor.New(host, locator.New(time.Millisecond, nil), observer.New(nil),
			config.EngineConfig{Waits: config.WaitConfig{CreatePollAttempts: 1, FieldRegistryRetries: 1}, AnalyzeFieldCap: 1, AnalyzeControlCap: 1}, nil),
		led, 0, nil)
	s := New(host, &mocks.FakePlanner{}, orch, led, store,
		config.PlannerConfig{SessionKey: "formpilot_session"}, nil)
	require.NoError(t, s.Start(context.Background()))

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "where were we", msgs[1].Content)
}

func TestAskRunsBatchAndRecordsTurn(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.planner.Responses = []mocks.PlannedResponse{
		plannedBatch(t, "",
			mustStep(t, schemas.ActionSetField, map[string]any{"fieldname": "customer", "value": "Acme"}),
		),
	}

	reply := h.session.Ask(context.Background(), "set the customer to Acme")

	assert.Equal(t, schemas.RoleAssistant, reply.Role)
	assert.Equal(t, "Task completed successfully", reply.Content)
	require.Len(t, reply.ToolCalls, 1)
	assert.Equal(t, "set_field", reply.ToolCalls[0].Name)
	assert.Contains(t, reply.ToolCalls[0].Result, `Set customer to "Acme"`)

	// The planner saw location context and the running history.
	require.Len(t, h.planner.Requests, 1)
	req := h.planner.Requests[0]
	assert.Equal(t, "alice@example.com", req.Context.User)
	assert.Equal(t, "Workspace", req.Context.CurrentLocation)
	assert.Equal(t, "set the customer to Acme", req.History[len(req.History)-1].Content)

	// Transcript persisted with both turns appended.
	saved := h.store.Messages["formpilot_session"]
	require.NotEmpty(t, saved)
	assert.Equal(t, reply.Content, saved[len(saved)-1].Content)

	// Ledger counted the exchange and the action.
	stats := h.led.Stats()
	assert.Equal(t, 2, stats.TotalMessages)
	assert.Equal(t, 1, stats.TotalActions)
}

func TestAskPlannerContentWins(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.planner.Responses = []mocks.PlannedResponse{
		plannedBatch(t, "I set everything up for you.",
			mustStep(t, schemas.ActionGetFieldValue, map[string]any{"fieldname": "customer"}),
		),
	}

	reply := h.session.Ask(context.Background(), "do the thing")
	assert.Equal(t, "I set everything up for you.", reply.Content)
}

func TestAskPlannerFailureBecomesErrorMessage(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.planner.Responses = []mocks.PlannedResponse{
		{Err: errors.New("planner unreachable")},
	}

	reply := h.session.Ask(context.Background(), "hello")
	assert.Equal(t, schemas.RoleAssistant, reply.Role)
	assert.Contains(t, reply.Content, "Error: planner unreachable")

	// The failed turn still lands in history and in the transcript.
	msgs := h.session.Messages()
	assert.Equal(t, reply.Content, msgs[len(msgs)-1].Content)
}

func TestExportAvailability(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	assert.False(t, h.session.ExportAvailable(), "greeting alone is not exportable")

	h.planner.Responses = []mocks.PlannedResponse{
		plannedBatch(t, "",
			mustStep(t, schemas.ActionGetFieldValue, map[string]any{"fieldname": "customer"}),
		),
	}
	h.session.Ask(context.Background(), "read the customer")
	assert.True(t, h.session.ExportAvailable())
}

func TestHiddenOnlyTurnDoesNotEnableExport(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.planner.Responses = []mocks.PlannedResponse{
		plannedBatch(t, "checked",
			mustStep(t, schemas.ActionListRecords, map[string]any{"doctype": "Customer"}),
		),
	}
	h.session.Ask(context.Background(), "list customers")
	assert.False(t, h.session.ExportAvailable(),
		"hidden steps render no tool calls, so there is nothing to show")
}

func TestClearResetsEverything(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.planner.Responses = []mocks.PlannedResponse{
		plannedBatch(t, "",
			mustStep(t, schemas.ActionGetFieldValue, map[string]any{"fieldname": "customer"}),
		),
	}
	h.session.Ask(context.Background(), "read the customer")
	oldID := h.led.SessionID()

	h.session.Clear(context.Background())

	msgs := h.session.Messages()
	require.Len(t, msgs, 1, "only the fresh greeting remains")
	assert.Equal(t, schemas.RoleAssistant, msgs[0].Role)
	assert.False(t, h.session.ExportAvailable())
	assert.NotEqual(t, oldID, h.led.SessionID())
	assert.Equal(t, 1, h.store.ClearCalls)
	assert.Empty(t, h.store.Messages["formpilot_session"])
}

func TestClearSurvivesStoreFailure(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.store.ClearErr = errors.New("cache down")

	h.session.Clear(context.Background())

	msgs := h.session.Messages()
	require.Len(t, msgs, 1, "cleanup failure must not block the reset")
}

func TestReportPrefersPlannerStats(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.planner.Responses = []mocks.PlannedResponse{
		{
			Resp: &schemas.PlanResponse{
				Batch: schemas.Batch{Steps: []schemas.Step{
					mustStep(t, schemas.ActionGetFieldValue, map[string]any{"fieldname": "customer"}),
				}},
				SessionData: &schemas.SessionStats{
					SessionID:    "remote-1",
					TotalActions: 7,
				},
			},
		},
	}
	h.session.Ask(context.Background(), "read the customer")

	report := h.session.Report()
	assert.Equal(t, "remote-1", report.Stats.SessionID)
	assert.Equal(t, 7, report.Stats.TotalActions)
	assert.False(t, report.Stats.StartedAt.IsZero(), "local timing backfills missing remote fields")
	assert.NotEmpty(t, report.Messages)
	assert.Len(t, report.Actions, 1)
}

func TestRouteString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Form/Sales Order/SO-0001",
		routeString(schemas.Route{View: "Form", Doctype: "Sales Order", Name: "SO-0001"}))
	assert.Equal(t, "List/Item", routeString(schemas.Route{View: "List", Doctype: "Item"}))
	assert.Equal(t, "Workspace", routeString(schemas.Route{View: "Workspace"}))
	assert.Equal(t, "", routeString(schemas.Route{}))
}
