package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/formpilot/formpilot/api/schemas"
	"github.com/formpilot/formpilot/internal/config"
	"github.com/formpilot/formpilot/internal/executor"
	"github.com/formpilot/formpilot/internal/ledger"
	"github.com/formpilot/formpilot/internal/locator"
	"github.com/formpilot/formpilot/internal/mocks"
	"github.com/formpilot/formpilot/internal/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testWaits() config.WaitConfig {
	return config.WaitConfig{
		NavigateSettle:             time.Millisecond,
		CreatePollInterval:         time.Millisecond,
		CreatePollAttempts:         3,
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
}

func newHarness(host *mocks.FakeHost, throttle time.Duration) (*Orchestrator, *ledger.Ledger) {
	cfg := config.EngineConfig{Waits: testWaits(), AnalyzeFieldCap: 10, AnalyzeControlCap: 8}
	exec := executor.New(host, locator.New(time.Millisecond, nil), observer.New(nil), cfg, nil)
	led := ledger.New()
	return New(exec, led, throttle, nil), led
}

func mustStep(t *testing.T, kind schemas.ActionKind, raw map[string]any) schemas.Step {
	t.Helper()
	step, err := schemas.NewStep(kind, raw)
	require.NoError(t, err)
	return step
}

func openOrderHost() *mocks.FakeHost {
	host := mocks.NewFakeHost()
	host.Surface = mocks.NewFakeSurface("Sales Order", "SO-0001",
		schemas.FieldMeta{Name: "customer", Label: "Customer", Type: "Link"},
	)
	host.Store.Records["Customer"] = []string{"Acme Corp"}
	return host
}

func TestRunBatchExecutesInOrder(t *testing.T) {
	t.Parallel()

	host := openOrderHost()
	o, led := newHarness(host, 0)

	batch := schemas.Batch{
		ID: uuid.NewString(),
		Steps: []schemas.Step{
			mustStep(t, schemas.ActionListRecords, map[string]any{"doctype": "Customer"}),
			mustStep(t, schemas.ActionSetField, map[string]any{"fieldname": "customer", "value": "Acme Corp"}),
			mustStep(t, schemas.ActionGetFieldValue, map[string]any{"fieldname": "customer"}),
		},
	}
	result := o.RunBatch(context.Background(), batch)

	require.Len(t, result.Outcomes, 3, "exactly one outcome per step")
	assert.Equal(t, schemas.ActionListRecords, result.Outcomes[0].Step.Kind)
	assert.Equal(t, schemas.ActionSetField, result.Outcomes[1].Step.Kind)
	assert.Equal(t, schemas.ActionGetFieldValue, result.Outcomes[2].Step.Kind)
	assert.False(t, result.AnyFailure)
	assert.Equal(t, "Task completed successfully", result.Summary)

	// The ledger saw every step, hidden ones included.
	assert.Len(t, led.Actions(), 3)
}

func TestRunBatchContinuesPastFailures(t *testing.T) {
	t.Parallel()

	host := openOrderHost()
	o, _ := newHarness(host, 0)

	batch := schemas.Batch{
		Steps: []schemas.Step{
			mustStep(t, schemas.ActionClickControl, map[string]any{"button_text": "Nope"}),
			mustStep(t, schemas.ActionGetFieldValue, map[string]any{"fieldname": "customer"}),
		},
	}
	result := o.RunBatch(context.Background(), batch)

	require.Len(t, result.Outcomes, 2)
	assert.True(t, result.Outcomes[0].Outcome.Failed())
	assert.Equal(t, schemas.StatusOK, result.Outcomes[1].Outcome.Status,
		"a failure must not stop later steps")
	assert.True(t, result.AnyFailure)
}

func TestSummaryPlannerContentWins(t *testing.T) {
	t.Parallel()

	host := openOrderHost()
	o, _ := newHarness(host, 0)

	batch := schemas.Batch{
		FinalContent: "I created the sales order for you.",
		Steps: []schemas.Step{
			mustStep(t, schemas.ActionClickControl, map[string]any{"button_text": "Nope"}),
		},
	}
	result := o.RunBatch(context.Background(), batch)
	assert.Equal(t, "I created the sales order for you.", result.Summary,
		"planner content wins even over failures")
}

func TestSummarySynthesizedFromDegradedSteps(t *testing.T) {
	t.Parallel()

	host := openOrderHost()
	o, _ := newHarness(host, 0)

	batch := schemas.Batch{
		Steps: []schemas.Step{
			mustStep(t, schemas.ActionGetFieldValue, map[string]any{"fieldname": "customer"}),
			mustStep(t, schemas.ActionClickControl, map[string]any{"button_text": "Nope"}),
			mustStep(t, schemas.ActionValidateRecordExists, map[string]any{"doctype": "Customer", "name": "Ghost"}),
		},
	}
	result := o.RunBatch(context.Background(), batch)

	assert.Contains(t, result.Summary, "Some actions encountered issues:")
	assert.Contains(t, result.Summary, `click_control: Button "Nope" not found`)
	assert.Contains(t, result.Summary, `validate_record_exists: Customer "Ghost" does NOT exist`)
	assert.NotContains(t, result.Summary, "get_field_value",
		"clean steps stay out of the issue summary")
	assert.Contains(t, result.Summary, "try a different approach")
}

func TestSummaryEmptyBatch(t *testing.T) {
	t.Parallel()

	o, _ := newHarness(mocks.NewFakeHost(), 0)
	result := o.RunBatch(context.Background(), schemas.Batch{})
	assert.Equal(t, "Done", result.Summary)
	assert.Empty(t, result.Outcomes)
}

func TestVisibilityPolicy(t *testing.T) {
	t.Parallel()

	host := openOrderHost()
	o, _ := newHarness(host, 0)

	var observed []schemas.ActionKind
	o.SetStepObserver(func(so schemas.StepOutcome) {
		observed = append(observed, so.Step.Kind)
	})

	batch := schemas.Batch{
		Steps: []schemas.Step{
			mustStep(t, schemas.ActionListRecords, map[string]any{"doctype": "Customer"}),
			mustStep(t, schemas.ActionGetFieldValue, map[string]any{"fieldname": "customer"}),
			mustStep(t, schemas.ActionValidateRecordExists, map[string]any{"doctype": "Customer", "name": "Acme Corp"}),
		},
	}
	result := o.RunBatch(context.Background(), batch)

	// Hidden steps executed (three outcomes) but only the visible one was
	// observed and rendered.
	require.Len(t, result.Outcomes, 3)
	assert.Equal(t, []schemas.ActionKind{schemas.ActionGetFieldValue}, observed)
	assert.Equal(t, 1, result.VisibleCount())

	views := ToolCallViews(result)
	require.Len(t, views, 1)
	assert.Equal(t, "get_field_value", views[0].Name)
	assert.Contains(t, views[0].Result, "[ok]")
}

func TestThrottleAppliesOnlyToVisibleSteps(t *testing.T) {
	t.Parallel()

	host := openOrderHost()
	throttle := 30 * time.Millisecond
	o, _ := newHarness(host, throttle)

	hiddenOnly := schemas.Batch{
		Steps: []schemas.Step{
			mustStep(t, schemas.ActionListRecords, map[string]any{"doctype": "Customer"}),
			mustStep(t, schemas.ActionListRecords, map[string]any{"doctype": "Customer"}),
		},
	}
	start := time.Now()
	o.RunBatch(context.Background(), hiddenOnly)
	assert.Less(t, time.Since(start), throttle, "hidden steps are not paced")

	visible := schemas.Batch{
		Steps: []schemas.Step{
			mustStep(t, schemas.ActionGetFieldValue, map[string]any{"fieldname": "customer"}),
			mustStep(t, schemas.ActionGetFieldValue, map[string]any{"fieldname": "customer"}),
		},
	}
	start = time.Now()
	o.RunBatch(context.Background(), visible)
	assert.GreaterOrEqual(t, time.Since(start), 2*throttle, "each visible step is paced")
}

func TestRunBatchWithInvalidStep(t *testing.T) {
	t.Parallel()

	host := openOrderHost()
	o, _ := newHarness(host, 0)

	_, err := schemas.NewStep(schemas.ActionSetField, map[string]any{})
	require.Error(t, err)

	batch := schemas.Batch{
		Steps: []schemas.Step{schemas.InvalidStep(schemas.ActionSetField, err)},
	}
	result := o.RunBatch(context.Background(), batch)

	require.Len(t, result.Outcomes, 1, "malformed steps still yield exactly one outcome")
	assert.True(t, result.Outcomes[0].Outcome.Failed())
	assert.Contains(t, result.Summary, "Invalid arguments for set_field")
}
