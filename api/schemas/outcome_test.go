package schemas

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutcomeConstructors(t *testing.T) {
	t.Parallel()

	ok := OK("Set %s to %q", "customer", "Acme")
	assert.Equal(t, StatusOK, ok.Status)
	assert.Equal(t, `Set customer to "Acme"`, ok.Message)
	assert.False(t, ok.Failed())
	assert.False(t, ok.Degraded())

	warn := Warn("already at boundary")
	assert.Equal(t, StatusWarning, warn.Status)
	assert.False(t, warn.Failed())
	assert.True(t, warn.Degraded())

	fail := Fail("Unknown tool: %s", "frobnicate")
	assert.True(t, fail.Failed())
	assert.True(t, fail.Degraded())
	assert.Equal(t, "Unknown tool: frobnicate", fail.Message)
}

// Outcomes are plain values: identical status and message means
// interchangeable for summarization. No hidden identity.
func TestOutcomeValueSemantics(t *testing.T) {
	t.Parallel()

	a := Fail("Button %q not found", "Save")
	b := Fail("Button %q not found", "Save")
	assert.Equal(t, a, b)
	assert.Empty(t, cmp.Diff(a, b))
}

func TestBatchResultAppend(t *testing.T) {
	t.Parallel()

	stepOK, err := NewStep(ActionSetField, map[string]any{"fieldname": "customer", "value": "Acme"})
	require.NoError(t, err)
	stepWarn, err := NewStep(ActionScrollPage, map[string]any{})
	require.NoError(t, err)
	stepFail, err := NewStep(ActionClickControl, map[string]any{"button_text": "Save"})
	require.NoError(t, err)

	var result BatchResult
	result.Append(stepOK, OK("set"))
	assert.False(t, result.AnyFailure)
	assert.False(t, result.AnyWarning)

	result.Append(stepWarn, Warn("not scrollable"))
	assert.False(t, result.AnyFailure)
	assert.True(t, result.AnyWarning)

	result.Append(stepFail, Fail("Button \"Save\" not found"))
	assert.True(t, result.AnyFailure)

	require.Len(t, result.Outcomes, 3)
	// Submission order is preserved.
	assert.Equal(t, ActionSetField, result.Outcomes[0].Step.Kind)
	assert.Equal(t, ActionScrollPage, result.Outcomes[1].Step.Kind)
	assert.Equal(t, ActionClickControl, result.Outcomes[2].Step.Kind)

	degraded := result.Degraded()
	require.Len(t, degraded, 2)
	assert.Equal(t, StatusWarning, degraded[0].Outcome.Status)
	assert.Equal(t, StatusFailure, degraded[1].Outcome.Status)
}

func TestBatchResultVisibleCount(t *testing.T) {
	t.Parallel()

	visible, err := NewStep(ActionNavigate, map[string]any{"doctype": "Item"})
	require.NoError(t, err)
	hidden, err := NewStep(ActionListRecords, map[string]any{"doctype": "Item"})
	require.NoError(t, err)

	var result BatchResult
	result.Append(visible, OK("navigated"))
	result.Append(hidden, OK("listed"))
	result.Append(hidden, OK("listed again"))

	assert.Equal(t, 1, result.VisibleCount())
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "45s", FormatDuration(45*time.Second))
	assert.Equal(t, "3m 12s", FormatDuration(3*time.Minute+12*time.Second))
	assert.Equal(t, "0s", FormatDuration(-5*time.Second))
	assert.Equal(t, "1m 0s", FormatDuration(60*time.Second))
}
