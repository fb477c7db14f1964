package locator

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formpilot/formpilot/api/schemas"
	"github.com/formpilot/formpilot/internal/mocks"
)

func TestFindField(t *testing.T) {
	t.Parallel()

	surface := mocks.NewFakeSurface("Sales Order", "SO-0001",
		schemas.FieldMeta{Name: "customer", Label: "Customer", Type: "Link"},
		schemas.FieldMeta{Name: "qty", Type: "Int"},
	)
	l := New(10*time.Millisecond, nil)

	meta, ok := l.FindField(surface, "customer")
	require.True(t, ok)
	assert.Equal(t, "Customer", meta.Label)

	_, ok = l.FindField(surface, "missing")
	assert.False(t, ok)

	_, ok = l.FindField(nil, "customer")
	assert.False(t, ok, "nil surface must resolve nothing")
}

func TestFindControl(t *testing.T) {
	t.Parallel()

	l := New(10*time.Millisecond, nil)

	tests := []struct {
		name     string
		controls []schemas.Control
		label    string
		want     string // expected selector, "" means no match
	}{
		{
			name: "exact match beats substring",
			controls: []schemas.Control{
				{Label: "Save and Submit", Selector: "#both", Visible: true},
				{Label: "Save", Selector: "#save", Visible: true},
			},
			label: "Save",
			want:  "#save",
		},
		{
			name: "visible beats hidden on equal match",
			controls: []schemas.Control{
				{Label: "Submit", Selector: "#hidden", Visible: false},
				{Label: "Submit", Selector: "#shown", Visible: true},
			},
			label: "Submit",
			want:  "#shown",
		},
		{
			name: "first in document order wins ties",
			controls: []schemas.Control{
				{Label: "Delete", Selector: "#first", Visible: true},
				{Label: "Delete", Selector: "#second", Visible: true},
			},
			label: "Delete",
			want:  "#first",
		},
		{
			name: "case and whitespace insensitive",
			controls: []schemas.Control{
				{Label: "  Save  ", Selector: "#save", Visible: true},
			},
			label: "save",
			want:  "#save",
		},
		{
			name: "engine-owned controls are never targets",
			controls: []schemas.Control{
				{Label: "Send", Selector: "#engine", Visible: true, EngineOwned: true},
			},
			label: "Send",
			want:  "",
		},
		{
			name: "substring match when no exact label exists",
			controls: []schemas.Control{
				{Label: "Save Document", Selector: "#savedoc", Visible: true},
			},
			label: "Save",
			want:  "#savedoc",
		},
		{
			name:     "no controls",
			controls: nil,
			label:    "Save",
			want:     "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			chrome := mocks.NewFakeChrome(schemas.Route{View: "Form"})
			chrome.ControlList = tc.controls

			ctl, ok := l.FindControl(chrome, tc.label)
			if tc.want == "" {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tc.want, ctl.Selector)
		})
	}
}

func TestWaitForImmediateMatch(t *testing.T) {
	t.Parallel()

	chrome := mocks.NewFakeChrome(schemas.Route{View: "Form"})
	chrome.Selectors[".primary-action"] = true

	l := New(10*time.Millisecond, nil)
	waited, err := l.WaitFor(context.Background(), chrome, ".primary-action", time.Second)
	require.NoError(t, err)
	assert.Less(t, waited, 50*time.Millisecond, "match on first poll must not wait a full cycle")
}

func TestWaitForEventualMatch(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	chrome := mocks.NewFakeChrome(schemas.Route{View: "Form"})
	chrome.QueryHook = func(string) bool {
		return calls.Add(1) >= 4
	}

	l := New(5*time.Millisecond, nil)
	waited, err := l.WaitFor(context.Background(), chrome, "#late", time.Second)
	require.NoError(t, err)
	assert.Greater(t, waited, 5*time.Millisecond)
	assert.Less(t, waited, 500*time.Millisecond)
}

func TestWaitForTimeout(t *testing.T) {
	t.Parallel()

	chrome := mocks.NewFakeChrome(schemas.Route{View: "Form"})

	l := New(5*time.Millisecond, nil)
	waited, err := l.WaitFor(context.Background(), chrome, "#never", 30*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.GreaterOrEqual(t, waited, 30*time.Millisecond)
}

func TestWaitForHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	chrome := mocks.NewFakeChrome(schemas.Route{View: "Form"})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(15 * time.Millisecond)
		cancel()
	}()

	l := New(5*time.Millisecond, nil)
	start := time.Now()
	_, err := l.WaitFor(ctx, chrome, "#never", 10*time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second, "cancellation must not wait out the timeout")
}
