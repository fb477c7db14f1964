package export

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formpilot/formpilot/api/schemas"
)

func sampleReport() *Report {
	return &Report{
		Stats: schemas.SessionStats{
			SessionID:     "s-123",
			TotalMessages: 4,
			TotalActions:  3,
			FailedActions: 1,
			FirstMessage:  "create a sales order for Acme",
			StartedAt:     time.Date(2026, 8, 30, 9, 30, 0, 0, time.UTC),
			Duration:      3*time.Minute + 12*time.Second,
		},
		Messages: []schemas.ChatMessage{
			{Role: schemas.RoleUser, Content: "create a sales order for Acme"},
			{
				Role:    schemas.RoleAssistant,
				Content: "Task completed successfully",
				ToolCalls: []schemas.ToolCallView{
					{Name: "create_record", Result: "[ok] Sales Order form ready"},
				},
			},
		},
		Actions: []schemas.ActionRecord{
			{Kind: schemas.ActionCreateRecord, Status: schemas.StatusOK, Message: "Sales Order form ready"},
			{Kind: schemas.ActionSetField, Status: schemas.StatusOK, Message: `Set customer to "Acme"`},
			{Kind: schemas.ActionClickControl, Status: schemas.StatusFailure, Message: `Button "Sign" not found`},
		},
	}
}

func TestJSONReporterRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "report.json")
	r, err := New("json", path)
	require.NoError(t, err)
	require.NoError(t, r.Write(sampleReport()))
	require.NoError(t, r.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded Report
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "s-123", decoded.Stats.SessionID)
	assert.Len(t, decoded.Actions, 3)
	assert.Equal(t, schemas.StatusFailure, decoded.Actions[2].Status)
}

func TestTextReporterContent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "report.txt")
	r, err := New("text", path)
	require.NoError(t, err)
	require.NoError(t, r.Write(sampleReport()))
	require.NoError(t, r.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(raw)

	assert.Contains(t, out, "Session Report")
	assert.Contains(t, out, "s-123")
	assert.Contains(t, out, "3m 12s")
	assert.Contains(t, out, "Actions:        3 (1 failed)")
	assert.Contains(t, out, "First request:  create a sales order for Acme")
	assert.Contains(t, out, `[failure] click_control: Button "Sign" not found`)
	assert.Contains(t, out, "create_record -> [ok] Sales Order form ready")
}

func TestNewUnsupportedFormat(t *testing.T) {
	t.Parallel()

	_, err := New("pdf", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported export format")
}

func TestNewBadPath(t *testing.T) {
	t.Parallel()

	_, err := New("json", filepath.Join(t.TempDir(), "missing", "deep", "report.json"))
	require.Error(t, err)
}
