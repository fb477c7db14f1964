package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := NewDefaultConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "formpilot", cfg.Logger.ServiceName)

	waits := cfg.Engine.Waits
	assert.Equal(t, 500*time.Millisecond, waits.NavigateSettle)
	assert.Equal(t, 200*time.Millisecond, waits.CreatePollInterval)
	assert.Equal(t, 20, waits.CreatePollAttempts)
	assert.Equal(t, time.Second, waits.CreateGrace)
	assert.Equal(t, 700*time.Millisecond, waits.FieldValidation)
	assert.Equal(t, time.Second, waits.ClickSettle)
	assert.Equal(t, 600*time.Millisecond, waits.ScrollSettle)
	assert.Equal(t, 300*time.Millisecond, waits.TableCellSettle)
	assert.Equal(t, 1500*time.Millisecond, waits.TableItemSettle)
	assert.Equal(t, 100*time.Millisecond, waits.LocatePollInterval)
	assert.Equal(t, 400*time.Millisecond, waits.StepThrottle)

	assert.Equal(t, 10, cfg.Engine.AnalyzeFieldCap)
	assert.Equal(t, "json", cfg.Export.Format)

	assert.NoError(t, cfg.Validate())
}

func TestNewConfigFromViper_Overrides(t *testing.T) {
	t.Parallel()

	v := viper.New()
	SetDefaults(v)
	v.Set("engine.waits.navigate_settle", "5ms")
	v.Set("planner.endpoint", "http://localhost:8080/api/agent")

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Millisecond, cfg.Engine.Waits.NavigateSettle)
	assert.Equal(t, "http://localhost:8080/api/agent", cfg.Planner.Endpoint)
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		mutil func(*Config)
	}{
		{"zero navigate settle", func(c *Config) { c.Engine.Waits.NavigateSettle = 0 }},
		{"zero poll attempts", func(c *Config) { c.Engine.Waits.CreatePollAttempts = 0 }},
		{"zero planner timeout", func(c *Config) { c.Planner.Timeout = 0 }},
		{"bad export format", func(c *Config) { c.Export.Format = "pdf" }},
		{"zero analyze cap", func(c *Config) { c.Engine.AnalyzeFieldCap = 0 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := NewDefaultConfig()
			tc.mutil(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
