// File: internal/config/config.go
package config

import (
	"fmt"
	"path/filepath"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	Planner    PlannerConfig    `mapstructure:"planner" yaml:"planner"`
	Engine     EngineConfig     `mapstructure:"engine" yaml:"engine"`
	Surface    SurfaceConfig    `mapstructure:"surface" yaml:"surface"`
	Transcript TranscriptConfig `mapstructure:"transcript" yaml:"transcript"`
	Export     ExportConfig     `mapstructure:"export" yaml:"export"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"` // "console" or "json"
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// PlannerConfig points at the external planning service.
type PlannerConfig struct {
	Endpoint   string        `mapstructure:"endpoint" yaml:"endpoint"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RateLimit  float64       `mapstructure:"rate_limit" yaml:"rate_limit"`
	RateBurst  int           `mapstructure:"rate_burst" yaml:"rate_burst"`
	AuthToken  string        `mapstructure:"auth_token" yaml:"-"`
	User       string        `mapstructure:"user" yaml:"user"`
	SessionKey string        `mapstructure:"session_key" yaml:"session_key"`
}

// WaitConfig names every settle wait and polling bound the executor uses.
// Each duration exists because the host surface reacts to mutations
// asynchronously; the values are tunable so an event-driven host integration
// can shrink them without touching engine logic.
type WaitConfig struct {
	// NavigateSettle runs after routing, before the new surface is trusted.
	NavigateSettle time.Duration `mapstructure:"navigate_settle" yaml:"navigate_settle"`
	// CreatePollInterval spaces the editor-readiness poll after create_record.
	CreatePollInterval time.Duration `mapstructure:"create_poll_interval" yaml:"create_poll_interval"`
	// CreatePollAttempts bounds the readiness poll.
	CreatePollAttempts int `mapstructure:"create_poll_attempts" yaml:"create_poll_attempts"`
	// CreateGrace lets field bindings finish wiring after the editor loads.
	CreateGrace time.Duration `mapstructure:"create_grace" yaml:"create_grace"`
	// FieldRegistryRetryInterval spaces retries while the field registry
	// populates.
	FieldRegistryRetryInterval time.Duration `mapstructure:"field_registry_retry_interval" yaml:"field_registry_retry_interval"`
	// FieldRegistryRetries bounds those retries.
	FieldRegistryRetries int `mapstructure:"field_registry_retries" yaml:"field_registry_retries"`
	// DialogDismiss runs after closing a stray modal.
	DialogDismiss time.Duration `mapstructure:"dialog_dismiss" yaml:"dialog_dismiss"`
	// FocusSettle runs after moving input focus to a field.
	FocusSettle time.Duration `mapstructure:"focus_settle" yaml:"focus_settle"`
	// FieldValidation covers asynchronous cross-field validation after a
	// scalar write (lookup-field resolution and the like).
	FieldValidation time.Duration `mapstructure:"field_validation" yaml:"field_validation"`
	// ClickSettle covers validation triggered by activating a control.
	ClickSettle time.Duration `mapstructure:"click_settle" yaml:"click_settle"`
	// ScrollSettle lets a smooth scroll finish before displacement is
	// verified.
	ScrollSettle time.Duration `mapstructure:"scroll_settle" yaml:"scroll_settle"`
	// TableCellSettle runs after an ordinary table-cell write.
	TableCellSettle time.Duration `mapstructure:"table_cell_settle" yaml:"table_cell_settle"`
	// TableItemSettle runs after writing a row's item identifier, which
	// triggers the most expensive dependent-field population.
	TableItemSettle time.Duration `mapstructure:"table_item_settle" yaml:"table_item_settle"`
	// LocatePollInterval spaces wait_for_element polls.
	LocatePollInterval time.Duration `mapstructure:"locate_poll_interval" yaml:"locate_poll_interval"`
	// StepThrottle keeps visible steps legible to a human watching live.
	StepThrottle time.Duration `mapstructure:"step_throttle" yaml:"step_throttle"`
}

// EngineConfig configures the action executor and step orchestrator.
type EngineConfig struct {
	Waits WaitConfig `mapstructure:"waits" yaml:"waits"`
	// AnalyzeFieldCap bounds how many identifying fields analyze_screen
	// reports.
	AnalyzeFieldCap int `mapstructure:"analyze_field_cap" yaml:"analyze_field_cap"`
	// AnalyzeControlCap bounds how many key controls analyze_screen reports.
	AnalyzeControlCap int `mapstructure:"analyze_control_cap" yaml:"analyze_control_cap"`
}

// SurfaceConfig holds settings for the browser-backed host integration.
type SurfaceConfig struct {
	// AttachURL is an existing DevTools websocket to attach to; empty means
	// launch a browser.
	AttachURL string        `mapstructure:"attach_url" yaml:"attach_url"`
	BaseURL   string        `mapstructure:"base_url" yaml:"base_url"`
	Headless  bool          `mapstructure:"headless" yaml:"headless"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// TranscriptConfig holds the conversation persistence settings.
type TranscriptConfig struct {
	// URL is a postgres connection string; empty disables persistence.
	URL string `mapstructure:"url" yaml:"-"`
}

// ExportConfig configures session report export.
type ExportConfig struct {
	Format string `mapstructure:"format" yaml:"format"` // "json" or "text"
	Output string `mapstructure:"output" yaml:"output"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "formpilot")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Planner --
	v.SetDefault("planner.timeout", "120s")
	v.SetDefault("planner.rate_limit", 1.0)
	v.SetDefault("planner.rate_burst", 2)
	v.SetDefault("planner.user", "")
	v.SetDefault("planner.session_key", "formpilot_session")

	// -- Engine waits (see WaitConfig for what each one covers) --
	v.SetDefault("engine.waits.navigate_settle", "500ms")
	v.SetDefault("engine.waits.create_poll_interval", "200ms")
	v.SetDefault("engine.waits.create_poll_attempts", 20)
	v.SetDefault("engine.waits.create_grace", "1s")
	v.SetDefault("engine.waits.field_registry_retry_interval", "400ms")
	v.SetDefault("engine.waits.field_registry_retries", 3)
	v.SetDefault("engine.waits.dialog_dismiss", "100ms")
	v.SetDefault("engine.waits.focus_settle", "100ms")
	v.SetDefault("engine.waits.field_validation", "700ms")
	v.SetDefault("engine.waits.click_settle", "1s")
	v.SetDefault("engine.waits.scroll_settle", "600ms")
	v.SetDefault("engine.waits.table_cell_settle", "300ms")
	v.SetDefault("engine.waits.table_item_settle", "1500ms")
	v.SetDefault("engine.waits.locate_poll_interval", "100ms")
	v.SetDefault("engine.waits.step_throttle", "400ms")
	v.SetDefault("engine.analyze_field_cap", 10)
	v.SetDefault("engine.analyze_control_cap", 8)

	// -- Surface --
	v.SetDefault("surface.headless", false)
	v.SetDefault("surface.timeout", "30s")

	// -- Export --
	v.SetDefault("export.format", "json")
	v.SetDefault("export.output", "")
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Cannot happen with the defaults above.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	v.BindEnv("planner.auth_token", "FORMPILOT_PLANNER_TOKEN")
	v.BindEnv("transcript.url", "FORMPILOT_TRANSCRIPT_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// DefaultConfigDir returns the per-user configuration directory.
func DefaultConfigDir() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("cannot resolve home directory: %w", err)
	}
	return filepath.Join(home, ".formpilot"), nil
}

// Validate checks the configuration for sane values.
func (c *Config) Validate() error {
	if err := c.Engine.Waits.Validate(); err != nil {
		return fmt.Errorf("engine.waits: %w", err)
	}
	if c.Planner.Timeout <= 0 {
		return fmt.Errorf("planner.timeout must be a positive duration")
	}
	if c.Planner.RateLimit <= 0 {
		return fmt.Errorf("planner.rate_limit must be positive")
	}
	if c.Engine.AnalyzeFieldCap <= 0 || c.Engine.AnalyzeControlCap <= 0 {
		return fmt.Errorf("engine analyze caps must be positive")
	}
	switch c.Export.Format {
	case "json", "text":
	default:
		return fmt.Errorf("export.format must be \"json\" or \"text\", got %q", c.Export.Format)
	}
	return nil
}

// Validate checks the wait configuration.
func (w *WaitConfig) Validate() error {
	if w.CreatePollAttempts <= 0 {
		return fmt.Errorf("create_poll_attempts must be positive")
	}
	if w.FieldRegistryRetries <= 0 {
		return fmt.Errorf("field_registry_retries must be positive")
	}
	for name, d := range map[string]time.Duration{
		"navigate_settle":      w.NavigateSettle,
		"create_poll_interval": w.CreatePollInterval,
		"field_validation":     w.FieldValidation,
		"click_settle":         w.ClickSettle,
		"scroll_settle":        w.ScrollSettle,
		"table_cell_settle":    w.TableCellSettle,
		"table_item_settle":    w.TableItemSettle,
		"locate_poll_interval": w.LocatePollInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be a positive duration", name)
		}
	}
	return nil
}
