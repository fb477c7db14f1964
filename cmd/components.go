// File: cmd/components.go
package cmd

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/formpilot/formpilot/api/schemas"
	"github.com/formpilot/formpilot/internal/config"
	"github.com/formpilot/formpilot/internal/executor"
	"github.com/formpilot/formpilot/internal/ledger"
	"github.com/formpilot/formpilot/internal/locator"
	"github.com/formpilot/formpilot/internal/observer"
	"github.com/formpilot/formpilot/internal/orchestrator"
	"github.com/formpilot/formpilot/internal/planner"
	"github.com/formpilot/formpilot/internal/session"
	"github.com/formpilot/formpilot/internal/surface"
	"github.com/formpilot/formpilot/internal/transcript"
)

// components holds the assembled service graph for one CLI invocation.
type components struct {
	Browser *surface.Browser
	Session *session.Session
	Ledger  *ledger.Ledger

	dbPool *pgxpool.Pool
	log    *zap.Logger
}

// Shutdown releases the browser and any database pool concurrently; neither
// teardown depends on the other.
func (c *components) Shutdown() {
	var g errgroup.Group
	if c.Browser != nil {
		g.Go(func() error {
			c.Browser.Close()
			return nil
		})
	}
	if c.dbPool != nil {
		g.Go(func() error {
			c.dbPool.Close()
			return nil
		})
	}
	_ = g.Wait()
}

// newTranscriptStore picks durable persistence when a database is configured
// and falls back to an in-process store otherwise.
func newTranscriptStore(ctx context.Context, c *components, cfg *config.Config, logger *zap.Logger) (schemas.TranscriptStore, error) {
	if cfg.Transcript.URL == "" {
		logger.Info("no transcript database configured, conversation will not persist")
		return transcript.NewMemory(), nil
	}
	pool, err := pgxpool.New(ctx, cfg.Transcript.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to transcript database: %w", err)
	}
	c.dbPool = pool
	store, err := transcript.New(ctx, pool, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize transcript store: %w", err)
	}
	return store, nil
}

// initializeComponents performs dependency injection for the chat and run
// commands.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*components, error) {
	if cfg.Planner.Endpoint == "" {
		return nil, fmt.Errorf("planner endpoint is not configured (planner.endpoint / FORMPILOT_PLANNER_ENDPOINT)")
	}

	c := &components{log: logger}

	store, err := newTranscriptStore(ctx, c, cfg, logger)
	if err != nil {
		c.Shutdown()
		return nil, err
	}

	browser, err := surface.New(ctx, cfg.Surface, logger)
	if err != nil {
		c.Shutdown()
		return nil, fmt.Errorf("failed to start browser surface: %w", err)
	}
	c.Browser = browser

	loc := locator.New(cfg.Engine.Waits.LocatePollInterval, logger)
	obs := observer.New(logger)
	exec := executor.New(browser, loc, obs, cfg.Engine, logger)

	led := ledger.New()
	c.Ledger = led
	orch := orchestrator.New(exec, led, cfg.Engine.Waits.StepThrottle, logger)

	plan := planner.NewClient(cfg.Planner, logger)
	c.Session = session.New(browser, plan, orch, led, store, cfg.Planner, logger)

	if err := c.Session.Start(ctx); err != nil {
		c.Shutdown()
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	return c, nil
}
