// File: internal/orchestrator/orchestrator.go
// Package orchestrator runs planner batches: it executes steps strictly in
// order, applies the visibility policy, paces user-visible steps, records
// everything in the session ledger and synthesizes the terminal summary shown
// for the batch.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/formpilot/formpilot/api/schemas"
	"github.com/formpilot/formpilot/internal/executor"
	"github.com/formpilot/formpilot/internal/ledger"
)

// Orchestrator drives one batch at a time. Steps within a batch are strictly
// sequential; there is no intra-batch concurrency because later steps depend
// on the surface state earlier steps produced.
type Orchestrator struct {
	exec     *executor.Executor
	led      *ledger.Ledger
	throttle time.Duration
	log      *zap.Logger

	// onStep, when set, observes each user-visible step as it completes.
	onStep func(schemas.StepOutcome)
}

// New creates an Orchestrator. throttle paces visible steps so a human
// watching the live surface can follow along.
func New(exec *executor.Executor, led *ledger.Ledger, throttle time.Duration, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{exec: exec, led: led, throttle: throttle, log: log}
}

// SetStepObserver registers a callback invoked after each visible step.
// Hidden steps never reach the observer.
func (o *Orchestrator) SetStepObserver(fn func(schemas.StepOutcome)) {
	o.onStep = fn
}

// RunBatch executes every step of the batch in submission order and returns
// one outcome per step plus the synthesized summary. Execution never aborts
// early: a failed step still yields its outcome and the batch moves on, so
// the planner sees the complete picture.
func (o *Orchestrator) RunBatch(ctx context.Context, batch schemas.Batch) *schemas.BatchResult {
	result := &schemas.BatchResult{BatchID: batch.ID}

	for _, step := range batch.Steps {
		started := time.Now()
		outcome := o.exec.Execute(ctx, step)
		took := time.Since(started)

		o.led.RecordAction(step.Kind, outcome, started, took)
		result.Append(step, outcome)

		if step.Visibility != schemas.VisibilityShown {
			continue
		}
		if o.onStep != nil {
			o.onStep(schemas.StepOutcome{Step: step, Outcome: outcome})
		}
		o.pace(ctx)
	}

	result.Summary = o.synthesizeSummary(batch, result)
	o.log.Info("batch complete",
		zap.String("batch_id", batch.ID),
		zap.Int("steps", len(result.Outcomes)),
		zap.Bool("any_failure", result.AnyFailure))
	return result
}

// pace keeps visible steps legible on the live surface.
func (o *Orchestrator) pace(ctx context.Context) {
	if o.throttle <= 0 {
		return
	}
	timer := time.NewTimer(o.throttle)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// synthesizeSummary picks the batch's terminal message. The planner's own
// content always wins; otherwise degraded steps are surfaced verbatim, and a
// clean batch reports plain success.
func (o *Orchestrator) synthesizeSummary(batch schemas.Batch, result *schemas.BatchResult) string {
	if content := strings.TrimSpace(batch.FinalContent); content != "" {
		return content
	}

	if (result.AnyFailure || result.AnyWarning) && len(result.Outcomes) > 0 {
		var lines []string
		for _, so := range result.Degraded() {
			lines = append(lines, fmt.Sprintf("%s: %s", so.Step.Describe(), so.Outcome.Message))
		}
		return fmt.Sprintf("Some actions encountered issues:\n\n%s\n\nPlease review the errors above or try a different approach.",
			strings.Join(lines, "\n"))
	}

	if len(result.Outcomes) > 0 {
		return "Task completed successfully"
	}
	return "Done"
}

// ToolCallViews renders the user-visible steps of a result as transcript
// tool-call entries, in execution order.
func ToolCallViews(result *schemas.BatchResult) []schemas.ToolCallView {
	var views []schemas.ToolCallView
	for _, so := range result.Outcomes {
		if so.Step.Visibility != schemas.VisibilityShown {
			continue
		}
		views = append(views, schemas.ToolCallView{
			Name:   so.Step.Describe(),
			Result: so.Outcome.String(),
		})
	}
	return views
}
