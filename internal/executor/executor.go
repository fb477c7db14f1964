// File: internal/executor/executor.go
// Package executor applies planner-issued steps to the live host surface.
// Every action funnels through Execute, which dispatches on the step kind and
// reduces whatever happens (host errors, rejected writes, panics, cancelled
// contexts) to exactly one Outcome. The host mutates asynchronously, so each
// mutating action is a small state machine: act, settle, observe, verify.
package executor

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/formpilot/formpilot/api/schemas"
	"github.com/formpilot/formpilot/internal/config"
	"github.com/formpilot/formpilot/internal/locator"
	"github.com/formpilot/formpilot/internal/observer"
)

// Executor applies single steps against a host. It holds no per-step state
// and is safe for sequential reuse across batches.
type Executor struct {
	host  schemas.Host
	loc   *locator.Locator
	obs   *observer.Observer
	waits config.WaitConfig

	fieldCap   int
	controlCap int

	log *zap.Logger
}

// New creates an Executor bound to a host.
func New(host schemas.Host, loc *locator.Locator, obs *observer.Observer, cfg config.EngineConfig, log *zap.Logger) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{
		host:       host,
		loc:        loc,
		obs:        obs,
		waits:      cfg.Waits,
		fieldCap:   cfg.AnalyzeFieldCap,
		controlCap: cfg.AnalyzeControlCap,
		log:        log,
	}
}

// Execute applies one step and returns its outcome. It never returns an
// error and never panics; anything that goes wrong becomes a failure
// outcome so the batch keeps its one-outcome-per-step shape.
func (e *Executor) Execute(ctx context.Context, step schemas.Step) (out schemas.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("step panicked", zap.String("kind", string(step.Kind)), zap.Any("panic", r))
			out = schemas.Fail("Error: %v", r)
		}
	}()

	if err := step.ArgError(); err != nil {
		return schemas.Fail("Invalid arguments for %s: %v", step.Kind, err)
	}
	if err := ctx.Err(); err != nil {
		return schemas.Fail("Interrupted: %v", err)
	}

	start := time.Now()
	out = e.dispatch(ctx, step)
	e.log.Debug("executed step",
		zap.String("kind", string(step.Kind)),
		zap.String("status", string(out.Status)),
		zap.Duration("took", time.Since(start)))
	return out
}

func (e *Executor) dispatch(ctx context.Context, step schemas.Step) schemas.Outcome {
	switch args := step.Args.(type) {
	case schemas.NavigateArgs:
		return e.navigate(ctx, args)
	case schemas.CreateRecordArgs:
		return e.createRecord(ctx, args)
	case schemas.SetFieldArgs:
		return e.setField(ctx, args)
	case schemas.ClickControlArgs:
		return e.clickControl(ctx, args)
	case schemas.AnalyzeScreenArgs:
		return e.analyzeScreen(args)
	case schemas.GetValidationErrorsArgs:
		return e.getValidationErrors()
	case schemas.ScrollPageArgs:
		return e.scrollPage(ctx, args)
	case schemas.TypeTextArgs:
		return e.typeText(ctx, args)
	case schemas.SelectOptionArgs:
		return e.selectOption(ctx, args)
	case schemas.GetFieldValueArgs:
		return e.getFieldValue(args)
	case schemas.WaitForElementArgs:
		return e.waitForElement(ctx, args)
	case schemas.AddTableRowArgs:
		return e.addTableRow(ctx, args)
	case schemas.SetTableFieldArgs:
		return e.setTableField(ctx, args)
	case schemas.SearchRecordsArgs:
		return e.searchRecords(ctx, args)
	case schemas.ListRecordsArgs:
		return e.listRecords(ctx, args)
	case schemas.ValidateRecordExistsArgs:
		return e.validateRecordExists(ctx, args)
	}
	return schemas.Fail("Unknown tool: %s", step.Kind)
}

// pause sleeps for d unless the context ends first.
func (e *Executor) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// -- Navigation and record lifecycle --

func (e *Executor) navigate(ctx context.Context, args schemas.NavigateArgs) schemas.Outcome {
	route := schemas.Route{View: "List", Doctype: args.Doctype}
	if args.Name != "" {
		route = schemas.Route{View: "Form", Doctype: args.Doctype, Name: args.Name}
	}
	if err := e.host.Navigate(ctx, route); err != nil {
		return schemas.Fail("Failed to navigate to %s: %v", args.Doctype, err)
	}
	if err := e.pause(ctx, e.waits.NavigateSettle); err != nil {
		return schemas.Fail("Interrupted: %v", err)
	}
	return schemas.OK("Navigated to %s", args.Doctype)
}

func (e *Executor) createRecord(ctx context.Context, args schemas.CreateRecordArgs) schemas.Outcome {
	if err := e.host.OpenNewRecord(ctx, args.Doctype); err != nil {
		return schemas.Fail("Failed to open new %s: %v", args.Doctype, err)
	}

	// The editor loads asynchronously; poll until it reports the right
	// doctype instead of trusting the route change.
	ready := false
	for i := 0; i < e.waits.CreatePollAttempts; i++ {
		if s := e.host.CurrentSurface(); s != nil && s.Doctype() == args.Doctype {
			ready = true
			break
		}
		if err := e.pause(ctx, e.waits.CreatePollInterval); err != nil {
			return schemas.Fail("Interrupted: %v", err)
		}
	}
	if !ready {
		return schemas.Warn("Form for %s opened but not fully loaded. Please wait.", args.Doctype)
	}

	// Grace period for field bindings to finish wiring.
	if err := e.pause(ctx, e.waits.CreateGrace); err != nil {
		return schemas.Fail("Interrupted: %v", err)
	}
	return schemas.OK("%s form ready", args.Doctype)
}

// -- Scalar field writes --

// surfaceWithFields re-resolves the current surface until its field registry
// is populated, bounded by the registry retry budget. A nil return means no
// editor is open at all.
func (e *Executor) surfaceWithFields(ctx context.Context) schemas.DocumentSurface {
	var surface schemas.DocumentSurface
	for retry := 0; retry < e.waits.FieldRegistryRetries; retry++ {
		surface = e.host.CurrentSurface()
		if surface != nil && len(surface.Fields()) > 0 {
			return surface
		}
		if e.pause(ctx, e.waits.FieldRegistryRetryInterval) != nil {
			break
		}
	}
	return e.host.CurrentSurface()
}

func (e *Executor) setField(ctx context.Context, args schemas.SetFieldArgs) schemas.Outcome {
	surface := e.surfaceWithFields(ctx)
	if surface == nil {
		return schemas.Fail("No form is currently open")
	}

	chrome := e.host.Chrome()
	// A leftover modal from an earlier action would swallow the write.
	if chrome.DialogText() != "" {
		_ = chrome.DismissDialog(ctx)
		if err := e.pause(ctx, e.waits.DialogDismiss); err != nil {
			return schemas.Fail("Interrupted: %v", err)
		}
	}

	if _, ok := e.loc.FindField(surface, args.Field); !ok {
		return schemas.Fail("Field %q not found in form. Check fieldname.", args.Field)
	}

	if err := surface.SetValue(ctx, args.Field, args.Value); err != nil {
		return schemas.Fail("Failed to set %s: %v", args.Field, err)
	}
	if err := e.pause(ctx, e.waits.FieldValidation); err != nil {
		return schemas.Fail("Interrupted: %v", err)
	}

	// A rejected write surfaces as a modal, not an error return.
	if text := strings.TrimSpace(chrome.DialogText()); text != "" && observer.IndicatesFieldError(text) {
		_ = chrome.DismissDialog(ctx)
		return schemas.Fail("%s: %s", args.Field, text)
	}

	// Navigation may have replaced the surface while we waited.
	if surface = e.host.CurrentSurface(); surface == nil {
		return schemas.Warn("%s was set but the form is no longer open", args.Field)
	}
	if surface.Value(args.Field) == "" && args.Value != "" {
		return schemas.Warn("%s could not be set. It might be read-only or invalid.", args.Field)
	}
	return schemas.OK("Set %s to %q", args.Field, args.Value)
}

func (e *Executor) typeText(ctx context.Context, args schemas.TypeTextArgs) schemas.Outcome {
	surface := e.host.CurrentSurface()
	if surface == nil {
		return schemas.Fail("Could not type: no form is currently open")
	}
	// Focus is best effort; fields without a focusable input still accept
	// the value below.
	if err := surface.FocusField(ctx, args.Field); err == nil {
		if err := e.pause(ctx, e.waits.FocusSettle); err != nil {
			return schemas.Fail("Interrupted: %v", err)
		}
	}
	if err := surface.SetValue(ctx, args.Field, args.Text); err != nil {
		return schemas.Fail("Could not type in %s: %v", args.Field, err)
	}
	return schemas.OK("Typed %q in %s", args.Text, args.Field)
}

func (e *Executor) selectOption(ctx context.Context, args schemas.SelectOptionArgs) schemas.Outcome {
	surface := e.host.CurrentSurface()
	if surface == nil {
		return schemas.Fail("No form is currently open")
	}
	if err := surface.SetValue(ctx, args.Field, args.Value); err != nil {
		return schemas.Fail("Could not select %q for %s: %v", args.Value, args.Field, err)
	}
	_ = surface.RefreshField(ctx, args.Field)
	return schemas.OK("Selected %q for %s", args.Value, args.Field)
}

func (e *Executor) getFieldValue(args schemas.GetFieldValueArgs) schemas.Outcome {
	surface := e.host.CurrentSurface()
	if surface == nil {
		return schemas.Fail("No form is currently open")
	}
	value := surface.Value(args.Field)
	if value == "" {
		value = "(empty)"
	}
	return schemas.OK("%s = %q", args.Field, value)
}

// -- Controls, waiting, scrolling --

func (e *Executor) clickControl(ctx context.Context, args schemas.ClickControlArgs) schemas.Outcome {
	chrome := e.host.Chrome()
	ctl, ok := e.loc.FindControl(chrome, args.Label)
	if !ok {
		return schemas.Fail("Button %q not found", args.Label)
	}
	if !ctl.Visible {
		return schemas.Fail("Button %q found but it is hidden. Cannot click.", args.Label)
	}

	if err := chrome.Click(ctx, ctl); err != nil {
		return schemas.Fail("Failed to click %q: %v", args.Label, err)
	}
	if err := e.pause(ctx, e.waits.ClickSettle); err != nil {
		return schemas.Fail("Interrupted: %v", err)
	}

	// An error modal raised by the click is dismissed so it cannot block the
	// next step, then reported.
	if text := strings.TrimSpace(chrome.DialogText()); text != "" {
		_ = chrome.DismissDialog(ctx)
		if err := e.pause(ctx, e.waits.DialogDismiss); err != nil {
			return schemas.Fail("Interrupted: %v", err)
		}
		return schemas.Fail("Validation error: %s", text)
	}

	if report := e.obs.Capture(e.host.CurrentSurface(), chrome); report != "" {
		return schemas.Warn("Clicked %q but got validation errors:\n%s", args.Label, report)
	}
	return schemas.OK("Clicked %q", args.Label)
}

func (e *Executor) waitForElement(ctx context.Context, args schemas.WaitForElementArgs) schemas.Outcome {
	// The selector may name a form field rather than a CSS path.
	if surface := e.host.CurrentSurface(); surface != nil {
		if _, ok := surface.Field(args.Selector); ok {
			return schemas.OK("Element found: %s", args.Selector)
		}
	}

	_, err := e.loc.WaitFor(ctx, e.host.Chrome(), args.Selector, args.Timeout)
	switch {
	case err == nil:
		return schemas.OK("Element found: %s", args.Selector)
	case ctx.Err() != nil:
		return schemas.Fail("Interrupted while waiting for %s: %v", args.Selector, ctx.Err())
	default:
		return schemas.Fail("Timeout waiting for %s", args.Selector)
	}
}

// minScrollDisplacement is the smallest movement treated as a real scroll;
// anything under it means the container was already pinned at a boundary.
const minScrollDisplacement = 10

func (e *Executor) scrollPage(ctx context.Context, args schemas.ScrollPageArgs) schemas.Outcome {
	chrome := e.host.Chrome()
	offset := float64(args.Amount)
	if args.Direction == "up" {
		offset = -offset
	}

	// Regions come back in priority order; take the first one that still has
	// room to move in the requested direction.
	var region string
	var initial float64
	found := false
	for _, r := range chrome.ScrollRegions() {
		if args.Direction == "down" && r.Position >= r.Max-5 {
			continue
		}
		if args.Direction == "up" && r.Position <= 0 {
			continue
		}
		region, initial, found = r.Name, r.Position, true
		break
	}
	boundary := "bottom"
	if args.Direction == "up" {
		boundary = "top"
	}
	if !found {
		return schemas.Warn("Could not scroll. The page might not be scrollable or is already at the %s.", boundary)
	}

	if err := chrome.ScrollBy(ctx, region, offset); err != nil {
		return schemas.Fail("Failed to scroll %s: %v", args.Direction, err)
	}
	if err := e.pause(ctx, e.waits.ScrollSettle); err != nil {
		return schemas.Fail("Interrupted: %v", err)
	}

	if math.Abs(chrome.ScrollPosition(region)-initial) < minScrollDisplacement {
		return schemas.Warn("Scroll position didn't change. You might be at the %s of the page.", boundary)
	}
	return schemas.OK("Scrolled %s by %dpx", args.Direction, args.Amount)
}

// -- Validation --

func (e *Executor) getValidationErrors() schemas.Outcome {
	report := e.obs.Capture(e.host.CurrentSurface(), e.host.Chrome())
	if report == "" {
		return schemas.OK("No validation errors")
	}
	return schemas.Warn("%s", report)
}

// -- Repeating tables --

func (e *Executor) addTableRow(ctx context.Context, args schemas.AddTableRowArgs) schemas.Outcome {
	surface := e.host.CurrentSurface()
	if surface == nil {
		return schemas.Fail("No form is currently open")
	}

	rows := surface.TableRows(args.Table)
	if len(rows) > 0 && hasEmptyRow(rows, surface.TableRowSchema(args.Table)) {
		return schemas.OK("Using existing empty row in %s", args.Table)
	}

	count, err := surface.AddTableRow(ctx, args.Table)
	if err != nil {
		return schemas.Fail("Failed to add row to %s: %v", args.Table, err)
	}
	_ = surface.RefreshField(ctx, args.Table)
	return schemas.OK("Added row %d to %s", count, args.Table)
}

// hasEmptyRow reports whether any row is still blank enough to be filled
// instead of appending another. A row counts as empty when its primary field
// is unset, or when three or fewer of its non-internal fields hold values.
func hasEmptyRow(rows []schemas.Row, schema []schemas.FieldMeta) bool {
	primary := ""
	for _, f := range schema {
		if f.Required {
			primary = f.Name
			break
		}
	}
	if primary == "" && len(schema) > 0 {
		primary = schema[0].Name
	}

	for _, row := range rows {
		if primary != "" {
			if row[primary] == "" {
				return true
			}
			continue
		}
		populated := 0
		for k, v := range row {
			if !strings.HasPrefix(k, "_") && v != "" {
				populated++
			}
		}
		if populated <= 3 {
			return true
		}
	}
	return false
}

// itemField is the cell whose write triggers the host's heaviest dependent
// population (pricing, descriptions, stock defaults).
const itemField = "item_code"

func (e *Executor) setTableField(ctx context.Context, args schemas.SetTableFieldArgs) schemas.Outcome {
	surface := e.host.CurrentSurface()
	if surface == nil {
		return schemas.Fail("No form is currently open")
	}

	rows := surface.TableRows(args.Table)
	if len(rows) == 0 {
		return schemas.Fail("Table %q is empty", args.Table)
	}
	if args.Row > len(rows) {
		return schemas.Fail("Row %d not found in %s (only %d rows exist)", args.Row, args.Table, len(rows))
	}

	if err := surface.SetTableValue(ctx, args.Table, args.Row, args.Field, args.Value); err != nil {
		return schemas.Fail("Error setting %s: %v", args.Field, err)
	}

	settle := e.waits.TableCellSettle
	if args.Field == itemField {
		settle = e.waits.TableItemSettle
	}
	if err := e.pause(ctx, settle); err != nil {
		return schemas.Fail("Interrupted: %v", err)
	}

	_ = surface.RefreshField(ctx, args.Table)
	return schemas.OK("Set %s to %q in row %d", args.Field, args.Value, args.Row)
}

// -- Record store queries --

const (
	searchDisplayCap = 10
	listDisplayCap   = 15
)

func (e *Executor) searchRecords(ctx context.Context, args schemas.SearchRecordsArgs) schemas.Outcome {
	names, err := e.host.Records().Search(ctx, args.Doctype, args.Text, args.Limit)
	if err != nil {
		return schemas.Fail("Error searching %s: %v", args.Doctype, err)
	}
	if len(names) == 0 {
		return schemas.OK("No %s records found matching %q", args.Doctype, args.Text)
	}

	display := names
	suffix := ""
	if len(names) > searchDisplayCap {
		display = names[:searchDisplayCap]
		suffix = fmt.Sprintf(" (showing first %d)", searchDisplayCap)
	}
	return schemas.OK("Found %d %s record(s) matching %q:\n%s%s",
		len(names), args.Doctype, args.Text, strings.Join(display, ", "), suffix)
}

func (e *Executor) listRecords(ctx context.Context, args schemas.ListRecordsArgs) schemas.Outcome {
	names, err := e.host.Records().List(ctx, args.Doctype, args.Limit)
	if err != nil {
		return schemas.Fail("Error listing %s: %v", args.Doctype, err)
	}
	if len(names) == 0 {
		return schemas.OK("No %s records found in the system", args.Doctype)
	}

	display := names
	suffix := ""
	if len(names) > listDisplayCap {
		display = names[:listDisplayCap]
		suffix = fmt.Sprintf(" (showing first %d)", listDisplayCap)
	}
	quoted := make([]string, len(display))
	for i, n := range display {
		quoted[i] = fmt.Sprintf("%q", n)
	}
	return schemas.OK("Found %d %s record(s). Use EXACT names in quotes:\n\nFirst available: %q\n\nAll records: %s%s",
		len(names), args.Doctype, names[0], strings.Join(quoted, ", "), suffix)
}

func (e *Executor) validateRecordExists(ctx context.Context, args schemas.ValidateRecordExistsArgs) schemas.Outcome {
	exists, err := e.host.Records().Exists(ctx, args.Doctype, args.Name)
	if err != nil {
		// A planner branches on the negative sentinel, so a backend error
		// reads as absence rather than a distinct failure shape.
		e.log.Warn("existence check failed, treating as absent",
			zap.String("doctype", args.Doctype), zap.Error(err))
		return schemas.Fail("%s %q does NOT exist", args.Doctype, args.Name)
	}
	if !exists {
		return schemas.Fail("%s %q does NOT exist", args.Doctype, args.Name)
	}
	return schemas.OK("%s %q exists", args.Doctype, args.Name)
}
