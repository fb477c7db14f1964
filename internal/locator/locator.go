// Package locator resolves planner-named targets against the live host
// surface: fields by fieldname, controls by visible label, raw CSS selectors
// by polling. Resolution is always against a fresh snapshot because the host
// mutates the surface asynchronously.
package locator

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/formpilot/formpilot/api/schemas"
)

// ErrTimeout is returned by WaitFor when the selector never matched within
// the allotted window.
var ErrTimeout = errors.New("element did not appear")

// Locator performs target resolution. It is stateless apart from its poll
// interval and is safe for concurrent use.
type Locator struct {
	pollInterval time.Duration
	log          *zap.Logger
}

// New creates a Locator polling at the given interval.
func New(pollInterval time.Duration, log *zap.Logger) *Locator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Locator{pollInterval: pollInterval, log: log}
}

// FindField resolves a scalar field by fieldname on the given surface.
func (l *Locator) FindField(surface schemas.DocumentSurface, name string) (schemas.FieldMeta, bool) {
	if surface == nil {
		return schemas.FieldMeta{}, false
	}
	return surface.Field(name)
}

// FindControl resolves a control by its visible label. Matching is
// case-insensitive on trimmed text; an exact label match beats a substring
// match. Within the same match strength a visible control beats a hidden one,
// and the first control in document order wins remaining ties. Controls owned
// by the engine's own UI are never candidates.
func (l *Locator) FindControl(chrome schemas.UIChrome, label string) (schemas.Control, bool) {
	want := strings.ToLower(strings.TrimSpace(label))
	if want == "" || chrome == nil {
		return schemas.Control{}, false
	}

	var best schemas.Control
	bestScore := 0
	for _, c := range chrome.Controls() {
		if c.EngineOwned {
			continue
		}
		got := strings.ToLower(strings.TrimSpace(c.Label))
		score := 0
		switch {
		case got == want:
			score = 4
		case strings.Contains(got, want):
			score = 2
		default:
			continue
		}
		if c.Visible {
			score++
		}
		// Strictly greater keeps the earliest control on ties.
		if score > bestScore {
			best, bestScore = c, score
		}
	}
	if bestScore == 0 {
		return schemas.Control{}, false
	}
	l.log.Debug("resolved control",
		zap.String("label", label),
		zap.String("selector", best.Selector),
		zap.Bool("visible", best.Visible))
	return best, true
}

// WaitFor polls the chrome until the CSS selector matches, the timeout
// elapses, or the context is cancelled. It returns the time spent waiting;
// the error is nil on a match, ErrTimeout on expiry, or the context error.
func (l *Locator) WaitFor(ctx context.Context, chrome schemas.UIChrome, selector string, timeout time.Duration) (time.Duration, error) {
	start := time.Now()
	if chrome.Query(selector) {
		return time.Since(start), nil
	}

	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return time.Since(start), ctx.Err()
		case <-deadline.C:
			return time.Since(start), ErrTimeout
		case <-ticker.C:
			if chrome.Query(selector) {
				return time.Since(start), nil
			}
		}
	}
}
