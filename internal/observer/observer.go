// Package observer inspects the host surface for validation problems. It
// gathers everything currently wrong into one report so the planner can see
// modal errors, missing mandatory fields, incomplete table rows and inline
// decorations in a single round trip.
package observer

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/formpilot/formpilot/api/schemas"
)

// Observer captures validation state. Stateless; safe for concurrent use.
type Observer struct {
	log *zap.Logger
}

// New creates an Observer.
func New(log *zap.Logger) *Observer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Observer{log: log}
}

// Capture collects the current validation problems, newline joined, in a
// fixed order: open modal text first, then missing mandatory fields, then
// per-row table gaps, then inline error decorations. An empty string means
// nothing is visibly wrong right now; the host validates asynchronously, so
// this is a snapshot, not a proof of validity.
func (o *Observer) Capture(surface schemas.DocumentSurface, chrome schemas.UIChrome) string {
	var errors []string

	if chrome != nil {
		if text := strings.TrimSpace(chrome.DialogText()); text != "" {
			errors = append(errors, text)
		}
	}

	if surface != nil {
		if missing := missingMandatory(surface); len(missing) > 0 {
			errors = append(errors, "Missing mandatory fields: "+strings.Join(missing, ", "))
		}
		errors = append(errors, tableRowGaps(surface)...)
	}

	if chrome != nil {
		for _, inline := range chrome.InlineErrors() {
			if inline = strings.TrimSpace(inline); inline != "" {
				errors = append(errors, inline)
			}
		}
	}

	if len(errors) == 0 {
		return ""
	}
	o.log.Debug("captured validation errors", zap.Int("count", len(errors)))
	return strings.Join(errors, "\n")
}

func missingMandatory(surface schemas.DocumentSurface) []string {
	var missing []string
	for _, f := range surface.MandatoryFields() {
		if surface.Value(f.Name) == "" {
			missing = append(missing, f.DisplayName())
		}
	}
	return missing
}

func tableRowGaps(surface schemas.DocumentSurface) []string {
	var gaps []string
	for _, table := range surface.TableFields() {
		schema := surface.TableRowSchema(table.Name)
		var required []schemas.FieldMeta
		for _, f := range schema {
			if f.Required {
				required = append(required, f)
			}
		}
		if len(required) == 0 {
			continue
		}
		for idx, row := range surface.TableRows(table.Name) {
			var missing []string
			for _, f := range required {
				if row[f.Name] == "" {
					missing = append(missing, f.DisplayName())
				}
			}
			if len(missing) > 0 {
				gaps = append(gaps, fmt.Sprintf("Row %d in %s: Missing %s",
					idx+1, table.DisplayName(), strings.Join(missing, ", ")))
			}
		}
	}
	return gaps
}

// fieldErrorMarkers are the dialog substrings that mark a rejected field
// write, as opposed to an informational modal.
var fieldErrorMarkers = []string{"not exist", "not found", "Invalid"}

// IndicatesFieldError reports whether modal text signals that a field write
// was rejected by the host.
func IndicatesFieldError(dialogText string) bool {
	for _, marker := range fieldErrorMarkers {
		if strings.Contains(dialogText, marker) {
			return true
		}
	}
	return false
}
