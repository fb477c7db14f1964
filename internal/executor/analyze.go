// File: internal/executor/analyze.go
package executor

import (
	"fmt"
	"strings"

	"github.com/formpilot/formpilot/api/schemas"
)

// ignoredControls filters host chrome noise out of the screen analysis.
var ignoredControls = []string{
	"Help", "Menu", "Toggle Theme", "Close", "Minimize", "User", "Notifications", "Reload",
}

// hostInternalFields never make interesting key data.
var hostInternalFields = map[string]struct{}{
	"owner":     {},
	"creation":  {},
	"modified":  {},
	"docstatus": {},
}

// analyzeScreen summarizes the current screen for the planner: where we are,
// what record is open, what data it holds and which controls are available.
// The output is prose for the planner's context window, not a wire format.
func (e *Executor) analyzeScreen(args schemas.AnalyzeScreenArgs) schemas.Outcome {
	chrome := e.host.Chrome()
	route := chrome.Route()

	var b strings.Builder
	purpose := args.Purpose
	if purpose == "" {
		purpose = "general"
	}
	fmt.Fprintf(&b, "Screen Analysis (%s)\n", purpose)
	fmt.Fprintf(&b, "Page: %s\n", chrome.Title())
	fmt.Fprintf(&b, "Type: %s View (%s)", route.View, route.Doctype)

	if surface := e.host.CurrentSurface(); surface != nil && surface.RecordName() != "" {
		status := surface.DocStatus()
		if status == "" {
			status = "Draft"
		}
		fmt.Fprintf(&b, "\nDocument: %s (%s)", surface.RecordName(), status)

		if data := e.keyData(surface); data != "" {
			fmt.Fprintf(&b, "\nKey Data: %s", data)
		}
	}

	if route.View == "List" {
		if count, ok := chrome.ListCount(); ok {
			fmt.Fprintf(&b, "\nList Data: Showing %d records.", count)
		}
	}

	if widgets, ok := chrome.Widgets(); ok {
		e.describeWidgets(&b, widgets)
	}

	if actions := e.keyControls(chrome); len(actions) > 0 {
		fmt.Fprintf(&b, "\nActions: %s", strings.Join(actions, ", "))
	}

	return schemas.OK("%s", b.String())
}

// keyData renders the identifying fields of an open record: the required
// ones plus anything the user has filled in, capped so a wide doctype does
// not flood the planner.
func (e *Executor) keyData(surface schemas.DocumentSurface) string {
	var parts []string
	for _, f := range surface.Fields() {
		if len(parts) >= e.fieldCap {
			break
		}
		if _, internal := hostInternalFields[f.Name]; internal {
			continue
		}
		value := surface.Value(f.Name)
		if !f.Required && value == "" {
			continue
		}
		if value == "" {
			value = "(empty)"
		}
		parts = append(parts, fmt.Sprintf("%s: %s", f.DisplayName(), value))
	}
	return strings.Join(parts, ", ")
}

func (e *Executor) keyControls(chrome schemas.UIChrome) []string {
	var labels []string
	for _, c := range chrome.Controls() {
		if len(labels) >= e.controlCap {
			break
		}
		if c.EngineOwned || !c.Visible {
			continue
		}
		label := strings.TrimSpace(c.Label)
		if len(label) <= 2 || isIgnoredControl(label) {
			continue
		}
		labels = append(labels, label)
	}
	return labels
}

func isIgnoredControl(label string) bool {
	for _, ig := range ignoredControls {
		if strings.Contains(label, ig) {
			return true
		}
	}
	return false
}

func (e *Executor) describeWidgets(b *strings.Builder, w schemas.DashboardWidgets) {
	if len(w.Shortcuts) == 0 && len(w.Cards) == 0 && len(w.Charts) == 0 {
		return
	}
	b.WriteString("\nDashboard Contents:")
	if len(w.Shortcuts) > 0 {
		fmt.Fprintf(b, "\n   Shortcuts: %s", strings.Join(w.Shortcuts, ", "))
	}
	if len(w.Cards) > 0 {
		fmt.Fprintf(b, "\n   Cards: %s", strings.Join(w.Cards, ", "))
	}
	if len(w.Charts) > 0 {
		fmt.Fprintf(b, "\n   Charts: %s", strings.Join(w.Charts, ", "))
	}
}
