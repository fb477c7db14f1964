package schemas

import (
	"context"
)

// -- Host Document Model --

// FieldMeta describes one field declared on a document surface or on a
// repeating-row type.
type FieldMeta struct {
	Name     string
	Label    string
	Type     string // host field type, e.g. "Data", "Link", "Select", "Table"
	Required bool
	ReadOnly bool
	Default  string
}

// DisplayName prefers the human label over the raw fieldname.
func (f FieldMeta) DisplayName() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

// Row is one row of a repeating-table field, keyed by fieldname. Keys with a
// leading underscore are host-internal bookkeeping, not user data.
type Row map[string]string

// Route identifies where the host UI currently is.
type Route struct {
	View    string // "Form", "List", "Workspace", ...
	Doctype string
	Name    string
}

// Control is one interactive control in the host chrome.
type Control struct {
	Label    string
	Selector string
	Visible  bool
	// EngineOwned marks controls that belong to this engine's own UI; the
	// locator must never target them.
	EngineOwned bool
}

// ScrollRegion describes one scrollable container, in priority order.
type ScrollRegion struct {
	Name     string
	Position float64
	Max      float64
}

// DashboardWidgets summarizes a workspace/dashboard view.
type DashboardWidgets struct {
	Shortcuts []string
	Cards     []string
	Charts    []string
}

// DocumentSurface is the live record editor the engine mutates and observes.
// The engine never owns the surface; the host replaces it on navigation and
// mutates it asynchronously, so every read is a best-effort snapshot.
type DocumentSurface interface {
	// Doctype returns the record type being edited.
	Doctype() string
	// RecordName returns the active record's identity (possibly a temporary
	// "new" name while the editor is still wiring up).
	RecordName() string
	// DocStatus returns the host's lifecycle status, e.g. "Draft".
	DocStatus() string

	// Fields enumerates the surface's live field registry. An empty registry
	// usually means the editor has not finished loading.
	Fields() []FieldMeta
	// Field looks up a single field by name.
	Field(name string) (FieldMeta, bool)
	// Value reads the current scalar value of a field; empty string for
	// unset.
	Value(name string) string
	// SetValue writes a scalar field. The write may trigger asynchronous
	// cross-field validation on the host side.
	SetValue(ctx context.Context, name, value string) error
	// RefreshField asks the host to re-render one field.
	RefreshField(ctx context.Context, name string) error
	// FocusField moves input focus to a field, when it has a focusable input.
	FocusField(ctx context.Context, name string) error
	// MandatoryFields enumerates the currently-required fields.
	MandatoryFields() []FieldMeta

	// TableFields enumerates the repeating-table fields declared on the
	// surface.
	TableFields() []FieldMeta
	// TableRows returns the current rows of a table field.
	TableRows(table string) []Row
	// TableRowSchema returns the field schema of a table's row type,
	// including per-field required metadata.
	TableRowSchema(table string) []FieldMeta
	// AddTableRow appends a blank row and returns the new row count.
	AddTableRow(ctx context.Context, table string) (int, error)
	// SetTableValue writes one cell; row is 1-indexed.
	SetTableValue(ctx context.Context, table string, row int, field, value string) error
}

// UIChrome is the host's queryable control tree: dialogs, buttons, scroll
// containers and inline error decorations.
type UIChrome interface {
	// Route reports the host's current location.
	Route() Route
	// Title returns the page title, already stripped of host branding.
	Title() string

	// Controls enumerates interactive controls in document order.
	Controls() []Control
	// Query reports whether a raw CSS selector currently matches.
	Query(selector string) bool
	// Click activates a control.
	Click(ctx context.Context, c Control) error

	// DialogText returns the text of an open modal dialog, or "" when none
	// is open.
	DialogText() string
	// DismissDialog closes any open modal. Best effort.
	DismissDialog(ctx context.Context) error
	// InlineErrors returns field-level error decorations currently shown.
	InlineErrors() []string

	// ScrollRegions lists scrollable containers in priority order.
	ScrollRegions() []ScrollRegion
	// ScrollBy initiates a smooth scroll of a signed offset (negative = up)
	// in the named region.
	ScrollBy(ctx context.Context, region string, offset float64) error
	// ScrollPosition reads a region's current position.
	ScrollPosition(region string) float64

	// ListCount reports the number of records shown by an active list view.
	ListCount() (int, bool)
	// Widgets summarizes an active workspace/dashboard view.
	Widgets() (DashboardWidgets, bool)
}

// RecordStore queries the host's record backend.
type RecordStore interface {
	List(ctx context.Context, doctype string, limit int) ([]string, error)
	Search(ctx context.Context, doctype, text string, limit int) ([]string, error)
	Exists(ctx context.Context, doctype, name string) (bool, error)
}

// Host is the integration layer owning the ambient "current editor" handle.
// CurrentSurface is re-resolved on every call; the engine must not cache the
// returned surface across suspension points, because navigation replaces it.
type Host interface {
	CurrentSurface() DocumentSurface // nil when no editor is open
	Chrome() UIChrome
	Records() RecordStore

	// Navigate routes to a list or single-record view.
	Navigate(ctx context.Context, route Route) error
	// OpenNewRecord opens a blank editor for a record type.
	OpenNewRecord(ctx context.Context, doctype string) error
}

// -- External Collaborators --

// Planner asks the external planning service for the next batch of steps.
type Planner interface {
	Plan(ctx context.Context, req PlanRequest) (*PlanResponse, error)
}

// PlanContext tells the planner where the user currently is.
type PlanContext struct {
	CurrentLocation string `json:"current_location"`
	User            string `json:"user"`
}

// PlanRequest is one planner round-trip request.
type PlanRequest struct {
	Message string        `json:"message"`
	Context PlanContext   `json:"context"`
	History []ChatMessage `json:"history"`
}

// PlanResponse carries the authoritative batch to execute plus optional
// terminal content and session statistics.
type PlanResponse struct {
	Content     string
	Batch       Batch
	SessionData *SessionStats
}

// TranscriptStore durably persists the conversation, keyed by session key.
type TranscriptStore interface {
	Load(ctx context.Context, key string) ([]ChatMessage, error)
	Save(ctx context.Context, key string, msgs []ChatMessage) error
	// Clear removes the stored transcript. Callers treat failures as
	// best-effort cleanup: log and move on.
	Clear(ctx context.Context, key string) error
}
