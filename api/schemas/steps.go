package schemas

import (
	"fmt"
	"strconv"
	"time"
)

// -- Step Schemas --

// A Step is one planner-issued action: a kind plus its validated argument
// record. Steps are immutable once constructed; argument problems are caught
// here, at construction time, rather than surfacing as nil lookups deep in
// the executor.
type Step struct {
	Kind       ActionKind
	Visibility Visibility
	Args       StepArgs

	argErr error
}

// StepArgs is the tagged-union payload of a Step. Each action kind carries
// its own argument record; the executor type-switches on the concrete type.
type StepArgs interface {
	ArgsKind() ActionKind
}

// ArgError returns the construction-time argument error, if any. A step with
// a non-nil ArgError is never dispatched; it reduces directly to a failure
// outcome.
func (s Step) ArgError() error { return s.argErr }

// Describe returns a short human-readable label for UI and ledger entries.
func (s Step) Describe() string { return string(s.Kind) }

// NavigateArgs routes to a list view or, when Name is set, a single record.
type NavigateArgs struct {
	Doctype string
	Name    string
}

// CreateRecordArgs opens a blank editor for the given record type.
type CreateRecordArgs struct {
	Doctype string
}

// SetFieldArgs writes a scalar field on the active surface.
type SetFieldArgs struct {
	Field string
	Value string
}

// ClickControlArgs clicks a visible control matched by label text.
type ClickControlArgs struct {
	Label string
}

// AnalyzeScreenArgs summarizes the current screen for the stated purpose.
type AnalyzeScreenArgs struct {
	Purpose string
}

// GetValidationErrorsArgs polls the surface for validation errors.
type GetValidationErrorsArgs struct{}

// ScrollPageArgs scrolls the active container by Amount pixels.
type ScrollPageArgs struct {
	Direction string // "up" or "down"
	Amount    int
}

// TypeTextArgs focuses a field and types text into it.
type TypeTextArgs struct {
	Field string
	Text  string
}

// SelectOptionArgs picks an option value for a select-style field.
type SelectOptionArgs struct {
	Field string
	Value string
}

// GetFieldValueArgs reads a field's current value.
type GetFieldValueArgs struct {
	Field string
}

// WaitForElementArgs polls for an element until it appears or the timeout
// elapses.
type WaitForElementArgs struct {
	Selector string
	Timeout  time.Duration
}

// AddTableRowArgs appends (or reuses) a row in a repeating-table field.
type AddTableRowArgs struct {
	Table string
}

// SetTableFieldArgs writes a cell in a repeating-table field. Row is
// 1-indexed, matching how the planner and the host UI number rows.
type SetTableFieldArgs struct {
	Table string
	Row   int
	Field string
	Value string
}

// SearchRecordsArgs searches the record store by name substring.
type SearchRecordsArgs struct {
	Doctype string
	Text    string
	Limit   int
}

// ListRecordsArgs lists records of a type.
type ListRecordsArgs struct {
	Doctype string
	Limit   int
}

// ValidateRecordExistsArgs checks a single record for existence.
type ValidateRecordExistsArgs struct {
	Doctype string
	Name    string
}

func (NavigateArgs) ArgsKind() ActionKind            { return ActionNavigate }
func (CreateRecordArgs) ArgsKind() ActionKind        { return ActionCreateRecord }
func (SetFieldArgs) ArgsKind() ActionKind            { return ActionSetField }
func (ClickControlArgs) ArgsKind() ActionKind        { return ActionClickControl }
func (AnalyzeScreenArgs) ArgsKind() ActionKind       { return ActionAnalyzeScreen }
func (GetValidationErrorsArgs) ArgsKind() ActionKind { return ActionGetValidationErrors }
func (ScrollPageArgs) ArgsKind() ActionKind          { return ActionScrollPage }
func (TypeTextArgs) ArgsKind() ActionKind            { return ActionTypeText }
func (SelectOptionArgs) ArgsKind() ActionKind        { return ActionSelectOption }
func (GetFieldValueArgs) ArgsKind() ActionKind       { return ActionGetFieldValue }
func (WaitForElementArgs) ArgsKind() ActionKind      { return ActionWaitForElement }
func (AddTableRowArgs) ArgsKind() ActionKind         { return ActionAddTableRow }
func (SetTableFieldArgs) ArgsKind() ActionKind       { return ActionSetTableField }
func (SearchRecordsArgs) ArgsKind() ActionKind       { return ActionSearchRecords }
func (ListRecordsArgs) ArgsKind() ActionKind         { return ActionListRecords }
func (ValidateRecordExistsArgs) ArgsKind() ActionKind {
	return ActionValidateRecordExists
}

// DefaultWaitForElementTimeout bounds wait_for_element when the planner does
// not supply one.
const DefaultWaitForElementTimeout = 5 * time.Second

const (
	defaultScrollAmount = 500
	defaultSearchLimit  = 20
	defaultListLimit    = 50
)

// NewStep builds a Step from a raw planner argument mapping, validating the
// per-kind schema. Unknown kinds and missing required arguments are
// construction-time errors.
func NewStep(kind ActionKind, raw map[string]any) (Step, error) {
	args, err := parseArgs(kind, raw)
	if err != nil {
		return Step{}, err
	}
	return Step{Kind: kind, Visibility: DefaultVisibility(kind), Args: args}, nil
}

// InvalidStep wraps an argument error so the batch still carries exactly one
// entry (and later exactly one outcome) for the offending planner step.
func InvalidStep(kind ActionKind, err error) Step {
	return Step{Kind: kind, Visibility: DefaultVisibility(kind), argErr: err}
}

func parseArgs(kind ActionKind, raw map[string]any) (StepArgs, error) {
	switch kind {
	case ActionNavigate:
		doctype, err := requireString(raw, "doctype")
		if err != nil {
			return nil, err
		}
		return NavigateArgs{Doctype: doctype, Name: optString(raw, "name")}, nil

	case ActionCreateRecord:
		doctype, err := requireString(raw, "doctype")
		if err != nil {
			return nil, err
		}
		return CreateRecordArgs{Doctype: doctype}, nil

	case ActionSetField:
		field, err := requireString(raw, "fieldname")
		if err != nil {
			return nil, err
		}
		return SetFieldArgs{Field: field, Value: optString(raw, "value")}, nil

	case ActionClickControl:
		label, err := requireString(raw, "button_text")
		if err != nil {
			return nil, err
		}
		return ClickControlArgs{Label: label}, nil

	case ActionAnalyzeScreen:
		return AnalyzeScreenArgs{Purpose: optString(raw, "purpose")}, nil

	case ActionGetValidationErrors:
		return GetValidationErrorsArgs{}, nil

	case ActionScrollPage:
		direction := optString(raw, "direction")
		if direction == "" {
			direction = "down"
		}
		if direction != "up" && direction != "down" {
			return nil, fmt.Errorf("scroll_page: direction must be \"up\" or \"down\", got %q", direction)
		}
		amount := optInt(raw, "amount", defaultScrollAmount)
		if amount <= 0 {
			return nil, fmt.Errorf("scroll_page: amount must be positive, got %d", amount)
		}
		return ScrollPageArgs{Direction: direction, Amount: amount}, nil

	case ActionTypeText:
		field, err := requireString(raw, "fieldname")
		if err != nil {
			return nil, err
		}
		return TypeTextArgs{Field: field, Text: optString(raw, "text")}, nil

	case ActionSelectOption:
		field, err := requireString(raw, "fieldname")
		if err != nil {
			return nil, err
		}
		value, err := requireString(raw, "value")
		if err != nil {
			return nil, err
		}
		return SelectOptionArgs{Field: field, Value: value}, nil

	case ActionGetFieldValue:
		field, err := requireString(raw, "fieldname")
		if err != nil {
			return nil, err
		}
		return GetFieldValueArgs{Field: field}, nil

	case ActionWaitForElement:
		selector, err := requireString(raw, "selector")
		if err != nil {
			return nil, err
		}
		timeout := DefaultWaitForElementTimeout
		if ms := optInt(raw, "timeout", 0); ms > 0 {
			timeout = time.Duration(ms) * time.Millisecond
		}
		return WaitForElementArgs{Selector: selector, Timeout: timeout}, nil

	case ActionAddTableRow:
		table, err := requireString(raw, "table_fieldname")
		if err != nil {
			return nil, err
		}
		return AddTableRowArgs{Table: table}, nil

	case ActionSetTableField:
		table, err := requireString(raw, "table_fieldname")
		if err != nil {
			return nil, err
		}
		field, err := requireString(raw, "fieldname")
		if err != nil {
			return nil, err
		}
		row := optInt(raw, "row_idx", 0)
		if row < 1 {
			return nil, fmt.Errorf("set_table_field: row_idx must be >= 1, got %d", row)
		}
		return SetTableFieldArgs{Table: table, Row: row, Field: field, Value: optString(raw, "value")}, nil

	case ActionSearchRecords:
		doctype, err := requireString(raw, "doctype")
		if err != nil {
			return nil, err
		}
		return SearchRecordsArgs{
			Doctype: doctype,
			Text:    optString(raw, "search_text"),
			Limit:   optInt(raw, "limit", defaultSearchLimit),
		}, nil

	case ActionListRecords:
		doctype, err := requireString(raw, "doctype")
		if err != nil {
			return nil, err
		}
		return ListRecordsArgs{Doctype: doctype, Limit: optInt(raw, "limit", defaultListLimit)}, nil

	case ActionValidateRecordExists:
		doctype, err := requireString(raw, "doctype")
		if err != nil {
			return nil, err
		}
		name, err := requireString(raw, "name")
		if err != nil {
			return nil, err
		}
		return ValidateRecordExistsArgs{Doctype: doctype, Name: name}, nil
	}

	return nil, fmt.Errorf("unknown action kind %q", kind)
}

// Planner payloads arrive as decoded JSON, so numbers are float64 and the
// occasional value shows up as a quoted string. The coercions below accept
// those shapes instead of failing on representation.

func requireString(raw map[string]any, key string) (string, error) {
	s := optString(raw, key)
	if s == "" {
		return "", fmt.Errorf("missing required argument %q", key)
	}
	return s, nil
}

func optString(raw map[string]any, key string) string {
	v, ok := raw[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	}
	return fmt.Sprintf("%v", v)
}

func optInt(raw map[string]any, key string, fallback int) int {
	v, ok := raw[key]
	if !ok || v == nil {
		return fallback
	}
	switch t := v.(type) {
	case float64:
		return int(t)
	case int:
		return t
	case string:
		if i, err := strconv.Atoi(t); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return int(f)
		}
	}
	return fallback
}
