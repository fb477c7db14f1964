package schemas

// -- Action Schemas --

// ActionKind identifies one of the closed set of actions the executor can
// apply to the host document surface. The planner may only emit these kinds;
// anything else is reduced to a failure outcome at dispatch time.
type ActionKind string

const (
	ActionNavigate             ActionKind = "navigate"
	ActionCreateRecord         ActionKind = "create_record"
	ActionSetField             ActionKind = "set_field"
	ActionClickControl         ActionKind = "click_control"
	ActionAnalyzeScreen        ActionKind = "analyze_screen"
	ActionGetValidationErrors  ActionKind = "get_validation_errors"
	ActionScrollPage           ActionKind = "scroll_page"
	ActionTypeText             ActionKind = "type_text"
	ActionSelectOption         ActionKind = "select_option"
	ActionGetFieldValue        ActionKind = "get_field_value"
	ActionWaitForElement       ActionKind = "wait_for_element"
	ActionAddTableRow          ActionKind = "add_table_row"
	ActionSetTableField        ActionKind = "set_table_field"
	ActionSearchRecords        ActionKind = "search_records"
	ActionListRecords          ActionKind = "list_records"
	ActionValidateRecordExists ActionKind = "validate_record_exists"
)

// KnownActionKinds lists every supported kind in a stable order.
var KnownActionKinds = []ActionKind{
	ActionNavigate,
	ActionCreateRecord,
	ActionSetField,
	ActionClickControl,
	ActionAnalyzeScreen,
	ActionGetValidationErrors,
	ActionScrollPage,
	ActionTypeText,
	ActionSelectOption,
	ActionGetFieldValue,
	ActionWaitForElement,
	ActionAddTableRow,
	ActionSetTableField,
	ActionSearchRecords,
	ActionListRecords,
	ActionValidateRecordExists,
}

// IsKnownAction reports whether k is part of the supported action set.
func IsKnownAction(k ActionKind) bool {
	for _, known := range KnownActionKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Visibility controls whether a step is surfaced to the user as a tool-call
// entry. Hidden steps still execute and still contribute to the batch summary.
type Visibility string

const (
	VisibilityShown  Visibility = "shown"
	VisibilityHidden Visibility = "hidden"
)

// hiddenKinds is the fixed denylist of internal/diagnostic kinds that run
// silently. Low-level plumbing like row management and error polling would
// only add noise to the conversation.
var hiddenKinds = map[ActionKind]struct{}{
	ActionListRecords:          {},
	ActionValidateRecordExists: {},
	ActionSearchRecords:        {},
	ActionGetValidationErrors:  {},
	ActionAddTableRow:          {},
}

// DefaultVisibility returns the visibility policy for an action kind.
func DefaultVisibility(k ActionKind) Visibility {
	if _, hidden := hiddenKinds[k]; hidden {
		return VisibilityHidden
	}
	return VisibilityShown
}
