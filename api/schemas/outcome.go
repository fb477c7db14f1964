package schemas

import "fmt"

// -- Outcome Schemas --

// Status classifies the result of executing one step.
type Status string

const (
	StatusOK      Status = "ok"
	StatusWarning Status = "warning"
	StatusFailure Status = "failure"
)

// Outcome is the single result of executing a Step. It is a plain value:
// two outcomes with the same status and message are interchangeable.
type Outcome struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
}

// OK builds a success outcome.
func OK(format string, args ...any) Outcome {
	return Outcome{Status: StatusOK, Message: fmt.Sprintf(format, args...)}
}

// Warn builds a warning outcome: the action partially applied, or applied
// with an advisory the planner should see.
func Warn(format string, args ...any) Outcome {
	return Outcome{Status: StatusWarning, Message: fmt.Sprintf(format, args...)}
}

// Fail builds a failure outcome.
func Fail(format string, args ...any) Outcome {
	return Outcome{Status: StatusFailure, Message: fmt.Sprintf(format, args...)}
}

// Failed reports whether the outcome is a hard failure.
func (o Outcome) Failed() bool { return o.Status == StatusFailure }

// Degraded reports whether the outcome is anything other than a clean
// success.
func (o Outcome) Degraded() bool { return o.Status != StatusOK }

// String renders the outcome the way it is shown in tool-call entries.
func (o Outcome) String() string {
	return fmt.Sprintf("[%s] %s", o.Status, o.Message)
}

// -- Batch Schemas --

// Batch is one ordered round of planner steps plus the planner's terminal
// response content, if it supplied one.
type Batch struct {
	ID           string
	Steps        []Step
	FinalContent string
}

// StepOutcome pairs a step with its single outcome.
type StepOutcome struct {
	Step    Step
	Outcome Outcome
}

// BatchResult aggregates the per-step outcomes of one batch. Outcomes appear
// in submission order and are never retro-mutated once appended.
type BatchResult struct {
	BatchID    string
	Outcomes   []StepOutcome
	AnyFailure bool
	AnyWarning bool

	// Summary is the single terminal message shown to the user for this
	// batch.
	Summary string
}

// Append records a step's outcome and updates the rolling failure flags.
func (r *BatchResult) Append(step Step, outcome Outcome) {
	r.Outcomes = append(r.Outcomes, StepOutcome{Step: step, Outcome: outcome})
	switch outcome.Status {
	case StatusFailure:
		r.AnyFailure = true
	case StatusWarning:
		r.AnyWarning = true
	}
}

// Degraded lists the outcomes that were not clean successes, in order.
func (r *BatchResult) Degraded() []StepOutcome {
	var out []StepOutcome
	for _, so := range r.Outcomes {
		if so.Outcome.Degraded() {
			out = append(out, so)
		}
	}
	return out
}

// VisibleCount reports how many executed steps were user-visible.
func (r *BatchResult) VisibleCount() int {
	n := 0
	for _, so := range r.Outcomes {
		if so.Step.Visibility == VisibilityShown {
			n++
		}
	}
	return n
}
