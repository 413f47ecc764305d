package harness

import "github.com/roach88/taleweaver/internal/feed"

// StepTrace records what one flow step did.
type StepTrace struct {
	Step   int        `json:"step"`
	Op     string     `json:"op"`
	ID     *int64     `json:"id,omitempty"`
	Error  string     `json:"error,omitempty"`
	Status string     `json:"status,omitempty"`
	Page   *feed.Page `json:"page,omitempty"`

	// Outstanding is the number of live media handles after the step.
	Outstanding int `json:"outstanding"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expect clauses and assertions match.
	Pass bool `json:"pass"`

	// Trace contains one entry per flow step, in order.
	Trace []StepTrace `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []StepTrace{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step record.
func (r *Result) AddTrace(t StepTrace) {
	r.Trace = append(r.Trace, t)
}
