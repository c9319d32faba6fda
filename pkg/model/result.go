package model

import "time"

type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusStarted   StepStatus = "started"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
)

// StepReport describes one numbered provisioning step. Steps are registered
// as pending before execution starts so a consumer can always render the
// full checklist, even for runs that abort early.
type StepReport struct {
	Step        int            `json:"step"`
	Name        string         `json:"name"`
	Status      StepStatus     `json:"status"`
	Description string         `json:"description,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
	Details     map[string]any `json:"details,omitempty"`
}

type ErrorKind string

const (
	ErrorKindConnectivity       ErrorKind = "connectivity_failure"
	ErrorKindConfigSetCreation  ErrorKind = "configset_creation_failure"
	ErrorKindCollectionCreation ErrorKind = "collection_creation_failure"
	ErrorKindSchemaField        ErrorKind = "schema_field_failure"
	ErrorKindValidation         ErrorKind = "validation_failure"
	ErrorKindGeneral            ErrorKind = "general_failure"
)

// ErrorDetail is the diagnostic bundle for the most recent hard failure of
// a run. Context carries named diagnostic fields (URL, HTTP status, SOLR
// error code, hints), never preformatted strings.
type ErrorDetail struct {
	Kind      ErrorKind      `json:"kind"`
	Reason    string         `json:"reason,omitempty"`
	Operation string         `json:"operation"`
	Step      int            `json:"step"`
	StepName  string         `json:"step_name"`
	Message   string         `json:"message"`
	Context   map[string]any `json:"context,omitempty"`
}

// Run aggregates the outcome of one provisioning pass.
type Run struct {
	ID             string       `json:"id"`
	Tenant         string       `json:"tenant"`
	StartedAt      time.Time    `json:"started_at"`
	CompletedAt    *time.Time   `json:"completed_at,omitempty"`
	Success        bool         `json:"success"`
	TotalSteps     int          `json:"total_steps"`
	CompletedSteps int          `json:"completed_steps"`
	Steps          []StepReport `json:"steps"`
	Error          *ErrorDetail `json:"error,omitempty"`
}

// SetStep replaces the report for the same step number in place, or appends
// when the step has not been registered yet. A step never appears twice.
func (r *Run) SetStep(report StepReport) {
	for i := range r.Steps {
		if r.Steps[i].Step == report.Step {
			r.Steps[i] = report
			return
		}
	}
	r.Steps = append(r.Steps, report)
}

// StepByNumber returns the report for a step number, or nil when absent.
func (r *Run) StepByNumber(step int) *StepReport {
	for i := range r.Steps {
		if r.Steps[i].Step == step {
			return &r.Steps[i]
		}
	}
	return nil
}
