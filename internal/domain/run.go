package domain

import "time"

// RunState enumerates the lifecycle states of a dispatch run.
type RunState string

const (
	RunIdle         RunState = "idle"
	RunInitializing RunState = "initializing"
	RunDispatching  RunState = "dispatching"
	RunFinalizing   RunState = "finalizing"
	RunDone         RunState = "done"
	RunFailed       RunState = "failed"
)

// IsTerminal returns true if the run has finished one way or the other.
func (s RunState) IsTerminal() bool {
	return s == RunDone || s == RunFailed
}

// ProgressSnapshot is the count-based progress of a run.
type ProgressSnapshot struct {
	Processed int     `json:"processed"`
	Total     int     `json:"total"`
	Ratio     float64 `json:"ratio"`
}

// DeliveryFailure flags a contact whose send failed. The contact is still
// in the ledgers: ledger membership means attempted, not delivered.
type DeliveryFailure struct {
	Line      int    `json:"line"`
	Recipient string `json:"recipient"`
	Sender    string `json:"sender"`
	Error     string `json:"error"`
}

// RunSummary is available once a run reaches Done or Failed.
type RunSummary struct {
	RunID           string            `json:"run_id" dynamodbav:"run_id"`
	State           RunState          `json:"state" dynamodbav:"state"`
	ContactsPath    string            `json:"contacts_path" dynamodbav:"contacts_path"`
	Total           int               `json:"total" dynamodbav:"total"`
	Processed       int               `json:"processed" dynamodbav:"processed"`
	Delivered       int               `json:"delivered" dynamodbav:"delivered"`
	Failures        []DeliveryFailure `json:"failures,omitempty" dynamodbav:"failures,omitempty"`
	PartitionErrors int               `json:"partition_errors" dynamodbav:"partition_errors"`
	Ledgers         []string          `json:"ledgers,omitempty" dynamodbav:"ledgers,omitempty"`
	Error           string            `json:"error,omitempty" dynamodbav:"error,omitempty"`
	StartedAt       time.Time         `json:"started_at" dynamodbav:"started_at"`
	FinishedAt      time.Time         `json:"finished_at" dynamodbav:"finished_at"`
	Duration        time.Duration     `json:"duration" dynamodbav:"duration_ns"`
}

// Failed returns the number of contacts whose send failed.
func (s *RunSummary) Failed() int {
	return len(s.Failures)
}
