package domain

import "time"

// JobStatus represents the lifecycle state of a statement job.
type JobStatus string

// Job lifecycle statuses. Transitions move forward only:
// QUEUED -> EXECUTING -> {COMPLETED | FAILED}.
const (
	JobStatusQueued    JobStatus = "QUEUED"
	JobStatusExecuting JobStatus = "EXECUTING"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusFailed    JobStatus = "FAILED"
)

// Terminal reports whether no further transition may leave this status.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Column describes one result column by name and engine type.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Job is the durable ledger record for one statement execution request.
// The ledger record is the single source of truth for job outcome.
type Job struct {
	Handle             string
	SQLText            string
	SubmittedBy        string
	Status             JobStatus
	Error              *string
	TotalRows          int64
	Columns            []Column
	TotalSizeEstimate  int64
	ResultManifestPath string
	Telemetry          map[string]any
	CreatedAt          time.Time
	StartedAt          *time.Time
	UpdatedAt          time.Time
	FinishedAt         *time.Time
}

// JobUpdate carries a partial ledger update. Only non-nil fields change;
// updated_at is assigned by the ledger at call time.
type JobUpdate struct {
	Status             *JobStatus
	Error              *string
	TotalRows          *int64
	Columns            []Column
	TotalSizeEstimate  *int64
	ResultManifestPath *string
	Telemetry          map[string]any
	StartedAt          *time.Time
	FinishedAt         *time.Time
}

// StatusUpdate builds a JobUpdate that only changes the status.
func StatusUpdate(s JobStatus) JobUpdate {
	return JobUpdate{Status: &s}
}

// FailureUpdate builds a JobUpdate that moves the job to FAILED with the
// given error message and a finish timestamp.
func FailureUpdate(msg string, at time.Time) JobUpdate {
	s := JobStatusFailed
	return JobUpdate{Status: &s, Error: &msg, FinishedAt: &at}
}
