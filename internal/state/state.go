// Package state models the lifecycle of scheduled jobs as a small finite
// state machine. Job state lives only in memory: jobs are re-registered or
// re-derived on restart, never restored from storage.
package state

import "time"

// JobState represents a scheduled job's lifecycle phase.
type JobState string

const (
	// JobScheduled indicates the job is waiting for its next trigger.
	JobScheduled JobState = "scheduled"
	// JobFiring indicates the job body is currently executing.
	JobFiring JobState = "firing"
	// JobCompleted indicates a one-shot job that has run and terminated.
	JobCompleted JobState = "completed"
	// JobCancelled indicates the job was removed before its next trigger.
	JobCancelled JobState = "cancelled"
)

// JobStatus captures the tracked state of one job.
type JobStatus struct {
	JobID     string    `json:"job_id"`
	Current   JobState  `json:"current"`
	UpdatedAt time.Time `json:"updated_at"`
}
