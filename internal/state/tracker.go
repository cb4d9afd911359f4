package state

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

var (
	// ErrInvalidTransition indicates that a requested job state transition is not allowed.
	ErrInvalidTransition = errors.New("invalid job state transition")
	// ErrJobStateNotFound indicates that no state is tracked for the job id.
	ErrJobStateNotFound = errors.New("job state not found")
)

var transitionRecorder = func(from, to string) {}

// RegisterTransitionRecorder allows external packages to observe job state transitions.
func RegisterTransitionRecorder(recorder func(from, to string)) {
	if recorder == nil {
		transitionRecorder = func(string, string) {}
		return
	}

	transitionRecorder = recorder
}

// Tracker keeps the lifecycle state of every registered job. Safe for
// concurrent use by the dispatch loop, the workers, and status readers.
type Tracker struct {
	mu   sync.RWMutex
	jobs map[string]*JobStatus
	log  *slog.Logger
}

// NewTracker creates an empty job state tracker.
func NewTracker(log *slog.Logger) *Tracker {
	if log == nil {
		log = slog.Default()
	}

	return &Tracker{
		jobs: make(map[string]*JobStatus),
		log:  log,
	}
}

// Track registers a job in the scheduled state, replacing any previous entry.
func (t *Tracker) Track(jobID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.jobs[jobID] = &JobStatus{
		JobID:     jobID,
		Current:   JobScheduled,
		UpdatedAt: time.Now(),
	}
}

// Get returns the tracked status for the job id.
func (t *Tracker) Get(jobID string) (*JobStatus, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	status, ok := t.jobs[jobID]
	if !ok {
		return nil, ErrJobStateNotFound
	}

	copied := *status
	return &copied, nil
}

// TransitionTo changes the job's state if the transition is allowed.
func (t *Tracker) TransitionTo(jobID string, next JobState) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	status, ok := t.jobs[jobID]
	if !ok {
		return ErrJobStateNotFound
	}

	if !IsTransitionAllowed(status.Current, next) {
		if t.log != nil {
			t.log.Warn("invalid job state transition",
				slog.String("job_id", jobID),
				slog.String("from", string(status.Current)),
				slog.String("to", string(next)))
		}
		return ErrInvalidTransition
	}

	transitionRecorder(string(status.Current), string(next))

	status.Current = next
	status.UpdatedAt = time.Now()

	if next == JobCompleted || next == JobCancelled {
		delete(t.jobs, jobID)
	}

	return nil
}

// Forget drops the tracked state for a job without validating transitions.
// Used when a job is replaced wholesale.
func (t *Tracker) Forget(jobID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.jobs, jobID)
}

// Count returns the number of tracked jobs.
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.jobs)
}
