// Package scheduler runs the notification jobs: recurring cron entries for
// scans and cleanups, and one-shot timers for precise reminder instants.
// Execution is decoupled from triggering through a bounded queue drained by
// a fixed worker pool, so a slow Telegram call never blocks the cron loop.
package scheduler

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	apperrors "github.com/horarios-app/horarios-bot/internal/errors"
	"github.com/horarios-app/horarios-bot/internal/state"
	"github.com/horarios-app/horarios-bot/pkg/metrics"
)

// JobKind distinguishes repeating cron jobs from one-shot timers.
type JobKind string

const (
	KindRecurring JobKind = "recurring"
	KindOneShot   JobKind = "one_shot"
)

const queueCapacity = 256

type JobFunc func(ctx context.Context) error

type jobEntry struct {
	id      string
	name    string
	kind    JobKind
	spec    string
	entryID cron.EntryID
	timer   *time.Timer
	runAt   time.Time
	version uint64
	run     JobFunc
}

type task struct {
	id      string
	name    string
	kind    JobKind
	version uint64
	run     JobFunc
}

// Core owns the cron runner, the one-shot timers, and the worker pool. All
// jobs are identified by a caller-chosen id; adding a job under an existing
// id replaces the previous registration.
type Core struct {
	mu      sync.Mutex
	log     *slog.Logger
	workers int

	cron    *cron.Cron
	jobs    map[string]*jobEntry
	tracker *state.Tracker

	queue    chan task
	started  bool
	stopped  bool
	stopCh   chan struct{}
	workerWG sync.WaitGroup
	inflight sync.WaitGroup

	versionSeq uint64
}

// NewCore builds a stopped core. Jobs may be registered only after Start.
// All cron specs are evaluated in UTC; per-user times are converted by the
// caller before registration.
func NewCore(workers int, tracker *state.Tracker, log *slog.Logger) *Core {
	if workers <= 0 {
		workers = 4
	}
	if log == nil {
		log = slog.Default()
	}

	return &Core{
		log:     log,
		workers: workers,
		jobs:    make(map[string]*jobEntry),
		tracker: tracker,
	}
}

// Start launches the cron runner and the worker pool. Starting twice is a
// no-op; starting after Shutdown is an error.
func (c *Core) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return apperrors.NewSchedulerError("scheduler cannot be restarted after shutdown")
	}
	if c.started {
		return nil
	}

	c.cron = cron.New(cron.WithLocation(time.UTC))
	c.queue = make(chan task, queueCapacity)
	c.stopCh = make(chan struct{})
	c.started = true

	for i := 0; i < c.workers; i++ {
		c.workerWG.Add(1)
		go c.worker(ctx)
	}

	c.cron.Start()
	c.log.Info("scheduler started", slog.Int("workers", c.workers))

	return nil
}

// Shutdown stops triggering, then waits for in-flight jobs up to the
// context deadline. Safe to call more than once.
func (c *Core) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	if !c.started || c.stopped {
		c.stopped = true
		c.mu.Unlock()
		return nil
	}
	c.stopped = true

	cronStop := c.cron.Stop()
	for _, entry := range c.jobs {
		if entry.timer != nil {
			entry.timer.Stop()
		}
	}
	close(c.stopCh)
	c.mu.Unlock()

	<-cronStop.Done()

	done := make(chan struct{})
	go func() {
		c.workerWG.Wait()
		c.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.log.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		c.log.Warn("scheduler shutdown timed out with jobs in flight")
		return ctx.Err()
	}
}

// AddRecurring registers a cron job under id, replacing any previous job
// with the same id.
func (c *Core) AddRecurring(id, name, spec string, run JobFunc) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureRunningLocked(); err != nil {
		return err
	}

	c.removeLocked(id)

	entry := &jobEntry{
		id:      id,
		name:    name,
		kind:    KindRecurring,
		spec:    spec,
		version: c.nextVersionLocked(),
		run:     run,
	}

	entryID, err := c.cron.AddFunc(spec, func() {
		c.enqueue(task{id: id, name: name, kind: KindRecurring, version: entry.version, run: run})
	})
	if err != nil {
		return apperrors.NewValidationError("invalid cron spec " + spec)
	}

	entry.entryID = entryID
	c.jobs[id] = entry
	c.tracker.Track(id)
	metrics.SetScheduledJobs(len(c.jobs))

	c.log.Info("recurring job registered",
		slog.String("job_id", id),
		slog.String("spec", spec),
	)

	return nil
}

// AddDaily registers a recurring job firing every day at the given UTC
// instant, expressed as HH:MM.
func (c *Core) AddDaily(id, name, hhmm string, run JobFunc) error {
	hour, minute, err := parseHHMM(hhmm)
	if err != nil {
		return apperrors.NewValidationError(err.Error())
	}

	return c.AddRecurring(id, name, cronSpecDaily(hour, minute), run)
}

// AddOneShot registers a job that fires once at runAt, replacing any
// previous job with the same id. Instants in the past are rejected; the
// polling scan covers anything already due.
func (c *Core) AddOneShot(id, name string, runAt time.Time, run JobFunc) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureRunningLocked(); err != nil {
		return err
	}

	delay := time.Until(runAt)
	if delay <= 0 {
		return apperrors.NewValidationError("one-shot instant is in the past")
	}

	c.removeLocked(id)

	entry := &jobEntry{
		id:      id,
		name:    name,
		kind:    KindOneShot,
		runAt:   runAt,
		version: c.nextVersionLocked(),
		run:     run,
	}

	entry.timer = time.AfterFunc(delay, func() {
		c.enqueue(task{id: id, name: name, kind: KindOneShot, version: entry.version, run: run})
	})

	c.jobs[id] = entry
	c.tracker.Track(id)
	metrics.SetScheduledJobs(len(c.jobs))

	c.log.Info("one-shot job registered",
		slog.String("job_id", id),
		slog.Time("run_at", runAt),
	)

	return nil
}

// Cancel removes the job with the given id. Cancelling an unknown id is a
// no-op, so callers do not need to know whether a reminder was ever
// scheduled precisely.
func (c *Core) Cancel(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.jobs[id]; !ok {
		return
	}

	c.removeLocked(id)
	metrics.SetScheduledJobs(len(c.jobs))

	c.log.Info("job cancelled", slog.String("job_id", id))
}

// Has reports whether a job is currently registered under id.
func (c *Core) Has(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.jobs[id]
	return ok
}

func (c *Core) ensureRunningLocked() error {
	if !c.started || c.stopped {
		return apperrors.NewSchedulerError("scheduler is not running")
	}
	return nil
}

func (c *Core) nextVersionLocked() uint64 {
	c.versionSeq++
	return c.versionSeq
}

// removeLocked detaches a job from cron or its timer and forgets its state.
func (c *Core) removeLocked(id string) {
	entry, ok := c.jobs[id]
	if !ok {
		return
	}

	switch entry.kind {
	case KindRecurring:
		c.cron.Remove(entry.entryID)
	case KindOneShot:
		if entry.timer != nil {
			entry.timer.Stop()
		}
	}

	delete(c.jobs, id)
	if err := c.tracker.TransitionTo(id, state.JobCancelled); err != nil {
		c.tracker.Forget(id)
	}
}

func (c *Core) enqueue(t task) {
	c.mu.Lock()
	entry, ok := c.jobs[t.id]
	stale := !ok || entry.version != t.version || c.stopped
	queue := c.queue
	c.mu.Unlock()

	// A stale version means the job was replaced or cancelled after this
	// trigger was armed.
	if stale {
		return
	}

	select {
	case queue <- t:
	default:
		c.log.Warn("scheduler queue full, dropping run",
			slog.String("job_id", t.id),
			slog.Int("queue_cap", cap(queue)),
		)
		metrics.RecordJobRun(t.name, "dropped", 0)
	}
}

func (c *Core) worker(ctx context.Context) {
	defer c.workerWG.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case t := <-c.queue:
			c.execute(ctx, t)
		}
	}
}

func (c *Core) execute(ctx context.Context, t task) {
	c.inflight.Add(1)
	defer c.inflight.Done()

	// Re-check the registration under the lock: a task that sat in the
	// queue while its job id was replaced must not run the old handler,
	// and must not mark the replacement as firing.
	c.mu.Lock()
	entry, ok := c.jobs[t.id]
	if !ok || entry.version != t.version {
		c.mu.Unlock()
		return
	}
	firingErr := c.tracker.TransitionTo(t.id, state.JobFiring)
	c.mu.Unlock()

	if firingErr != nil {
		// Already firing: an overlapping trigger for the same job is skipped.
		return
	}

	start := time.Now()
	err := t.run(ctx)
	duration := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
		c.log.Error("job run failed",
			slog.String("job_id", t.id),
			slog.Duration("duration", duration),
			slog.Any("error", err),
		)
	} else {
		c.log.Debug("job run completed",
			slog.String("job_id", t.id),
			slog.Duration("duration", duration),
		)
	}
	metrics.RecordJobRun(t.name, status, duration)

	c.finish(t)
}

// finish returns a recurring job to the scheduled state; a one-shot job is
// completed and dropped from the registry.
func (c *Core) finish(t task) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.jobs[t.id]
	if !ok || entry.version != t.version {
		return
	}

	if t.kind == KindRecurring {
		_ = c.tracker.TransitionTo(t.id, state.JobScheduled)
		return
	}

	_ = c.tracker.TransitionTo(t.id, state.JobCompleted)
	delete(c.jobs, t.id)
	metrics.SetScheduledJobs(len(c.jobs))
}

// JobInfo describes one registered job for introspection.
type JobInfo struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Kind    JobKind   `json:"kind"`
	Spec    string    `json:"spec,omitempty"`
	NextRun time.Time `json:"next_run"`
	State   string    `json:"state"`
}

// Snapshot is a point-in-time view of the core, served by the status API.
type Snapshot struct {
	Running  bool      `json:"running"`
	Workers  int       `json:"workers"`
	QueueLen int       `json:"queue_len"`
	JobCount int       `json:"job_count"`
	Jobs     []JobInfo `json:"jobs"`
}

// Status reports every registered job sorted by id.
func (c *Core) Status() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := Snapshot{
		Running:  c.started && !c.stopped,
		Workers:  c.workers,
		JobCount: len(c.jobs),
	}
	if c.queue != nil {
		snapshot.QueueLen = len(c.queue)
	}

	for _, entry := range c.jobs {
		info := JobInfo{
			ID:   entry.id,
			Name: entry.name,
			Kind: entry.kind,
			Spec: entry.spec,
		}

		switch entry.kind {
		case KindRecurring:
			if c.cron != nil {
				info.NextRun = c.cron.Entry(entry.entryID).Next
			}
		case KindOneShot:
			info.NextRun = entry.runAt
		}

		if status, err := c.tracker.Get(entry.id); err == nil {
			info.State = string(status.Current)
		}

		snapshot.Jobs = append(snapshot.Jobs, info)
	}

	sort.Slice(snapshot.Jobs, func(i, j int) bool {
		return snapshot.Jobs[i].ID < snapshot.Jobs[j].ID
	})

	return snapshot
}
