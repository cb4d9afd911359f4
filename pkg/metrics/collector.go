package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/horarios-app/horarios-bot/internal/state"
)

var (
	jobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_job_runs_total",
			Help: "Total number of scheduled job executions labeled by job and status",
		},
		[]string{"job", "status"},
	)
	jobDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scheduler_job_duration_seconds",
			Help:    "Duration of scheduled job executions in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"job"},
	)
	jobStateTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_job_state_transitions_total",
			Help: "Total number of job lifecycle state transitions",
		},
		[]string{"from", "to"},
	)
	scheduledJobs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scheduler_jobs",
			Help: "Current number of registered scheduler jobs",
		},
	)
	remindersSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_reminders_sent_total",
			Help: "Total number of event reminders labeled by outcome",
		},
		[]string{"status"},
	)
	digestsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_digests_sent_total",
			Help: "Total number of daily summaries labeled by outcome",
		},
		[]string{"status"},
	)
	channelSendErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifications_channel_send_errors_total",
			Help: "Total number of failed sends through the notification channel",
		},
	)
	botCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_commands_total",
			Help: "Total number of bot commands received labeled by command and status",
		},
		[]string{"command", "status"},
	)
	commandDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bot_command_duration_seconds",
			Help:    "Duration of bot commands in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)
)

func init() {
	state.RegisterTransitionRecorder(RecordJobStateTransition)
}

// RecordJobRun increments job counters and records duration.
func RecordJobRun(job, status string, duration time.Duration) {
	if job == "" {
		job = "unknown"
	}
	if status == "" {
		status = "unknown"
	}

	jobRunsTotal.WithLabelValues(job, status).Inc()
	jobDurationSeconds.WithLabelValues(job).Observe(duration.Seconds())
}

// RecordJobStateTransition tracks job lifecycle transitions.
func RecordJobStateTransition(from, to string) {
	if from == "" {
		from = "unknown"
	}
	if to == "" {
		to = "unknown"
	}

	jobStateTransitionsTotal.WithLabelValues(from, to).Inc()
}

// SetScheduledJobs updates the registered job gauge.
func SetScheduledJobs(count int) {
	scheduledJobs.Set(float64(count))
}

// RecordReminder counts one reminder delivery attempt by outcome.
func RecordReminder(status string) {
	if status == "" {
		status = "unknown"
	}

	remindersSentTotal.WithLabelValues(status).Inc()
}

// RecordDigest counts one daily summary delivery attempt by outcome.
func RecordDigest(status string) {
	if status == "" {
		status = "unknown"
	}

	digestsSentTotal.WithLabelValues(status).Inc()
}

// RecordChannelError counts a failed channel send.
func RecordChannelError() {
	channelSendErrorsTotal.Inc()
}

// RecordCommand increments bot command counters and records duration.
func RecordCommand(command, status string, duration time.Duration) {
	if command == "" {
		command = "unknown"
	}
	if status == "" {
		status = "unknown"
	}

	botCommandsTotal.WithLabelValues(command, status).Inc()
	commandDurationSeconds.WithLabelValues(command).Observe(duration.Seconds())
}
