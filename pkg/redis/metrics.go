package redis

import (
	"context"
	"net"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
)

var (
	redisCommandsTotal   *prometheus.CounterVec
	redisErrorsTotal     *prometheus.CounterVec
	redisCommandDuration *prometheus.HistogramVec
)

func init() {
	redisCommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_commands_total",
			Help: "Total number of Redis commands by name.",
		},
		[]string{"command"},
	)
	redisErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_errors_total",
			Help: "Total number of Redis command errors by name.",
		},
		[]string{"command"},
	)
	redisCommandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_command_duration_seconds",
			Help:    "Redis command latency distributions.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)

	prometheus.MustRegister(redisCommandsTotal, redisErrorsTotal, redisCommandDuration)
}

// metricsHook instruments every Redis command with Prometheus counters.
type metricsHook struct{}

func newMetricsHook() *metricsHook {
	return &metricsHook{}
}

func (h *metricsHook) DialHook(next goredis.DialHook) goredis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *metricsHook) ProcessHook(next goredis.ProcessHook) goredis.ProcessHook {
	return func(ctx context.Context, cmd goredis.Cmder) error {
		timer := prometheus.NewTimer(redisCommandDuration.WithLabelValues(cmd.Name()))
		err := next(ctx, cmd)
		timer.ObserveDuration()

		redisCommandsTotal.WithLabelValues(cmd.Name()).Inc()
		if err != nil && err != goredis.Nil {
			redisErrorsTotal.WithLabelValues(cmd.Name()).Inc()
		}

		return err
	}
}

func (h *metricsHook) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []goredis.Cmder) error {
		err := next(ctx, cmds)
		for _, cmd := range cmds {
			redisCommandsTotal.WithLabelValues(cmd.Name()).Inc()
		}

		return err
	}
}
