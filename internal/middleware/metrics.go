// Package middleware holds cross-cutting wrappers for bot handlers and the
// HTTP surface.
package middleware

import (
	"strings"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/horarios-app/horarios-bot/internal/bot/handlers"
	"github.com/horarios-app/horarios-bot/pkg/metrics"
)

// Metrics measures execution time and status for bot handlers, reporting
// them to Prometheus.
func Metrics(next handlers.Handler) handlers.Handler {
	if next == nil {
		return nil
	}

	return func(c telebot.Context) error {
		start := time.Now()
		err := next(c)

		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.RecordCommand(commandLabel(c), status, time.Since(start))

		return err
	}
}

// commandLabel keeps the metric cardinality bounded: commands and callback
// actions map to themselves, arbitrary text maps to "text".
func commandLabel(c telebot.Context) string {
	if c == nil {
		return "unknown"
	}

	if cb := c.Callback(); cb != nil && cb.Data != "" {
		data := strings.TrimPrefix(cb.Data, "\f")
		if idx := strings.Index(data, "|"); idx >= 0 {
			data = data[:idx]
		}
		return data
	}

	text := c.Text()
	if strings.HasPrefix(text, "/") {
		if idx := strings.IndexAny(text, " @"); idx > 0 {
			text = text[:idx]
		}
		return text
	}
	if text != "" {
		return "text"
	}

	return "unknown"
}
