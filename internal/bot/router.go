// Package bot wires the Telegram transport: routing, middleware and the
// telebot lifecycle.
package bot

import (
	"log/slog"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/horarios-app/horarios-bot/internal/bot/handlers"
)

// Router dispatches incoming updates to command handlers, callback handlers
// or the default free-text handler.
type Router struct {
	commands       map[string]handlers.Handler
	callbacks      map[string]handlers.CallbackHandler
	defaultHandler handlers.Handler
	middlewares    []handlers.Middleware
	log            *slog.Logger
}

// NewRouter creates an empty router.
func NewRouter(log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}

	return &Router{
		commands:  make(map[string]handlers.Handler),
		callbacks: make(map[string]handlers.CallbackHandler),
		log:       log,
	}
}

// Use appends a middleware applied to every routed handler. Middlewares run
// in registration order.
func (r *Router) Use(mw handlers.Middleware) {
	r.middlewares = append(r.middlewares, mw)
}

// RegisterCommand maps a slash command (with the leading "/") to a handler.
func (r *Router) RegisterCommand(command string, h handlers.Handler) {
	r.commands[command] = h
}

// RegisterCallback maps a callback data prefix to a handler.
func (r *Router) RegisterCallback(prefix string, h handlers.CallbackHandler) {
	r.callbacks[prefix] = h
}

// SetDefault installs the handler for plain text messages.
func (r *Router) SetDefault(h handlers.Handler) {
	r.defaultHandler = h
}

// Route resolves and executes the handler for the update in c.
func (r *Router) Route(c telebot.Context) error {
	if cb := c.Callback(); cb != nil {
		return r.routeCallback(c, strings.TrimSpace(cb.Data))
	}

	text := c.Text()
	if strings.HasPrefix(text, "/") {
		command := text
		if idx := strings.IndexAny(command, " @"); idx > 0 {
			command = command[:idx]
		}

		if h, ok := r.commands[command]; ok {
			return r.apply(h)(c)
		}

		r.log.Debug("unknown command", slog.String("command", command))
	}

	if r.defaultHandler != nil {
		return r.apply(r.defaultHandler)(c)
	}

	return nil
}

func (r *Router) routeCallback(c telebot.Context, data string) error {
	// telebot prepends "\f<unique>|" for button-bound callbacks; raw inline
	// keyboards deliver the data verbatim. Handle both.
	data = strings.TrimPrefix(data, "\f")
	if idx := strings.Index(data, "|"); idx >= 0 {
		data = data[:idx]
	}

	for prefix, h := range r.callbacks {
		if strings.HasPrefix(data, prefix) {
			return r.apply(handlers.Handler(h))(c)
		}
	}

	r.log.Debug("unknown callback", slog.String("data", data))

	return c.Respond(&telebot.CallbackResponse{})
}

// apply wraps h with the registered middlewares, outermost first.
func (r *Router) apply(h handlers.Handler) handlers.Handler {
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		h = r.middlewares[i](h)
	}
	return h
}
