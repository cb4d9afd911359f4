package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/horarios-app/horarios-bot/internal/bot/handlers"
)

// fakeContext implements the slice of telebot.Context the router touches.
type fakeContext struct {
	telebot.Context

	text      string
	callback  *telebot.Callback
	responded bool
}

func (f *fakeContext) Text() string                { return f.text }
func (f *fakeContext) Callback() *telebot.Callback { return f.callback }
func (f *fakeContext) Chat() *telebot.Chat         { return &telebot.Chat{ID: 42} }

func (f *fakeContext) Respond(...*telebot.CallbackResponse) error {
	f.responded = true
	return nil
}

func TestRouterDispatchesCommands(t *testing.T) {
	router := NewRouter(nil)

	var handled string
	router.RegisterCommand("/status", func(telebot.Context) error {
		handled = "/status"
		return nil
	})
	router.SetDefault(func(telebot.Context) error {
		handled = "default"
		return nil
	})

	require.NoError(t, router.Route(&fakeContext{text: "/status"}))
	assert.Equal(t, "/status", handled)

	// bot-mention and argument suffixes resolve to the bare command
	require.NoError(t, router.Route(&fakeContext{text: "/status@horarios_bot"}))
	assert.Equal(t, "/status", handled)

	require.NoError(t, router.Route(&fakeContext{text: "algo que no es comando"}))
	assert.Equal(t, "default", handled)
}

func TestRouterUnknownCommandFallsToDefault(t *testing.T) {
	router := NewRouter(nil)

	var handled string
	router.SetDefault(func(telebot.Context) error {
		handled = "default"
		return nil
	})

	require.NoError(t, router.Route(&fakeContext{text: "/desconocido"}))
	assert.Equal(t, "default", handled)
}

func TestRouterDispatchesCallbacksByPrefix(t *testing.T) {
	router := NewRouter(nil)

	var handled string
	router.RegisterCallback("toggle_notifications", func(telebot.Context) error {
		handled = "toggle"
		return nil
	})

	c := &fakeContext{callback: &telebot.Callback{Data: "\ftoggle_notifications"}}
	require.NoError(t, router.Route(c))
	assert.Equal(t, "toggle", handled)
}

func TestRouterAnswersUnknownCallbacks(t *testing.T) {
	router := NewRouter(nil)

	c := &fakeContext{callback: &telebot.Callback{Data: "nadie_registrado"}}
	require.NoError(t, router.Route(c))
	assert.True(t, c.responded, "unknown callbacks must still be answered")
}

func TestRouterAppliesMiddlewaresInOrder(t *testing.T) {
	router := NewRouter(nil)

	var order []string
	mw := func(name string) handlers.Middleware {
		return func(next handlers.Handler) handlers.Handler {
			return func(c telebot.Context) error {
				order = append(order, name)
				return next(c)
			}
		}
	}

	router.Use(mw("first"))
	router.Use(mw("second"))
	router.RegisterCommand("/start", func(telebot.Context) error {
		order = append(order, "handler")
		return nil
	})

	require.NoError(t, router.Route(&fakeContext{text: "/start"}))
	assert.Equal(t, []string{"first", "second", "handler"}, order)
}
