package handlers

import (
	"strconv"

	telebot "gopkg.in/telebot.v3"

	"github.com/horarios-app/horarios-bot/internal/i18n"
)

// chatIDOf returns the chat id of the update as the string stored in
// user_settings.telegram_chat_id.
func chatIDOf(c telebot.Context) string {
	if c == nil || c.Chat() == nil {
		return ""
	}
	return strconv.FormatInt(c.Chat().ID, 10)
}

func respondCallback(c telebot.Context, text string, alert bool) error {
	if c == nil {
		return nil
	}
	return c.Respond(&telebot.CallbackResponse{
		Text:      text,
		ShowAlert: alert,
	})
}

// enabledLabel renders a boolean as the localized Activado/Desactivado pair;
// feminine selects the grammatical gender of the Spanish label.
func enabledLabel(t i18n.Translator, value, feminine bool) string {
	switch {
	case value && feminine:
		return t.T("bot.enabled_f")
	case value:
		return t.T("bot.enabled_m")
	case feminine:
		return t.T("bot.disabled_f")
	default:
		return t.T("bot.disabled_m")
	}
}
