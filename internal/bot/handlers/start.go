package handlers

import (
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/horarios-app/horarios-bot/internal/i18n"
)

// NewStartHandler greets the user and explains how to link their account.
func NewStartHandler(t i18n.Translator, log *slog.Logger) Handler {
	return func(c telebot.Context) error {
		if c == nil || c.Chat() == nil {
			return nil
		}

		firstName := ""
		if sender := c.Sender(); sender != nil {
			firstName = sender.FirstName
		}

		if log != nil {
			log.Info("start command", slog.Int64("chat_id", c.Chat().ID))
		}

		return c.Send(fmt.Sprintf(t.T("bot.start"), firstName, c.Chat().ID))
	}
}

// NewHelpHandler lists the available commands and the linking steps.
func NewHelpHandler(t i18n.Translator) Handler {
	return func(c telebot.Context) error {
		if c == nil || c.Chat() == nil {
			return nil
		}

		return c.Send(
			fmt.Sprintf(t.T("bot.help"), c.Chat().ID),
			&telebot.SendOptions{ParseMode: telebot.ModeMarkdown},
		)
	}
}
