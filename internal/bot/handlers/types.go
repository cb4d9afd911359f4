// Package handlers implements the Telegram command and callback handlers.
// All user-facing text comes from the i18n catalog; handlers only assemble
// data and pick keys.
package handlers

import (
	telebot "gopkg.in/telebot.v3"
)

// Handler processes bot commands.
type Handler func(c telebot.Context) error

// CallbackHandler processes inline callback events.
type CallbackHandler func(c telebot.Context) error

// Middleware wraps handlers with additional behavior.
type Middleware func(Handler) Handler
