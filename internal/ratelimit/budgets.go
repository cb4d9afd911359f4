package ratelimit

import (
	"fmt"
	"time"
)

// Delivery budgets for the Telegram Bot API. Telegram caps a bot at roughly
// one message per second per chat and thirty messages per second overall;
// the chat budget below stays under the per-minute ceiling for groups too.
const (
	PerChatLimit  = 20
	PerChatWindow = time.Minute

	GlobalSendLimit  = 30
	GlobalSendWindow = time.Second
)

// Inbound budget for commands from a single user.
const (
	PerUserLimit  = 20
	PerUserWindow = time.Minute
)

// ChatKey builds the limiter key for outbound sends to a chat.
func ChatKey(chatID string) string {
	return "send:chat:" + chatID
}

// UserKey builds the limiter key for inbound updates from a user.
func UserKey(userID int64) string {
	return fmt.Sprintf("recv:user:%d", userID)
}
