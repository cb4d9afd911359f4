// Package notify delivers rendered notifications to users. The only
// production channel is Telegram; the interface exists so engines can be
// tested without a live bot.
package notify

import "context"

// Channel sends a rendered message to the chat identified by chatID.
// Implementations own their throttling and failure policy; callers treat
// any returned error as a lost notification (at-most-once delivery).
type Channel interface {
	Send(ctx context.Context, chatID, text string) error
}
