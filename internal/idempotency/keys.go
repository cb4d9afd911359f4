package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// GenerateKey builds a deterministic key using all provided parts.
func GenerateKey(parts ...interface{}) string {
	h := sha256.New()
	for _, part := range parts {
		fmt.Fprintf(h, "%v:", part)
	}

	return hex.EncodeToString(h.Sum(nil))
}

// ReminderKey identifies one reminder delivery. The start time participates
// so that rescheduling an event allows a fresh reminder.
func ReminderKey(eventID int64, startTime time.Time) string {
	return "delivery:reminder:" + GenerateKey(eventID, startTime.UTC().Unix())
}

// DigestKey identifies one daily summary delivery for a user and day.
func DigestKey(userID int64, day time.Time) string {
	return "delivery:digest:" + GenerateKey(userID, day.Format("2006-01-02"))
}
