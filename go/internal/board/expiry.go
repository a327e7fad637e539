package board

import (
	"fmt"
	"time"
)

// Countdown is the remaining lifetime of a QR item measured against server time.
type Countdown struct {
	Remaining time.Duration `json:"remaining"`
	Expired   bool          `json:"expired"`
}

// Expiry calculates the countdown for an item using the server-reported now.
// The local clock is never consulted.
func Expiry(serverNow, expiresAt time.Time) Countdown {
	remaining := expiresAt.Sub(serverNow)
	return Countdown{
		Remaining: remaining,
		Expired:   remaining <= 0,
	}
}

// Text formats the remaining time as MM:SS, floor rounded and clamped at zero.
func (c Countdown) Text() string {
	return FormatCountdown(c.Remaining)
}

// FormatCountdown renders d as zero padded minutes and seconds.
func FormatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
