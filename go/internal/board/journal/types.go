package journal

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	EventAdvanceSucceeded = "AdvanceSucceeded"
	EventAdvanceFailed    = "AdvanceFailed"
)

// AdvanceEvent is one advance attempt as seen by a board instance.
type AdvanceEvent struct {
	ID          uuid.UUID `json:"id"`
	InstanceID  string    `json:"instance_id"`
	GroupID     string    `json:"group_id,omitempty"`
	SeatKey     string    `json:"seat_key"`
	NextSeatKey string    `json:"next_seat_key,omitempty"`
	Error       string    `json:"error,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// EventType is derived from the outcome.
func (e AdvanceEvent) EventType() string {
	if e.Error != "" {
		return EventAdvanceFailed
	}
	return EventAdvanceSucceeded
}

// Publisher is anything that can record advance events.
type Publisher interface {
	Publish(ctx context.Context, event AdvanceEvent) error
	Close() error
}

// Nop discards events. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, AdvanceEvent) error { return nil }
func (Nop) Close() error                                { return nil }
