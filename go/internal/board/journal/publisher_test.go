package journal

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	at := time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)

	t.Run("success", func(t *testing.T) {
		msg, err := newMessage("seatboard.advances", AdvanceEvent{
			ID:          id,
			InstanceID:  "ab12cd34",
			GroupID:     "g1",
			SeatKey:     "A1",
			NextSeatKey: "A2",
			OccurredAt:  at,
		})
		require.NoError(t, err)

		assert.Equal(t, "seatboard.advances.g1.succeeded", msg.Subject)
		assert.Equal(t, EventAdvanceSucceeded, msg.Header.Get("Seatboard-Outcome"))
		assert.Equal(t, "A1", msg.Header.Get("Seatboard-Seat"))
		assert.Equal(t, "ab12cd34", msg.Header.Get("Seatboard-Instance"))
		assert.Equal(t, "g1", msg.Header.Get("Seatboard-Group"))

		var decoded AdvanceEvent
		require.NoError(t, json.Unmarshal(msg.Data, &decoded))
		assert.Equal(t, id, decoded.ID)
		assert.Equal(t, "A2", decoded.NextSeatKey)
		assert.True(t, at.Equal(decoded.OccurredAt))
	})

	t.Run("failure without group", func(t *testing.T) {
		msg, err := newMessage("seatboard.advances", AdvanceEvent{
			ID:      id,
			SeatKey: "A1",
			Error:   "status 500",
		})
		require.NoError(t, err)
		assert.Equal(t, "seatboard.advances.default.failed", msg.Subject)
		assert.Empty(t, msg.Header.Get("Seatboard-Group"))
	})
}

func TestSubjectFor(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		group string
		want  string
	}{
		"plain":          {group: "friday", want: "sb.friday.succeeded"},
		"dots":           {group: "hall.b", want: "sb.hall_b.succeeded"},
		"wildcards":      {group: "a*>b", want: "sb.a__b.succeeded"},
		"spaces trimmed": {group: "  late show ", want: "sb.late_show.succeeded"},
		"empty":          {group: "", want: "sb.default.succeeded"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, subjectFor("sb", AdvanceEvent{GroupID: tt.group, SeatKey: "A1"}))
		})
	}
}

func TestStreamConfig(t *testing.T) {
	t.Parallel()

	p := &JetStreamPublisher{config: DefaultJetStreamConfig()}
	sc := p.streamConfig()
	assert.Equal(t, "SEATBOARD_ADVANCES", sc.Name)
	assert.Equal(t, []string{"seatboard.advances.>"}, sc.Subjects)
	assert.Equal(t, 14*24*time.Hour, sc.MaxAge)
	assert.Equal(t, 10*time.Minute, sc.Duplicates)
}
