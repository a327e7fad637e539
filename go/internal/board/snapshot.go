package board

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// SeatStatus is the closed set of seat states reported by the server.
type SeatStatus string

const (
	SeatStatusPending SeatStatus = "pending"
	SeatStatusScanned SeatStatus = "scanned"
	SeatStatusEmpty   SeatStatus = "empty"
	// SeatStatusUnknown is assigned to any value outside the contract.
	SeatStatusUnknown SeatStatus = "unknown"
)

// UnmarshalJSON folds unrecognized statuses into SeatStatusUnknown.
func (s *SeatStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode seat status: %w", err)
	}
	switch SeatStatus(raw) {
	case SeatStatusPending, SeatStatusScanned, SeatStatusEmpty:
		*s = SeatStatus(raw)
	default:
		*s = SeatStatusUnknown
	}
	return nil
}

// EpochTime is a timestamp carried on the wire as fractional epoch seconds.
// A zero EpochTime encodes as null.
type EpochTime struct {
	time.Time
}

// EpochSeconds builds an EpochTime from fractional seconds.
func EpochSeconds(sec float64) EpochTime {
	if sec == 0 {
		return EpochTime{}
	}
	whole, frac := math.Modf(sec)
	return EpochTime{Time: time.Unix(int64(whole), int64(math.Round(frac*1e9)))}
}

// UnmarshalJSON accepts a number or null.
func (t *EpochTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*t = EpochTime{}
		return nil
	}
	var sec float64
	if err := json.Unmarshal(data, &sec); err != nil {
		return fmt.Errorf("decode epoch seconds: %w", err)
	}
	*t = EpochSeconds(sec)
	return nil
}

// MarshalJSON writes fractional epoch seconds, or null for the zero value.
func (t EpochTime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(float64(t.UnixNano()) / 1e9)
}

// QRItem is a captured QR code. ExpiresAt is only set for the active item,
// ScannedAt only for consumed ones.
type QRItem struct {
	QRURL       string         `json:"qr_url"`
	MessageLink string         `json:"message_link,omitempty"`
	CapturedAt  EpochTime      `json:"captured_at"`
	ExpiresAt   EpochTime      `json:"expires_at"`
	ScannedAt   EpochTime      `json:"scanned_at"`
	Meta        map[string]any `json:"meta,omitempty"`
}

// Source returns the producer tag stored in meta.source, if any.
func (q *QRItem) Source() string {
	if q == nil || q.Meta == nil {
		return ""
	}
	s, _ := q.Meta["source"].(string)
	return s
}

// SeatRecord is one seat as reported by the server. Records are never mutated
// by the client.
type SeatRecord struct {
	SeatKey      string     `json:"seat_key"`
	SeatLabel    string     `json:"seat_label"`
	Status       SeatStatus `json:"status"`
	PendingCount int        `json:"pending_count"`
	ScannedCount int        `json:"scanned_count"`
	Current      *QRItem    `json:"current"`
	LastScanned  *QRItem    `json:"last_scanned"`
	AccountInfo  string     `json:"account_info,omitempty"`
}

// Shown returns the item the detail panel displays: current first, then the
// last scanned item so the panel does not go blank right after an advance.
func (s *SeatRecord) Shown() *QRItem {
	if s.Current != nil {
		return s.Current
	}
	return s.LastScanned
}

// Completed reports whether every captured QR for the seat has been consumed.
func (s *SeatRecord) Completed() bool {
	return s.Status == SeatStatusScanned && s.PendingCount == 0
}

// Advanceable reports whether the seat has an active QR that can be consumed.
func (s *SeatRecord) Advanceable() bool {
	return s.Current != nil && s.Current.QRURL != ""
}

// Snapshot is one immutable copy of server state. Seat order is display order.
type Snapshot struct {
	ServerTime EpochTime    `json:"server_time"`
	Seats      []SeatRecord `json:"seats"`
}

// DecodeSnapshot parses a snapshot document.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// Seat looks up a seat by key.
func (s *Snapshot) Seat(key string) *SeatRecord {
	if s == nil || key == "" {
		return nil
	}
	for i := range s.Seats {
		if s.Seats[i].SeatKey == key {
			return &s.Seats[i]
		}
	}
	return nil
}

// Stats aggregates the summary line values.
func (s *Snapshot) Stats() Stats {
	var st Stats
	if s == nil {
		return st
	}
	st.Total = len(s.Seats)
	for _, seat := range s.Seats {
		st.Pending += seat.PendingCount
		if seat.Status == SeatStatusScanned {
			st.ScannedSeats++
		}
	}
	return st
}
