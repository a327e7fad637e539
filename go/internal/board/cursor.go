package board

// Cursor is the currently highlighted seat. It is the only piece of selection
// state that survives from one snapshot to the next.
type Cursor struct {
	SeatKey string `json:"seat_key"`
}

// Select sets the cursor explicitly, either from an operator action or from
// a server-directed next seat.
func (c *Cursor) Select(seatKey string) {
	c.SeatKey = seatKey
}

// Reconcile re-validates the cursor against snap. A cursor that still names a
// seat is kept; otherwise the next-pending heuristic picks a replacement.
func (c *Cursor) Reconcile(snap *Snapshot) {
	if c.SeatKey != "" && snap.Seat(c.SeatKey) != nil {
		return
	}
	c.SeatKey = NextPendingSeat(snap)
}

// NextPendingSeat returns the first seat with pending work, falling back to
// the first seat, or "" for an empty snapshot.
func NextPendingSeat(snap *Snapshot) string {
	if snap == nil || len(snap.Seats) == 0 {
		return ""
	}
	for _, seat := range snap.Seats {
		if seat.PendingCount > 0 {
			return seat.SeatKey
		}
	}
	return snap.Seats[0].SeatKey
}
