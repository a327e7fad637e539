package board

// Frame is the full set of render instructions for one board repaint. Each
// field maps to one named region of the host view; sinks replace the
// contents of those regions and nothing else.
type Frame struct {
	Stats   StatsLine      `json:"stats"`
	Seats   []SeatRow      `json:"seats"`
	Detail  DetailPanel    `json:"detail"`
	QR      QRView         `json:"qr"`
	Advance AdvanceControl `json:"advance"`
	Toast   ToastView      `json:"toast"`
}

// Stats holds the aggregate counters behind the summary line.
type Stats struct {
	Pending      int `json:"pending"`
	ScannedSeats int `json:"scanned_seats"`
	Total        int `json:"total"`
}

// StatsLine is the summary region.
type StatsLine struct {
	Stats
	Text string `json:"text"`
}

// SeatRow is one entry of the seat list.
type SeatRow struct {
	SeatKey   string     `json:"seat_key"`
	Label     SeatLabel  `json:"label"`
	Status    SeatStatus `json:"status"`
	Pill      string     `json:"pill"`
	Timer     string     `json:"timer"`
	Countdown string     `json:"countdown,omitempty"`
	Expired   bool       `json:"expired"`
	Tally     string     `json:"tally"`
	Selected  bool       `json:"selected"`
}

// DetailPanel is the right hand panel describing the selected seat.
type DetailPanel struct {
	Seat          string `json:"seat"`
	CapturedAt    string `json:"captured_at"`
	Account       string `json:"account"`
	LinkText      string `json:"link_text"`
	LinkURL       string `json:"link_url"`
	SourceDetails bool   `json:"source_details"`
	Date          string `json:"date"`
	SeatDetail    string `json:"seat_detail"`
	Price         string `json:"price"`
	Quantity      string `json:"quantity"`
	Banner        string `json:"banner"`
	BannerVisible bool   `json:"banner_visible"`
}

// QRView is the QR image element and the hint underneath it.
type QRView struct {
	URL       string `json:"url"`
	Visible   bool   `json:"visible"`
	Switching bool   `json:"switching"`
	Hint      string `json:"hint"`
}

// AdvanceControl is the advance button.
type AdvanceControl struct {
	Enabled bool `json:"enabled"`
	Loading bool `json:"loading"`
}

// ToastView is the notification element.
type ToastView struct {
	Visible bool      `json:"visible"`
	Message string    `json:"message"`
	Kind    ToastKind `json:"kind"`
}

// SelectedRow returns the index of the selected row, or -1.
func (f Frame) SelectedRow() int {
	for i, row := range f.Seats {
		if row.Selected {
			return i
		}
	}
	return -1
}
