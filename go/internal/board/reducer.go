package board

import (
	"fmt"
	"time"
)

const (
	placeholder = "-"

	pillPending = "Pending"
	pillScanned = "Scanned"
	pillEmpty   = "Empty"

	timerExpired   = "This cart has expired"
	timerCompleted = "Completed"
	timerWaiting   = "Waiting"

	hintWaitingCapture = "Waiting for capture…"
	hintNoQR           = "No QR code for this seat yet"
	hintImageFailed    = "QR image failed to load (link may be unreachable or expired)"
	hintKeptAfterScan  = "Scanned (kept on screen to prevent mis-clicks)"

	bannerCompleted = "This seat has been scanned and paid"
	linkText        = "Open source message"

	capturedAtLayout = "2006-01-02 15:04:05"
)

// recognizedSources are the producers whose meta carries the structured
// date/seat/price/quantity block.
var recognizedSources = map[string]bool{
	"xbot":   true,
	"spider": true,
}

// RenderOptions controls presentation details that are not part of state.
type RenderOptions struct {
	// Location is used for captured-at timestamps. Nil means time.Local.
	Location *time.Location
}

// Render derives the frame for state. It does not mutate state; rendering the
// same state twice yields identical frames.
func Render(state State, opts RenderOptions) Frame {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	snap := state.Snapshot
	cursor := state.Cursor
	cursor.Reconcile(snap)

	stats := snap.Stats()
	frame := Frame{
		Stats: StatsLine{
			Stats: stats,
			Text:  fmt.Sprintf("Pending %d | Completed seats %d/%d", stats.Pending, stats.ScannedSeats, stats.Total),
		},
		Advance: AdvanceControl{Loading: state.Loading},
		Toast: ToastView{
			Visible: state.Toast.Visible,
			Message: state.Toast.Message,
			Kind:    state.Toast.Kind,
		},
	}

	if snap != nil {
		frame.Seats = make([]SeatRow, 0, len(snap.Seats))
		for i := range snap.Seats {
			frame.Seats = append(frame.Seats, renderRow(&snap.Seats[i], snap.ServerTime.Time, cursor.SeatKey))
		}
	}

	seat := snap.Seat(cursor.SeatKey)
	if seat == nil {
		frame.Detail = emptyDetail()
		frame.QR = QRView{Hint: hintWaitingCapture}
		return frame
	}

	shown := seat.Shown()
	frame.Detail = renderDetail(seat, shown, loc)
	frame.QR, frame.Advance.Enabled = renderQR(seat, shown, state.Image)
	if state.Advancing {
		frame.Advance.Enabled = false
	}
	return frame
}

func renderRow(seat *SeatRecord, serverNow time.Time, selected string) SeatRow {
	row := SeatRow{
		SeatKey:  seat.SeatKey,
		Label:    SplitSeatLabel(seat.SeatLabel),
		Status:   seat.Status,
		Pill:     pillText(seat.Status),
		Selected: seat.SeatKey == selected,
	}
	if row.Label.Primary == "" {
		row.Label.Primary = placeholder
	}

	switch {
	case seat.PendingCount > 0 && seat.Current != nil && !seat.Current.ExpiresAt.IsZero():
		cd := Expiry(serverNow, seat.Current.ExpiresAt.Time)
		row.Countdown = cd.Text()
		if cd.Expired {
			row.Expired = true
			row.Timer = timerExpired
		} else {
			row.Timer = "Expires in " + row.Countdown
		}
	case seat.Status == SeatStatusScanned:
		row.Timer = timerCompleted
	default:
		row.Timer = timerWaiting
	}

	if seat.PendingCount > 0 {
		row.Tally = fmt.Sprintf("Pending %d", seat.PendingCount)
	} else {
		row.Tally = fmt.Sprintf("Scanned %d", seat.ScannedCount)
	}
	return row
}

func pillText(status SeatStatus) string {
	switch status {
	case SeatStatusPending:
		return pillPending
	case SeatStatusScanned:
		return pillScanned
	default:
		return pillEmpty
	}
}

func emptyDetail() DetailPanel {
	return DetailPanel{
		Seat:       placeholder,
		CapturedAt: placeholder,
		Account:    placeholder,
		LinkText:   placeholder,
		Date:       placeholder,
		SeatDetail: placeholder,
		Price:      placeholder,
		Quantity:   placeholder,
	}
}

func renderDetail(seat *SeatRecord, shown *QRItem, loc *time.Location) DetailPanel {
	d := emptyDetail()
	d.Seat = SplitSeatLabel(seat.SeatLabel).Text()
	if seat.AccountInfo != "" {
		d.Account = seat.AccountInfo
	}
	if shown != nil && !shown.CapturedAt.IsZero() {
		d.CapturedAt = shown.CapturedAt.In(loc).Format(capturedAtLayout)
	}
	if shown != nil && shown.MessageLink != "" {
		d.LinkText = linkText
		d.LinkURL = shown.MessageLink
	}
	if shown != nil && recognizedSources[shown.Source()] {
		d.SourceDetails = true
		d.Date = metaText(shown.Meta, "date")
		d.SeatDetail = metaText(shown.Meta, "seat_detail")
		d.Price = metaText(shown.Meta, "price")
		d.Quantity = metaText(shown.Meta, "quantity")
	}
	if seat.Completed() {
		d.Banner = bannerCompleted
		d.BannerVisible = true
	}
	return d
}

// metaText renders a meta value, using the placeholder for missing, empty,
// zero and false values.
func metaText(meta map[string]any, key string) string {
	switch v := meta[key].(type) {
	case nil:
		return placeholder
	case string:
		if v == "" {
			return placeholder
		}
		return v
	case float64:
		if v == 0 {
			return placeholder
		}
		return fmt.Sprint(v)
	case bool:
		if !v {
			return placeholder
		}
		return fmt.Sprint(v)
	default:
		return fmt.Sprint(v)
	}
}

func renderQR(seat *SeatRecord, shown *QRItem, img ImageLoader) (QRView, bool) {
	if shown == nil || shown.QRURL == "" {
		hint := hintNoQR
		if seat.Completed() {
			hint = bannerCompleted
		}
		return QRView{Hint: hint}, false
	}

	if img.FailedFor(shown.QRURL) {
		return QRView{URL: shown.QRURL, Hint: hintImageFailed}, false
	}

	view := QRView{
		URL:       shown.QRURL,
		Visible:   true,
		Switching: img.Switching,
	}
	if seat.Current == nil && seat.LastScanned != nil {
		view.Hint = hintKeptAfterScan
	}
	return view, seat.Advanceable()
}
