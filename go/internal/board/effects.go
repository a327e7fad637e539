package board

// Effect is a side effect requested by Step. The engine executes effects and
// reports their results back as events.
type Effect interface {
	isEffect()
}

// FetchSnapshot asks for a snapshot request.
type FetchSnapshot struct {
	Origin FetchOrigin
}

// SubmitAdvance asks for the advance request for SeatKey.
type SubmitAdvance struct {
	SeatKey string
}

// LoadImage asks for the QR image at URL to be fetched.
type LoadImage struct {
	URL string
}

// SchedulePoll asks for a PollDue after the poll interval.
type SchedulePoll struct{}

// DismissToast asks for a ToastExpired after the toast duration.
type DismissToast struct {
	Seq uint64
}

// RecordAdvance asks for an advance outcome to be written to the journal.
type RecordAdvance struct {
	SeatKey     string
	NextSeatKey string
	Err         error
}

func (FetchSnapshot) isEffect() {}
func (SubmitAdvance) isEffect() {}
func (LoadImage) isEffect()     {}
func (SchedulePoll) isEffect()  {}
func (DismissToast) isEffect()  {}
func (RecordAdvance) isEffect() {}
