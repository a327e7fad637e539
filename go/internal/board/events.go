package board

// Event is an input to Step. Events come from the scheduler, the network
// effects, the image fetcher and the operator.
type Event interface {
	isEvent()
}

// FetchOrigin tells Step which workflow a snapshot fetch belongs to.
type FetchOrigin int

const (
	// OriginPoll is the scheduled polling loop.
	OriginPoll FetchOrigin = iota
	// OriginAdvance is the out-of-band refresh after a successful advance.
	OriginAdvance
)

func (o FetchOrigin) String() string {
	switch o {
	case OriginPoll:
		return "poll"
	case OriginAdvance:
		return "advance"
	default:
		return "unknown"
	}
}

// PollDue fires when the scheduler decides the next poll attempt is due.
type PollDue struct{}

// SnapshotFetched carries the outcome of a snapshot request.
type SnapshotFetched struct {
	Origin   FetchOrigin
	Snapshot *Snapshot
	Err      error
}

// SeatSelected is an explicit operator selection.
type SeatSelected struct {
	SeatKey string
}

// AdvanceRequested is the operator pressing the advance control.
type AdvanceRequested struct{}

// AdvanceSubmitted carries the outcome of the advance request.
type AdvanceSubmitted struct {
	SeatKey     string
	NextSeatKey string
	Err         error
}

// ImageLoaded reports that the QR image at URL was fetched and decoded.
type ImageLoaded struct {
	URL string
}

// ImageFailed reports that the QR image at URL could not be loaded.
type ImageFailed struct {
	URL string
	Err error
}

// ToastExpired fires when the dismissal timer for toast Seq runs out.
type ToastExpired struct {
	Seq uint64
}

func (PollDue) isEvent()          {}
func (SnapshotFetched) isEvent()  {}
func (SeatSelected) isEvent()     {}
func (AdvanceRequested) isEvent() {}
func (AdvanceSubmitted) isEvent() {}
func (ImageLoaded) isEvent()      {}
func (ImageFailed) isEvent()      {}
func (ToastExpired) isEvent()     {}
