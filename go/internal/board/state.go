package board

// PollPhase is the polling loop's state.
type PollPhase int

const (
	PollIdle PollPhase = iota
	PollInFlight
)

// State is everything the board keeps between events. Snapshots are replaced
// wholesale; the other fields are the client-side state layered on top.
type State struct {
	Snapshot  *Snapshot   `json:"snapshot"`
	Cursor    Cursor      `json:"cursor"`
	Poll      PollPhase   `json:"poll"`
	Advancing bool        `json:"advancing"`
	Loading   bool        `json:"loading"`
	Image     ImageLoader `json:"image"`
	Toast     Toast       `json:"toast"`
}

// Selected returns the seat under the cursor, or nil.
func (s *State) Selected() *SeatRecord {
	return s.Snapshot.Seat(s.Cursor.SeatKey)
}

// CanAdvance reports whether the advance control is enabled for the current
// state. It is the same rule the reducer renders.
func (s *State) CanAdvance() bool {
	if s.Advancing {
		return false
	}
	seat := s.Selected()
	if seat == nil || !seat.Advanceable() {
		return false
	}
	shown := seat.Shown()
	return !s.Image.FailedFor(shown.QRURL)
}

// Step applies ev to state and returns the new state together with the side
// effects the runtime has to perform. Step never blocks and never performs
// I/O; the returned state shares the snapshot pointer with its input.
func Step(state State, ev Event) (State, []Effect) {
	var effects []Effect

	switch e := ev.(type) {
	case PollDue:
		if state.Poll == PollInFlight {
			return state, nil
		}
		state.Poll = PollInFlight
		effects = append(effects, FetchSnapshot{Origin: OriginPoll})

	case SnapshotFetched:
		switch e.Origin {
		case OriginPoll:
			state.Poll = PollIdle
			effects = append(effects, SchedulePoll{})
			if e.Err == nil && e.Snapshot != nil {
				effects = append(effects, state.apply(e.Snapshot)...)
			}
		case OriginAdvance:
			state.Advancing = false
			state.Loading = false
			if e.Err == nil && e.Snapshot != nil {
				effects = append(effects, state.apply(e.Snapshot)...)
				effects = append(effects, state.Toast.show(toastAdvanceOK, ToastOK))
			} else {
				// a server-directed seat may not be in the snapshot we still hold
				effects = append(effects, state.reconcile()...)
				state.Image.CancelPreFade()
				effects = append(effects, state.Toast.show(toastAdvanceFailed, ToastError))
			}
		}

	case SeatSelected:
		if state.Snapshot.Seat(e.SeatKey) == nil {
			return state, nil
		}
		state.Cursor.Select(e.SeatKey)
		effects = append(effects, state.observeImage()...)

	case AdvanceRequested:
		if state.Advancing {
			return state, nil
		}
		effects = append(effects, state.reconcile()...)
		if !state.CanAdvance() {
			return state, effects
		}
		state.Advancing = true
		state.Loading = true
		state.Image.PreFade()
		effects = append(effects, SubmitAdvance{SeatKey: state.Cursor.SeatKey})

	case AdvanceSubmitted:
		effects = append(effects, RecordAdvance{SeatKey: e.SeatKey, NextSeatKey: e.NextSeatKey, Err: e.Err})
		if e.Err != nil {
			state.Advancing = false
			state.Loading = false
			state.Image.CancelPreFade()
			effects = append(effects, state.Toast.show(toastAdvanceFailed, ToastError))
			return state, effects
		}
		if e.NextSeatKey != "" {
			state.Cursor.Select(e.NextSeatKey)
		}
		effects = append(effects, FetchSnapshot{Origin: OriginAdvance})

	case ImageLoaded:
		state.Image.Loaded(e.URL)

	case ImageFailed:
		state.Image.Fail(e.URL)

	case ToastExpired:
		state.Toast.expire(e.Seq)
	}

	return state, effects
}

// apply replaces the snapshot and re-validates everything derived from it.
func (s *State) apply(snap *Snapshot) []Effect {
	s.Snapshot = snap
	return s.reconcile()
}

// reconcile re-validates the cursor against the held snapshot, the same way
// Render does, and follows the image for the resulting seat.
func (s *State) reconcile() []Effect {
	s.Cursor.Reconcile(s.Snapshot)
	return s.observeImage()
}

func (s *State) observeImage() []Effect {
	var url string
	if seat := s.Selected(); seat != nil {
		if shown := seat.Shown(); shown != nil {
			url = shown.QRURL
		}
	}
	if s.Image.Observe(url) {
		return []Effect{LoadImage{URL: url}}
	}
	return nil
}
