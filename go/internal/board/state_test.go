package board

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStep_Polling(t *testing.T) {
	t.Parallel()

	t.Run("due while idle starts a fetch", func(t *testing.T) {
		state, effects := Step(State{}, PollDue{})
		assert.Equal(t, PollInFlight, state.Poll)
		assert.Equal(t, []Effect{FetchSnapshot{Origin: OriginPoll}}, effects)
	})

	t.Run("due while in flight is ignored", func(t *testing.T) {
		state, _ := Step(State{}, PollDue{})
		next, effects := Step(state, PollDue{})
		assert.Empty(t, effects)
		assert.Equal(t, state, next)
	})

	t.Run("failure is swallowed and rescheduled", func(t *testing.T) {
		state := loaded(t, scenarioSnapshot())
		prev := state.Snapshot

		state, _ = Step(state, PollDue{})
		state, effects := Step(state, SnapshotFetched{Origin: OriginPoll, Err: errors.New("connection refused")})

		assert.Equal(t, PollIdle, state.Poll)
		assert.Same(t, prev, state.Snapshot)
		assert.Equal(t, []Effect{SchedulePoll{}}, effects)
		assert.False(t, state.Toast.Visible)
	})

	t.Run("success replaces the snapshot and loads the image", func(t *testing.T) {
		state, _ := Step(State{}, PollDue{})
		snap := scenarioSnapshot()
		state, effects := Step(state, SnapshotFetched{Origin: OriginPoll, Snapshot: snap})

		assert.Same(t, snap, state.Snapshot)
		assert.Equal(t, []Effect{SchedulePoll{}, LoadImage{URL: "u1"}}, effects)
	})
}

func TestStep_Cursor(t *testing.T) {
	t.Parallel()

	t.Run("explicit selection survives snapshots", func(t *testing.T) {
		state := loaded(t, scenarioSnapshot())
		state, _ = Step(state, SeatSelected{SeatKey: "A2"})
		state, _ = Step(state, SnapshotFetched{Origin: OriginPoll, Snapshot: scenarioSnapshot()})
		assert.Equal(t, "A2", state.Cursor.SeatKey)
	})

	t.Run("vanished seat is re-derived", func(t *testing.T) {
		state := loaded(t, scenarioSnapshot())
		state, _ = Step(state, SeatSelected{SeatKey: "A2"})

		snap := scenarioSnapshot()
		snap.Seats = snap.Seats[:1]
		state, _ = Step(state, SnapshotFetched{Origin: OriginPoll, Snapshot: snap})
		assert.Equal(t, "A1", state.Cursor.SeatKey)
	})

	t.Run("falls back to first seat without pending work", func(t *testing.T) {
		snap := scenarioSnapshot()
		snap.Seats = snap.Seats[1:]
		state := loaded(t, snap)
		assert.Equal(t, "A2", state.Cursor.SeatKey)
	})

	t.Run("empty snapshot clears the cursor", func(t *testing.T) {
		state := loaded(t, scenarioSnapshot())
		state, _ = Step(state, SnapshotFetched{Origin: OriginPoll, Snapshot: &Snapshot{}})
		assert.Empty(t, state.Cursor.SeatKey)
	})

	t.Run("unknown seat selection is ignored", func(t *testing.T) {
		state := loaded(t, scenarioSnapshot())
		state, effects := Step(state, SeatSelected{SeatKey: "Z9"})
		assert.Equal(t, "A1", state.Cursor.SeatKey)
		assert.Empty(t, effects)
	})
}

func TestStep_Advance(t *testing.T) {
	t.Parallel()

	t.Run("server directed seat overrides heuristic", func(t *testing.T) {
		state := loaded(t, scenarioSnapshot())
		state, _ = Step(state, ImageLoaded{URL: "u1"})

		state, effects := Step(state, AdvanceRequested{})
		require.Equal(t, []Effect{SubmitAdvance{SeatKey: "A1"}}, effects)
		assert.True(t, state.Advancing)
		assert.True(t, state.Loading)
		assert.True(t, state.Image.Switching)
		assert.False(t, Render(state, RenderOptions{}).Advance.Enabled)

		state, effects = Step(state, AdvanceSubmitted{SeatKey: "A1", NextSeatKey: "A2"})
		assert.Equal(t, []Effect{
			RecordAdvance{SeatKey: "A1", NextSeatKey: "A2"},
			FetchSnapshot{Origin: OriginAdvance},
		}, effects)
		assert.Equal(t, "A2", state.Cursor.SeatKey)

		// A1 was consumed: nothing pending anywhere after the refresh
		refreshed := scenarioSnapshot()
		refreshed.Seats[0].PendingCount = 0
		refreshed.Seats[0].ScannedCount = 1
		refreshed.Seats[0].Status = SeatStatusScanned
		refreshed.Seats[0].LastScanned = refreshed.Seats[0].Current
		refreshed.Seats[0].Current = nil

		state, effects = Step(state, SnapshotFetched{Origin: OriginAdvance, Snapshot: refreshed})
		assert.Equal(t, "A2", state.Cursor.SeatKey)
		assert.False(t, state.Advancing)
		assert.False(t, state.Loading)
		assert.True(t, state.Toast.Visible)
		assert.Equal(t, ToastOK, state.Toast.Kind)
		assert.Contains(t, effects, Effect(DismissToast{Seq: state.Toast.Seq}))
		assert.Contains(t, effects, Effect(LoadImage{URL: "u0"}))

		frame := Render(state, RenderOptions{})
		assert.True(t, frame.Seats[1].Selected)
		assert.False(t, frame.Advance.Enabled)
		assert.False(t, frame.Advance.Loading)
	})

	t.Run("re-entrant trigger is a no-op", func(t *testing.T) {
		state := loaded(t, scenarioSnapshot())
		state, first := Step(state, AdvanceRequested{})
		state, second := Step(state, AdvanceRequested{})

		submitted := 0
		for _, eff := range append(first, second...) {
			if _, ok := eff.(SubmitAdvance); ok {
				submitted++
			}
		}
		assert.Equal(t, 1, submitted)
		assert.True(t, state.Advancing)
	})

	t.Run("failure leaves snapshot and selection untouched", func(t *testing.T) {
		state := loaded(t, scenarioSnapshot())
		state, _ = Step(state, ImageLoaded{URL: "u1"})
		before := state.Snapshot

		state, _ = Step(state, AdvanceRequested{})
		state, effects := Step(state, AdvanceSubmitted{SeatKey: "A1", Err: errors.New("status 500")})

		assert.Same(t, before, state.Snapshot)
		assert.Equal(t, "A1", state.Cursor.SeatKey)
		assert.False(t, state.Advancing)
		assert.False(t, state.Loading)
		assert.False(t, state.Image.Switching)
		assert.Equal(t, ToastError, state.Toast.Kind)
		assert.Equal(t, "Operation failed, please retry", state.Toast.Message)
		assert.NotContains(t, effects, Effect(FetchSnapshot{Origin: OriginAdvance}))
		assert.True(t, Render(state, RenderOptions{}).Advance.Enabled, "retry must be possible")
	})

	t.Run("refresh failure still releases the control", func(t *testing.T) {
		state := loaded(t, scenarioSnapshot())
		state, _ = Step(state, AdvanceRequested{})
		state, _ = Step(state, AdvanceSubmitted{SeatKey: "A1"})
		state, _ = Step(state, SnapshotFetched{Origin: OriginAdvance, Err: errors.New("timeout")})

		assert.False(t, state.Advancing)
		assert.Equal(t, ToastError, state.Toast.Kind)
	})

	t.Run("unknown server directed seat falls back after refresh failure", func(t *testing.T) {
		state := loaded(t, scenarioSnapshot())
		state, _ = Step(state, ImageLoaded{URL: "u1"})
		state, _ = Step(state, AdvanceRequested{})
		state, _ = Step(state, AdvanceSubmitted{SeatKey: "A1", NextSeatKey: "A9"})
		require.Equal(t, "A9", state.Cursor.SeatKey)

		state, _ = Step(state, SnapshotFetched{Origin: OriginAdvance, Err: errors.New("timeout")})
		assert.Equal(t, "A1", state.Cursor.SeatKey)
		assert.False(t, state.Image.Switching)

		frame := Render(state, RenderOptions{})
		require.Equal(t, 0, frame.SelectedRow())
		require.True(t, frame.Advance.Enabled)

		_, effects := Step(state, AdvanceRequested{})
		assert.Equal(t, []Effect{SubmitAdvance{SeatKey: "A1"}}, effects)
	})

	t.Run("press re-validates a stale cursor", func(t *testing.T) {
		state := loaded(t, scenarioSnapshot())
		state.Cursor.Select("gone")

		state, effects := Step(state, AdvanceRequested{})
		assert.Equal(t, "A1", state.Cursor.SeatKey)
		assert.Contains(t, effects, Effect(SubmitAdvance{SeatKey: "A1"}))
	})

	t.Run("advance refresh does not touch the poll phase", func(t *testing.T) {
		state := loaded(t, scenarioSnapshot())
		state, _ = Step(state, PollDue{})
		state, _ = Step(state, AdvanceRequested{})
		state, _ = Step(state, AdvanceSubmitted{SeatKey: "A1"})
		state, effects := Step(state, SnapshotFetched{Origin: OriginAdvance, Snapshot: scenarioSnapshot()})

		assert.Equal(t, PollInFlight, state.Poll)
		assert.NotContains(t, effects, Effect(SchedulePoll{}))
	})

	t.Run("disabled control ignores the trigger", func(t *testing.T) {
		state := loaded(t, scenarioSnapshot())
		state, _ = Step(state, SeatSelected{SeatKey: "A2"})
		state, effects := Step(state, AdvanceRequested{})
		assert.Empty(t, effects)
		assert.False(t, state.Advancing)

		state, _ = Step(state, SeatSelected{SeatKey: "A1"})
		state, _ = Step(state, ImageFailed{URL: "u1"})
		_, effects = Step(state, AdvanceRequested{})
		assert.Empty(t, effects)

		_, effects = Step(State{}, AdvanceRequested{})
		assert.Empty(t, effects)
	})
}

func TestStep_Toast(t *testing.T) {
	t.Parallel()

	state := loaded(t, scenarioSnapshot())
	state, _ = Step(state, AdvanceRequested{})
	state, _ = Step(state, AdvanceSubmitted{Err: errors.New("boom")})
	firstSeq := state.Toast.Seq

	state, _ = Step(state, AdvanceRequested{})
	state, _ = Step(state, AdvanceSubmitted{Err: errors.New("boom again")})
	require.Greater(t, state.Toast.Seq, firstSeq)

	state, _ = Step(state, ToastExpired{Seq: firstSeq})
	assert.True(t, state.Toast.Visible, "stale timer must not hide the newer toast")

	state, _ = Step(state, ToastExpired{Seq: state.Toast.Seq})
	assert.False(t, state.Toast.Visible)
}

func TestImageLoader(t *testing.T) {
	t.Parallel()

	var l ImageLoader
	require.True(t, l.Observe("u1"))
	assert.False(t, l.Switching, "first image has nothing to switch from")
	l.Loaded("u1")
	assert.Equal(t, "u1", l.LastShown)

	require.False(t, l.Observe("u1"), "same URL is not refetched")

	require.True(t, l.Observe("u2"))
	assert.True(t, l.Switching)
	l.Loaded("u1")
	assert.True(t, l.Switching, "stale load result is ignored")
	l.Loaded("u2")
	assert.False(t, l.Switching)
	assert.Equal(t, "u2", l.LastShown)

	require.True(t, l.Observe("u3"))
	l.Fail("u3")
	assert.True(t, l.FailedFor("u3"))
	assert.False(t, l.Switching)
	assert.False(t, l.Observe("u3"))
	assert.True(t, l.FailedFor("u3"), "failure sticks while the URL is shown")

	require.True(t, l.Observe("u2"))
	require.True(t, l.Observe("u3"), "a failed URL is retried once shown again")
	assert.False(t, l.FailedFor("u3"))

	l.Loaded("u3")
	l.PreFade()
	assert.True(t, l.Switching)
	l.Observe("u3")
	assert.False(t, l.Switching, "pre-fade clears when the same image stays")
}

func TestExpiry_Monotonic(t *testing.T) {
	t.Parallel()

	expires := baseTime.Add(90 * time.Second)
	prev := time.Duration(1<<62 - 1)
	for offset := 0 * time.Second; offset <= 100*time.Second; offset += 250 * time.Millisecond {
		cd := Expiry(baseTime.Add(offset), expires)
		require.LessOrEqual(t, cd.Remaining, prev)
		prev = cd.Remaining
		assert.Equal(t, cd.Remaining <= 0, cd.Expired, "offset %s", offset)
		if offset == 90*time.Second {
			assert.True(t, cd.Expired)
			assert.Equal(t, "00:00", cd.Text())
		}
	}
}

func TestFormatCountdown(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "00:30", FormatCountdown(30*time.Second))
	assert.Equal(t, "00:29", FormatCountdown(29*time.Second+999*time.Millisecond))
	assert.Equal(t, "06:55", FormatCountdown(415*time.Second))
	assert.Equal(t, "00:00", FormatCountdown(-5*time.Second))
	assert.Equal(t, "120:00", FormatCountdown(2*time.Hour))
}
