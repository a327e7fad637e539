// Package engine runs the board state machine. One goroutine owns the state;
// network calls and timers run on their own goroutines and report back as
// events.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/qsc591/seatboard/go/internal/board"
	"github.com/qsc591/seatboard/go/internal/board/journal"
)

const (
	DefaultPollInterval  = time.Second
	DefaultToastDuration = 1200 * time.Millisecond

	eventBuffer = 64
)

var ErrStopped = errors.New("engine stopped")

// BoardAPI is what the engine needs from the collaborator server.
type BoardAPI interface {
	FetchSnapshot(ctx context.Context) (*board.Snapshot, error)
	Advance(ctx context.Context, seatKey string) (string, error)
}

// ImageProber loads a QR image and reports whether it is displayable.
type ImageProber interface {
	Probe(ctx context.Context, url string) error
}

// FrameSink receives every rendered frame. PushFrame must not block.
type FrameSink interface {
	PushFrame(frame board.Frame)
}

// FrameSinkFunc adapts a function to FrameSink.
type FrameSinkFunc func(board.Frame)

func (f FrameSinkFunc) PushFrame(frame board.Frame) { f(frame) }

type Options struct {
	PollInterval  time.Duration
	ToastDuration time.Duration
	Location      *time.Location
	GroupID       string

	// Clock defaults to the real clock; tests pass a fake one.
	Clock clockwork.Clock
	// Prober is optional. Without it every image counts as loaded.
	Prober ImageProber
	// Journal is optional. Without it advance outcomes are only logged.
	Journal journal.Publisher
}

type Engine struct {
	api        BoardAPI
	opts       Options
	clock      clockwork.Clock
	instanceID string

	events  chan board.Event
	stopped chan struct{}

	// state is touched only by the Run goroutine
	state board.State

	frameMu sync.RWMutex
	frame   board.Frame

	sinksMu sync.Mutex
	sinks   map[int]FrameSink
	nextID  int
}

func New(api BoardAPI, opts Options) *Engine {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.ToastDuration <= 0 {
		opts.ToastDuration = DefaultToastDuration
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Journal == nil {
		opts.Journal = journal.Nop{}
	}

	e := &Engine{
		api:        api,
		opts:       opts,
		clock:      opts.Clock,
		instanceID: uuid.New().String()[:8],
		events:     make(chan board.Event, eventBuffer),
		stopped:    make(chan struct{}),
		sinks:      make(map[int]FrameSink),
	}
	e.frame = board.Render(e.state, e.renderOptions())
	return e
}

func (e *Engine) InstanceID() string {
	return e.instanceID
}

// Run polls immediately and then processes events until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	log.Info().
		Str("instance", e.instanceID).
		Dur("poll_interval", e.opts.PollInterval).
		Msg("board engine started")
	defer close(e.stopped)

	e.handle(ctx, board.PollDue{})

	for {
		select {
		case ev := <-e.events:
			e.handle(ctx, ev)
		case <-ctx.Done():
			log.Info().Str("instance", e.instanceID).Msg("board engine stopped")
			return nil
		}
	}
}

// Dispatch queues ev for the loop.
func (e *Engine) Dispatch(ctx context.Context, ev board.Event) error {
	select {
	case e.events <- ev:
		return nil
	case <-e.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Select moves the cursor to seatKey.
func (e *Engine) Select(ctx context.Context, seatKey string) error {
	return e.Dispatch(ctx, board.SeatSelected{SeatKey: seatKey})
}

// Advance triggers the advance workflow for the selected seat. It is a no-op
// while the control is disabled.
func (e *Engine) Advance(ctx context.Context) error {
	return e.Dispatch(ctx, board.AdvanceRequested{})
}

// Frame returns the most recently rendered frame.
func (e *Engine) Frame() board.Frame {
	e.frameMu.RLock()
	defer e.frameMu.RUnlock()
	return e.frame
}

// Subscribe registers sink for future frames and returns a function that
// removes it.
func (e *Engine) Subscribe(sink FrameSink) func() {
	e.sinksMu.Lock()
	defer e.sinksMu.Unlock()

	id := e.nextID
	e.nextID++
	e.sinks[id] = sink

	return func() {
		e.sinksMu.Lock()
		defer e.sinksMu.Unlock()
		delete(e.sinks, id)
	}
}

func (e *Engine) renderOptions() board.RenderOptions {
	return board.RenderOptions{Location: e.opts.Location}
}

func (e *Engine) handle(ctx context.Context, ev board.Event) {
	state, effects := board.Step(e.state, ev)
	e.state = state

	for _, eff := range effects {
		e.perform(ctx, eff)
	}

	frame := board.Render(e.state, e.renderOptions())
	e.frameMu.Lock()
	e.frame = frame
	e.frameMu.Unlock()

	e.sinksMu.Lock()
	for _, sink := range e.sinks {
		sink.PushFrame(frame)
	}
	e.sinksMu.Unlock()
}

func (e *Engine) perform(ctx context.Context, eff board.Effect) {
	switch eff := eff.(type) {
	case board.FetchSnapshot:
		go e.fetchSnapshot(ctx, eff.Origin)

	case board.SubmitAdvance:
		go e.submitAdvance(ctx, eff.SeatKey)

	case board.LoadImage:
		go e.loadImage(ctx, eff.URL)

	case board.SchedulePoll:
		e.after(ctx, e.opts.PollInterval, board.PollDue{})

	case board.DismissToast:
		e.after(ctx, e.opts.ToastDuration, board.ToastExpired{Seq: eff.Seq})

	case board.RecordAdvance:
		e.recordAdvance(ctx, eff)

	default:
		log.Warn().Str("instance", e.instanceID).Msgf("unknown effect %T - ignoring", eff)
	}
}

// post hands an event from a worker goroutine back to the loop.
func (e *Engine) post(ctx context.Context, ev board.Event) {
	select {
	case e.events <- ev:
	case <-e.stopped:
	case <-ctx.Done():
	}
}

// after posts ev once d has elapsed on the engine clock.
func (e *Engine) after(ctx context.Context, d time.Duration, ev board.Event) {
	timer := e.clock.NewTimer(d)
	go func() {
		select {
		case <-timer.Chan():
			e.post(ctx, ev)
		case <-ctx.Done():
			stopAndDrainTimer(timer)
		}
	}()
}

func (e *Engine) fetchSnapshot(ctx context.Context, origin board.FetchOrigin) {
	snap, err := e.api.FetchSnapshot(ctx)
	if err != nil {
		log.Debug().
			Err(err).
			Str("instance", e.instanceID).
			Stringer("origin", origin).
			Msg("snapshot fetch failed")
	}
	e.post(ctx, board.SnapshotFetched{Origin: origin, Snapshot: snap, Err: err})
}

func (e *Engine) submitAdvance(ctx context.Context, seatKey string) {
	next, err := e.api.Advance(ctx, seatKey)
	e.post(ctx, board.AdvanceSubmitted{SeatKey: seatKey, NextSeatKey: next, Err: err})
}

func (e *Engine) loadImage(ctx context.Context, url string) {
	if e.opts.Prober == nil {
		e.post(ctx, board.ImageLoaded{URL: url})
		return
	}
	if err := e.opts.Prober.Probe(ctx, url); err != nil {
		log.Warn().Err(err).Str("url", url).Msg("qr image failed to load")
		e.post(ctx, board.ImageFailed{URL: url, Err: err})
		return
	}
	e.post(ctx, board.ImageLoaded{URL: url})
}

func (e *Engine) recordAdvance(ctx context.Context, rec board.RecordAdvance) {
	event := journal.AdvanceEvent{
		ID:          uuid.New(),
		InstanceID:  e.instanceID,
		GroupID:     e.opts.GroupID,
		SeatKey:     rec.SeatKey,
		NextSeatKey: rec.NextSeatKey,
		OccurredAt:  e.clock.Now().UTC(),
	}
	if rec.Err != nil {
		event.Error = rec.Err.Error()
		log.Error().
			Err(rec.Err).
			Str("instance", e.instanceID).
			Str("seat_key", rec.SeatKey).
			Msg("advance failed")
	} else {
		log.Info().
			Str("instance", e.instanceID).
			Str("seat_key", rec.SeatKey).
			Str("next_seat_key", rec.NextSeatKey).
			Msg("advance recorded")
	}

	go func() {
		if err := e.opts.Journal.Publish(ctx, event); err != nil {
			log.Error().Err(err).Str("event_id", event.ID.String()).Msg("failed to journal advance")
		}
	}()
}

// stopAndDrainTimer stops a timer and drains its channel if it already fired.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
