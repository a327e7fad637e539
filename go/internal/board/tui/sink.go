package tui

import "github.com/qsc591/seatboard/go/internal/board"

// FrameSink keeps only the newest frame so a slow terminal never holds the
// board back.
type FrameSink struct {
	frames chan board.Frame
}

func NewFrameSink() *FrameSink {
	return &FrameSink{frames: make(chan board.Frame, 1)}
}

func (s *FrameSink) PushFrame(frame board.Frame) {
	for {
		select {
		case s.frames <- frame:
			return
		default:
		}
		select {
		case <-s.frames:
		default:
		}
	}
}

// Frames is the channel the model listens on.
func (s *FrameSink) Frames() <-chan board.Frame {
	return s.frames
}
