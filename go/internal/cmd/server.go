package main

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/qsc591/seatboard/go/internal/board/mirror"
)

func setupMirror(config *Config, services *Services, addr string) *mirror.Service {
	mirrorConfig := mirror.DefaultConfig()
	mirrorConfig.Addr = addr
	if len(config.Mirror.AllowedOrigins) > 0 {
		mirrorConfig.AllowedOrigins = config.Mirror.AllowedOrigins
	}
	return mirror.NewService(mirrorConfig, services.Engine)
}

// superviseMirror runs start in the background next to the terminal board.
// A mirror failure is logged and cancels the board right away instead of
// waiting for the operator to quit.
func superviseMirror(ctx context.Context, cancel context.CancelFunc, addr string, start func(context.Context) error) <-chan error {
	done := make(chan error, 1)
	go func() {
		err := start(ctx)
		if err != nil {
			log.Error().Err(err).Str("addr", addr).Msg("board mirror failed")
			cancel()
		}
		done <- err
	}()
	return done
}
