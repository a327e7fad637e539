package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/qsc591/seatboard/go/clients/board_client"
	"github.com/qsc591/seatboard/go/internal/board/engine"
	"github.com/qsc591/seatboard/go/internal/board/journal"
	"github.com/qsc591/seatboard/go/internal/board/qrimage"
)

type Services struct {
	Client  *board_client.BoardClient
	Journal journal.Publisher
	Engine  *engine.Engine
}

func newClient(config *Config) *board_client.BoardClient {
	return board_client.NewBoardClient(config.Server.URL, board_client.ForGroup(config.Server.GroupID)).
		WithTimeout(config.Server.RequestTimeout)
}

// setupServices wires client, image prober, journal and engine.
func setupServices(ctx context.Context, config *Config) (*Services, error) {
	client := newClient(config)

	var publisher journal.Publisher = journal.Nop{}
	if config.Journal.NATSURL != "" {
		jsConfig := journal.DefaultJetStreamConfig()
		jsConfig.URL = config.Journal.NATSURL
		if config.Journal.StreamName != "" {
			jsConfig.StreamName = config.Journal.StreamName
		}
		if config.Journal.SubjectPrefix != "" {
			jsConfig.SubjectPrefix = config.Journal.SubjectPrefix
		}
		js, err := journal.NewJetStreamPublisher(ctx, jsConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create advance journal: %w", err)
		}
		publisher = js
		log.Info().Str("nats_url", jsConfig.URL).Str("stream", jsConfig.StreamName).Msg("advance journal enabled")
	}

	loc, err := config.location()
	if err != nil {
		publisher.Close()
		return nil, err
	}

	opts := engine.Options{
		PollInterval:  config.Board.PollInterval,
		ToastDuration: config.Board.ToastDuration,
		Location:      loc,
		GroupID:       config.Server.GroupID,
		Journal:       publisher,
	}
	if config.Board.ProbeImages {
		opts.Prober = qrimage.NewProber(config.Server.URL, config.Server.RequestTimeout)
	}

	eng := engine.New(client, opts)
	log.Info().
		Str("server", client.BaseURL()).
		Str("state_path", client.Endpoints().State).
		Str("instance", eng.InstanceID()).
		Msg("board services ready")

	return &Services{
		Client:  client,
		Journal: publisher,
		Engine:  eng,
	}, nil
}

func (s *Services) Close() {
	if err := s.Journal.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close advance journal")
	}
}
