package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// ungroupedToken stands in for the group segment of the subject when the
// board talks to a single-group server.
const ungroupedToken = "default"

type JetStreamConfig struct {
	URL           string
	StreamName    string
	SubjectPrefix string
	ClientName    string

	ConnectTimeout time.Duration
	ReconnectWait  time.Duration
	// Retention bounds how long advance records are kept.
	Retention time.Duration
	// DedupWindow is how long a re-published event id is recognised.
	DedupWindow time.Duration
}

func DefaultJetStreamConfig() JetStreamConfig {
	return JetStreamConfig{
		URL:            nats.DefaultURL,
		StreamName:     "SEATBOARD_ADVANCES",
		SubjectPrefix:  "seatboard.advances",
		ClientName:     "seatboard",
		ConnectTimeout: 3 * time.Second,
		ReconnectWait:  2 * time.Second,
		Retention:      14 * 24 * time.Hour,
		DedupWindow:    10 * time.Minute,
	}
}

// JetStreamPublisher appends advance outcomes to a JetStream stream, one
// subject per group and outcome, so a consumer can follow a single group.
type JetStreamPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	config JetStreamConfig
}

func NewJetStreamPublisher(ctx context.Context, cfg JetStreamConfig) (*JetStreamPublisher, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name(cfg.ClientName),
		nats.Timeout(cfg.ConnectTimeout),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("advance journal lost its broker connection")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("advance journal reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect advance journal to %s: %w", cfg.URL, err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("open JetStream: %w", err)
	}

	p := &JetStreamPublisher{nc: nc, js: js, config: cfg}

	stream, err := js.CreateOrUpdateStream(ctx, p.streamConfig())
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("declare stream %s: %w", cfg.StreamName, err)
	}
	log.Debug().
		Str("stream", stream.CachedInfo().Config.Name).
		Strs("subjects", stream.CachedInfo().Config.Subjects).
		Msg("advance journal stream ready")

	return p, nil
}

func (p *JetStreamPublisher) streamConfig() jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:        p.config.StreamName,
		Description: "Seat board advance outcomes",
		Subjects:    []string{p.config.SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		Discard:     jetstream.DiscardOld,
		MaxAge:      p.config.Retention,
		Storage:     jetstream.FileStorage,
		Duplicates:  p.config.DedupWindow,
	}
}

// Publish writes one advance record. The event id is the JetStream message
// id, so a retried publish inside the dedup window is stored once.
func (p *JetStreamPublisher) Publish(ctx context.Context, event AdvanceEvent) error {
	msg, err := newMessage(p.config.SubjectPrefix, event)
	if err != nil {
		return err
	}

	ack, err := p.js.PublishMsg(ctx, msg,
		jetstream.WithMsgID(event.ID.String()),
		jetstream.WithExpectStream(p.config.StreamName),
	)
	if err != nil {
		return fmt.Errorf("journal advance of seat %s: %w", event.SeatKey, err)
	}
	if ack.Duplicate {
		log.Debug().Str("event_id", event.ID.String()).Msg("advance already journaled")
		return nil
	}

	log.Debug().
		Str("seat_key", event.SeatKey).
		Str("outcome", event.EventType()).
		Uint64("seq", ack.Sequence).
		Msg("advance journaled")
	return nil
}

func (p *JetStreamPublisher) Close() error {
	if p.nc == nil {
		return nil
	}
	return p.nc.Drain()
}

// subjectFor builds <prefix>.<group>.<outcome>.
func subjectFor(prefix string, event AdvanceEvent) string {
	group := subjectToken(event.GroupID)
	if group == "" {
		group = ungroupedToken
	}
	outcome := "succeeded"
	if event.EventType() == EventAdvanceFailed {
		outcome = "failed"
	}
	return strings.Join([]string{prefix, group, outcome}, ".")
}

// subjectToken makes a group id safe to use as one subject token.
func subjectToken(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t':
			return '_'
		}
		return r
	}, strings.TrimSpace(s))
}

func newMessage(prefix string, event AdvanceEvent) (*nats.Msg, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode advance event: %w", err)
	}

	msg := nats.NewMsg(subjectFor(prefix, event))
	msg.Data = data
	msg.Header.Set("Seatboard-Outcome", event.EventType())
	msg.Header.Set("Seatboard-Seat", event.SeatKey)
	msg.Header.Set("Seatboard-Instance", event.InstanceID)
	if event.GroupID != "" {
		msg.Header.Set("Seatboard-Group", event.GroupID)
	}
	return msg, nil
}
