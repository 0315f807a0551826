package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gamassss/click-tracker/internal/config"
	"github.com/gamassss/click-tracker/internal/domain"
	"github.com/nats-io/nats.go"
)

// ClickStream publishes click events to a JetStream stream and consumes
// them for ingestion into the durable analytics store.
type ClickStream struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	cfg  config.NATSConfig
}

type ClickHandler func(ctx context.Context, click *domain.ClickEvent) error

func Connect(cfg config.NATSConfig) (*ClickStream, error) {
	conn, err := nats.Connect(
		cfg.URL,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.PingInterval(20*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create jetstream context: %w", err)
	}

	s := &ClickStream{conn: conn, js: js, cfg: cfg}
	if err := s.ensureStream(); err != nil {
		conn.Close()
		return nil, err
	}

	return s, nil
}

func (s *ClickStream) ensureStream() error {
	streamCfg := &nats.StreamConfig{
		Name:       s.cfg.Stream,
		Subjects:   []string{s.cfg.Subject},
		Storage:    nats.FileStorage,
		MaxAge:     7 * 24 * time.Hour,
		Duplicates: 2 * time.Minute,
		Replicas:   1,
	}

	_, err := s.js.StreamInfo(s.cfg.Stream)
	if errors.Is(err, nats.ErrStreamNotFound) {
		if _, err := s.js.AddStream(streamCfg); err != nil {
			return fmt.Errorf("failed to create stream %s: %w", s.cfg.Stream, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read stream %s: %w", s.cfg.Stream, err)
	}

	if _, err := s.js.UpdateStream(streamCfg); err != nil {
		return fmt.Errorf("failed to update stream %s: %w", s.cfg.Stream, err)
	}

	return nil
}

// Record publishes the click. The click ID doubles as the JetStream message
// ID so retried publishes inside the duplicate window are dropped.
func (s *ClickStream) Record(ctx context.Context, click *domain.ClickEvent) error {
	data, err := json.Marshal(click)
	if err != nil {
		return fmt.Errorf("failed to encode click %s: %w", click.ClickID, err)
	}

	if _, err := s.js.Publish(s.cfg.Subject, data, nats.Context(ctx), nats.MsgId(click.ClickID)); err != nil {
		return fmt.Errorf("failed to publish click %s: %w", click.ClickID, err)
	}

	return nil
}

// Subscribe delivers clicks to handler. Messages are acked only after the
// handler succeeds; failures are redelivered.
func (s *ClickStream) Subscribe(ctx context.Context, handler ClickHandler, log *slog.Logger) (*nats.Subscription, error) {
	sub, err := s.js.QueueSubscribe(
		s.cfg.Subject,
		s.cfg.Durable,
		func(msg *nats.Msg) {
			process(ctx, msg.Data, msg, handler, log)
		},
		nats.Durable(s.cfg.Durable),
		nats.ManualAck(),
		nats.AckWait(30*time.Second),
		nats.MaxDeliver(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", s.cfg.Subject, err)
	}

	return sub, nil
}

// Ping round-trips to the server. ctx must carry a deadline.
func (s *ClickStream) Ping(ctx context.Context) error {
	return s.conn.FlushWithContext(ctx)
}

func (s *ClickStream) Close() error {
	if err := s.conn.Drain(); err != nil {
		s.conn.Close()
		return err
	}
	return nil
}

type acknowledger interface {
	Ack(opts ...nats.AckOpt) error
	Nak(opts ...nats.AckOpt) error
	Term(opts ...nats.AckOpt) error
}

func process(ctx context.Context, data []byte, msg acknowledger, handler ClickHandler, log *slog.Logger) {
	var click domain.ClickEvent
	if err := json.Unmarshal(data, &click); err != nil {
		log.Error("Dropping undecodable click message", "error", err)
		_ = msg.Term()
		return
	}

	if err := handler(ctx, &click); err != nil {
		log.Warn("Click ingest failed, requesting redelivery",
			"click_id", click.ClickID,
			"link_id", click.LinkID,
			"error", err,
		)
		_ = msg.Nak()
		return
	}

	if err := msg.Ack(); err != nil {
		log.Warn("Failed to ack click message", "click_id", click.ClickID, "error", err)
	}
}
