// Package feed streams access events to the operations topic. The feed is
// best-effort by design: a full buffer drops events rather than stalling the
// verification hot path, and the durable audit record stays in the event
// store.
package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"gatepass/internal/credential/models"
	"gatepass/internal/platform/kafka/producer"
)

// KafkaProducer is the broker surface the feed publishes through.
type KafkaProducer interface {
	Produce(ctx context.Context, msg *producer.Message) error
	Close() error
}

// wireEvent is the JSON shape published to the topic.
type wireEvent struct {
	ID              string `json:"id"`
	SubjectID       string `json:"subject_id,omitempty"`
	RosterID        string `json:"roster_id,omitempty"`
	TokenID         string `json:"token_id,omitempty"`
	Granted         bool   `json:"granted"`
	DenialReason    string `json:"denial_reason,omitempty"`
	ScannerLocation string `json:"scanner_location"`
	ScannerDevice   string `json:"scanner_device,omitempty"`
	OccurredAt      string `json:"occurred_at"`
}

// Feed publishes access events asynchronously through a bounded buffer.
type Feed struct {
	producer KafkaProducer
	topic    string
	events   chan *models.AccessEvent
	wg       sync.WaitGroup
	logger   *slog.Logger
	onDrop   func()
}

// Option configures the Feed.
type Option func(*Feed)

// WithLogger sets a logger for publish failures.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Feed) {
		f.logger = logger
	}
}

// WithBufferSize overrides the event buffer size.
func WithBufferSize(size int) Option {
	return func(f *Feed) {
		if size > 0 {
			f.events = make(chan *models.AccessEvent, size)
		}
	}
}

// WithDropCallback registers a hook invoked whenever a full buffer drops an
// event, so callers can count drops.
func WithDropCallback(fn func()) Option {
	return func(f *Feed) {
		f.onDrop = fn
	}
}

// New starts a feed publishing to topic. Call Close to drain and stop it.
func New(p KafkaProducer, topic string, opts ...Option) *Feed {
	f := &Feed{
		producer: p,
		topic:    topic,
		events:   make(chan *models.AccessEvent, 256),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	f.wg.Add(1)
	go f.pump()
	return f
}

// Publish queues an event for delivery. A full buffer drops the event; the
// verification path never blocks on the broker.
func (f *Feed) Publish(ev *models.AccessEvent) {
	select {
	case f.events <- ev:
	default:
		if f.onDrop != nil {
			f.onDrop()
		}
		f.logger.Warn("feed buffer full, access event dropped",
			"event_id", ev.ID.String(),
			"granted", ev.Granted,
		)
	}
}

// Close drains buffered events and stops the pump. The producer itself is
// owned by the caller and is not closed here.
func (f *Feed) Close() {
	close(f.events)
	f.wg.Wait()
}

func (f *Feed) pump() {
	defer f.wg.Done()
	for ev := range f.events {
		if err := f.publish(ev); err != nil {
			f.logger.Error("failed to publish access event",
				"event_id", ev.ID.String(),
				"error", err,
			)
		}
	}
}

// publish keys records by token so scans of one physical token land on one
// partition in order.
func (f *Feed) publish(ev *models.AccessEvent) error {
	wire := wireEvent{
		ID:              ev.ID.String(),
		Granted:         ev.Granted,
		DenialReason:    string(ev.DenialReason),
		ScannerLocation: ev.ScannerLocation,
		ScannerDevice:   ev.ScannerDevice,
		OccurredAt:      ev.Timestamp.UTC().Format(time.RFC3339Nano),
	}
	if ev.SubjectID != nil {
		wire.SubjectID = ev.SubjectID.String()
	}
	if ev.RosterID != nil {
		wire.RosterID = ev.RosterID.String()
	}
	if ev.TokenID != nil {
		wire.TokenID = ev.TokenID.String()
	}

	value, err := json.Marshal(wire)
	if err != nil {
		return err
	}

	key := wire.ID
	if wire.TokenID != "" {
		key = wire.TokenID
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return f.producer.Produce(ctx, &producer.Message{
		Topic: f.topic,
		Key:   []byte(key),
		Value: value,
	})
}
