package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"

	"github.com/guestvoice/guestvoice-backend/internal/logger"
)

// Domain event types published to the sink
const (
	CallEnded        = "call.ended"
	RequestCreated   = "request.created"
	RequestCompleted = "request.completed"
	TenantSuspended  = "tenant.suspended"
)

// Event is a domain event keyed by tenant
type Event struct {
	Type       string      `json:"type"`
	TenantID   string      `json:"tenant_id"`
	Data       interface{} `json:"data"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// New builds an event stamped with the current time
func New(eventType, tenantID string, data interface{}) Event {
	return Event{Type: eventType, TenantID: tenantID, Data: data, OccurredAt: time.Now().UTC()}
}

// Sink receives domain events for downstream consumers
type Sink interface {
	Emit(ctx context.Context, e Event) error
	Close()
}

// NoopSink discards events (no brokers configured)
type NoopSink struct{}

func (NoopSink) Emit(ctx context.Context, e Event) error { return nil }
func (NoopSink) Close()                                  {}

// deliveryTimeout bounds how long a buffered record may wait for the brokers
const deliveryTimeout = 30 * time.Second

// KafkaSink produces events as JSON records, keyed by tenant ID.
// Records are produced asynchronously and never block: a full buffer or a delivery
// failure is logged by the callback.
type KafkaSink struct {
	client       *kgo.Client
	topic        string
	flushTimeout time.Duration
}

// KafkaConfig describes the brokers and topic
type KafkaConfig struct {
	Brokers  []string
	Topic    string
	ClientID string
}

// NewKafkaSink connects a producer client
func NewKafkaSink(cfg KafkaConfig) (*KafkaSink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.ProducerLinger(50*time.Millisecond),
		kgo.RecordDeliveryTimeout(deliveryTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}
	return &KafkaSink{client: client, topic: cfg.Topic, flushTimeout: 5 * time.Second}, nil
}

func (k *KafkaSink) Emit(ctx context.Context, e Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	rec := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(e.TenantID),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(e.Type)},
		},
	}
	// the record outlives the caller's request
	k.client.TryProduce(context.WithoutCancel(ctx), rec, func(r *kgo.Record, err error) {
		if err != nil {
			logger.FromContext(ctx).Warn("Event delivery failed",
				zap.String("type", e.Type),
				zap.String("tenant_id", e.TenantID),
				zap.String("topic", r.Topic),
				zap.Error(err))
		}
	})
	return nil
}

// Close flushes buffered records for up to flushTimeout, then closes the client
func (k *KafkaSink) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), k.flushTimeout)
	defer cancel()
	if err := k.client.Flush(ctx); err != nil {
		logger.Warn("Kafka flush incomplete on close", zap.Error(err))
	}
	k.client.Close()
}

// DefaultPublishTimeout bounds a single Emit call
const DefaultPublishTimeout = 2 * time.Second

// Publisher emits events without failing or stalling the caller; errors are logged
type Publisher struct {
	sink    Sink
	timeout time.Duration
}

// NewPublisher wraps a sink; a nil sink becomes NoopSink
func NewPublisher(sink Sink) *Publisher {
	if sink == nil {
		sink = NoopSink{}
	}
	return &Publisher{sink: sink, timeout: DefaultPublishTimeout}
}

// Publish emits e, logging delivery failures
func (p *Publisher) Publish(ctx context.Context, e Event) {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.sink.Emit(ctx, e); err != nil {
		logger.FromContext(ctx).Warn("Event delivery failed",
			zap.String("type", e.Type),
			zap.String("tenant_id", e.TenantID),
			zap.Error(err))
	}
}

// Close releases the sink
func (p *Publisher) Close() {
	p.sink.Close()
}

// MemorySink records events (tests and local runs)
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

func (m *MemorySink) Emit(ctx context.Context, e Event) error {
	m.mu.Lock()
	m.events = append(m.events, e)
	m.mu.Unlock()
	return nil
}

func (m *MemorySink) Close() {}

// Events returns a copy of everything emitted so far
func (m *MemorySink) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// Types returns the emitted event types in order
func (m *MemorySink) Types() []string {
	var out []string
	for _, e := range m.Events() {
		out = append(out, e.Type)
	}
	return out
}
