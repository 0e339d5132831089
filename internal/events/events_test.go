package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSink struct{ calls int }

func (f *failingSink) Emit(ctx context.Context, e Event) error {
	f.calls++
	return errors.New("broker down")
}
func (f *failingSink) Close() {}

func TestPublisher(t *testing.T) {
	sink := &MemorySink{}
	p := NewPublisher(sink)

	p.Publish(context.Background(), New(CallEnded, "t1", map[string]string{"call_id": "CA1"}))
	p.Publish(context.Background(), New(RequestCreated, "t1", nil))

	got := sink.Events()
	require.Len(t, got, 2)
	assert.Equal(t, "t1", got[0].TenantID)
	assert.False(t, got[0].OccurredAt.IsZero())
	assert.Equal(t, []string{CallEnded, RequestCreated}, sink.Types())
}

func TestPublisher_SwallowsSinkErrors(t *testing.T) {
	f := &failingSink{}
	p := NewPublisher(f)
	assert.NotPanics(t, func() { p.Publish(context.Background(), New(TenantSuspended, "t1", nil)) })
	assert.Equal(t, 1, f.calls)
}

func TestNilSinkIsNoop(t *testing.T) {
	p := NewPublisher(nil)
	assert.NotPanics(t, func() {
		p.Publish(context.Background(), New(RequestCompleted, "t1", nil))
		p.Close()
	})
}

func TestNewKafkaSink_LazyConnect(t *testing.T) {
	// franz-go does not dial until the first produce
	sink, err := NewKafkaSink(KafkaConfig{Brokers: []string{"127.0.0.1:1"}, Topic: "guestvoice.events", ClientID: "test"})
	require.NoError(t, err)
	sink.Close()
}

type stalledSink struct{}

func (stalledSink) Emit(ctx context.Context, e Event) error {
	<-ctx.Done()
	return ctx.Err()
}
func (stalledSink) Close() {}

func TestPublisher_BoundsSlowSink(t *testing.T) {
	p := NewPublisher(stalledSink{})
	p.timeout = 50 * time.Millisecond

	start := time.Now()
	p.Publish(context.Background(), New(RequestCreated, "t1", nil))
	assert.Less(t, time.Since(start), time.Second)
}

func TestPublish_UnreachableBrokersDoNotBlock(t *testing.T) {
	sink, err := NewKafkaSink(KafkaConfig{Brokers: []string{"127.0.0.1:1"}, Topic: "guestvoice.events", ClientID: "test"})
	require.NoError(t, err)
	sink.flushTimeout = 100 * time.Millisecond
	defer sink.Close()

	p := NewPublisher(sink)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 3; i++ {
			p.Publish(context.Background(), New(RequestCreated, "t1", map[string]int{"n": i}))
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked with brokers unreachable")
	}
}
