package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInit_Disabled(t *testing.T) {
	tel, err := Init(context.Background(), &Config{Enabled: false, ServiceName: "test"})
	require.NoError(t, err)
	require.NotNil(t, tel)
	assert.NoError(t, Shutdown(context.Background()))

	ctx, span := StartSpan(context.Background(), "noop")
	defer span.End()
	assert.Empty(t, GetTraceID(ctx))
}

func TestStartSpan_RecordsError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	globalTelemetry = &Telemetry{tracerProvider: provider, tracer: provider.Tracer("test")}
	t.Cleanup(func() { globalTelemetry = nil })

	ctx, span := StartSpan(context.Background(), "voice.gather")
	assert.NotEmpty(t, GetTraceID(ctx))
	RecordError(span, errors.New("boom"))
	RecordError(span, nil)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "voice.gather", ended[0].Name())
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.NoError(t, Shutdown(context.Background()))
}
