package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// useRecorder 把默认追踪器替换为写入内存的追踪器
func useRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := defaultTracer
	defaultTracer = NewTracer(provider, "test")
	t.Cleanup(func() {
		_ = provider.Shutdown(context.Background())
		defaultTracer = prev
	})
	return recorder
}

func attrMap(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestInit_Disabled(t *testing.T) {
	prev := defaultTracer
	t.Cleanup(func() { defaultTracer = prev })

	tracer, err := Init(&Config{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, tracer)
	assert.Nil(t, tracer.provider)

	_, span := StartSpan(context.Background(), "booking.Confirm")
	assert.False(t, span.IsRecording())
	span.End()

	assert.NoError(t, tracer.Shutdown(context.Background()))
}

func TestSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1, sdktrace.AlwaysSample().Description()},
		{2, sdktrace.AlwaysSample().Description()},
		{0, sdktrace.NeverSample().Description()},
		{-1, sdktrace.NeverSample().Description()},
		{0.25, sdktrace.TraceIDRatioBased(0.25).Description()},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Sampler(tt.rate).Description(), "rate %v", tt.rate)
	}
}

func TestStartSpan_RecordsAttributes(t *testing.T) {
	recorder := useRecorder(t)

	ctx, span := StartSpan(context.Background(), "pricingAgent.analyzePricing",
		WithAgent("pricingAgent", "analyzePricing")...)
	span.SetAttributes(WithWindow("2026-07-01", "2026-07-31")...)
	span.SetAttributes(WithRoomID(3))
	require.True(t, span.SpanContext().IsValid())

	_, child := StartSpan(ctx, "booking.Confirm", WithBookingNumber("BNB20260704"))
	child.End()
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, "booking.Confirm", ended[0].Name())
	assert.Equal(t, span.SpanContext().SpanID(), ended[0].Parent().SpanID())
	assert.Equal(t, "BNB20260704", attrMap(ended[0])[AttrBookingNumber].AsString())

	attrs := attrMap(ended[1])
	assert.Equal(t, "pricingAgent", attrs[AttrAgent].AsString())
	assert.Equal(t, "analyzePricing", attrs[AttrAgentAction].AsString())
	assert.Equal(t, "2026-07-01", attrs[AttrWindowStart].AsString())
	assert.Equal(t, "2026-07-31", attrs[AttrWindowEnd].AsString())
	assert.Equal(t, int64(3), attrs[AttrRoomID].AsInt64())
}

func TestFail(t *testing.T) {
	recorder := useRecorder(t)

	_, ok := StartSpan(context.Background(), "ok")
	Fail(ok, nil)
	ok.End()

	_, failed := StartSpan(context.Background(), "failed")
	Fail(failed, errors.New("room is locked"))
	failed.End()

	ended := recorder.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, codes.Unset, ended[0].Status().Code)
	assert.Empty(t, ended[0].Events())

	assert.Equal(t, codes.Error, ended[1].Status().Code)
	assert.Equal(t, "room is locked", ended[1].Status().Description)
	require.Len(t, ended[1].Events(), 1)
	assert.Equal(t, "exception", ended[1].Events()[0].Name)
}

func TestStartSpan_FallsBackToGlobalProvider(t *testing.T) {
	prev := defaultTracer
	defaultTracer = nil
	t.Cleanup(func() { defaultTracer = prev })

	ctx, span := StartSpan(context.Background(), "availability.reconcile", WithRoomID(1))
	require.NotNil(t, ctx)
	require.NotNil(t, span)
	span.End()
}

func TestTracer_ShutdownNil(t *testing.T) {
	var tracer *Tracer
	assert.NoError(t, tracer.Shutdown(context.Background()))
}
