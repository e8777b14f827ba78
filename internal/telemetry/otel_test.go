package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type otelFixture struct {
	provider *OTelProvider
	reader   *sdkmetric.ManualReader
	spans    *tracetest.SpanRecorder
}

// setupOTelTest builds a provider over in-memory SDK exporters
func setupOTelTest(t *testing.T) *otelFixture {
	t.Helper()

	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	provider, err := NewOTelWith(tp, mp)
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx := context.Background()
		_ = provider.Shutdown(ctx)
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
	})

	return &otelFixture{provider: provider, reader: reader, spans: spans}
}

// counter sums every data point of an int64 counter
func (f *otelFixture) counter(t *testing.T, name string) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, f.reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestNewOTel(t *testing.T) {
	provider, err := NewOTel()
	require.NoError(t, err)
	assert.NotNil(t, provider.tracer)
	assert.NotNil(t, provider.meter)
}

func TestOTelProvider_RecordRefresh(t *testing.T) {
	f := setupOTelTest(t)
	ctx := context.Background()

	f.provider.RecordRefresh(ctx, StatusFetched, 10*time.Millisecond)
	f.provider.RecordRefresh(ctx, StatusFetched, 5*time.Millisecond)
	f.provider.RecordRefresh(ctx, StatusNotModified, time.Millisecond)
	f.provider.RecordRefresh(ctx, StatusFailed, time.Second)

	assert.Equal(t, int64(2), f.counter(t, "flagsnap.refresh.success"))
	assert.Equal(t, int64(1), f.counter(t, "flagsnap.refresh.not_modified"))
	assert.Equal(t, int64(1), f.counter(t, "flagsnap.refresh.failure"))
}

func TestOTelProvider_CacheAndEvaluationCounters(t *testing.T) {
	f := setupOTelTest(t)
	ctx := context.Background()

	f.provider.RecordCacheHit(ctx, "lazy")
	f.provider.RecordCacheHit(ctx, "lazy")
	f.provider.RecordCacheMiss(ctx, "lazy")
	f.provider.RecordEvaluation(ctx, "debug", "targeting", time.Microsecond)

	assert.Equal(t, int64(2), f.counter(t, "flagsnap.cache.hits"))
	assert.Equal(t, int64(1), f.counter(t, "flagsnap.cache.misses"))
	assert.Equal(t, int64(1), f.counter(t, "flagsnap.evaluations"))
}

func TestOTelProvider_StartSpan(t *testing.T) {
	f := setupOTelTest(t)

	ctx := context.Background()
	newCtx, span := f.provider.StartSpan(ctx, "refresh",
		WithAttributes(String("mode", "auto"), Int("attempt", 1), Bool("forced", true)))
	require.NotNil(t, span)
	assert.NotEqual(t, ctx, newCtx)

	span.SetAttributes(Duration("elapsed", 3*time.Millisecond))
	span.AddEvent("fetched", String("etag", "v1"))
	span.End()

	ended := f.spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "refresh", ended[0].Name())
	assert.Len(t, ended[0].Attributes(), 4)
	require.Len(t, ended[0].Events(), 1)
	assert.Equal(t, "fetched", ended[0].Events()[0].Name)
}

func TestOTelSpan_RecordError(t *testing.T) {
	f := setupOTelTest(t)

	_, span := f.provider.StartSpan(context.Background(), "refresh")
	span.RecordError(errors.New("boom"))
	span.End()

	ended := f.spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
}

func TestConvertAttribute(t *testing.T) {
	tests := []struct {
		name string
		attr Attribute
		want string
	}{
		{"string", String("k", "v"), "v"},
		{"int", Int("k", 7), "7"},
		{"int64", Attribute{Key: "k", Value: int64(8)}, "8"},
		{"bool", Bool("k", true), "true"},
		{"float", Attribute{Key: "k", Value: 1.5}, "1.5"},
		{"unsupported", Attribute{Key: "k", Value: struct{}{}}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := convertAttribute(tt.attr)
			assert.Equal(t, "k", string(kv.Key))
			assert.Equal(t, tt.want, kv.Value.Emit())
		})
	}
}

func TestOTelProvider_ConcurrentUsage(t *testing.T) {
	f := setupOTelTest(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, span := f.provider.StartSpan(ctx, "evaluate")
			f.provider.RecordEvaluation(ctx, "flag", "base", time.Microsecond)
			span.End()
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(20), f.counter(t, "flagsnap.evaluations"))
	assert.Len(t, f.spans.Ended(), 20)
}

func TestNoOpProvider(t *testing.T) {
	var p Provider = NewNoOp()
	ctx := context.Background()

	newCtx, span := p.StartSpan(ctx, "x", WithAttributes(String("a", "b")))
	assert.Equal(t, ctx, newCtx)
	span.SetAttributes(Int("n", 1))
	span.AddEvent("e")
	span.RecordError(errors.New("ignored"))
	span.End()

	p.RecordCacheHit(ctx, "lazy")
	p.RecordCacheMiss(ctx, "lazy")
	p.RecordEvaluation(ctx, "k", "base", 0)
	p.RecordRefresh(ctx, StatusFailed, 0)
	assert.NoError(t, p.Shutdown(ctx))
}

var (
	_ Provider = (*OTelProvider)(nil)
	_ Provider = (*NoOpProvider)(nil)
	_ Span     = (*OTelSpan)(nil)
	_ Span     = (*NoOpSpan)(nil)
)
