package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	meterName  = "flagsnap"
	tracerName = "flagsnap"
)

// Refresh statuses reported to RecordRefresh.
const (
	StatusFetched     = "fetched"
	StatusNotModified = "not_modified"
	StatusFailed      = "failed"
)

// OTelProvider implements Provider using OpenTelemetry
type OTelProvider struct {
	tracer trace.Tracer
	meter  metric.Meter

	// Metrics
	cacheHits          metric.Int64Counter
	cacheMisses        metric.Int64Counter
	evaluations        metric.Int64Counter
	refreshDuration    metric.Float64Histogram
	refreshSuccess     metric.Int64Counter
	refreshFailure     metric.Int64Counter
	refreshNotModified metric.Int64Counter
}

// NewOTel creates a provider backed by the global tracer and meter providers.
func NewOTel() (*OTelProvider, error) {
	return NewOTelWith(otel.GetTracerProvider(), otel.GetMeterProvider())
}

// NewOTelWith creates a provider from explicit tracer and meter providers.
func NewOTelWith(tp trace.TracerProvider, mp metric.MeterProvider) (*OTelProvider, error) {
	provider := &OTelProvider{
		tracer: tp.Tracer(tracerName),
		meter:  mp.Meter(meterName),
	}

	if err := provider.initMetrics(); err != nil {
		return nil, err
	}

	return provider, nil
}

// initMetrics initializes all metrics
func (o *OTelProvider) initMetrics() error {
	var err error

	// Cache metrics
	o.cacheHits, err = o.meter.Int64Counter(
		"flagsnap.cache.hits",
		metric.WithDescription("Number of reads answered from a fresh cached snapshot"),
	)
	if err != nil {
		return err
	}

	o.cacheMisses, err = o.meter.Int64Counter(
		"flagsnap.cache.misses",
		metric.WithDescription("Number of reads that found no fresh cached snapshot"),
	)
	if err != nil {
		return err
	}

	// Evaluation metrics
	o.evaluations, err = o.meter.Int64Counter(
		"flagsnap.evaluations",
		metric.WithDescription("Number of setting evaluations"),
	)
	if err != nil {
		return err
	}

	// Refresh metrics
	o.refreshDuration, err = o.meter.Float64Histogram(
		"flagsnap.refresh.duration",
		metric.WithDescription("Duration of refresh operations"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	o.refreshSuccess, err = o.meter.Int64Counter(
		"flagsnap.refresh.success",
		metric.WithDescription("Number of refreshes that downloaded a new document"),
	)
	if err != nil {
		return err
	}

	o.refreshFailure, err = o.meter.Int64Counter(
		"flagsnap.refresh.failure",
		metric.WithDescription("Number of failed refreshes"),
	)
	if err != nil {
		return err
	}

	o.refreshNotModified, err = o.meter.Int64Counter(
		"flagsnap.refresh.not_modified",
		metric.WithDescription("Number of refreshes answered with not modified"),
	)
	if err != nil {
		return err
	}

	return nil
}

// StartSpan creates a new trace span
func (o *OTelProvider) StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, Span) {
	config := &SpanConfig{}
	for _, opt := range opts {
		opt(config)
	}

	ctx, otelSpan := o.tracer.Start(ctx, name,
		trace.WithAttributes(convertAttributes(config.Attributes)...))

	return ctx, &OTelSpan{span: otelSpan}
}

// convertAttribute converts our Attribute to OTel attribute
func convertAttribute(attr Attribute) attribute.KeyValue {
	switch v := attr.Value.(type) {
	case string:
		return attribute.String(attr.Key, v)
	case int:
		return attribute.Int(attr.Key, v)
	case int64:
		return attribute.Int64(attr.Key, v)
	case bool:
		return attribute.Bool(attr.Key, v)
	case float64:
		return attribute.Float64(attr.Key, v)
	default:
		return attribute.String(attr.Key, "")
	}
}

func convertAttributes(attrs []Attribute) []attribute.KeyValue {
	otelAttrs := make([]attribute.KeyValue, len(attrs))
	for i, attr := range attrs {
		otelAttrs[i] = convertAttribute(attr)
	}
	return otelAttrs
}

func (o *OTelProvider) RecordCacheHit(ctx context.Context, mode string) {
	o.cacheHits.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", mode),
	))
}

func (o *OTelProvider) RecordCacheMiss(ctx context.Context, mode string) {
	o.cacheMisses.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", mode),
	))
}

// RecordEvaluation records a setting evaluation. outcome names the branch
// that produced the value.
func (o *OTelProvider) RecordEvaluation(ctx context.Context, settingKey string, outcome string, duration time.Duration) {
	o.evaluations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("setting.key", settingKey),
		attribute.String("outcome", outcome),
	))
}

// RecordRefresh records one orchestrator refresh with its fetch status.
func (o *OTelProvider) RecordRefresh(ctx context.Context, status string, duration time.Duration) {
	o.refreshDuration.Record(ctx, float64(duration.Milliseconds()),
		metric.WithAttributes(
			attribute.String("status", status),
		))

	switch status {
	case StatusFetched:
		o.refreshSuccess.Add(ctx, 1)
	case StatusNotModified:
		o.refreshNotModified.Add(ctx, 1)
	default:
		o.refreshFailure.Add(ctx, 1)
	}
}

// Shutdown is a no-op; the SDK providers are owned by the caller.
func (o *OTelProvider) Shutdown(ctx context.Context) error {
	return nil
}

// OTelSpan wraps an OpenTelemetry span
type OTelSpan struct {
	span trace.Span
}

func (s *OTelSpan) End() {
	s.span.End()
}

func (s *OTelSpan) SetAttributes(attrs ...Attribute) {
	s.span.SetAttributes(convertAttributes(attrs)...)
}

// RecordError records err and marks the span as failed.
func (s *OTelSpan) RecordError(err error) {
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

func (s *OTelSpan) AddEvent(name string, attrs ...Attribute) {
	s.span.AddEvent(name, trace.WithAttributes(convertAttributes(attrs)...))
}
