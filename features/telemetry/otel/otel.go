// Package otel implements telemetry.Tracer/Span and telemetry.Metrics on
// top of go.opentelemetry.io/otel, go.opentelemetry.io/otel/trace, and
// go.opentelemetry.io/otel/metric, using the global TracerProvider /
// MeterProvider (configure those ahead of time; this package only reads
// from them).
package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/relayforge/agentrt/runtime/telemetry"
)

const instrumentationName = "github.com/relayforge/agentrt"

// Tracer adapts an otel trace.Tracer to telemetry.Tracer.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer builds a Tracer from the global TracerProvider.
func NewTracer() *Tracer {
	return &Tracer{tracer: otel.Tracer(instrumentationName)}
}

var _ telemetry.Tracer = (*Tracer)(nil)

func (t *Tracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, telemetry.Span) {
	newCtx, span := t.tracer.Start(ctx, name, opts...)
	return newCtx, &Span{span: span}
}

func (t *Tracer) Span(ctx context.Context) telemetry.Span {
	return &Span{span: trace.SpanFromContext(ctx)}
}

// Span adapts an otel trace.Span to telemetry.Span.
type Span struct {
	span trace.Span
}

var _ telemetry.Span = (*Span)(nil)

func (s *Span) End(opts ...trace.SpanEndOption) { s.span.End(opts...) }

func (s *Span) AddEvent(name string, attrs ...any) {
	s.span.AddEvent(name, trace.WithAttributes(kvToAttrs(attrs)...))
}

func (s *Span) SetStatus(code codes.Code, description string) {
	s.span.SetStatus(code, description)
}

func (s *Span) RecordError(err error, opts ...trace.EventOption) {
	s.span.RecordError(err, opts...)
}

// Metrics adapts an otel metric.Meter to telemetry.Metrics. Counters and
// histograms are created lazily and cached by name, since otel instruments
// are meant to be created once and reused.
type Metrics struct {
	meter      metric.Meter
	counters   map[string]metric.Float64Counter
	histograms map[string]metric.Float64Histogram
}

// NewMetrics builds a Metrics recorder from the global MeterProvider.
func NewMetrics() *Metrics {
	return &Metrics{
		meter:      otel.Meter(instrumentationName),
		counters:   make(map[string]metric.Float64Counter),
		histograms: make(map[string]metric.Float64Histogram),
	}
}

var _ telemetry.Metrics = (*Metrics)(nil)

func (m *Metrics) counter(name string) (metric.Float64Counter, error) {
	if c, ok := m.counters[name]; ok {
		return c, nil
	}
	c, err := m.meter.Float64Counter(name)
	if err != nil {
		return nil, err
	}
	m.counters[name] = c
	return c, nil
}

func (m *Metrics) histogram(name string) (metric.Float64Histogram, error) {
	if h, ok := m.histograms[name]; ok {
		return h, nil
	}
	h, err := m.meter.Float64Histogram(name)
	if err != nil {
		return nil, err
	}
	m.histograms[name] = h
	return h, nil
}

func (m *Metrics) IncCounter(name string, value float64, tags ...string) {
	c, err := m.counter(name)
	if err != nil {
		return
	}
	c.Add(context.Background(), value, metric.WithAttributes(tagsToAttrs(tags)...))
}

func (m *Metrics) RecordTimer(name string, duration time.Duration, tags ...string) {
	h, err := m.histogram(name)
	if err != nil {
		return
	}
	h.Record(context.Background(), duration.Seconds(), metric.WithAttributes(tagsToAttrs(tags)...))
}

// RecordGauge records a point-in-time value as a histogram observation,
// since otel's synchronous instrument set has no gauge; an asynchronous
// (observable) gauge would require a registered callback instead of a
// push-on-call API like this one.
func (m *Metrics) RecordGauge(name string, value float64, tags ...string) {
	h, err := m.histogram(name + "_gauge")
	if err != nil {
		return
	}
	h.Record(context.Background(), value, metric.WithAttributes(tagsToAttrs(tags)...))
}

func tagsToAttrs(tags []string) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	for i := 0; i < len(tags); i += 2 {
		k := tags[i]
		v := ""
		if i+1 < len(tags) {
			v = tags[i+1]
		}
		attrs = append(attrs, attribute.String(k, v))
	}
	return attrs
}

func kvToAttrs(keyvals []any) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	for i := 0; i < len(keyvals); i += 2 {
		k, _ := keyvals[i].(string)
		var v any
		if i+1 < len(keyvals) {
			v = keyvals[i+1]
		}
		switch val := v.(type) {
		case string:
			attrs = append(attrs, attribute.String(k, val))
		case int:
			attrs = append(attrs, attribute.Int(k, val))
		case int64:
			attrs = append(attrs, attribute.Int64(k, val))
		case float64:
			attrs = append(attrs, attribute.Float64(k, val))
		case bool:
			attrs = append(attrs, attribute.Bool(k, val))
		default:
			attrs = append(attrs, attribute.String(k, ""))
		}
	}
	return attrs
}
