// Package observability records event emission metrics with OpenTelemetry.
package observability

import (
	"context"
	"time"

	"github.com/glimte/mmate-events/contracts"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope used when no meter is supplied
const MeterName = "github.com/glimte/mmate-events"

// Collector implements the event logger metrics hooks on an otel meter
type Collector struct {
	emitted    metric.Int64Counter
	dropped    metric.Int64Counter
	invalid    metric.Int64Counter
	sinkErrors metric.Int64Counter
	duration   metric.Float64Histogram
}

// NewCollector creates the instruments on meter. A nil meter uses the
// global meter provider.
func NewCollector(meter metric.Meter) (*Collector, error) {
	if meter == nil {
		meter = otel.Meter(MeterName)
	}

	c := &Collector{}
	var err error

	c.emitted, err = meter.Int64Counter("mmate.events.emitted",
		metric.WithDescription("Events written to sinks"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	c.dropped, err = meter.Int64Counter("mmate.events.dropped",
		metric.WithDescription("Events dropped before validation"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	c.invalid, err = meter.Int64Counter("mmate.events.invalid",
		metric.WithDescription("Events rejected by schema validation"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	c.sinkErrors, err = meter.Int64Counter("mmate.events.sink_errors",
		metric.WithDescription("Failed sink writes"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	c.duration, err = meter.Float64Histogram("mmate.events.emit.duration",
		metric.WithDescription("Emit duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0),
	)
	if err != nil {
		return nil, err
	}

	return c, nil
}

// RecordEmitted counts a dispatched event and its emit duration
func (c *Collector) RecordEmitted(ctx context.Context, key contracts.SchemaKey, duration time.Duration) {
	attrs := metric.WithAttributes(keyAttrs(key)...)
	c.emitted.Add(ctx, 1, attrs)
	c.duration.Record(ctx, duration.Seconds(), attrs)
}

// RecordDropped counts an event dropped for reason
func (c *Collector) RecordDropped(ctx context.Context, key contracts.SchemaKey, reason string) {
	attrs := append(keyAttrs(key), attribute.String("reason", reason))
	c.dropped.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordInvalid counts a validation failure
func (c *Collector) RecordInvalid(ctx context.Context, key contracts.SchemaKey) {
	c.invalid.Add(ctx, 1, metric.WithAttributes(keyAttrs(key)...))
}

// RecordSinkError counts a failed sink write
func (c *Collector) RecordSinkError(ctx context.Context, key contracts.SchemaKey) {
	c.sinkErrors.Add(ctx, 1, metric.WithAttributes(keyAttrs(key)...))
}

func keyAttrs(key contracts.SchemaKey) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("schema.id", key.ID),
		attribute.Int("schema.version", key.Version),
	}
}
