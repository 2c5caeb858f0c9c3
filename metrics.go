package events

import (
	"context"
	"time"

	"github.com/glimte/mmate-events/contracts"
)

// Drop reasons reported to MetricsCollector.RecordDropped
const (
	DropReasonNoSinks             = "no_sinks"
	DropReasonSchemaNotRegistered = "schema_not_registered"
)

// MetricsCollector receives emission metrics
type MetricsCollector interface {
	// RecordEmitted records a dispatched event
	RecordEmitted(ctx context.Context, key contracts.SchemaKey, duration time.Duration)

	// RecordDropped records an event dropped before validation
	RecordDropped(ctx context.Context, key contracts.SchemaKey, reason string)

	// RecordInvalid records a validation failure
	RecordInvalid(ctx context.Context, key contracts.SchemaKey)

	// RecordSinkError records a failed sink write
	RecordSinkError(ctx context.Context, key contracts.SchemaKey)
}

type noopMetrics struct{}

func (noopMetrics) RecordEmitted(context.Context, contracts.SchemaKey, time.Duration) {}
func (noopMetrics) RecordDropped(context.Context, contracts.SchemaKey, string)        {}
func (noopMetrics) RecordInvalid(context.Context, contracts.SchemaKey)                {}
func (noopMetrics) RecordSinkError(context.Context, contracts.SchemaKey)              {}
