// Copyright 2024 Mmate Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/glimte/mmate-events/config"
	"github.com/glimte/mmate-events/contracts"
	"github.com/glimte/mmate-events/health"
	"github.com/glimte/mmate-events/observability"
	"github.com/glimte/mmate-events/schema"
	"github.com/glimte/mmate-events/sink"
	"go.opentelemetry.io/otel/metric"
)

// Client provides the main entry point for configured event emission.
// It owns the sinks it creates and closes them in Close.
type Client struct {
	events   *EventLogger
	logger   *slog.Logger
	closers  []func() error
	checkers []health.Checker
	closed   bool
	mu       sync.Mutex
}

// NewClient builds an EventLogger from cfg: it registers the configured
// schema files, resolves modifier names through the plugin map and creates
// the configured sinks. A nil cfg uses config.Default.
func NewClient(ctx context.Context, cfg *config.Config, options ...ClientOption) (*Client, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ccfg := &clientConfig{}
	for _, opt := range options {
		opt(ccfg)
	}
	if ccfg.logger == nil {
		ccfg.logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	}

	loggerOpts := []LoggerOption{
		WithLogger(ccfg.logger),
		WithSchemaRegistry(schema.NewRegistry(
			schema.WithAllowPII(cfg.AllowPII),
			schema.WithRegistryLogger(ccfg.logger),
		)),
	}
	if ccfg.meter != nil {
		collector, err := observability.NewCollector(ccfg.meter)
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics collector: %w", err)
		}
		loggerOpts = append(loggerOpts, WithMetrics(collector))
	}
	if ccfg.metrics != nil {
		loggerOpts = append(loggerOpts, WithMetrics(ccfg.metrics))
	}
	loggerOpts = append(loggerOpts, ccfg.loggerOptions...)

	el, err := NewEventLogger(loggerOpts...)
	if err != nil {
		return nil, err
	}

	c := &Client{events: el, logger: ccfg.logger}

	for _, path := range cfg.Schemas {
		key, err := el.RegisterSchemaFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to register schema %s: %w", path, err)
		}
		c.logger.Info("Event schema loaded", "schemaId", key.ID, "version", key.Version, "path", path)
	}

	for _, name := range cfg.Modifiers {
		plugin, ok := ccfg.plugins[name]
		if !ok {
			return nil, fmt.Errorf("unknown modifier plugin %q", name)
		}
		if _, err := el.AddModifierFunc(AllSchemas(), name, plugin); err != nil {
			return nil, fmt.Errorf("failed to add modifier %s: %w", name, err)
		}
	}

	if err := c.openSinks(ctx, cfg); err != nil {
		_ = c.Close()
		return nil, err
	}

	return c, nil
}

func (c *Client) openSinks(ctx context.Context, cfg *config.Config) error {
	sinks := cfg.Sinks

	if sinks.Stdout {
		if err := c.events.RegisterSink(sink.NewStdoutSink()); err != nil {
			return err
		}
	}

	if sinks.File != "" {
		fileSink, err := sink.OpenFileSink(sinks.File)
		if err != nil {
			return err
		}
		c.closers = append(c.closers, fileSink.Close)
		if err := c.events.RegisterSink(fileSink); err != nil {
			return err
		}
	}

	if sinks.AMQP.URL != "" {
		amqpSink, err := sink.DialAMQPSink(ctx, sinks.AMQP.URL, c.logger,
			sink.WithExchange(sinks.AMQP.Exchange),
			sink.WithPersistent(sinks.AMQP.Persistent),
		)
		if err != nil {
			return err
		}
		c.closers = append(c.closers, amqpSink.Close)
		c.checkers = append(c.checkers,
			health.NewPingChecker("amqp", amqpSink.Ping, 0),
			health.NewBreakerChecker("amqp_circuit", amqpSink.Breaker()),
		)
		if err := c.registerNetworkSink(amqpSink, sinks.Buffer); err != nil {
			return err
		}
		c.logger.Info("AMQP event sink connected", "exchange", sinks.AMQP.Exchange)
	}

	if sinks.Redis.URL != "" {
		redisSink, err := sink.DialRedisStreamSink(ctx, sinks.Redis.URL, sinks.Redis.Stream,
			sink.WithMaxLen(sinks.Redis.MaxLen),
		)
		if err != nil {
			return err
		}
		c.closers = append(c.closers, redisSink.Close)
		c.checkers = append(c.checkers,
			health.NewPingChecker("redis", redisSink.Ping, 0),
			health.NewBreakerChecker("redis_circuit", redisSink.Breaker()),
		)
		if err := c.registerNetworkSink(redisSink, sinks.Buffer); err != nil {
			return err
		}
		c.logger.Info("Redis event sink connected", "stream", sinks.Redis.Stream)
	}

	return nil
}

// registerNetworkSink fronts s with a buffered sink when buffer is positive
func (c *Client) registerNetworkSink(s sink.Sink, buffer int) error {
	if buffer > 0 {
		buffered := sink.NewBufferedSink(s, buffer, sink.WithBufferLogger(c.logger))
		c.closers = append(c.closers, buffered.Close)
		s = buffered
	}
	return c.events.RegisterSink(s)
}

// EventLogger returns the underlying event logger
func (c *Client) EventLogger() *EventLogger {
	return c.events
}

// Emit emits one event, see EventLogger.Emit
func (c *Client) Emit(ctx context.Context, schemaID string, version int, data map[string]any, opts ...EmitOption) (contracts.Envelope, error) {
	return c.events.Emit(ctx, schemaID, version, data, opts...)
}

// Health checks the network sinks the client created
func (c *Client) Health(ctx context.Context) health.Report {
	c.mu.Lock()
	checkers := append([]health.Checker(nil), c.checkers...)
	c.mu.Unlock()
	return health.Run(ctx, checkers...)
}

// Close detaches every sink and closes the ones the client created,
// newest first
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	for _, s := range c.events.Sinks() {
		c.events.RemoveSink(s)
	}

	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

// clientConfig holds client configuration
type clientConfig struct {
	logger        *slog.Logger
	plugins       map[string]any
	metrics       MetricsCollector
	meter         metric.Meter
	loggerOptions []LoggerOption
}

// ClientOption configures the client
type ClientOption func(*clientConfig)

// WithClientLogger sets the logger for all components
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(cfg *clientConfig) {
		cfg.logger = logger
	}
}

// WithDefaultLogger uses the default logger
func WithDefaultLogger() ClientOption {
	return func(cfg *clientConfig) {
		cfg.logger = slog.Default()
	}
}

// WithModifierPlugins supplies the modifiers config may name. Values are
// checked against the modifier signature when the client is built.
func WithModifierPlugins(plugins map[string]any) ClientOption {
	return func(cfg *clientConfig) {
		cfg.plugins = plugins
	}
}

// WithClientMetrics sets the metrics collector
func WithClientMetrics(collector MetricsCollector) ClientOption {
	return func(cfg *clientConfig) {
		cfg.metrics = collector
	}
}

// WithMeter records emission metrics with an OpenTelemetry meter
func WithMeter(meter metric.Meter) ClientOption {
	return func(cfg *clientConfig) {
		cfg.meter = meter
	}
}

// WithLoggerOptions passes extra options to the event logger
func WithLoggerOptions(opts ...LoggerOption) ClientOption {
	return func(cfg *clientConfig) {
		cfg.loggerOptions = append(cfg.loggerOptions, opts...)
	}
}
