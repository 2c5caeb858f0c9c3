// Package sink provides the output side of mmate-events: the Sink contract,
// the set of active sinks, the envelope formatter and the built-in sinks.
//
// A sink receives each emitted envelope as a Record whose Body is the
// envelope serialized as a flat, canonical JSON object. Sinks are write-only
// from the logger's point of view and are never closed by it.
//
// Built-in sinks:
//   - WriterSink: newline-delimited JSON to any io.Writer (stdout, files)
//   - SlogSink: one slog record per event
//   - MemorySink: in-process capture
//   - BufferedSink: asynchronous wrapper with a bounded queue
//   - AMQPSink: RabbitMQ exchange, one message per event
//   - RedisStreamSink: Redis stream, one entry per event
package sink
