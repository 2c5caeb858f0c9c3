// Package rabbitmq provides the RabbitMQ plumbing behind the AMQP event sink.
//
// This package includes:
//   - ConnectionManager: owns the AMQP connection and reconnects when it drops
//   - Publisher: publishes on a single confirm-mode channel and waits for
//     the broker to acknowledge each message
//
// Channels are reopened lazily after a failure so a broker restart costs
// one failed publish rather than a dead sink.
package rabbitmq
