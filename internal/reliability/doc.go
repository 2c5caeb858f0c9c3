// Package reliability provides the circuit breaker that guards network
// sinks.
//
// A sink behind a broker (AMQP, Redis) can block for its full timeout on
// every write while the broker is down. The breaker opens after a run of
// consecutive failures and rejects writes immediately until the open
// timeout passes, then lets a bounded number of probe writes through.
//
// Example:
//
//	breaker := reliability.NewCircuitBreaker(
//	    reliability.WithName("amqp-sink"),
//	    reliability.WithFailureThreshold(5),
//	    reliability.WithOpenTimeout(30*time.Second),
//	)
//
//	err := breaker.Execute(ctx, func() error {
//	    return publisher.Publish(ctx, exchange, routingKey, msg)
//	})
package reliability
