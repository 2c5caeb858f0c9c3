package health

import (
	"context"
	"time"

	"github.com/glimte/mmate-events/internal/reliability"
)

// BreakerChecker reports the circuit breaker guarding a sink
type BreakerChecker struct {
	name    string
	breaker *reliability.CircuitBreaker
}

// NewBreakerChecker creates a checker for breaker
func NewBreakerChecker(name string, breaker *reliability.CircuitBreaker) *BreakerChecker {
	return &BreakerChecker{name: name, breaker: breaker}
}

func (c *BreakerChecker) Name() string {
	return c.name
}

func (c *BreakerChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	state := c.breaker.State()
	result := CheckResult{
		Name:      c.Name(),
		Timestamp: start,
		Details:   map[string]any{"circuit": state.String()},
	}

	switch state {
	case reliability.StateOpen:
		result.Status = StatusUnhealthy
		result.Message = "Circuit is open, writes are rejected"
	case reliability.StateHalfOpen:
		result.Status = StatusDegraded
		result.Message = "Circuit is probing after failures"
	default:
		result.Status = StatusHealthy
		result.Message = "Circuit is closed"
	}

	result.Duration = time.Since(start)
	return result
}

// PingChecker reports a dependency that can be pinged
type PingChecker struct {
	name    string
	ping    func(ctx context.Context) error
	timeout time.Duration
}

// NewPingChecker creates a checker calling ping with a timeout
func NewPingChecker(name string, ping func(ctx context.Context) error, timeout time.Duration) *PingChecker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &PingChecker{name: name, ping: ping, timeout: timeout}
}

func (c *PingChecker) Name() string {
	return c.name
}

func (c *PingChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	result := CheckResult{
		Name:      c.Name(),
		Timestamp: start,
		Details:   make(map[string]any),
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.ping(ctx); err != nil {
		result.Status = StatusUnhealthy
		result.Message = "Ping failed"
		result.Error = err.Error()
	} else {
		result.Status = StatusHealthy
		result.Message = "Connection is healthy"
	}

	result.Duration = time.Since(start)
	result.Details["response_time_ms"] = result.Duration.Milliseconds()
	return result
}
