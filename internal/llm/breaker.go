package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is the failure reported while the breaker rejects calls.
var ErrCircuitOpen = gobreaker.ErrOpenState

// BreakerConfig configures a Breaker.
type BreakerConfig struct {
	// MaxFailures consecutive failures open the circuit.
	MaxFailures int
	// Cooldown is how long the circuit stays open before a probe call.
	Cooldown time.Duration
}

// Breaker stops sending prompts to a backend that keeps failing. While
// open, calls fail immediately with ErrCircuitOpen and become degraded
// partials instead of waiting for the backend timeout.
type Breaker struct {
	next Completer
	cb   *gobreaker.CircuitBreaker
}

// NewBreaker wraps next. A MaxFailures of zero or less returns next unwrapped.
func NewBreaker(next Completer, cfg BreakerConfig, log *slog.Logger) Completer {
	if cfg.MaxFailures <= 0 {
		return next
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = time.Minute
	}
	log = log.With("component", "llm_breaker")

	settings := gobreaker.Settings{
		Name:        "llm",
		MaxRequests: 1,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(cfg.MaxFailures)
		},
		// A cancelled run says nothing about the backend.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	}

	return &Breaker{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

// Complete forwards the call unless the circuit is open.
func (b *Breaker) Complete(ctx context.Context, prompt string) Result {
	var res Result
	_, err := b.cb.Execute(func() (interface{}, error) {
		res = b.next.Complete(ctx, prompt)
		return nil, res.Err
	})
	if err != nil && res.Err == nil {
		// Rejected without calling next.
		return Failure(fmt.Errorf("llm backend unavailable: %w", err))
	}
	return res
}
