package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces the model calls of one run. The first call goes through
// immediately. A nil Pacer never waits.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer allows one call every interval. A zero interval disables pacing.
func NewPacer(interval time.Duration) *Pacer {
	if interval <= 0 {
		return &Pacer{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next call is allowed or ctx is done. When the next
// slot falls after the deadline of ctx it fails at once with ErrRunDeadline.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil {
		return ctx.Err()
	}
	if err := p.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, ok := ctx.Deadline(); ok {
			return ErrRunDeadline
		}
		return fmt.Errorf("pacing: %w", err)
	}
	return nil
}
