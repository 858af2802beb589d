package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// Collaborator names an external service whose call rate is bounded.
type Collaborator string

const (
	Generation Collaborator = "generation"
	Delivery   Collaborator = "delivery"
)

// CollaboratorLimiters holds one token bucket per external collaborator.
// Burst equals the rate, so no capacity accumulates beyond the
// configured per-second maximum. A non-positive rate disables limiting
// for that collaborator.
type CollaboratorLimiters struct {
	limiters map[Collaborator]*rate.Limiter
}

// New creates limiters for the generation and delivery services.
func New(generationPerSec, deliveryPerSec int) *CollaboratorLimiters {
	return &CollaboratorLimiters{
		limiters: map[Collaborator]*rate.Limiter{
			Generation: newLimiter(generationPerSec),
			Delivery:   newLimiter(deliveryPerSec),
		},
	}
}

// Unlimited returns limiters that never block. Used by tests.
func Unlimited() *CollaboratorLimiters {
	return New(0, 0)
}

func newLimiter(perSec int) *rate.Limiter {
	if perSec <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(perSec), perSec)
}

// Wait blocks until the collaborator's limiter grants a token.
// Returns a non-nil error only if ctx is cancelled (or its deadline
// would pass) while waiting.
func (cl *CollaboratorLimiters) Wait(ctx context.Context, c Collaborator) error {
	l, ok := cl.limiters[c]
	if !ok {
		return nil
	}
	return l.Wait(ctx)
}
