package retrieval

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"hashrecipe/internal/logging"
	"hashrecipe/internal/recipe"
)

// BreakerConfig configures Guard.
type BreakerConfig struct {
	Name             string
	FailureThreshold uint32
	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration
}

// guarded wraps a Ranker in a circuit breaker so a failing backend is not
// hammered by every query.
type guarded struct {
	next Ranker
	cb   *gobreaker.CircuitBreaker[[]Scored]
}

// Guard wraps r in a circuit breaker. While the breaker is open, Rank fails
// immediately with gobreaker.ErrOpenState.
func Guard(r Ranker, cfg BreakerConfig) Ranker {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		// Caller cancellation says nothing about backend health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("retrieval breaker state changed")
		},
	}
	return &guarded{next: r, cb: gobreaker.NewCircuitBreaker[[]Scored](settings)}
}

// Rank implements Ranker.
func (g *guarded) Rank(ctx context.Context, req Request, corpus []recipe.Recipe) ([]Scored, error) {
	return g.cb.Execute(func() ([]Scored, error) {
		return g.next.Rank(ctx, req, corpus)
	})
}
