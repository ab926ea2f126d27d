package retrieval

import (
	"context"
	"errors"
	"fmt"

	"hashrecipe/internal/logging"
	"hashrecipe/internal/recipe"
)

// DefaultImageLimit caps image-mode results.
const DefaultImageLimit = 3

// Hit is one ranked record.
type Hit struct {
	Recipe recipe.Recipe `json:"recipe"`
	Score  float64       `json:"score"`
}

// Result is the ordered outcome of a query.
type Result struct {
	Hits  []Hit `json:"hits"`
	Count int   `json:"count"`
}

// IDs returns the hit ids in rank order.
func (r Result) IDs() []string {
	out := make([]string, len(r.Hits))
	for i, h := range r.Hits {
		out[i] = h.Recipe.ID
	}
	return out
}

// Recipes returns the hit records in rank order.
func (r Result) Recipes() []recipe.Recipe {
	out := make([]recipe.Recipe, len(r.Hits))
	for i, h := range r.Hits {
		out[i] = h.Recipe
	}
	return out
}

// ResultOf wraps records in a Result with zero scores, in the given order.
func ResultOf(recipes []recipe.Recipe) Result {
	hits := make([]Hit, len(recipes))
	for i, r := range recipes {
		hits[i] = Hit{Recipe: r}
	}
	return Result{Hits: hits, Count: len(hits)}
}

type route struct {
	mode      Mode
	algorithm Algorithm
}

// Option configures the engine.
type Option func(*Engine)

// WithRanker routes requests of the given mode and algorithm to r.
func WithRanker(mode Mode, algorithm Algorithm, r Ranker) Option {
	return func(e *Engine) {
		e.routes[route{mode, algorithm}] = r
	}
}

// WithImageLimit caps image-mode results at n.
func WithImageLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.imageLimit = n
		}
	}
}

// Engine executes requests. It has no side effects beyond the rankers it
// delegates to: latency simulation and history belong to the session.
type Engine struct {
	routes     map[route]Ranker
	imageLimit int
}

// New creates an engine. Unless overridden, text queries use SubstringMatch
// and image queries a RandomSample of DefaultImageLimit records.
func New(opts ...Option) *Engine {
	e := &Engine{
		routes:     make(map[route]Ranker),
		imageLimit: DefaultImageLimit,
	}
	for _, opt := range opts {
		opt(e)
	}

	sample := NewRandomSample(e.imageLimit, nil)
	for _, a := range []Algorithm{AlgorithmFast, AlgorithmAccurate} {
		if _, ok := e.routes[route{ModeText, a}]; !ok {
			e.routes[route{ModeText, a}] = SubstringMatch{}
		}
		if _, ok := e.routes[route{ModeImage, a}]; !ok {
			e.routes[route{ModeImage, a}] = sample
		}
	}
	return e
}

// Execute validates req, ranks the corpus and resolves ranked ids back to
// records. An invalid request fails with ErrInvalidRequest before any
// ranker runs; a ranker error fails with ErrRetrievalFailure.
func (e *Engine) Execute(ctx context.Context, req Request, corpus []recipe.Recipe) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}

	ranker := e.routes[route{req.Mode, req.Algorithm}]
	scored, err := ranker.Rank(ctx, req, corpus)
	if err != nil {
		if errors.Is(err, ErrRetrievalFailure) {
			return Result{}, err
		}
		return Result{}, fmt.Errorf("%w: %w", ErrRetrievalFailure, err)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrRetrievalFailure, err)
	}

	byID := make(map[string]int, len(corpus))
	for i, r := range corpus {
		byID[r.ID] = i
	}

	hits := make([]Hit, 0, len(scored))
	seen := make(map[string]bool, len(scored))
	for _, s := range scored {
		i, ok := byID[s.ID]
		if !ok || seen[s.ID] {
			logging.Debug().Str("id", s.ID).Msg("ranker returned unknown or duplicate id")
			continue
		}
		seen[s.ID] = true
		hits = append(hits, Hit{Recipe: corpus[i], Score: s.Score})
	}
	if req.Mode == ModeImage && len(hits) > e.imageLimit {
		hits = hits[:e.imageLimit]
	}

	return Result{Hits: hits, Count: len(hits)}, nil
}
