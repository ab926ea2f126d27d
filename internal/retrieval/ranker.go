package retrieval

import (
	"context"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"hashrecipe/internal/recipe"
)

// Scored is one ranked recipe id. Higher scores rank first.
type Scored struct {
	ID    string
	Score float64
}

// Ranker orders corpus records for a request. Implementations must not
// mutate the corpus.
type Ranker interface {
	Rank(ctx context.Context, req Request, corpus []recipe.Recipe) ([]Scored, error)
}

// RankerFunc adapts a function to Ranker.
type RankerFunc func(ctx context.Context, req Request, corpus []recipe.Recipe) ([]Scored, error)

// Rank calls f.
func (f RankerFunc) Rank(ctx context.Context, req Request, corpus []recipe.Recipe) ([]Scored, error) {
	return f(ctx, req, corpus)
}

// MatchField selects which record fields SubstringMatch inspects.
type MatchField uint8

const (
	MatchTitle MatchField = 1 << iota
	MatchTags
	MatchIngredients

	MatchDefault = MatchTitle | MatchTags
	MatchAll     = MatchTitle | MatchTags | MatchIngredients
)

// SubstringMatch returns the records containing the text term, case
// insensitively, in corpus order. A zero Fields value means MatchDefault.
type SubstringMatch struct {
	Fields MatchField
}

// Rank implements Ranker.
func (m SubstringMatch) Rank(ctx context.Context, req Request, corpus []recipe.Recipe) ([]Scored, error) {
	fields := m.Fields
	if fields == 0 {
		fields = MatchDefault
	}
	q := strings.ToLower(strings.TrimSpace(req.Text))

	out := make([]Scored, 0)
	for _, r := range corpus {
		if matches(r, q, fields) {
			out = append(out, Scored{ID: r.ID, Score: 1})
		}
	}
	return out, nil
}

func matches(r recipe.Recipe, q string, fields MatchField) bool {
	if fields&MatchTitle != 0 && strings.Contains(strings.ToLower(r.Title), q) {
		return true
	}
	if fields&MatchTags != 0 && containsAny(r.Tags, q) {
		return true
	}
	if fields&MatchIngredients != 0 && containsAny(r.Ingredients, q) {
		return true
	}
	return false
}

func containsAny(values []string, q string) bool {
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), q) {
			return true
		}
	}
	return false
}

// RandomSample returns up to Limit records in uniformly random order. It
// stands in for a similarity backend that is not wired.
type RandomSample struct {
	Limit int

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandomSample returns a sampler seeded from the clock, or from src when non-nil.
func NewRandomSample(limit int, src rand.Source) *RandomSample {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &RandomSample{Limit: limit, rnd: rand.New(src)}
}

// Rank implements Ranker.
func (s *RandomSample) Rank(ctx context.Context, req Request, corpus []recipe.Recipe) ([]Scored, error) {
	s.mu.Lock()
	if s.rnd == nil {
		s.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	perm := s.rnd.Perm(len(corpus))
	s.mu.Unlock()

	n := len(perm)
	if s.Limit > 0 && s.Limit < n {
		n = s.Limit
	}
	out := make([]Scored, n)
	for i := 0; i < n; i++ {
		out[i] = Scored{ID: corpus[perm[i]].ID, Score: 0}
	}
	return out, nil
}

// sortByScore orders scored entries by descending score, keeping corpus
// order for ties.
func sortByScore(s []Scored) {
	sort.SliceStable(s, func(i, j int) bool { return s[i].Score > s[j].Score })
}
