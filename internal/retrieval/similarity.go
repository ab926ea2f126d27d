package retrieval

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"hashrecipe/internal/recipe"
)

// Fingerprinter computes a binary fingerprint for an uploaded image.
type Fingerprinter interface {
	Fingerprint(ctx context.Context, img ImageRef) (string, error)
}

// SimilaritySearch ranks records by Hamming distance between the query
// image's fingerprint and each recipe fingerprint. Score is 1 - d/bits.
type SimilaritySearch struct {
	Fingerprinter Fingerprinter
	Limit         int
}

// Rank implements Ranker.
func (s SimilaritySearch) Rank(ctx context.Context, req Request, corpus []recipe.Recipe) ([]Scored, error) {
	if req.Image == nil {
		return nil, fmt.Errorf("similarity search needs an image")
	}
	query, err := s.Fingerprinter.Fingerprint(ctx, *req.Image)
	if err != nil {
		return nil, fmt.Errorf("fingerprint query image: %w", err)
	}

	out := make([]Scored, 0, len(corpus))
	for _, r := range corpus {
		d, err := recipe.HammingDistance(query, r.Fingerprint)
		if err != nil {
			// Records fingerprinted with a different code length are not comparable.
			continue
		}
		out = append(out, Scored{ID: r.ID, Score: 1 - float64(d)/float64(len(query))})
	}
	sortByScore(out)
	return limit(out, s.Limit), nil
}

// Describer turns an image into short descriptive keywords in the given
// language code.
type Describer interface {
	Describe(ctx context.Context, img ImageRef, lang string) (string, error)
}

// CaptionMatch asks a Describer for keywords and ranks records by how many
// of them occur in the title, tags or ingredients.
type CaptionMatch struct {
	Describer Describer
	Limit     int
}

// Rank implements Ranker.
func (c CaptionMatch) Rank(ctx context.Context, req Request, corpus []recipe.Recipe) ([]Scored, error) {
	if req.Image == nil {
		return nil, fmt.Errorf("caption match needs an image")
	}
	caption, err := c.Describer.Describe(ctx, *req.Image, string(req.Locale))
	if err != nil {
		return nil, fmt.Errorf("describe query image: %w", err)
	}
	keywords := Keywords(caption)

	out := make([]Scored, 0)
	for _, r := range corpus {
		hits := 0
		for _, kw := range keywords {
			if matches(r, kw, MatchAll) {
				hits++
			}
		}
		if hits > 0 {
			out = append(out, Scored{ID: r.ID, Score: float64(hits) / float64(len(keywords))})
		}
	}
	sortByScore(out)
	return limit(out, c.Limit), nil
}

// Keywords splits a caption into lower-case keywords on commas, newlines
// and other punctuation, dropping duplicates and single letters.
func Keywords(caption string) []string {
	parts := strings.FieldsFunc(strings.ToLower(caption), func(r rune) bool {
		return r == ',' || r == '\n' || r == ';' || r == '，' || r == '、' || (unicode.IsPunct(r) && r != '-' && r != '\'')
	})
	seen := make(map[string]bool, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if len([]rune(p)) < 2 || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func limit(s []Scored, n int) []Scored {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}
