// Package retrieval executes cross-modal queries against a recipe corpus.
// The Engine routes each request to a pluggable Ranker, so the mocked
// substring and random-sample rankers can be replaced by a real
// nearest-neighbour search without changing callers.
package retrieval

import (
	"errors"
	"fmt"
	"strings"

	"hashrecipe/internal/locale"
)

var (
	// ErrInvalidRequest is returned for malformed requests, before any work starts.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrRetrievalFailure is returned when the ranking backend errors or times out.
	ErrRetrievalFailure = errors.New("retrieval failure")
)

// Mode is the query modality.
type Mode string

const (
	ModeText  Mode = "TEXT"
	ModeImage Mode = "IMAGE"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool { return m == ModeText || m == ModeImage }

// ParseMode accepts the mode name case-insensitively.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToUpper(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, s)
	}
	return m, nil
}

// Algorithm selects the retrieval model. DSH is the fast binary-hash model,
// CLIP the accurate embedding model.
type Algorithm string

const (
	AlgorithmFast     Algorithm = "DSH"
	AlgorithmAccurate Algorithm = "CLIP"
)

// Valid reports whether a is a known algorithm.
func (a Algorithm) Valid() bool { return a == AlgorithmFast || a == AlgorithmAccurate }

// ParseAlgorithm accepts DSH/CLIP or fast/accurate, case-insensitively.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DSH", "FAST":
		return AlgorithmFast, nil
	case "CLIP", "ACCURATE":
		return AlgorithmAccurate, nil
	}
	return "", fmt.Errorf("%w: unknown algorithm %q", ErrInvalidRequest, s)
}

// ImageRef is an opaque handle to uploaded image bytes. Only rankers that
// need pixels read Data.
type ImageRef struct {
	Name string
	Data []byte
}

// Request is one retrieval request.
type Request struct {
	Mode      Mode
	Algorithm Algorithm
	Text      string
	Image     *ImageRef
	// Locale is the display locale the request was issued in.
	Locale locale.Locale
}

// Validate checks the request invariants: TEXT needs a non-blank term and
// IMAGE needs an image carrying bytes.
func (r Request) Validate() error {
	if !r.Mode.Valid() {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, r.Mode)
	}
	if !r.Algorithm.Valid() {
		return fmt.Errorf("%w: unknown algorithm %q", ErrInvalidRequest, r.Algorithm)
	}
	switch r.Mode {
	case ModeText:
		if strings.TrimSpace(r.Text) == "" {
			return fmt.Errorf("%w: text query is empty", ErrInvalidRequest)
		}
	case ModeImage:
		if r.Image == nil || len(r.Image.Data) == 0 {
			return fmt.Errorf("%w: image query has no image", ErrInvalidRequest)
		}
	}
	return nil
}
