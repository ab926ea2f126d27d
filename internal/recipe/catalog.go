package recipe

import (
	"errors"
	"fmt"
	"sort"

	"hashrecipe/internal/locale"
)

// ErrInvalidCorpus is returned when localized snapshots are inconsistent.
var ErrInvalidCorpus = errors.New("invalid corpus")

// Catalog provides one corpus snapshot per supported locale.
type Catalog interface {
	// Corpus returns the snapshot for loc in corpus order. It panics for an
	// unsupported locale.
	Corpus(loc locale.Locale) []Recipe
	Locales() []locale.Locale
}

// SnapshotCatalog is an immutable Catalog built from validated snapshots.
type SnapshotCatalog struct {
	snapshots map[locale.Locale][]Recipe
	index     map[locale.Locale]map[string]int
}

// Compile-time interface check.
var _ Catalog = (*SnapshotCatalog)(nil)

// NewCatalog validates the snapshots and returns a catalog over them. Every
// supported locale must be present and non-empty, ids must be unique within
// a snapshot and identical across snapshots, and fingerprints must be binary
// strings of one common length.
func NewCatalog(snapshots map[locale.Locale][]Recipe) (*SnapshotCatalog, error) {
	c := &SnapshotCatalog{
		snapshots: make(map[locale.Locale][]Recipe, len(snapshots)),
		index:     make(map[locale.Locale]map[string]int, len(snapshots)),
	}

	var refIDs []string
	fpLen := -1
	for _, loc := range locale.Supported() {
		recipes, ok := snapshots[loc]
		if !ok || len(recipes) == 0 {
			return nil, fmt.Errorf("%w: no recipes for locale %s", ErrInvalidCorpus, loc)
		}

		idx := make(map[string]int, len(recipes))
		for i, r := range recipes {
			if r.ID == "" {
				return nil, fmt.Errorf("%w: empty id at position %d (%s)", ErrInvalidCorpus, i, loc)
			}
			if _, dup := idx[r.ID]; dup {
				return nil, fmt.Errorf("%w: duplicate id %q (%s)", ErrInvalidCorpus, r.ID, loc)
			}
			if !ValidFingerprint(r.Fingerprint) {
				return nil, fmt.Errorf("%w: recipe %q has a malformed fingerprint (%s)", ErrInvalidCorpus, r.ID, loc)
			}
			if fpLen == -1 {
				fpLen = len(r.Fingerprint)
			} else if len(r.Fingerprint) != fpLen {
				return nil, fmt.Errorf("%w: recipe %q fingerprint has %d bits, want %d", ErrInvalidCorpus, r.ID, len(r.Fingerprint), fpLen)
			}
			if r.Calories < 0 || r.TimeMinutes <= 0 {
				return nil, fmt.Errorf("%w: recipe %q has invalid calories/time (%s)", ErrInvalidCorpus, r.ID, loc)
			}
			idx[r.ID] = i
		}

		ids := sortedIDs(idx)
		if refIDs == nil {
			refIDs = ids
		} else if !equalStrings(refIDs, ids) {
			return nil, fmt.Errorf("%w: locale %s does not carry the same recipe ids", ErrInvalidCorpus, loc)
		}

		c.snapshots[loc] = append([]Recipe(nil), recipes...)
		c.index[loc] = idx
	}
	return c, nil
}

// Corpus returns a copy of the snapshot slice. The records themselves are
// shared and must be treated as read-only.
func (c *SnapshotCatalog) Corpus(loc locale.Locale) []Recipe {
	locale.MustValid(loc)
	src := c.snapshots[loc]
	out := make([]Recipe, len(src))
	copy(out, src)
	return out
}

// Locales returns the locales the catalog was built for.
func (c *SnapshotCatalog) Locales() []locale.Locale {
	return locale.Supported()
}

// Lookup returns the record with the given id in loc.
func (c *SnapshotCatalog) Lookup(loc locale.Locale, id string) (Recipe, bool) {
	locale.MustValid(loc)
	i, ok := c.index[loc][id]
	if !ok {
		return Recipe{}, false
	}
	return c.snapshots[loc][i], true
}

// Find returns the record with the given id from any corpus slice.
func Find(corpus []Recipe, id string) (Recipe, bool) {
	for _, r := range corpus {
		if r.ID == id {
			return r, true
		}
	}
	return Recipe{}, false
}

func sortedIDs(idx map[string]int) []string {
	out := make([]string, 0, len(idx))
	for id := range idx {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
