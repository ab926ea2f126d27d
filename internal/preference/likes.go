// Package preference tracks the recipes a user has liked.
package preference

import (
	"sort"
	"sync"
)

// LikeSet is a set of recipe ids. Ids are locale-independent, so membership
// survives locale switches. Safe for concurrent use.
type LikeSet struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

// NewLikeSet creates an empty set.
func NewLikeSet() *LikeSet {
	return &LikeSet{ids: make(map[string]struct{})}
}

// Toggle flips membership of id and returns the new state. Ids that match
// no recipe are accepted.
func (s *LikeSet) Toggle(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// IsLiked reports whether id is in the set.
func (s *LikeSet) IsLiked(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

// All returns the liked ids sorted lexically. Display order is derived from
// the corpus, not from this list.
func (s *LikeSet) All() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of liked ids.
func (s *LikeSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// Clear removes every id.
func (s *LikeSet) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = make(map[string]struct{})
}
