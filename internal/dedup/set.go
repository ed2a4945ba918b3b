// Package dedup suppresses duplicate deliveries of inbound email events.
// Webhook providers retry and fan out, so the same event can arrive more
// than once; the set remembers which signatures have already been handled.
//
// The set is process-local and lost on restart. That is acceptable: it is a
// best-effort guard against double forwarding, not a durability mechanism.
package dedup

import "sync"

// Set is a bounded set of processed-event signatures. Seen performs
// check-and-insert as a single atomic operation so that concurrent request
// handlers cannot both claim the first sight of a signature.
type Set struct {
	mu       sync.Mutex
	seen     map[string]struct{}
	order    []string
	capacity int
}

// NewSet creates a set that holds at most capacity signatures, evicting the
// oldest entries once the bound is exceeded.
func NewSet(capacity int) *Set {
	if capacity < 1 {
		capacity = 1
	}
	return &Set{
		seen:     make(map[string]struct{}, capacity),
		capacity: capacity,
	}
}

// Seen reports whether sig was already registered, inserting it if not.
// The first call for a signature returns false; every later call returns
// true until the entry is evicted by capacity pressure.
func (s *Set) Seen(sig string) bool {
	if sig == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[sig]; ok {
		return true
	}
	s.seen[sig] = struct{}{}
	s.order = append(s.order, sig)

	for len(s.order) > s.capacity {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.seen, oldest)
	}
	return false
}

// Len returns the number of signatures currently held.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
