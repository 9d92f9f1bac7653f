package realtime

import "sync"

// Outcome reports what an Upsert did.
type Outcome int

const (
	Inserted Outcome = iota + 1
	Updated
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Updated:
		return "updated"
	}
	return "unknown"
}

// KeyFunc returns the dedupe key of a record.
type KeyFunc[T any] func(T) string

// MergeFunc resolves an incoming record against the member already holding its key.
type MergeFunc[T any] func(existing, incoming T) T

// replace is the default merge: the incoming record's fields win.
func replace[T any](_, incoming T) T { return incoming }

// Store is an in-memory collection in append order, deduplicated by key.
// Two records with the same key never coexist: the second becomes an update in place.
type Store[T any] struct {
	mu    sync.RWMutex
	key   KeyFunc[T]
	merge MergeFunc[T]
	items []T
	index map[string]int
}

func NewStore[T any](key KeyFunc[T], merge MergeFunc[T]) *Store[T] {
	if merge == nil {
		merge = replace[T]
	}
	return &Store[T]{key: key, merge: merge, index: make(map[string]int)}
}

func (s *Store[T]) Upsert(rec T) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertLocked(rec)
}

// UpsertAll applies records in order under one lock acquisition.
func (s *Store[T]) UpsertAll(recs []T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range recs {
		s.upsertLocked(r)
	}
}

func (s *Store[T]) upsertLocked(rec T) Outcome {
	k := s.key(rec)
	if i, ok := s.index[k]; ok {
		s.items[i] = s.merge(s.items[i], rec)
		return Updated
	}
	s.index[k] = len(s.items)
	s.items = append(s.items, rec)
	return Inserted
}

// UpdateWhere patches every member matching pred in one critical section and returns
// the keys of the patched members.
func (s *Store[T]) UpdateWhere(pred func(T) bool, patch func(*T)) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for i := range s.items {
		if pred(s.items[i]) {
			patch(&s.items[i])
			keys = append(keys, s.key(s.items[i]))
		}
	}
	return keys
}

func (s *Store[T]) Get(key string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[key]
	if !ok {
		var zero T
		return zero, false
	}
	return s.items[i], true
}

// Snapshot returns a copy of the members in append order.
func (s *Store[T]) Snapshot() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

// Find returns the first member in append order matching pred.
func (s *Store[T]) Find(pred func(T) bool) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.items {
		if pred(it) {
			return it, true
		}
	}
	var zero T
	return zero, false
}

func (s *Store[T]) Count(pred func(T) bool) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, it := range s.items {
		if pred(it) {
			n++
		}
	}
	return n
}

func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Reset drops every member. Used when a controller is re-pointed at a different scope.
func (s *Store[T]) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.index = make(map[string]int)
}
