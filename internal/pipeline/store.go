package pipeline

import "sync/atomic"

// Store holds the latest Result. Readers get an immutable snapshot; a reload
// swaps in a new one.
type Store struct {
	current atomic.Pointer[Result]
}

// Set publishes r as the latest dataset.
func (s *Store) Set(r *Result) {
	s.current.Store(r)
}

// Latest returns the most recent dataset, if any.
func (s *Store) Latest() (*Result, bool) {
	r := s.current.Load()
	return r, r != nil
}
