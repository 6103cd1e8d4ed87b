// Package view keeps the data behind a screen consistent when loads overlap.
//
// Every load takes a generation number from Begin. Only the most recently
// issued generation may replace the snapshot, so a slow response can never
// overwrite the result of a newer request. A failed load keeps the last good
// snapshot.
package view

import (
	"context"
	"sync"
	"time"
)

// Snapshot is what a view currently shows.
type Snapshot[T any] struct {
	Data       T
	Generation uint64
	UpdatedAt  time.Time
	// Loaded is false until the first successful commit.
	Loaded bool
	// Err is the error of the latest failed load, cleared by the next commit.
	Err error
}

type State[T any] struct {
	mu      sync.Mutex
	issued  uint64
	current Snapshot[T]
	now     func() time.Time
}

func NewState[T any]() *State[T] {
	return &State[T]{now: time.Now}
}

// Begin issues the next generation. Older generations become stale.
func (s *State[T]) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return s.issued
}

// Commit replaces the snapshot if gen is still the latest generation and
// reports whether it did.
func (s *State[T]) Commit(gen uint64, data T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.issued {
		return false
	}
	s.current = Snapshot[T]{
		Data:       data,
		Generation: gen,
		UpdatedAt:  s.now(),
		Loaded:     true,
	}
	return true
}

// Fail records err for the latest generation, keeping the data of the last
// successful commit. Stale failures are ignored.
func (s *State[T]) Fail(gen uint64, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.issued {
		return false
	}
	s.current.Err = err
	return true
}

// Snapshot returns the current snapshot.
func (s *State[T]) Snapshot() Snapshot[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Current reports whether gen is the latest issued generation.
func (s *State[T]) Current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.issued
}

// Result is the outcome of one Load.
type Result[T any] struct {
	Snapshot[T]
	// Stale is set when a newer load started while this one was running;
	// the snapshot then reflects whatever the newer load committed.
	Stale bool
	// LoadErr is this load's own error, if any.
	LoadErr error
}

// Load runs fetch under a fresh generation and commits or fails it.
func (s *State[T]) Load(ctx context.Context, fetch func(context.Context) (T, error)) Result[T] {
	gen := s.Begin()
	data, err := fetch(ctx)
	var applied bool
	if err != nil {
		applied = s.Fail(gen, err)
	} else {
		applied = s.Commit(gen, data)
	}
	return Result[T]{Snapshot: s.Snapshot(), Stale: !applied, LoadErr: err}
}
