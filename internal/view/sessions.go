package view

import (
	"time"

	"bizdash/internal/cache"
)

// Sessions keeps one State per client view session, expiring idle ones.
type Sessions[T any] struct {
	states *cache.LRU[*State[T]]
}

func NewSessions[T any](maxSessions int, idleTTL time.Duration) *Sessions[T] {
	return &Sessions[T]{states: cache.NewLRU[*State[T]](maxSessions, idleTTL)}
}

// Get returns the state for id, creating it on first use. An empty id gets
// a throwaway state.
func (s *Sessions[T]) Get(id string) *State[T] {
	if id == "" {
		return NewState[T]()
	}
	return s.states.GetOrCreate(id, NewState[T])
}

// Cleaner exposes the backing cache to a cache.Manager.
func (s *Sessions[T]) Cleaner() cache.Cleaner { return s.states }

func (s *Sessions[T]) Len() int { return s.states.Size() }
