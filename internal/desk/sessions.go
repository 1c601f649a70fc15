package desk

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("wizard session not found")

type session[T any] struct {
	value    T
	lastUsed time.Time
}

// Sessions keeps one wizard per browser tab, keyed by a random ID.
type Sessions[T any] struct {
	mu      sync.Mutex
	items   map[string]*session[T]
	newItem func(id string) T
	now     func() time.Time
}

func NewSessions[T any](newItem func(id string) T) *Sessions[T] {
	return &Sessions[T]{
		items:   make(map[string]*session[T]),
		newItem: newItem,
		now:     time.Now,
	}
}

// Create starts a new session and returns its ID.
func (s *Sessions[T]) Create() (string, T) {
	id := uuid.NewString()
	value := s.newItem(id)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[id] = &session[T]{value: value, lastUsed: s.now()}
	return id, value
}

func (s *Sessions[T]) Get(id string) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		var zero T
		return zero, ErrSessionNotFound
	}
	item.lastUsed = s.now()
	return item.value, nil
}

func (s *Sessions[T]) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return ErrSessionNotFound
	}
	delete(s.items, id)
	return nil
}

// Sweep drops sessions idle for longer than idle and returns how many it removed.
func (s *Sessions[T]) Sweep(idle time.Duration) int {
	cutoff := s.now().Add(-idle)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, item := range s.items {
		if item.lastUsed.Before(cutoff) {
			delete(s.items, id)
			removed++
		}
	}
	return removed
}

func (s *Sessions[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
