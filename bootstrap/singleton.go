package bootstrap

import (
	"sync"
	"sync/atomic"
)

// Singleton lazily constructs one shared value. The factory runs at most once,
// on the first Get; its value and error are both cached, so a failed
// construction is reported to every later caller without retrying.
type Singleton[T any] struct {
	once     sync.Once
	factory  func() (T, error)
	value    T
	err      error
	resolved atomic.Bool
}

// NewSingleton registers factory as the constructor of the shared value
func NewSingleton[T any](factory func() (T, error)) *Singleton[T] {
	if factory == nil {
		panic("singleton factory is required")
	}
	return &Singleton[T]{factory: factory}
}

// Get resolves the shared value, running the factory on first use
func (s *Singleton[T]) Get() (T, error) {
	s.once.Do(func() {
		s.value, s.err = s.factory()
		s.resolved.Store(true)
	})
	return s.value, s.err
}

// Resolved reports whether the factory has run
func (s *Singleton[T]) Resolved() bool {
	return s.resolved.Load()
}
