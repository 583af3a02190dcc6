package state

import (
	"sync"
	"time"
)

// Store coordinates concurrent access to one value of type T.
//
// A single owner mutates the value through Update; readers take defensive
// copies through Snapshot. Subscribers receive a coalesced signal after every
// Update. The zero value is ready to use.
type Store[T any] struct {
	mu          sync.RWMutex
	value       T
	clone       func(T) T
	lastUpdated time.Time

	subMu   sync.Mutex
	subs    map[int]chan struct{}
	nextSub int
}

// New returns a Store seeded with initial. clone is used by Snapshot to copy
// slices and maps out of the store; nil means a shallow copy.
func New[T any](initial T, clone func(T) T) *Store[T] {
	return &Store[T]{value: initial, clone: clone}
}

// Update applies fn to the stored value under the write lock and returns a copy
// of the result. Subscribers are signalled after the lock is released.
func (s *Store[T]) Update(fn func(*T)) T {
	s.mu.Lock()
	fn(&s.value)
	s.lastUpdated = time.Now()
	out := s.copyLocked()
	s.mu.Unlock()

	s.notify()
	return out
}

// Read runs fn against the stored value under the read lock. fn must not
// retain references into the value.
func (s *Store[T]) Read(fn func(T)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.value)
}

// Snapshot returns a copy of the current value.
func (s *Store[T]) Snapshot() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyLocked()
}

// LastUpdated reports when Update last ran.
func (s *Store[T]) LastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdated
}

// Subscribe returns a channel that receives a value after each Update. Signals
// coalesce: a slow reader sees at most one pending signal. The returned func
// detaches the subscription and closes the channel.
func (s *Store[T]) Subscribe() (<-chan struct{}, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	if s.subs == nil {
		s.subs = make(map[int]chan struct{})
	}
	id := s.nextSub
	s.nextSub++
	ch := make(chan struct{}, 1)
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
}

func (s *Store[T]) notify() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (s *Store[T]) copyLocked() T {
	if s.clone == nil {
		return s.value
	}
	return s.clone(s.value)
}

// CloneSlice returns an independent copy of items, or nil when empty.
func CloneSlice[E any](items []E) []E {
	if len(items) == 0 {
		return nil
	}
	dup := make([]E, len(items))
	copy(dup, items)
	return dup
}
