package state

import (
	"context"
	"sync"
)

// Sequencer hands out per-key tickets that are served strictly in the order
// they were taken. Managers take a ticket while holding their own lock, at the
// moment a local mutation is applied, so remote calls for the same entity leave
// in issue order even when goroutines are scheduled differently.
//
// The zero value is ready to use.
type Sequencer struct {
	mu    sync.Mutex
	tails map[string]chan struct{}
	open  map[string]int
}

// Ticket is one place in a key's queue.
type Ticket struct {
	seq    *Sequencer
	key    string
	prev   chan struct{}
	done   chan struct{}
	waited bool
	once   sync.Once
}

// Take enqueues a new ticket for key.
func (s *Sequencer) Take(key string) *Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tails == nil {
		s.tails = make(map[string]chan struct{})
		s.open = make(map[string]int)
	}
	t := &Ticket{
		seq:  s,
		key:  key,
		prev: s.tails[key],
		done: make(chan struct{}),
	}
	s.tails[key] = t.done
	s.open[key]++
	return t
}

// Pending reports how many tickets for key have not been released.
func (s *Sequencer) Pending(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open[key]
}

// Wait blocks until every earlier ticket for the same key has been released.
func (t *Ticket) Wait(ctx context.Context) error {
	if t.prev == nil {
		t.waited = true
		return nil
	}
	select {
	case <-t.prev:
		t.waited = true
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release lets the next ticket proceed. When Wait did not complete, the
// release is deferred until the predecessor finishes so order is preserved.
// Calling Release more than once is a no-op.
func (t *Ticket) Release() {
	t.once.Do(func() {
		if t.waited || t.prev == nil {
			t.finish()
			return
		}
		go func() {
			<-t.prev
			t.finish()
		}()
	})
}

func (t *Ticket) finish() {
	s := t.seq
	s.mu.Lock()
	s.open[t.key]--
	if s.open[t.key] <= 0 {
		delete(s.open, t.key)
	}
	if s.tails[t.key] == t.done {
		delete(s.tails, t.key)
	}
	s.mu.Unlock()
	close(t.done)
}
