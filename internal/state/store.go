package state

import (
	"sync"
)

// Store is a mutex-guarded value container with change notification.
// Readers get cloned snapshots; writers mutate through Update and every
// subscriber is woken once per burst of updates.
type Store[S any] struct {
	mu       sync.RWMutex
	value    S
	clone    func(S) S
	version  uint64
	subs     map[int]chan struct{}
	nextSub  int
	initOnce sync.Once
}

// NewStore returns a Store holding initial. clone is used to copy the value
// on Snapshot so callers never share slices or maps with the store; nil means
// a plain value copy.
func NewStore[S any](initial S, clone func(S) S) *Store[S] {
	s := &Store[S]{value: initial, clone: clone}
	s.init()
	return s
}

func (s *Store[S]) init() {
	s.initOnce.Do(func() {
		if s.subs == nil {
			s.subs = make(map[int]chan struct{})
		}
	})
}

// Update applies fn to the stored value under the write lock and notifies
// subscribers afterwards. fn must not block or call back into the store.
func (s *Store[S]) Update(fn func(*S)) {
	s.init()
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.value)
	s.version++

	// Sends never block, so signalling under the lock is safe and keeps
	// cancel from closing a channel mid-send.
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
			// A notification is already pending; the subscriber will read
			// the latest value anyway.
		}
	}
}

// Snapshot returns a copy of the current value.
func (s *Store[S]) Snapshot() S {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.clone != nil {
		return s.clone(s.value)
	}
	return s.value
}

// View calls fn with the current value under the read lock without copying.
// fn must not retain references into the value.
func (s *Store[S]) View(fn func(S)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.value)
}

// Version returns the number of updates applied so far.
func (s *Store[S]) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Subscribe registers for change notifications. The returned channel receives
// at most one pending signal; cancel unregisters and closes it.
func (s *Store[S]) Subscribe() (<-chan struct{}, func()) {
	s.init()
	ch := make(chan struct{}, 1)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}
