// Package registry keeps per-visitor state objects (student sessions, teacher
// consoles) between HTTP requests.
package registry

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUnknown = errors.New("unknown or expired session")
	ErrBusy    = errors.New("session busy")
)

type entry[T any] struct {
	mu   sync.Mutex
	val  T
	seen time.Time
}

// Registry maps opaque ids to values. Calls through Do are serialized per id,
// so a value never sees two requests at once. Entries idle for longer than
// the TTL are dropped the next time an entry is added or looked up.
type Registry[T any] struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items map[string]*entry[T]
}

func New[T any](ttl time.Duration) *Registry[T] {
	return &Registry[T]{ttl: ttl, now: time.Now, items: map[string]*entry[T]{}}
}

// Add stores v under a fresh id.
func (r *Registry[T]) Add(v T) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneLocked()
	id := uuid.NewString()
	r.items[id] = &entry[T]{val: v, seen: r.now()}
	return id
}

// Do runs fn with the value stored under id, waiting for any call already
// running on it.
func (r *Registry[T]) Do(id string, fn func(T) error) error {
	e, err := r.touch(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.val)
}

// TryDo is Do without the wait: it returns ErrBusy when another call holds
// the entry.
func (r *Registry[T]) TryDo(id string, fn func(T) error) error {
	e, err := r.touch(id)
	if err != nil {
		return err
	}
	if !e.mu.TryLock() {
		return ErrBusy
	}
	defer e.mu.Unlock()
	return fn(e.val)
}

func (r *Registry[T]) touch(id string) (*entry[T], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.items[id]
	if ok && r.expired(e) {
		delete(r.items, id)
		ok = false
	}
	if !ok {
		return nil, ErrUnknown
	}
	e.seen = r.now()
	return e, nil
}

func (r *Registry[T]) Remove(id string) {
	r.mu.Lock()
	delete(r.items, id)
	r.mu.Unlock()
}

func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

func (r *Registry[T]) expired(e *entry[T]) bool {
	return r.ttl > 0 && r.now().Sub(e.seen) > r.ttl
}

func (r *Registry[T]) pruneLocked() {
	for id, e := range r.items {
		if r.expired(e) {
			delete(r.items, id)
		}
	}
}
