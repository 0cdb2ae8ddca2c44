// Package eventlock serializes capacity-sensitive work per event.
package eventlock

import (
	"context"
	"errors"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var ErrLockTimeout = errors.New("event_lock_timeout")

// Locker grants exclusive access to one event at a time. The returned
// release func must be called exactly once.
type Locker interface {
	Acquire(ctx context.Context, eventID snowflake.ID) (release func(), err error)
}

type entry struct {
	ch   chan struct{}
	refs int
}

// KeyedMutex is an in-process Locker. Entries are dropped when no goroutine
// holds or waits on them.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[snowflake.ID]*entry
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[snowflake.ID]*entry)}
}

func (m *KeyedMutex) Acquire(ctx context.Context, eventID snowflake.ID) (func(), error) {
	m.mu.Lock()
	e, ok := m.entries[eventID]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		m.entries[eventID] = e
	}
	e.refs++
	m.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		m.unref(eventID, e)
		return nil, ErrLockTimeout
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			m.unref(eventID, e)
		})
	}, nil
}

func (m *KeyedMutex) unref(eventID snowflake.ID, e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(m.entries, eventID)
	}
}

// Size reports how many events currently have holders or waiters.
func (m *KeyedMutex) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
