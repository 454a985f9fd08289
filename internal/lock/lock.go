// Package lock guards an operation so only one caller runs it per key.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrHeld is returned when another caller holds the key.
var ErrHeld = errors.New("lock already held")

// Locker hands out exclusive, expiring holds on keys. Release must be called
// once the operation finishes; holds also lapse after the locker's TTL.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

type Memory struct {
	mu   sync.Mutex
	held map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{held: make(map[string]time.Time), ttl: ttl, now: time.Now}
}

func (m *Memory) Acquire(_ context.Context, key string) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if until, ok := m.held[key]; ok && now.Before(until) {
		return nil, ErrHeld
	}
	until := now.Add(m.ttl)
	m.held[key] = until

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			if m.held[key] == until {
				delete(m.held, key)
			}
			m.mu.Unlock()
		})
	}, nil
}
