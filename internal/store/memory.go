// internal/store/memory.go
package store

import (
	"context"
	"sync"
)

// Memory is an in-process Store used for local matches and tests. Semantics
// mirror the Redis implementation: CAS on version, echo to all subscribers.
type Memory struct {
	mu   sync.Mutex
	docs map[string]Snapshot
	subs map[string][]chan Snapshot
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		docs: make(map[string]Snapshot),
		subs: make(map[string][]chan Snapshot),
	}
}

func (m *Memory) Create(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[key]; ok {
		return ErrExists
	}
	snap := Snapshot{Value: append([]byte(nil), value...), Version: 1}
	m.docs[key] = snap
	m.notify(key, snap)
	return nil
}

func (m *Memory) Read(_ context.Context, key string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.docs[key]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return Snapshot{Value: append([]byte(nil), snap.Value...), Version: snap.Version}, nil
}

func (m *Memory) Update(_ context.Context, key string, value []byte, expect int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.docs[key]
	if !ok {
		return 0, ErrNotFound
	}
	if cur.Version != expect {
		return 0, ErrConflict
	}
	snap := Snapshot{Value: append([]byte(nil), value...), Version: cur.Version + 1}
	m.docs[key] = snap
	m.notify(key, snap)
	return snap.Version, nil
}

func (m *Memory) Subscribe(_ context.Context, key string) (<-chan Snapshot, func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan Snapshot, 16)
	if snap, ok := m.docs[key]; ok {
		ch <- snap
	}
	m.subs[key] = append(m.subs[key], ch)

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		chans := m.subs[key]
		for i, c := range chans {
			if c == ch {
				m.subs[key] = append(chans[:i], chans[i+1:]...)
				close(c)
				return
			}
		}
	}
	return ch, cancel, nil
}

// notify fans a snapshot out to every subscriber without blocking; a slow
// consumer drops updates rather than stalling the writer. Caller holds mu.
func (m *Memory) notify(key string, snap Snapshot) {
	for _, ch := range m.subs[key] {
		select {
		case ch <- snap:
		default:
		}
	}
}
