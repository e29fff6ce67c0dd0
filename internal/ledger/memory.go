package ledger

import (
	"context"
	"sync"
)

// MemoryStore is an in-process ledger. Nothing survives a restart; it backs
// tests and runs where durable tracking is explicitly not wanted.
type MemoryStore struct {
	mu    sync.Mutex
	users map[string]map[string]Record
}

func NewMemory() *MemoryStore {
	return &MemoryStore{users: make(map[string]map[string]Record)}
}

func (m *MemoryStore) Snapshot(_ context.Context, userID string) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot(userID), nil
}

func (m *MemoryStore) Record(_ context.Context, userID string, key string, rec Record) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	records, ok := m.users[userID]
	if !ok {
		records = make(map[string]Record)
		m.users[userID] = records
	}
	if existing, ok := records[key]; ok {
		rec.PlayCount = existing.PlayCount + 1
	} else if rec.PlayCount == 0 {
		rec.PlayCount = 1
	}
	records[key] = rec

	return m.snapshot(userID), nil
}

func (m *MemoryStore) Close() {}

func (m *MemoryStore) snapshot(userID string) *Snapshot {
	snap := NewSnapshot()
	for key, rec := range m.users[userID] {
		snap.records[key] = rec
	}
	return snap
}
