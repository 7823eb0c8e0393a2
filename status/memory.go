package status

import (
	"context"
	"sync/atomic"
)

// MemoryStore keeps the record for the process lifetime.
type MemoryStore struct {
	slot atomic.Pointer[Record]
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Read(context.Context) Record {
	rec := m.slot.Load()
	if rec == nil {
		return Default()
	}
	return rec.clone()
}

func (m *MemoryStore) Write(_ context.Context, rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	stored := rec.clone()
	m.slot.Store(&stored)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
