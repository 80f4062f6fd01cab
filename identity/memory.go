package identity

import (
	"context"
	"sync"
)

// MemoryLookup is a map-backed Lookup for development and tests.
type MemoryLookup struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryLookup creates a lookup seeded with records.
func NewMemoryLookup(records ...Record) *MemoryLookup {
	lookup := &MemoryLookup{records: make(map[string]Record, len(records))}
	for _, record := range records {
		lookup.records[record.ID] = record
	}
	return lookup
}

// Put inserts or replaces a record.
func (m *MemoryLookup) Put(record Record) {
	m.mu.Lock()
	m.records[record.ID] = record
	m.mu.Unlock()
}

// Delete removes a record.
func (m *MemoryLookup) Delete(id string) {
	m.mu.Lock()
	delete(m.records, id)
	m.mu.Unlock()
}

// Find implements Lookup.
func (m *MemoryLookup) Find(ctx context.Context, subjectID string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	m.mu.RLock()
	record, ok := m.records[subjectID]
	m.mu.RUnlock()
	if !ok {
		return Record{}, ErrNotFound
	}
	return record, nil
}
