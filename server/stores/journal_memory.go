package stores

import (
	"context"
	"sync"
)

// DefaultMemoryEntries caps a MemoryJournal built without WithMaxEntries.
const DefaultMemoryEntries = 1000

type MemoryOption func(*MemoryJournal)

// WithMaxEntries bounds the journal; the oldest entry is evicted on overflow.
// n <= 0 disables the bound.
func WithMaxEntries(n int) MemoryOption {
	return func(m *MemoryJournal) { m.max = n }
}

// MemoryJournal keeps reports in process memory.
type MemoryJournal struct {
	mu      sync.RWMutex
	entries map[string]Entry
	order   []string
	max     int
}

func NewMemoryJournal(opts ...MemoryOption) *MemoryJournal {
	m := &MemoryJournal{entries: make(map[string]Entry), max: DefaultMemoryEntries}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemoryJournal) Append(ctx context.Context, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.entries[entry.ID]; exists {
		return ErrReportExists
	}
	m.entries[entry.ID] = entry
	m.order = append(m.order, entry.ID)
	for m.max > 0 && len(m.order) > m.max {
		delete(m.entries, m.order[0])
		m.order = m.order[1:]
	}
	return nil
}

func (m *MemoryJournal) Get(ctx context.Context, id string) (Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok {
		return Entry{}, ErrReportNotFound
	}
	return e, nil
}

func (m *MemoryJournal) List(ctx context.Context, limit int) ([]Entry, error) {
	m.mu.RLock()
	entries := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		entries = append(entries, e)
	}
	m.mu.RUnlock()
	return newestFirst(entries, limit), nil
}

func (m *MemoryJournal) Close() error { return nil }

var _ Journal = (*MemoryJournal)(nil)
