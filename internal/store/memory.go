package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"serprank/internal/models"
)

// MemoryStore keeps everything in process memory. Used by tests and by
// the CLI, which has no reason to persist across runs.
type MemoryStore struct {
	mu         sync.RWMutex
	current    *models.ScanState
	history    []*models.ScanState
	historyCap int
}

func NewMemory(historyCap int) *MemoryStore {
	return &MemoryStore{historyCap: historyCap}
}

func (m *MemoryStore) SaveCurrent(_ context.Context, s *models.ScanState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = clone(s)
	return nil
}

func (m *MemoryStore) LoadCurrent(_ context.Context) (*models.ScanState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil, ErrNotFound
	}
	return clone(m.current), nil
}

func (m *MemoryStore) ClearCurrent(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = nil
	return nil
}

func (m *MemoryStore) AppendHistory(_ context.Context, s *models.ScanState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.history = append(m.history, clone(s))
	sort.SliceStable(m.history, func(i, j int) bool {
		return m.history[i].StartedAt.After(m.history[j].StartedAt)
	})
	if len(m.history) > m.historyCap {
		m.history = m.history[:m.historyCap]
	}
	return nil
}

func (m *MemoryStore) History(_ context.Context) ([]*models.ScanState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.ScanState, len(m.history))
	for i, s := range m.history {
		out[i] = clone(s)
	}
	return out, nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*models.ScanState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.history {
		if s.ID == id {
			return clone(s), nil
		}
	}
	if m.current != nil && m.current.ID == id {
		return clone(m.current), nil
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) Close() error { return nil }

// clone round-trips through JSON so callers never share slices or maps
// with the store.
func clone(s *models.ScanState) *models.ScanState {
	blob, _ := json.Marshal(s)
	var out models.ScanState
	_ = json.Unmarshal(blob, &out)
	return &out
}
