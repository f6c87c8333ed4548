package storage

import (
	"context"
	"sync"
	"time"

	"github.com/cyberpaste/cyberpaste/models"
)

// MemoryStore implements PasteStore with a process-local map. It is the
// reference backend: the contract tests run against it, and it backs
// single-node deployments that can afford to lose pastes on restart.
type MemoryStore struct {
	mu     sync.RWMutex
	pastes map[string]*models.Paste
}

// NewMemoryStore creates an empty in-memory storage backend.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{pastes: make(map[string]*models.Paste)}
}

// Insert saves a paste, rejecting duplicate ids.
func (m *MemoryStore) Insert(ctx context.Context, paste *models.Paste) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.pastes[paste.ID]; ok {
		return ErrDuplicateID
	}
	m.pastes[paste.ID] = paste.Clone()
	return nil
}

// Get retrieves a paste by id, or (nil, nil) when absent.
func (m *MemoryStore) Get(ctx context.Context, id string) (*models.Paste, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.pastes[id].Clone(), nil
}

// Exists checks if a paste exists by id.
func (m *MemoryStore) Exists(ctx context.Context, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.pastes[id]
	return ok, nil
}

// Delete removes a paste. Absent ids are a no-op.
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.pastes, id)
	return nil
}

// IncrementViews bumps the view counter under the write lock, which makes
// the read-modify-write atomic with respect to concurrent increments.
func (m *MemoryStore) IncrementViews(ctx context.Context, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.pastes[id]
	if !ok {
		return 0, ErrNotFound
	}
	p.Views++
	return p.Views, nil
}

// CountAll returns the number of stored records.
func (m *MemoryStore) CountAll(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return int64(len(m.pastes)), nil
}

// ScanExpired returns ids of records dead as of now.
func (m *MemoryStore) ScanExpired(ctx context.Context, now time.Time) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var expired []string
	for id, p := range m.pastes {
		if !p.IsLive(now) {
			expired = append(expired, id)
		}
	}
	return expired, nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}
