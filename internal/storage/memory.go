package storage

import (
	"context"
	"sync"
	"time"

	"github.com/dharsanguruparan/VideoGate/internal/model"
)

// MemoryStore keeps records in a map guarded by an RWMutex. It backs tests
// and the STORE_BACKEND=memory development mode. Readers (Get, ListByOwner)
// take the shared lock and may run concurrently; writers take the exclusive
// lock. Records are copied on the way in and out so callers never share a
// pointer with the map.
type MemoryStore struct {
	mu     sync.RWMutex
	videos map[string]*model.Video
	now    func() time.Time
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		videos: make(map[string]*model.Video),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Put inserts or replaces a record.
func (m *MemoryStore) Put(_ context.Context, video *model.Video) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Dereferencing copies the struct; storing the caller's pointer would let
	// later edits to it change the stored record.
	copied := *video
	m.videos[video.ID] = &copied
	return nil
}

// Get returns a copy of the record, or nil when absent.
func (m *MemoryStore) Get(_ context.Context, id string) (*model.Video, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	// A map lookup returns (value, ok); a missing id is not an error here,
	// matching the other stores' nil, nil.
	rec, ok := m.videos[id]
	if !ok {
		return nil, nil
	}
	copied := *rec
	return &copied, nil
}

// UpdateStatus sets status and the update timestamp together.
func (m *MemoryStore) UpdateStatus(_ context.Context, id string, status model.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.videos[id]
	if !ok {
		return ErrNotFound
	}
	rec.Status = status
	rec.UpdatedAt = m.now()
	return nil
}

// ListByOwner walks every record. Map iteration order is random in Go, so the
// result has no defined order.
func (m *MemoryStore) ListByOwner(_ context.Context, ownerID string) ([]model.Video, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	// make with length 0 yields an empty slice rather than nil, which encodes as
	// [] instead of null.
	out := make([]model.Video, 0)
	for _, rec := range m.videos {
		if rec.OwnerID == ownerID {
			out = append(out, *rec)
		}
	}
	return out, nil
}
