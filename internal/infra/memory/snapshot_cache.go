package memory

import (
	"context"
	"sync"

	"trivia-board-service/internal/domain"
)

// SnapshotCache keeps client snapshots in process memory.
type SnapshotCache struct {
	mu      sync.RWMutex
	entries map[string]domain.Snapshot
}

func NewSnapshotCache() *SnapshotCache {
	return &SnapshotCache{entries: make(map[string]domain.Snapshot)}
}

func (c *SnapshotCache) Get(_ context.Context, key string) (domain.Snapshot, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap, ok := c.entries[key]
	return snap, ok, nil
}

func (c *SnapshotCache) Set(_ context.Context, key string, snap domain.Snapshot) error {
	data := append([]byte(nil), snap.Data...)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = domain.Snapshot{Data: data, StoredAt: snap.StoredAt}
	return nil
}

func (c *SnapshotCache) Invalidate(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}
