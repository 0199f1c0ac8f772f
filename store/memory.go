package store

import (
	"context"
	"sync"

	"github.com/effective-security/mcpagent/pkg/llms"
	"github.com/effective-security/mcpagent/pkg/metricskey"
)

type inMemory struct {
	mu      sync.RWMutex
	storage map[string][]*Memory
	max     int
}

// NewMemoryStore returns a process local store.
func NewMemoryStore() MemoryStore {
	return &inMemory{max: DefaultMaxMemories}
}

func (m *inMemory) Search(ctx context.Context, query, userID string, limit int) ([]*Memory, error) {
	defer metricskey.PerfMemorySearch.MeasureSince(TimeNowFn(), "memory")
	if err := checkUser(userID); err != nil {
		return nil, searchFailed(ctx, "memory", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return Rank(query, m.storage[userID], limit), nil
}

func (m *inMemory) AddMessages(ctx context.Context, msgs []llms.Message, userID string) error {
	list, err := NewMemories(msgs, userID)
	if err != nil {
		return addFailed(ctx, "memory", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storage == nil {
		// create on first use
		m.storage = make(map[string][]*Memory)
	}
	all := append(m.storage[userID], list...)
	if len(all) > m.max {
		all = append([]*Memory(nil), all[len(all)-m.max:]...)
	}
	m.storage[userID] = all
	return nil
}

func (m *inMemory) Reset(_ context.Context, userID string) error {
	if err := checkUser(userID); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storage != nil {
		delete(m.storage, userID)
	}
	return nil
}
