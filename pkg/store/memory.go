package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/matzehuels/sitecraft/pkg/document"
)

// Memory is an in-process gateway. Documents are deep-copied on the way in
// and out.
type Memory struct {
	mu      sync.RWMutex
	tenants map[string]*document.Snapshot
	now     func() time.Time
}

// NewMemory returns an empty in-memory gateway.
func NewMemory() *Memory {
	return &Memory{tenants: map[string]*document.Snapshot{}, now: time.Now}
}

// Load returns a copy of the tenant's document.
func (m *Memory) Load(_ context.Context, tenantID string) (*document.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.tenants[tenantID]
	if !ok {
		return nil, fmt.Errorf("tenant %q: %w", tenantID, ErrNotFound)
	}
	return snap.Clone(), nil
}

// Save applies req.
func (m *Memory) Save(_ context.Context, req SaveRequest) (SaveResult, error) {
	if err := req.Validate(); err != nil {
		return SaveResult{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	next, res := Apply(m.tenants[req.TenantID], req, m.now())
	m.tenants[req.TenantID] = next
	return res, nil
}

// Tenants lists stored tenant ids.
func (m *Memory) Tenants() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.tenants))
	for id := range m.tenants {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close does nothing.
func (m *Memory) Close() error { return nil }

var _ Gateway = (*Memory)(nil)
