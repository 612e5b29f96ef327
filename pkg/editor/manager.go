package editor

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/sitecraft/pkg/errors"
	"github.com/matzehuels/sitecraft/pkg/store"
)

// Manager keeps one session per tenant.
type Manager struct {
	gw   store.Gateway
	opts Options

	mu       sync.Mutex
	sessions map[string]*Session
	loads    singleflight.Group
}

// NewManager returns a manager opening sessions through gw.
func NewManager(gw store.Gateway, opts Options) *Manager {
	return &Manager{
		gw:       gw,
		opts:     opts.withDefaults(),
		sessions: make(map[string]*Session),
	}
}

// Gateway returns the persistence gateway sessions use.
func (m *Manager) Gateway() store.Gateway { return m.gw }

// Open returns the tenant's session, loading it on first use. Concurrent
// opens of a tenant share one load.
func (m *Manager) Open(ctx context.Context, tenantID string) (*Session, error) {
	if err := errors.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}
	if s, ok := m.Get(tenantID); ok {
		return s, nil
	}
	v, err, _ := m.loads.Do(tenantID, func() (any, error) {
		if s, ok := m.Get(tenantID); ok {
			return s, nil
		}
		s, err := Open(ctx, m.gw, tenantID, m.opts)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.sessions[tenantID] = s
		m.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

// Get returns an open session without loading.
func (m *Manager) Get(tenantID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[tenantID]
	return s, ok
}

// Tenants lists the tenants with an open session.
func (m *Manager) Tenants() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Close flushes and closes one tenant's session.
func (m *Manager) Close(ctx context.Context, tenantID string) error {
	m.mu.Lock()
	s, ok := m.sessions[tenantID]
	delete(m.sessions, tenantID)
	m.mu.Unlock()
	if !ok {
		return errors.New(errors.ErrCodeTenantNotFound, "no open session for tenant %s", tenantID)
	}
	return s.Close(ctx)
}

// CloseAll flushes and closes every session in parallel and returns the
// first error. A failing tenant does not cancel the other flushes.
func (m *Manager) CloseAll(ctx context.Context) error {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	var g errgroup.Group
	for _, s := range sessions {
		g.Go(func() error { return s.Close(ctx) })
	}
	return g.Wait()
}
