package editor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/sitecraft/pkg/document"
	"github.com/matzehuels/sitecraft/pkg/errors"
	"github.com/matzehuels/sitecraft/pkg/store"
)

func TestManagerSharesLoads(t *testing.T) {
	rec := newRecording(seeded(t))
	m := NewManager(rec, quietOptions())

	const n = 10
	got := make([]*Session, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := m.Open(context.Background(), "acme")
			if err != nil {
				t.Errorf("Open: %v", err)
				return
			}
			got[i] = s
		}()
	}
	wg.Wait()

	if loads := rec.loads.Load(); loads != 1 {
		t.Errorf("gateway loads = %d, want 1", loads)
	}
	for i := 1; i < n; i++ {
		if got[i] != got[0] {
			t.Fatalf("Open() returned different sessions")
		}
	}
	if tenants := m.Tenants(); len(tenants) != 1 || tenants[0] != "acme" {
		t.Errorf("Tenants() = %v", tenants)
	}
}

func TestManagerOpenErrors(t *testing.T) {
	m := NewManager(store.NewMemory(), quietOptions())
	_, err := m.Open(context.Background(), "")
	if !errors.Is(err, errors.ErrCodeInvalidTenant) {
		t.Errorf("Open(\"\") error = %v, want INVALID_TENANT", err)
	}
	if err := m.Close(context.Background(), "ghost"); !errors.IsNotFound(err) {
		t.Errorf("Close(ghost) error = %v", err)
	}
}

func TestManagerCloseAllFlushes(t *testing.T) {
	mem := store.NewMemory()
	m := NewManager(mem, quietOptions())
	for _, tenant := range []string{"acme", "globex"} {
		s, err := m.Open(context.Background(), tenant)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := s.Insert("homepage", document.NewInstance(document.Hero, 1), 0); err != nil {
			t.Fatal(err)
		}
	}
	if err := m.CloseAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := mem.Tenants(); len(got) != 2 {
		t.Errorf("stored tenants = %v", got)
	}
	if got := m.Tenants(); len(got) != 0 {
		t.Errorf("open tenants after CloseAll = %v", got)
	}
}

// slowFailGateway fails saves for one tenant and delays the rest.
type slowFailGateway struct {
	store.Gateway
	bad   string
	delay time.Duration
}

func (g *slowFailGateway) Save(ctx context.Context, req store.SaveRequest) (store.SaveResult, error) {
	if req.TenantID == g.bad {
		return store.SaveResult{}, errors.New(errors.ErrCodeStorage, "disk full")
	}
	select {
	case <-ctx.Done():
		return store.SaveResult{}, ctx.Err()
	case <-time.After(g.delay):
	}
	return g.Gateway.Save(ctx, req)
}

func TestManagerCloseAllIsolatesFailures(t *testing.T) {
	mem := store.NewMemory()
	m := NewManager(&slowFailGateway{Gateway: mem, bad: "bad", delay: 50 * time.Millisecond}, quietOptions())
	for _, tenant := range []string{"bad", "good"} {
		s, err := m.Open(context.Background(), tenant)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := s.Insert("homepage", document.NewInstance(document.Hero, 1), 0); err != nil {
			t.Fatal(err)
		}
	}

	err := m.CloseAll(context.Background())
	if !errors.Is(err, errors.ErrCodeStorage) {
		t.Errorf("CloseAll error = %v, want STORAGE_ERROR", err)
	}
	snap, err := mem.Load(context.Background(), "good")
	if err != nil {
		t.Fatalf("good tenant not saved: %v", err)
	}
	if len(snap.Pages["homepage"]) != 1 {
		t.Errorf("good tenant pages = %v", snap.Pages)
	}
}
