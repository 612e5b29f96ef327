// Package layered computes the effective data of component instances from
// four layers and holds the live editor state those layers read from.
//
// Precedence, lowest first, applied key by key with nested objects merged:
//
//  1. family defaults (always defined)
//  2. persisted tenant data: the instance's data, or the tenant's global
//     component data for global families such as header and footer
//  3. live editor state
//  4. caller props
//
// Every family uses the same order. The live store is keyed by variant id,
// which is the instance id. Writes replace the store's map wholesale, so a
// reader never observes a half-applied update.
package layered

import (
	"maps"
	"sync"

	"github.com/matzehuels/sitecraft/pkg/datamap"
	"github.com/matzehuels/sitecraft/pkg/document"
	"github.com/matzehuels/sitecraft/pkg/errors"
	"github.com/matzehuels/sitecraft/pkg/families"
)

// Store is the live-state store of one editor session.
type Store struct {
	reg *families.Registry

	mu        sync.RWMutex
	live      map[string]map[string]any
	variants  map[string]string // variant id -> component name
	clipboard map[document.Type]map[string]any
	rev       uint64
}

// NewStore creates an empty store. A nil registry uses the built-in
// families.
func NewStore(reg *families.Registry) *Store {
	if reg == nil {
		reg = families.Builtin()
	}
	return &Store{
		reg:       reg,
		live:      map[string]map[string]any{},
		variants:  map[string]string{},
		clipboard: map[document.Type]map[string]any{},
	}
}

// Registry returns the family registry the store resolves defaults from.
func (s *Store) Registry() *families.Registry { return s.reg }

// Family returns the handle every component family uses to reach its live
// state. Unknown types get empty defaults.
func (s *Store) Family(t document.Type) *FamilyStore {
	f, ok := s.reg.Get(t)
	if !ok {
		f = &families.Family{Type: t}
	}
	return &FamilyStore{s: s, f: f}
}

// Bind records the variant name of id so defaults include the variant's
// overrides. The editor binds every instance it loads or inserts.
func (s *Store) Bind(id, componentName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.variants[id] == componentName {
		return
	}
	next := maps.Clone(s.variants)
	next[id] = componentName
	s.variants = next
}

// SetClipboard stores data to seed the next EnsureVariant of family t.
func (s *Store) SetClipboard(t document.Type, data map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := maps.Clone(s.clipboard)
	next[t] = datamap.Clone(data)
	s.clipboard = next
}

// Clipboard returns the pending clipboard value of family t without
// consuming it.
func (s *Store) Clipboard(t document.Type) (map[string]any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.clipboard[t]
	return datamap.Clone(v), ok
}

// Live returns a copy of the live entry of id.
func (s *Store) Live(id string) (map[string]any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.live[id]
	return datamap.Clone(v), ok
}

// Entries returns a copy of every live entry.
func (s *Store) Entries() map[string]map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]map[string]any, len(s.live))
	for id, v := range s.live {
		out[id] = datamap.Clone(v)
	}
	return out
}

// Revision increases whenever a live entry is written or dropped.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rev
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.live)
}

// Forget drops the live entry and binding of id.
func (s *Store) Forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live[id]; ok {
		next := maps.Clone(s.live)
		delete(next, id)
		s.live = next
		s.rev++
	}
	if _, ok := s.variants[id]; ok {
		next := maps.Clone(s.variants)
		delete(next, id)
		s.variants = next
	}
}

// Reset drops all live state, bindings and clipboard values.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live = map[string]map[string]any{}
	s.variants = map[string]string{}
	s.clipboard = map[document.Type]map[string]any{}
	s.rev++
}

// Resolve returns the effective data of inst. global is the tenant's shared
// data for inst's family and is used as the persisted layer of global
// families; props are caller overrides and may be nil.
func (s *Store) Resolve(inst document.Instance, global, props map[string]any) map[string]any {
	fs := s.Family(inst.Type)
	persisted := inst.Data
	if fs.f.Global {
		persisted = global
	}
	s.mu.RLock()
	live := s.live[inst.ID]
	s.mu.RUnlock()
	return datamap.Merge(fs.f.Defaults(inst.ComponentName), persisted, live, props)
}

func (s *Store) put(id string, data map[string]any) {
	next := maps.Clone(s.live)
	next[id] = data
	s.live = next
	s.rev++
}

// FamilyStore exposes the four live-state operations of one family.
type FamilyStore struct {
	s *Store
	f *families.Family
}

// Type returns the family type.
func (fs *FamilyStore) Type() document.Type { return fs.f.Type }

// Global reports whether the family keeps its data tenant-wide.
func (fs *FamilyStore) Global() bool { return fs.f.Global }

// Defaults returns the default data for variantID.
func (fs *FamilyStore) Defaults(variantID string) map[string]any {
	fs.s.mu.RLock()
	name := fs.s.variants[variantID]
	fs.s.mu.RUnlock()
	return fs.f.Defaults(name)
}

// EnsureVariant seeds the live entry of variantID unless one exists. The
// seed is initial when non-nil, else a pending clipboard value of the family
// (which is consumed), else the family defaults. The current entry is
// returned.
func (fs *FamilyStore) EnsureVariant(variantID string, initial map[string]any) map[string]any {
	defaults := fs.Defaults(variantID)

	fs.s.mu.Lock()
	defer fs.s.mu.Unlock()
	if cur, ok := fs.s.live[variantID]; ok {
		return datamap.Clone(cur)
	}
	var seed map[string]any
	switch clip, hasClip := fs.s.clipboard[fs.f.Type]; {
	case initial != nil:
		seed = datamap.Clone(initial)
	case hasClip:
		seed = clip
		next := maps.Clone(fs.s.clipboard)
		delete(next, fs.f.Type)
		fs.s.clipboard = next
	default:
		seed = defaults
	}
	fs.s.put(variantID, seed)
	return datamap.Clone(seed)
}

// GetData returns the live entry of variantID merged over the defaults, or
// the defaults alone. It never returns nil.
func (fs *FamilyStore) GetData(variantID string) map[string]any {
	defaults := fs.Defaults(variantID)
	fs.s.mu.RLock()
	defer fs.s.mu.RUnlock()
	return datamap.Merge(defaults, fs.s.live[variantID])
}

// SetData replaces the live entry of variantID.
func (fs *FamilyStore) SetData(variantID string, data map[string]any) {
	cp := datamap.Clone(data)
	if cp == nil {
		cp = map[string]any{}
	}
	fs.s.mu.Lock()
	defer fs.s.mu.Unlock()
	fs.s.put(variantID, cp)
}

// UpdateByPath sets one dot-separated path in the live entry of variantID,
// starting from the defaults when there is no entry. Missing intermediate
// objects are created. The new entry is returned.
func (fs *FamilyStore) UpdateByPath(variantID, path string, value any) (map[string]any, error) {
	if err := errors.ValidateDataPath(path); err != nil {
		return nil, err
	}
	defaults := fs.Defaults(variantID)

	fs.s.mu.Lock()
	defer fs.s.mu.Unlock()
	base, ok := fs.s.live[variantID]
	if !ok {
		base = defaults
	}
	next := datamap.Set(base, path, value)
	fs.s.put(variantID, next)
	return datamap.Clone(next), nil
}
