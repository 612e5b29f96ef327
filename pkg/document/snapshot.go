package document

import (
	"fmt"
	"maps"
	"sort"
	"time"

	"github.com/matzehuels/sitecraft/pkg/datamap"
)

// ThemeBackup is a saved copy of a tenant's pages and extras under a
// Theme{N}Backup key.
type ThemeBackup struct {
	Pages     map[string][]Instance     `json:"pages" bson:"pages"`
	Global    map[string]map[string]any `json:"globalComponentsData,omitempty" bson:"globalComponentsData,omitempty"`
	Layout    map[string]any            `json:"websiteLayout,omitempty" bson:"websiteLayout,omitempty"`
	CreatedAt time.Time                 `json:"createdAt" bson:"createdAt"`
}

// ThemeBackupKey returns the backup key for theme n, e.g. "Theme2Backup".
func ThemeBackupKey(n int) string { return fmt.Sprintf("Theme%dBackup", n) }

// Snapshot is the persisted form of a tenant document.
type Snapshot struct {
	TenantID     string                    `json:"tenantId" bson:"_id"`
	Pages        map[string][]Instance     `json:"pages" bson:"pages"`
	Global       map[string]map[string]any `json:"globalComponentsData,omitempty" bson:"globalComponentsData,omitempty"`
	Layout       map[string]any            `json:"websiteLayout,omitempty" bson:"websiteLayout,omitempty"`
	ThemeBackups map[string]ThemeBackup    `json:"themeBackups,omitempty" bson:"themeBackups,omitempty"`
	ActiveTheme  int                       `json:"activeTheme,omitempty" bson:"activeTheme,omitempty"`
	UpdatedAt    time.Time                 `json:"updatedAt" bson:"updatedAt"`
}

// Slugs returns the page slugs in lexical order.
func (s *Snapshot) Slugs() []string {
	slugs := make([]string, 0, len(s.Pages))
	for slug := range s.Pages {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs
}

// InstanceCount returns the number of instances across all pages.
func (s *Snapshot) InstanceCount() int {
	n := 0
	for _, insts := range s.Pages {
		n += len(insts)
	}
	return n
}

// Clone returns a deep copy of s.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := *s
	out.Pages = clonePages(s.Pages)
	out.Global = cloneGlobal(s.Global)
	out.Layout = datamap.Clone(s.Layout)
	if s.ThemeBackups != nil {
		out.ThemeBackups = make(map[string]ThemeBackup, len(s.ThemeBackups))
		for k, b := range s.ThemeBackups {
			out.ThemeBackups[k] = b.clone()
		}
	}
	return &out
}

// Normalize drops empty pages and renumbers positions in slice order after
// sorting each page by its stored position. It is applied to everything
// loaded from storage.
func (s *Snapshot) Normalize() {
	for slug, insts := range s.Pages {
		if len(insts) == 0 {
			delete(s.Pages, slug)
			continue
		}
		sorted := CloneInstances(insts)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })
		renumber(sorted)
		s.Pages[slug] = sorted
	}
}

func (b ThemeBackup) clone() ThemeBackup {
	return ThemeBackup{
		Pages:     clonePages(b.Pages),
		Global:    cloneGlobal(b.Global),
		Layout:    datamap.Clone(b.Layout),
		CreatedAt: b.CreatedAt,
	}
}

func cloneInstance(in Instance) Instance {
	in.Data = datamap.Clone(in.Data)
	return in
}

// CloneInstances deep-copies a page's instance slice.
func CloneInstances(insts []Instance) []Instance {
	out := make([]Instance, len(insts))
	for i, in := range insts {
		out[i] = cloneInstance(in)
	}
	return out
}

func clonePages(pages map[string][]Instance) map[string][]Instance {
	out := make(map[string][]Instance, len(pages))
	for slug, insts := range pages {
		out[slug] = CloneInstances(insts)
	}
	return out
}

func cloneGlobal(g map[string]map[string]any) map[string]map[string]any {
	if g == nil {
		return nil
	}
	out := make(map[string]map[string]any, len(g))
	for k, v := range g {
		out[k] = datamap.Clone(v)
	}
	return out
}

func renumber(insts []Instance) {
	for i := range insts {
		insts[i].Position = i
	}
}

// sortedKeys returns the keys of m in lexical order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range maps.Keys(m) {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
