// Package families holds the built-in component families and their default
// data.
//
// Defaults are data, not code: they live in an embedded TOML file and are
// decoded once with BurntSushi/toml. Every [document.Type] must have a
// family, so default data is always defined.
package families

import (
	_ "embed"
	"sort"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/sitecraft/pkg/datamap"
	"github.com/matzehuels/sitecraft/pkg/document"
	"github.com/matzehuels/sitecraft/pkg/errors"
)

//go:embed defaults.toml
var builtinTOML []byte

// Family describes one component family.
type Family struct {
	Type document.Type
	// Global families keep their data in the tenant's shared component data.
	Global bool
	// Variants is the number of visual variants, numbered from 1.
	Variants int

	defaults  map[string]any
	overrides map[string]map[string]any
}

// Defaults returns the default data of variant, a fresh copy on each call.
// Unknown variants get the family defaults.
func (f *Family) Defaults(variant string) map[string]any {
	return datamap.Merge(f.defaults, f.overrides[variant])
}

// HasVariant reports whether name is one of the family's variants.
func (f *Family) HasVariant(name string) bool {
	base, n, err := document.ParseVariant(name)
	return err == nil && base == f.Type.BaseName() && n >= 1 && n <= f.Variants
}

// VariantNames lists the family's variant names in order.
func (f *Family) VariantNames() []string {
	names := make([]string, f.Variants)
	for i := range names {
		names[i] = f.Type.Variant(i + 1)
	}
	return names
}

// Registry maps types to families.
type Registry struct {
	families map[document.Type]*Family
}

type familyFile struct {
	Global    bool                      `toml:"global"`
	Variants  int                       `toml:"variants"`
	Defaults  map[string]any            `toml:"defaults"`
	Overrides map[string]map[string]any `toml:"overrides"`
}

// Load decodes a families TOML document. Every known component type must
// be present and declare at least one variant.
func Load(data []byte) (*Registry, error) {
	var raw map[string]familyFile
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode families")
	}

	r := &Registry{families: make(map[document.Type]*Family, len(raw))}
	for key, ff := range raw {
		t, err := document.ParseType(key)
		if err != nil {
			return nil, err
		}
		if ff.Variants < 1 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "family %q declares no variants", key)
		}
		for name := range ff.Overrides {
			if err := document.CheckVariant(t, name); err != nil {
				return nil, err
			}
		}
		defaults := ff.Defaults
		if defaults == nil {
			defaults = map[string]any{}
		}
		r.families[t] = &Family{
			Type:      t,
			Global:    ff.Global,
			Variants:  ff.Variants,
			defaults:  defaults,
			overrides: ff.Overrides,
		}
	}
	for _, t := range document.Types {
		if _, ok := r.families[t]; !ok {
			return nil, errors.New(errors.ErrCodeInvalidInput, "missing family %q", t)
		}
	}
	return r, nil
}

var builtin = sync.OnceValue(func() *Registry {
	r, err := Load(builtinTOML)
	if err != nil {
		panic("families: invalid embedded defaults: " + err.Error())
	}
	return r
})

// Builtin returns the registry decoded from the embedded defaults.
func Builtin() *Registry { return builtin() }

// Get returns the family of t.
func (r *Registry) Get(t document.Type) (*Family, bool) {
	f, ok := r.families[t]
	return f, ok
}

// Lookup returns the family owning variant name, e.g. "hero2".
func (r *Registry) Lookup(variant string) (*Family, bool) {
	base, _, err := document.ParseVariant(variant)
	if err != nil {
		return nil, false
	}
	return r.Get(document.Type(base))
}

// Global lists the families whose data is shared tenant-wide.
func (r *Registry) Global() []document.Type {
	var out []document.Type
	for t, f := range r.families {
		if f.Global {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// All returns every family in registry order.
func (r *Registry) All() []*Family {
	out := make([]*Family, 0, len(r.families))
	for _, t := range document.Types {
		out = append(out, r.families[t])
	}
	return out
}
