// Package renderer maps (type, variant) pairs to renderers through an
// explicit dispatch table.
//
// Lookups never fail: an unknown pair resolves to [Missing], which renders
// nothing. [RenderPage] renders a page instance by instance and degrades a
// missing or failing renderer to an empty placeholder, so one broken variant
// never takes the page down.
package renderer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/sitecraft/pkg/document"
	"github.com/matzehuels/sitecraft/pkg/families"
)

// Renderer writes the markup of one instance from its effective data.
type Renderer interface {
	Render(w io.Writer, data map[string]any) error
}

// Func adapts a function to Renderer.
type Func func(w io.Writer, data map[string]any) error

// Render calls f.
func (f Func) Render(w io.Writer, data map[string]any) error { return f(w, data) }

type missing struct{}

func (missing) Render(io.Writer, map[string]any) error { return nil }

// Missing is the renderer returned for unregistered variants.
var Missing Renderer = missing{}

// IsMissing reports whether r is the Missing sentinel.
func IsMissing(r Renderer) bool { return r == Missing }

// Key identifies a dispatch table entry.
type Key struct {
	Type    document.Type
	Variant string
}

func (k Key) String() string { return fmt.Sprintf("%s/%s", k.Type, k.Variant) }

// Registry is the dispatch table. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[Key]Renderer
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: map[Key]Renderer{}}
}

// Register adds or replaces the renderer of (t, variant).
func (r *Registry) Register(t document.Type, variant string, rd Renderer) error {
	if err := document.CheckVariant(t, variant); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[Key{t, variant}] = rd
	return nil
}

// Lookup returns the renderer of (t, variant), or Missing.
func (r *Registry) Lookup(t document.Type, variant string) Renderer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if rd, ok := r.entries[Key{t, variant}]; ok && rd != nil {
		return rd
	}
	return Missing
}

// Len returns the number of registered renderers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

//go:embed templates/*.html
var templateFS embed.FS

var builtinTemplates = sync.OnceValue(func() *template.Template {
	return template.Must(template.New("components").ParseFS(templateFS, "templates/*.html"))
})

// Template renders one named template of set with the instance data.
type Template struct {
	set  *template.Template
	name string
}

// Render executes the template.
func (t Template) Render(w io.Writer, data map[string]any) error {
	return t.set.ExecuteTemplate(w, t.name, data)
}

// Builtin registers a template renderer for every variant of every family
// in fams. A template named after the variant ("hero3") wins over the
// family template ("hero").
func Builtin(fams *families.Registry) *Registry {
	if fams == nil {
		fams = families.Builtin()
	}
	set := builtinTemplates()
	r := NewRegistry()
	for _, f := range fams.All() {
		for _, name := range f.VariantNames() {
			tmpl := name
			if set.Lookup(tmpl) == nil {
				tmpl = f.Type.BaseName()
			}
			if set.Lookup(tmpl) == nil {
				continue
			}
			r.entries[Key{f.Type, name}] = Template{set: set, name: tmpl}
		}
	}
	return r
}

// DataFunc returns the effective data of an instance.
type DataFunc func(document.Instance) map[string]any

// Report summarizes a RenderPage call.
type Report struct {
	Rendered int      `json:"rendered"`
	Missing  []string `json:"missing,omitempty"`
	Failed   []string `json:"failed,omitempty"`
}

// RenderPage renders insts in position order. Each instance is wrapped in a
// section carrying its id and variant. Missing renderers leave the section
// empty; a renderer that errors or panics is logged and its partial output
// discarded. Only write errors on w are returned.
func (r *Registry) RenderPage(w io.Writer, insts []document.Instance, data DataFunc, logger *log.Logger) (Report, error) {
	if logger == nil {
		logger = log.Default()
	}
	var rep Report
	for _, inst := range insts {
		rd := r.Lookup(inst.Type, inst.ComponentName)
		var body bytes.Buffer
		switch {
		case IsMissing(rd):
			rep.Missing = append(rep.Missing, inst.ComponentName)
			logger.Debug("no renderer", "type", inst.Type, "variant", inst.ComponentName)
		default:
			if err := safeRender(rd, &body, data(inst)); err != nil {
				body.Reset()
				rep.Failed = append(rep.Failed, inst.ComponentName)
				logger.Warn("render failed", "id", inst.ID, "variant", inst.ComponentName, "err", err)
			} else {
				rep.Rendered++
			}
		}
		if _, err := fmt.Fprintf(w, "<section data-id=\"%s\" data-component=\"%s\">%s</section>\n",
			template.HTMLEscapeString(inst.ID), template.HTMLEscapeString(inst.ComponentName), body.Bytes()); err != nil {
			return rep, err
		}
	}
	return rep, nil
}

func safeRender(rd Renderer, w io.Writer, data map[string]any) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("renderer panic: %v", p)
		}
	}()
	return rd.Render(w, data)
}
