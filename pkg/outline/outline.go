package outline

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/matzehuels/sitecraft/pkg/document"
)

// Options configures outline generation.
type Options struct {
	// Detailed adds position, short id and grid layout to each label.
	Detailed bool
	// Global lists the families drawn dashed. Nil means header and footer.
	Global []document.Type
}

func (o Options) global(t document.Type) bool {
	if o.Global == nil {
		return t == document.Header || t == document.Footer
	}
	return slices.Contains(o.Global, t)
}

// attr is one DOT attribute; order is preserved so output is stable.
type attr struct{ key, value string }

func (a attr) String() string { return a.key + "=" + strconv.Quote(a.value) }

func attrList(attrs []attr) string {
	parts := make([]string, len(attrs))
	for i, a := range attrs {
		parts[i] = a.String()
	}
	return strings.Join(parts, ", ")
}

var (
	graphAttrs  = []attr{{"rankdir", "TB"}, {"bgcolor", "transparent"}, {"ranksep", "0.3"}, {"nodesep", "0.3"}}
	nodeAttrs   = []attr{{"shape", "box"}, {"style", "rounded,filled"}, {"fillcolor", "white"}, {"fontsize", "14"}, {"margin", "0.2,0.1"}}
	sharedAttrs = []attr{{"style", "rounded,filled,dashed"}, {"fillcolor", "lightgrey"}}
)

// ToDOT draws snap as one cluster per page, in slug order, with the page's
// instances chained in position order.
func ToDOT(snap *document.Snapshot, opts Options) string {
	var b strings.Builder
	b.WriteString("digraph G {\n")
	for _, a := range graphAttrs {
		fmt.Fprintf(&b, "  %s;\n", a)
	}
	fmt.Fprintf(&b, "  node [%s];\n", attrList(nodeAttrs))

	for i, slug := range snap.Slugs() {
		fmt.Fprintf(&b, "\n  subgraph \"cluster_%d\" {\n    %s;\n    style=\"rounded\";\n", i, attr{"label", "/" + slug})
		var prev string
		for _, in := range snap.Pages[slug] {
			id := strconv.Quote(slug + "/" + in.ID)
			node := []attr{{"label", label(in, opts.Detailed)}}
			if opts.global(in.Type) {
				node = append(node, sharedAttrs...)
			}
			fmt.Fprintf(&b, "    %s [%s];\n", id, attrList(node))
			if prev != "" {
				fmt.Fprintf(&b, "    %s -> %s [arrowhead=none];\n", prev, id)
			}
			prev = id
		}
		b.WriteString("  }\n")
	}
	b.WriteString("}\n")
	return b.String()
}

func label(in document.Instance, detailed bool) string {
	if !detailed {
		return in.ComponentName
	}
	id := in.ID
	if len(id) > 8 {
		id = id[:8]
	}
	l := in.Layout
	return fmt.Sprintf("%s\n#%d %s\nrow %d col %d span %d", in.ComponentName, in.Position, id, l.Row, l.Col, l.Span)
}
