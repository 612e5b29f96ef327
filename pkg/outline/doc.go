// Package outline draws a tenant document as a Graphviz diagram for
// checking page structure without rendering the site.
//
// Each page becomes a cluster whose instances are chained in position
// order. Global families are dashed.
//
//	dot := outline.ToDOT(snap, outline.Options{Detailed: true})
//	svg, err := outline.RenderSVG(ctx, dot)
//
// SVG and PNG are rendered in process by [github.com/goccy/go-graphviz];
// PDF additionally needs rsvg-convert.
package outline
