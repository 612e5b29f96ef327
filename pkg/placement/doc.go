// Package placement turns per-frame collision results into Document Model
// moves.
//
// A [Resolver] drives one drag gesture at a time:
//
//	r := placement.New(doc, placement.Options{})
//	r.Begin("homepage", footerID, targets)
//	r.Frame(placement.Frame{Active: rect})  // once per animation frame
//	r.Drop()                                // or r.Cancel()
//
// Each frame runs the collision detector against every target, picks the
// best collision and converts it into an insert-before, insert-after or
// no-op [Decision]. The new index is computed on the page with the dragged
// item removed, so a decision that would put the item back where it already
// is comes out as a no-op. This keeps frames idempotent when the pointer
// does not move.
//
// By default decisions are staged and only the last one is applied on
// [Resolver.Drop]. With [Options.Live] every non-no-op decision is applied
// immediately; [Resolver.Cancel] then keeps the last committed order.
//
// The resolver caches the last frame. An identical frame is not evaluated
// again unless the resolver is dirty, which happens when the host reports a
// layout change with [Resolver.MarkDirty]. The flag is cleared once the
// resulting mutation (if any) has been applied.
package placement
