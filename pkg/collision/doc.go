// Package collision decides whether a dragged component collides with a
// candidate drop target, and with what priority.
//
// # Overview
//
// A [Detector] evaluates one (dragged shape, target shape) pair at a time
// and returns a [Collision] or reports no collision. The evaluation is pure:
// it depends only on the [Input] and the [Target] passed in, plus the
// tuning [Options] the detector was created with.
//
// # Rules
//
// Targets are evaluated in this order:
//
//  1. Targets with an empty shape (not yet laid out) are skipped.
//  2. Self target: the dragged item against its own slot collides only with
//     positive intersection, at [Highest] priority.
//  3. Primary: positive intersection and the dragged item's leading edge (or
//     the pointer, when known) has crossed the target's midpoint by
//     [Options.MidpointOffset] in the direction of travel. Reported at [High]
//     with the intersection ratio as value.
//  4. Fallback: the shapes overlap along the list's axis. Ranked by
//     nearest-corner distance; [Low] when there is also positive
//     intersection, [Lowest] otherwise.
//
// # Ranking
//
// [Less] orders two collisions: higher priority always wins, equal priorities
// are broken by larger value. [Best] picks the winner from a slice.
package collision
