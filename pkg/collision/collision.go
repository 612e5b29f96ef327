package collision

import (
	"fmt"

	"github.com/matzehuels/sitecraft/pkg/geom"
)

// Priority ranks collisions. Higher priorities always outrank lower ones
// regardless of value.
type Priority int

const (
	Lowest Priority = iota
	Low
	High
	Highest
)

var priorityNames = [...]string{"lowest", "low", "high", "highest"}

func (p Priority) String() string {
	if p < 0 || int(p) >= len(priorityNames) {
		return fmt.Sprintf("priority(%d)", int(p))
	}
	return priorityNames[p]
}

// MarshalText implements encoding.TextMarshaler.
func (p Priority) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// Collision is the outcome of evaluating one drop target.
type Collision struct {
	TargetID  string         `json:"target_id"`
	Value     float64        `json:"value"`
	Priority  Priority       `json:"priority"`
	Direction geom.Direction `json:"direction"`
}

// Target is a candidate drop target.
type Target struct {
	ID   string    `json:"id"`
	Rect geom.Rect `json:"rect"`
}

// Input describes the dragged item for one evaluation.
type Input struct {
	// ActiveID is the id of the dragged instance.
	ActiveID string
	// Active is the dragged item's current bounding shape.
	Active geom.Rect
	// Pointer is the drag pointer position, if known.
	Pointer *geom.Point
	// Motion is the tracked recent movement direction, or geom.None.
	Motion geom.Direction
}

// DefaultMidpointOffset is the fraction of the target's size the dragged
// item must travel past the target's center to trigger a primary collision.
const DefaultMidpointOffset = 0.05

// Options tunes the detector.
type Options struct {
	// MidpointOffset is a fraction of the target's size along the axis.
	MidpointOffset float64
	// Axis is the flow direction of the list being reordered.
	Axis geom.Axis
}

// Detector evaluates collisions between a dragged item and drop targets.
type Detector struct {
	opts Options
}

// New returns a detector. A zero or negative MidpointOffset is replaced by
// DefaultMidpointOffset.
func New(opts Options) *Detector {
	if opts.MidpointOffset <= 0 {
		opts.MidpointOffset = DefaultMidpointOffset
	}
	return &Detector{opts: opts}
}

// Options returns the detector's effective options.
func (d *Detector) Options() Options { return d.opts }

// Detect evaluates in against target. The boolean is false when there is
// no collision, including when target has not been laid out yet.
func (d *Detector) Detect(in Input, target Target) (Collision, bool) {
	targetArea := target.Rect.Area()
	if targetArea <= 0 {
		return Collision{}, false
	}

	inter := in.Active.Intersect(target.Rect).Area()
	ratio := inter / targetArea
	dir := d.direction(in, target.Rect)

	if target.ID == in.ActiveID {
		if inter <= 0 {
			return Collision{}, false
		}
		return Collision{TargetID: target.ID, Value: ratio, Priority: Highest, Direction: dir}, true
	}

	if inter > 0 && d.crossed(in, target.Rect, dir) {
		return Collision{TargetID: target.ID, Value: ratio, Priority: High, Direction: dir}, true
	}

	if !d.axisOverlap(in.Active, target.Rect) {
		return Collision{}, false
	}
	c := Collision{
		TargetID:  target.ID,
		Value:     1 / (1 + in.Active.CornerDistance(target.Rect)),
		Priority:  Lowest,
		Direction: dir,
	}
	if inter > 0 {
		c.Priority = Low
	}
	return c, true
}

// DetectAll evaluates every target and returns the collisions found, in
// target order.
func (d *Detector) DetectAll(in Input, targets []Target) []Collision {
	var out []Collision
	for _, t := range targets {
		if c, ok := d.Detect(in, t); ok {
			out = append(out, c)
		}
	}
	return out
}

// direction prefers the tracked motion. Without it, the item is assumed to
// approach from the side its center is on: an item centered below the
// target travels up.
func (d *Detector) direction(in Input, target geom.Rect) geom.Direction {
	if in.Motion != geom.None {
		return in.Motion
	}
	delta := target.Center().Sub(in.Active.Center())
	return geom.DirectionOf(delta, d.opts.Axis)
}

// crossed reports whether the leading edge of the dragged item (or the
// pointer) is past the target's midpoint by the configured offset.
func (d *Detector) crossed(in Input, target geom.Rect, dir geom.Direction) bool {
	off := d.opts.MidpointOffset
	ref := func(edge float64, pick func(geom.Point) float64) float64 {
		if in.Pointer != nil {
			return pick(*in.Pointer)
		}
		return edge
	}
	px := func(p geom.Point) float64 { return p.X }
	py := func(p geom.Point) float64 { return p.Y }

	switch dir {
	case geom.Up:
		return ref(in.Active.Top, py) <= target.CenterY()-off*target.Height()
	case geom.Down:
		return ref(in.Active.Bottom, py) >= target.CenterY()+off*target.Height()
	case geom.Left:
		return ref(in.Active.Left, px) <= target.CenterX()-off*target.Width()
	case geom.Right:
		return ref(in.Active.Right, px) >= target.CenterX()+off*target.Width()
	}
	return false
}

// axisOverlap checks projection overlap along the list's flow axis.
func (d *Detector) axisOverlap(a, b geom.Rect) bool {
	if d.opts.Axis == geom.Horizontal {
		return a.OverlapX(b)
	}
	return a.OverlapY(b)
}

// Less reports whether a ranks below b: lower priority, or equal priority
// and smaller value. Ties on both fall back to target id for determinism.
func Less(a, b Collision) bool {
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	if a.Value != b.Value {
		return a.Value < b.Value
	}
	return a.TargetID > b.TargetID
}

// Best returns the highest-ranked collision.
func Best(cs []Collision) (Collision, bool) {
	if len(cs) == 0 {
		return Collision{}, false
	}
	best := cs[0]
	for _, c := range cs[1:] {
		if Less(best, c) {
			best = c
		}
	}
	return best, true
}
