package placement

import (
	"fmt"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/sitecraft/pkg/collision"
	"github.com/matzehuels/sitecraft/pkg/document"
	"github.com/matzehuels/sitecraft/pkg/errors"
	"github.com/matzehuels/sitecraft/pkg/geom"
)

// Document is the part of the document model the resolver needs.
type Document interface {
	Page(slug string) []document.Instance
	Move(page, id string, newIndex int) error
}

// Placement is where the dragged item lands relative to the winning target.
type Placement int

const (
	Stay Placement = iota
	Before
	After
)

var placementNames = [...]string{"stay", "before", "after"}

func (p Placement) String() string {
	if p < 0 || int(p) >= len(placementNames) {
		return fmt.Sprintf("placement(%d)", int(p))
	}
	return placementNames[p]
}

// MarshalText implements encoding.TextMarshaler.
func (p Placement) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// Decision is the resolved outcome of one frame.
type Decision struct {
	Collision collision.Collision `json:"collision"`
	Placement Placement           `json:"placement"`
	From      int                 `json:"from"`
	To        int                 `json:"to"`
}

// NoOp reports whether applying d leaves the page unchanged.
func (d Decision) NoOp() bool { return d.From == d.To }

// Frame is the drag state sampled at one animation frame.
type Frame struct {
	Active  geom.Rect      `json:"rect"`
	Pointer *geom.Point    `json:"pointer,omitempty"`
	Motion  geom.Direction `json:"motion,omitempty"`
	// Targets replaces the current drop targets when non-nil.
	Targets []collision.Target `json:"targets,omitempty"`
}

// Options configures a Resolver.
type Options struct {
	Collision collision.Options
	// Live applies each decision as soon as a frame produces it.
	Live   bool
	Logger *log.Logger
}

// Resolver arbitrates one drag gesture at a time. It is not safe for
// concurrent use; frames must not interleave.
type Resolver struct {
	det    *collision.Detector
	doc    Document
	live   bool
	logger *log.Logger

	active   bool
	page     string
	activeID string
	targets  []collision.Target

	staged    *Decision
	committed int
	dirty     bool

	last     *Frame
	lastDec  Decision
	lastHave bool
}

// New creates a resolver over doc.
func New(doc Document, opts Options) *Resolver {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Resolver{
		det:    collision.New(opts.Collision),
		doc:    doc,
		live:   opts.Live,
		logger: logger,
	}
}

// Detector returns the collision detector used for frames.
func (r *Resolver) Detector() *collision.Detector { return r.det }

// Active reports whether a drag is in progress.
func (r *Resolver) Active() bool { return r.active }

// ActiveID returns the id of the dragged instance, or "".
func (r *Resolver) ActiveID() string { return r.activeID }

// Page returns the slug of the page being reordered, or "".
func (r *Resolver) Page() string { return r.page }

// Begin starts dragging instance id on page against targets.
func (r *Resolver) Begin(page, id string, targets []collision.Target) error {
	if r.active {
		return errors.New(errors.ErrCodeInvalidInput, "drag of %s already in progress", r.activeID)
	}
	if indexOf(r.doc.Page(page), id) < 0 {
		return errors.New(errors.ErrCodeInstanceNotFound, "instance %s not found on page %q", id, page)
	}
	r.active = true
	r.page = page
	r.activeID = id
	r.targets = slices.Clone(targets)
	r.staged = nil
	r.committed = 0
	r.dirty = true
	r.last = nil
	r.lastHave = false
	r.logger.Debug("drag started", "page", page, "id", id, "index", i, "targets", len(targets))
	return nil
}

// MarkDirty forces the next frame to be evaluated even if it is identical
// to the previous one.
func (r *Resolver) MarkDirty() { r.dirty = true }

// Frame evaluates one frame and returns the resulting decision. The boolean
// is false when no target collides. In live mode a non-no-op decision is
// applied to the document before Frame returns.
func (r *Resolver) Frame(f Frame) (Decision, bool, error) {
	if !r.active {
		return Decision{}, false, errors.New(errors.ErrCodeInvalidInput, "no drag in progress")
	}
	changed := r.dirty || r.last == nil || !sameSample(*r.last, f)
	if f.Targets != nil {
		if !slices.Equal(f.Targets, r.targets) {
			changed = true
		}
		r.targets = slices.Clone(f.Targets)
	}
	if !changed {
		return r.lastDec, r.lastHave, nil
	}

	dec, ok := r.evaluate(f)
	if ok {
		r.staged = &dec
	} else {
		r.staged = nil
	}
	cached := dec
	if ok && r.live && !dec.NoOp() {
		if err := r.doc.Move(r.page, r.activeID, dec.To); err != nil {
			return Decision{}, false, err
		}
		r.committed++
		cached.From = dec.To
		r.logger.Debug("live move", "id", r.activeID, "from", dec.From, "to", dec.To)
	}

	snap := f
	snap.Targets = nil
	if f.Pointer != nil {
		p := *f.Pointer
		snap.Pointer = &p
	}
	r.last = &snap
	r.lastDec, r.lastHave = cached, ok
	r.dirty = false
	return dec, ok, nil
}

// Drop ends the drag. Outside live mode the last staged decision is applied
// as a single move. The returned decision is the last one seen; the boolean
// reports whether the document changed during the whole gesture.
func (r *Resolver) Drop() (Decision, bool, error) {
	if !r.active {
		return Decision{}, false, errors.New(errors.ErrCodeInvalidInput, "no drag in progress")
	}
	defer r.reset()

	var dec Decision
	if r.staged != nil {
		dec = *r.staged
	}
	if r.live {
		return dec, r.committed > 0, nil
	}
	if r.staged == nil {
		return dec, false, nil
	}
	// Re-resolve against the current order in case the page changed under us.
	if fresh, ok := r.decide(dec.Collision); ok {
		dec = fresh
	}
	if dec.NoOp() {
		return dec, false, nil
	}
	if err := r.doc.Move(r.page, r.activeID, dec.To); err != nil {
		return dec, false, err
	}
	r.logger.Debug("drop", "id", r.activeID, "from", dec.From, "to", dec.To)
	return dec, true, nil
}

// Cancel aborts the drag. Staged decisions are discarded; moves already
// applied in live mode are kept.
func (r *Resolver) Cancel() {
	if r.active {
		r.logger.Debug("drag cancelled", "id", r.activeID, "committed", r.committed)
	}
	r.reset()
}

func (r *Resolver) reset() {
	r.active = false
	r.page = ""
	r.activeID = ""
	r.targets = nil
	r.staged = nil
	r.committed = 0
	r.last = nil
	r.lastHave = false
	r.dirty = false
}

func (r *Resolver) evaluate(f Frame) (Decision, bool) {
	in := collision.Input{
		ActiveID: r.activeID,
		Active:   f.Active,
		Pointer:  f.Pointer,
		Motion:   f.Motion,
	}
	best, ok := collision.Best(r.det.DetectAll(in, r.targets))
	if !ok {
		return Decision{}, false
	}
	return r.decide(best)
}

// decide maps a collision onto an index in the current page order.
func (r *Resolver) decide(c collision.Collision) (Decision, bool) {
	insts := r.doc.Page(r.page)
	from := indexOf(insts, r.activeID)
	if from < 0 {
		return Decision{}, false
	}
	dec := Decision{Collision: c, Placement: Stay, From: from, To: from}
	if c.TargetID == r.activeID {
		return dec, true
	}

	rest := slices.Delete(slices.Clone(insts), from, from+1)
	t := indexOf(rest, c.TargetID)
	if t < 0 {
		return Decision{}, false
	}
	switch c.Direction {
	case geom.Up, geom.Left:
		dec.Placement, dec.To = Before, t
	case geom.Down, geom.Right:
		dec.Placement, dec.To = After, t+1
	}
	return dec, true
}

// sameSample compares the pointer-derived part of two frames.
func sameSample(prev, next Frame) bool {
	if prev.Active != next.Active || prev.Motion != next.Motion {
		return false
	}
	if (prev.Pointer == nil) != (next.Pointer == nil) {
		return false
	}
	return prev.Pointer == nil || *prev.Pointer == *next.Pointer
}

func indexOf(insts []document.Instance, id string) int {
	return slices.IndexFunc(insts, func(in document.Instance) bool { return in.ID == id })
}
