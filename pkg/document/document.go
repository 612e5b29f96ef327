package document

import (
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/sitecraft/pkg/changelog"
	"github.com/matzehuels/sitecraft/pkg/datamap"
	"github.com/matzehuels/sitecraft/pkg/errors"
)

// DefaultTheme is the theme number a tenant starts with.
const DefaultTheme = 1

// Document is the canonical page tree of one tenant.
type Document struct {
	mu       sync.RWMutex
	tenantID string
	pages    map[string][]Instance
	ids      map[string]string // instance id -> page slug
	global   map[string]map[string]any
	layout   map[string]any
	backups  map[string]ThemeBackup
	theme    int
	deleted  map[string]bool // pages to delete on next save
	rev      uint64

	rec    changelog.Recorder
	logger *log.Logger
	now    func() time.Time
}

// Option configures a Document.
type Option func(*Document)

// WithRecorder sets the change-log recorder. Without it entries are discarded.
func WithRecorder(r changelog.Recorder) Option {
	return func(d *Document) {
		if r != nil {
			d.rec = r
		}
	}
}

// WithLogger sets the logger used for structural errors.
func WithLogger(l *log.Logger) Option {
	return func(d *Document) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithClock overrides the time source used for theme backups.
func WithClock(now func() time.Time) Option {
	return func(d *Document) { d.now = now }
}

// New creates an empty document for tenantID.
func New(tenantID string, opts ...Option) *Document {
	d := &Document{
		tenantID: tenantID,
		pages:    map[string][]Instance{},
		ids:      map[string]string{},
		backups:  map[string]ThemeBackup{},
		theme:    DefaultTheme,
		deleted:  map[string]bool{},
		rec:      changelog.Discard,
		logger:   log.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// FromSnapshot builds a document from persisted state. Empty pages are
// dropped, positions are renumbered and instances without an id get one.
// Duplicate instance ids are rejected.
func FromSnapshot(snap *Snapshot, opts ...Option) (*Document, error) {
	if snap == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "nil snapshot")
	}
	s := snap.Clone()
	if s.Pages == nil {
		s.Pages = map[string][]Instance{}
	}
	s.Normalize()

	d := New(s.TenantID, opts...)
	for _, slug := range s.Slugs() {
		insts := s.Pages[slug]
		for i := range insts {
			if insts[i].ID == "" {
				insts[i].ID = NewID()
			}
			if other, dup := d.ids[insts[i].ID]; dup {
				return nil, errors.New(errors.ErrCodeInvalidInput,
					"instance %s appears on pages %q and %q", insts[i].ID, other, slug)
			}
			d.ids[insts[i].ID] = slug
		}
		d.pages[slug] = insts
	}
	d.global = s.Global
	d.layout = s.Layout
	if s.ThemeBackups != nil {
		d.backups = s.ThemeBackups
	}
	if s.ActiveTheme > 0 {
		d.theme = s.ActiveTheme
	}
	return d, nil
}

type event struct {
	typ     changelog.Type
	payload changelog.Payload
}

// emit records events outside the lock so subscribers may read the document.
func (d *Document) emit(events ...event) {
	for _, e := range events {
		d.rec.Record(e.typ, e.payload)
	}
}

// fail records a structural error and returns err unchanged.
func (d *Document) fail(err error, detail changelog.Payload) error {
	p := maps.Clone(detail)
	if p == nil {
		p = changelog.Payload{}
	}
	p["code"] = string(errors.GetCode(err))
	p["message"] = errors.UserMessage(err)
	d.rec.Record(changelog.Error, p)
	d.logger.Warn("document operation rejected", "tenant", d.tenantID, "op", detail["op"], "err", err)
	return err
}

// Insert places inst on page at index, shifting later instances down. The
// page is created when absent. index must be within [0, len(page)]. An empty
// inst.ID is replaced with a fresh id. The stored instance is returned.
func (d *Document) Insert(page string, inst Instance, index int) (Instance, error) {
	detail := changelog.Payload{"op": "insert", "page": page, "index": index, "componentName": inst.ComponentName}
	if err := errors.ValidateSlug(page); err != nil {
		return Instance{}, d.fail(err, detail)
	}
	if err := CheckVariant(inst.Type, inst.ComponentName); err != nil {
		return Instance{}, d.fail(err, detail)
	}
	inst = cloneInstance(inst)
	if inst.ID == "" {
		inst.ID = NewID()
	}
	detail["id"] = inst.ID

	d.mu.Lock()
	if other, dup := d.ids[inst.ID]; dup {
		d.mu.Unlock()
		return Instance{}, d.fail(errors.New(errors.ErrCodeInvalidInput,
			"instance %s already exists on page %q", inst.ID, other), detail)
	}
	cur := d.pages[page]
	if index < 0 || index > len(cur) {
		d.mu.Unlock()
		return Instance{}, d.fail(errors.New(errors.ErrCodeInvalidInput,
			"insert index %d out of range [0, %d]", index, len(cur)), detail)
	}

	next := slices.Concat(cur[:index], []Instance{inst}, cur[index:])
	renumber(next)
	created := len(cur) == 0
	d.pages[page] = next
	d.ids[inst.ID] = page
	delete(d.deleted, page)
	d.rev++
	stored := cloneInstance(next[index])
	d.mu.Unlock()

	var events []event
	if created {
		events = append(events, event{changelog.PageCreated, changelog.Payload{"page": page}})
	}
	events = append(events, event{changelog.ComponentAdded, changelog.Payload{
		"page":          page,
		"id":            stored.ID,
		"type":          string(stored.Type),
		"componentName": stored.ComponentName,
		"position":      stored.Position,
	}})
	d.emit(events...)
	return stored, nil
}

// Remove deletes instance id from page and renumbers the instances after it.
// Removing the last instance deletes the page.
func (d *Document) Remove(page, id string) (Instance, error) {
	detail := changelog.Payload{"op": "remove", "page": page, "id": id}

	d.mu.Lock()
	cur := d.pages[page]
	i := indexOf(cur, id)
	if i < 0 {
		d.mu.Unlock()
		return Instance{}, d.fail(notFound(page, id), detail)
	}
	removed := cur[i]
	next := slices.Concat(cur[:i], cur[i+1:])
	renumber(next)
	delete(d.ids, id)
	pageDeleted := len(next) == 0
	if pageDeleted {
		delete(d.pages, page)
		d.deleted[page] = true
	} else {
		d.pages[page] = next
	}
	d.rev++
	d.mu.Unlock()

	events := []event{{changelog.ComponentDeleted, changelog.Payload{
		"page":          page,
		"id":            id,
		"type":          string(removed.Type),
		"componentName": removed.ComponentName,
		"position":      removed.Position,
	}}}
	if pageDeleted {
		events = append(events, event{changelog.PageDeleted, changelog.Payload{"page": page, "reason": "empty"}})
	}
	d.emit(events...)
	return cloneInstance(removed), nil
}

// Move reorders instance id to newIndex within page. It is observably one
// remove+insert and records a single moved entry. Moving to the current
// index is a no-op.
func (d *Document) Move(page, id string, newIndex int) error {
	detail := changelog.Payload{"op": "move", "page": page, "id": id, "newIndex": newIndex}

	d.mu.Lock()
	cur := d.pages[page]
	i := indexOf(cur, id)
	if i < 0 {
		d.mu.Unlock()
		return d.fail(notFound(page, id), detail)
	}
	if newIndex < 0 || newIndex >= len(cur) {
		d.mu.Unlock()
		return d.fail(errors.New(errors.ErrCodeInvalidInput,
			"move index %d out of range [0, %d]", newIndex, len(cur)-1), detail)
	}
	if newIndex == i {
		d.mu.Unlock()
		return nil
	}
	item := cur[i]
	rest := slices.Concat(cur[:i], cur[i+1:])
	next := slices.Concat(rest[:newIndex], []Instance{item}, rest[newIndex:])
	renumber(next)
	d.pages[page] = next
	d.rev++
	d.mu.Unlock()

	d.emit(event{changelog.ComponentMoved, changelog.Payload{
		"page":          page,
		"id":            id,
		"componentName": item.ComponentName,
		"oldPosition":   i,
		"newPosition":   newIndex,
	}})
	return nil
}

// Transfer moves instance id from page from to page to at index. The
// source page is deleted when it empties and the target page is created when
// absent. Transfers within one page are plain moves.
func (d *Document) Transfer(from, id, to string, index int) error {
	if from == to {
		return d.Move(from, id, index)
	}
	detail := changelog.Payload{"op": "transfer", "page": from, "toPage": to, "id": id, "index": index}
	if err := errors.ValidateSlug(to); err != nil {
		return d.fail(err, detail)
	}

	d.mu.Lock()
	src := d.pages[from]
	i := indexOf(src, id)
	if i < 0 {
		d.mu.Unlock()
		return d.fail(notFound(from, id), detail)
	}
	dst := d.pages[to]
	if index < 0 || index > len(dst) {
		d.mu.Unlock()
		return d.fail(errors.New(errors.ErrCodeInvalidInput,
			"transfer index %d out of range [0, %d]", index, len(dst)), detail)
	}

	item := src[i]
	nextSrc := slices.Concat(src[:i], src[i+1:])
	renumber(nextSrc)
	nextDst := slices.Concat(dst[:index], []Instance{item}, dst[index:])
	renumber(nextDst)

	created := len(dst) == 0
	srcDeleted := len(nextSrc) == 0
	if srcDeleted {
		delete(d.pages, from)
		d.deleted[from] = true
	} else {
		d.pages[from] = nextSrc
	}
	d.pages[to] = nextDst
	delete(d.deleted, to)
	d.ids[id] = to
	d.rev++
	d.mu.Unlock()

	var events []event
	if created {
		events = append(events, event{changelog.PageCreated, changelog.Payload{"page": to}})
	}
	events = append(events, event{changelog.ComponentMoved, changelog.Payload{
		"page":          from,
		"toPage":        to,
		"id":            id,
		"componentName": item.ComponentName,
		"oldPosition":   i,
		"newPosition":   index,
	}})
	if srcDeleted {
		events = append(events, event{changelog.PageDeleted, changelog.Payload{"page": from, "reason": "empty"}})
	}
	d.emit(events...)
	return nil
}

// Update applies fn to a copy of instance id and stores the result. fn may
// change ComponentName, Data and Layout; ID, Type and Position are
// restored afterwards. fn must not call back into the Document.
func (d *Document) Update(page, id string, fn func(*Instance)) (Instance, error) {
	detail := changelog.Payload{"op": "update", "page": page, "id": id}

	d.mu.Lock()
	cur := d.pages[page]
	i := indexOf(cur, id)
	if i < 0 {
		d.mu.Unlock()
		return Instance{}, d.fail(notFound(page, id), detail)
	}
	before := cur[i]
	after := cloneInstance(before)
	fn(&after)
	after.ID, after.Type, after.Position = before.ID, before.Type, before.Position
	if err := CheckVariant(after.Type, after.ComponentName); err != nil {
		d.mu.Unlock()
		return Instance{}, d.fail(err, detail)
	}
	next := slices.Clone(cur)
	next[i] = after
	d.pages[page] = next
	d.rev++
	d.mu.Unlock()

	d.emit(event{changelog.ComponentUpdated, changelog.Payload{
		"page":   page,
		"id":     id,
		"before": changelog.Payload{"componentName": before.ComponentName, "layout": before.Layout},
		"after":  changelog.Payload{"componentName": after.ComponentName, "layout": after.Layout},
	}})
	return cloneInstance(after), nil
}

// DeletePage removes page and all its instances and returns how many were
// dropped. Deleting an absent page is a no-op.
func (d *Document) DeletePage(page string) int {
	d.mu.Lock()
	cur, ok := d.pages[page]
	if !ok {
		d.mu.Unlock()
		return 0
	}
	for _, in := range cur {
		delete(d.ids, in.ID)
	}
	delete(d.pages, page)
	d.deleted[page] = true
	d.rev++
	d.mu.Unlock()

	d.emit(event{changelog.PageDeleted, changelog.Payload{"page": page, "instances": len(cur)}})
	return len(cur)
}

// SetGlobal replaces the tenant-wide shared data of component family t.
func (d *Document) SetGlobal(t Type, data map[string]any) {
	d.mu.Lock()
	next := cloneGlobal(d.global)
	if next == nil {
		next = map[string]map[string]any{}
	}
	next[string(t)] = datamap.Clone(data)
	d.global = next
	d.rev++
	d.mu.Unlock()

	d.emit(event{changelog.ComponentUpdated, changelog.Payload{"scope": "global", "type": string(t)}})
}

// Global returns a copy of the shared data of family t, or nil.
func (d *Document) Global(t Type) map[string]any {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return datamap.Clone(d.global[string(t)])
}

// SetWebsiteLayout replaces the tenant's website layout/branding settings.
func (d *Document) SetWebsiteLayout(layout map[string]any) {
	d.mu.Lock()
	d.layout = datamap.Clone(layout)
	d.rev++
	d.mu.Unlock()

	d.emit(event{changelog.UserAction, changelog.Payload{"action": "website_layout_updated"}})
}

// WebsiteLayout returns a copy of the website layout settings.
func (d *Document) WebsiteLayout() map[string]any {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return datamap.Clone(d.layout)
}

// TenantID returns the owning tenant.
func (d *Document) TenantID() string { return d.tenantID }

// Revision increases by one on every successful mutation.
func (d *Document) Revision() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.rev
}

// Page returns a copy of the instances of slug in position order, or nil.
func (d *Document) Page(slug string) []Instance {
	d.mu.RLock()
	defer d.mu.RUnlock()
	cur, ok := d.pages[slug]
	if !ok {
		return nil
	}
	return CloneInstances(cur)
}

// Pages returns the slugs of all non-empty pages in lexical order.
func (d *Document) Pages() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return sortedKeys(d.pages)
}

// Has reports whether page exists.
func (d *Document) Has(page string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.pages[page]
	return ok
}

// Len returns the number of instances on page.
func (d *Document) Len(page string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.pages[page])
}

// IndexOf returns the position of id on page, or -1.
func (d *Document) IndexOf(page, id string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return indexOf(d.pages[page], id)
}

// Find locates instance id anywhere in the document.
func (d *Document) Find(id string) (Instance, string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	page, ok := d.ids[id]
	if !ok {
		return Instance{}, "", false
	}
	i := indexOf(d.pages[page], id)
	return cloneInstance(d.pages[page][i]), page, true
}

// PendingDeletes returns pages deleted since the last MarkSaved, in lexical
// order.
func (d *Document) PendingDeletes() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return sortedKeys(d.deleted)
}

// MarkSaved clears the pending deletion of slugs that were persisted.
// Pages recreated in the meantime are unaffected.
func (d *Document) MarkSaved(deleted []string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, slug := range deleted {
		if _, exists := d.pages[slug]; !exists {
			delete(d.deleted, slug)
		}
	}
}

// Snapshot returns a deep copy of the document in persisted form.
func (d *Document) Snapshot() *Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	snap := &Snapshot{
		TenantID:    d.tenantID,
		Pages:       clonePages(d.pages),
		Global:      cloneGlobal(d.global),
		Layout:      datamap.Clone(d.layout),
		ActiveTheme: d.theme,
	}
	if len(d.backups) > 0 {
		snap.ThemeBackups = make(map[string]ThemeBackup, len(d.backups))
		for k, b := range d.backups {
			snap.ThemeBackups[k] = b.clone()
		}
	}
	return snap
}

func indexOf(insts []Instance, id string) int {
	for i, in := range insts {
		if in.ID == id {
			return i
		}
	}
	return -1
}

func notFound(page, id string) error {
	return errors.New(errors.ErrCodeInstanceNotFound, "instance %s not found on page %q", id, page)
}
