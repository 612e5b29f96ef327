// Package editor owns the per-tenant editing state.
//
// A [Session] ties together one tenant's document, change log, live-state
// store and placement resolver, and drives saves through a persistence
// gateway. Sessions are explicit values with an Open/Close lifetime; there
// is no process-wide state, so several tenants can be edited in one process.
//
// A [Manager] hands out sessions by tenant id. Concurrent opens of the same
// tenant share one load.
package editor

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/sitecraft/pkg/changelog"
	"github.com/matzehuels/sitecraft/pkg/collision"
	"github.com/matzehuels/sitecraft/pkg/datamap"
	"github.com/matzehuels/sitecraft/pkg/document"
	"github.com/matzehuels/sitecraft/pkg/errors"
	"github.com/matzehuels/sitecraft/pkg/families"
	"github.com/matzehuels/sitecraft/pkg/layered"
	"github.com/matzehuels/sitecraft/pkg/observability"
	"github.com/matzehuels/sitecraft/pkg/placement"
	"github.com/matzehuels/sitecraft/pkg/renderer"
	"github.com/matzehuels/sitecraft/pkg/store"
)

// Defaults for Options.
const (
	DefaultSaveDebounce = 1500 * time.Millisecond
	DefaultSaveTimeout  = 30 * time.Second
)

// Options configures sessions.
type Options struct {
	// ChangelogSize is the ring capacity of the change log.
	ChangelogSize int
	// AutoSave schedules a debounced save after every change.
	AutoSave bool
	// SaveDebounce is the quiet period before an automatic save.
	SaveDebounce time.Duration
	// Placement configures drag resolution.
	Placement placement.Options
	// Families supplies default data. Nil uses the built-in families.
	Families *families.Registry
	// Renderers is the dispatch table for RenderPage. Nil uses the
	// built-in templates.
	Renderers *renderer.Registry
	Logger    *log.Logger
}

func (o Options) withDefaults() Options {
	if o.ChangelogSize <= 0 {
		o.ChangelogSize = changelog.DefaultCapacity
	}
	if o.SaveDebounce <= 0 {
		o.SaveDebounce = DefaultSaveDebounce
	}
	if o.Families == nil {
		o.Families = families.Builtin()
	}
	if o.Renderers == nil {
		o.Renderers = renderer.Builtin(o.Families)
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	if o.Placement.Logger == nil {
		o.Placement.Logger = o.Logger
	}
	return o
}

// Session is the editing state of one tenant.
type Session struct {
	tenantID string
	gw       store.Gateway
	opts     Options
	logger   *log.Logger

	doc      *document.Document
	log      *changelog.Log
	live     *layered.Store
	resolver *placement.Resolver
	unsub    func()

	dragMu sync.Mutex

	running chan struct{}

	saveMu       sync.Mutex
	requested    uint64
	completed    uint64
	lastRes      store.SaveResult
	lastErr      error
	savedDocRev  uint64
	savedLiveRev uint64
	timer        *time.Timer
	closed       bool
}

// Open loads tenantID through gw and starts a session. A tenant without a
// stored document starts empty.
func Open(ctx context.Context, gw store.Gateway, tenantID string, opts Options) (*Session, error) {
	if err := errors.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	start := time.Now()
	snap, err := gw.Load(ctx, tenantID)
	observability.Editor().OnLoad(ctx, tenantID, time.Since(start), err)
	switch {
	case store.IsNotFound(err):
		opts.Logger.Info("new tenant", "tenant", tenantID)
		snap = &document.Snapshot{TenantID: tenantID}
	case err != nil:
		return nil, err
	}
	snap.TenantID = tenantID
	return newSession(gw, snap, opts)
}

func newSession(gw store.Gateway, snap *document.Snapshot, opts Options) (*Session, error) {
	s := &Session{
		tenantID: snap.TenantID,
		gw:       gw,
		opts:     opts,
		logger:   opts.Logger.With("tenant", snap.TenantID),
		log:      changelog.New(opts.ChangelogSize),
		live:     layered.NewStore(opts.Families),
		running:  make(chan struct{}, 1),
	}
	doc, err := document.FromSnapshot(snap, document.WithRecorder(s.log), document.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}
	s.doc = doc
	s.resolver = placement.New(doc, opts.Placement)
	s.bindAll()
	s.savedDocRev = doc.Revision()
	s.savedLiveRev = s.live.Revision()
	s.unsub = s.log.Subscribe(s.onEntry)
	s.logger.Debug("session opened", "pages", len(doc.Pages()))
	return s, nil
}

// bindAll binds every instance of the document and seeds its live state
// from the persisted layer, so live edits start from stored data.
func (s *Session) bindAll() {
	for _, slug := range s.doc.Pages() {
		for _, in := range s.doc.Page(slug) {
			s.live.Bind(in.ID, in.ComponentName)
			s.live.Family(in.Type).EnsureVariant(in.ID, s.persisted(in))
		}
	}
}

// persisted returns the stored data of in: the tenant's global data for
// global families, the instance data otherwise. It is never nil.
func (s *Session) persisted(in document.Instance) map[string]any {
	data := in.Data
	if s.live.Family(in.Type).Global() {
		data = s.doc.Global(in.Type)
	}
	if data == nil {
		data = map[string]any{}
	}
	return data
}

// onEntry turns change-log entries into hooks and automatic saves.
func (s *Session) onEntry(e changelog.Entry) {
	if e.Type == changelog.DataSaved || e.Type == changelog.Error {
		return
	}
	observability.Editor().OnMutation(context.Background(), s.tenantID, string(e.Type))
	s.changed()
}

func (s *Session) changed() {
	if s.opts.AutoSave {
		s.RequestSave()
	}
}

// TenantID returns the tenant being edited.
func (s *Session) TenantID() string { return s.tenantID }

// Document returns the session's document model.
func (s *Session) Document() *document.Document { return s.doc }

// Changelog returns the session's change log.
func (s *Session) Changelog() *changelog.Log { return s.log }

// Live returns the session's live-state store.
func (s *Session) Live() *layered.Store { return s.live }

// Options returns the effective session options.
func (s *Session) Options() Options { return s.opts }

// =============================================================================
// Structure
// =============================================================================

// Insert places inst on page at index and seeds its live state from
// inst.Data, a pending clipboard value or the family defaults. Global
// families seed from the tenant's shared data when it exists.
func (s *Session) Insert(page string, inst document.Instance, index int) (document.Instance, error) {
	if inst.Type.Valid() {
		if err := s.checkVariant(inst.ComponentName); err != nil {
			return document.Instance{}, err
		}
	}
	stored, err := s.doc.Insert(page, inst, index)
	if err != nil {
		return document.Instance{}, err
	}
	s.live.Bind(stored.ID, stored.ComponentName)
	fam := s.live.Family(stored.Type)
	initial := inst.Data
	if initial == nil && fam.Global() {
		// A new header or footer starts from the tenant's shared data.
		if peer, ok := s.globalPeer(stored.Type, stored.ID); ok {
			initial = peer
		} else if g := s.doc.Global(stored.Type); len(g) > 0 {
			initial = g
		}
	}
	fam.EnsureVariant(stored.ID, initial)
	return stored, nil
}

// checkVariant rejects variant numbers the family does not have.
func (s *Session) checkVariant(name string) error {
	if f, ok := s.opts.Families.Lookup(name); !ok || !f.HasVariant(name) {
		return errors.New(errors.ErrCodeInvalidVariant, "unknown variant %q", name)
	}
	return nil
}

// Remove deletes an instance and drops its live state.
func (s *Session) Remove(page, id string) error {
	if _, err := s.doc.Remove(page, id); err != nil {
		return err
	}
	s.live.Forget(id)
	return nil
}

// Move reorders an instance within its page.
func (s *Session) Move(page, id string, index int) error {
	return s.doc.Move(page, id, index)
}

// Transfer moves an instance to another page.
func (s *Session) Transfer(from, id, to string, index int) error {
	return s.doc.Transfer(from, id, to, index)
}

// SetVariant switches an instance to another variant of its family.
func (s *Session) SetVariant(page, id, variant string) (document.Instance, error) {
	if err := s.checkVariant(variant); err != nil {
		return document.Instance{}, err
	}
	inst, err := s.doc.Update(page, id, func(in *document.Instance) { in.ComponentName = variant })
	if err != nil {
		return document.Instance{}, err
	}
	s.live.Bind(inst.ID, inst.ComponentName)
	return inst, nil
}

// SetLayout replaces the grid layout hint of an instance.
func (s *Session) SetLayout(page, id string, layout document.Layout) (document.Instance, error) {
	return s.doc.Update(page, id, func(in *document.Instance) { in.Layout = layout })
}

// DeletePage removes a page and the live state of its instances.
func (s *Session) DeletePage(page string) int {
	insts := s.doc.Page(page)
	n := s.doc.DeletePage(page)
	for _, in := range insts {
		s.live.Forget(in.ID)
	}
	return n
}

// BackupTheme stores the current theme under Theme{n}Backup.
func (s *Session) BackupTheme(n int) error {
	return s.doc.BackupTheme(n)
}

// SwitchTheme saves the live state into the document, then switches theme.
// Live state belongs to the old theme's instances and is dropped.
func (s *Session) SwitchTheme(n int) error {
	if n == s.doc.ActiveTheme() {
		return nil
	}
	s.foldLive()
	if err := s.doc.SwitchTheme(n); err != nil {
		return err
	}
	s.live.Reset()
	s.bindAll()
	return nil
}

// foldLive writes live entries back into the document's instance data.
// Instances whose data would not change are left alone so a theme switch
// only logs real edits.
func (s *Session) foldLive() {
	for id, data := range s.live.Entries() {
		inst, page, ok := s.doc.Find(id)
		if !ok {
			continue
		}
		if s.live.Family(inst.Type).Global() {
			cur := s.doc.Global(inst.Type)
			if next := mergeData(cur, data); !datamap.Equal(cur, next) {
				s.doc.SetGlobal(inst.Type, next)
			}
			continue
		}
		if next := mergeData(inst.Data, data); !datamap.Equal(inst.Data, next) {
			_, _ = s.doc.Update(page, id, func(in *document.Instance) { in.Data = next })
		}
	}
}

// =============================================================================
// Data
// =============================================================================

func (s *Session) find(id string) (document.Instance, error) {
	inst, _, ok := s.doc.Find(id)
	if !ok {
		return document.Instance{}, errors.New(errors.ErrCodeInstanceNotFound, "instance %s not found", id)
	}
	return inst, nil
}

// globalPeer returns the live state of another instance of global family
// t, if there is one.
func (s *Session) globalPeer(t document.Type, except string) (map[string]any, bool) {
	for _, slug := range s.doc.Pages() {
		for _, in := range s.doc.Page(slug) {
			if in.Type != t || in.ID == except {
				continue
			}
			if data, ok := s.live.Live(in.ID); ok {
				return data, true
			}
		}
	}
	return nil, false
}

// syncGlobal copies the live state of id to every other instance of its
// global family, keeping shared data identical across pages.
func (s *Session) syncGlobal(inst document.Instance) {
	fam := s.live.Family(inst.Type)
	if !fam.Global() {
		return
	}
	data, ok := s.live.Live(inst.ID)
	if !ok {
		return
	}
	for _, slug := range s.doc.Pages() {
		for _, in := range s.doc.Page(slug) {
			if in.Type == inst.Type && in.ID != inst.ID {
				fam.SetData(in.ID, data)
			}
		}
	}
}

// EnsureVariant seeds the live state of instance id unless it exists.
func (s *Session) EnsureVariant(id string, initial map[string]any) (map[string]any, error) {
	inst, err := s.find(id)
	if err != nil {
		return nil, err
	}
	return s.live.Family(inst.Type).EnsureVariant(id, initial), nil
}

// Data returns the live state of instance id over its family defaults.
func (s *Session) Data(id string) (map[string]any, error) {
	inst, err := s.find(id)
	if err != nil {
		return nil, err
	}
	return s.live.Family(inst.Type).GetData(id), nil
}

// EffectiveData resolves every layer for instance id, with props on top.
func (s *Session) EffectiveData(id string, props map[string]any) (map[string]any, error) {
	inst, err := s.find(id)
	if err != nil {
		return nil, err
	}
	return s.live.Resolve(inst, s.doc.Global(inst.Type), props), nil
}

// SetData replaces the live state of instance id.
func (s *Session) SetData(id string, data map[string]any) error {
	inst, err := s.find(id)
	if err != nil {
		return err
	}
	s.live.Family(inst.Type).SetData(id, data)
	s.syncGlobal(inst)
	s.changed()
	return nil
}

// UpdateByPath sets one path in the live state of instance id.
func (s *Session) UpdateByPath(id, path string, value any) (map[string]any, error) {
	inst, err := s.find(id)
	if err != nil {
		return nil, err
	}
	data, err := s.live.Family(inst.Type).UpdateByPath(id, path, value)
	if err != nil {
		return nil, err
	}
	s.syncGlobal(inst)
	s.changed()
	return data, nil
}

// Copy puts the effective data of instance id on its family's clipboard.
// The next instance of that family inserted without data starts from it.
func (s *Session) Copy(id string) error {
	inst, err := s.find(id)
	if err != nil {
		return err
	}
	s.live.SetClipboard(inst.Type, s.live.Resolve(inst, s.doc.Global(inst.Type), nil))
	s.log.Record(changelog.UserAction, changelog.Payload{"action": "copy", "id": id, "type": string(inst.Type)})
	return nil
}

// RenderPage writes the static HTML of page.
func (s *Session) RenderPage(w io.Writer, page string) (renderer.Report, error) {
	if !s.doc.Has(page) {
		return renderer.Report{}, errors.New(errors.ErrCodePageNotFound, "page %q not found", page)
	}
	return s.opts.Renderers.RenderPage(w, s.doc.Page(page), func(in document.Instance) map[string]any {
		return s.live.Resolve(in, s.doc.Global(in.Type), nil)
	}, s.logger)
}

// =============================================================================
// Drag and drop
// =============================================================================

// BeginDrag starts dragging instance id on page.
func (s *Session) BeginDrag(page, id string, targets []collision.Target) error {
	s.dragMu.Lock()
	defer s.dragMu.Unlock()
	return s.resolver.Begin(page, id, targets)
}

// DragFrame evaluates one frame of the active drag.
func (s *Session) DragFrame(ctx context.Context, f placement.Frame) (placement.Decision, bool, error) {
	s.dragMu.Lock()
	defer s.dragMu.Unlock()
	before := s.doc.Revision()
	dec, ok, err := s.resolver.Frame(f)
	observability.Editor().OnDragFrame(ctx, s.tenantID, ok, s.doc.Revision() != before)
	return dec, ok, err
}

// Drop ends the active drag and applies its decision.
func (s *Session) Drop() (placement.Decision, bool, error) {
	s.dragMu.Lock()
	defer s.dragMu.Unlock()
	return s.resolver.Drop()
}

// CancelDrag aborts the active drag.
func (s *Session) CancelDrag() {
	s.dragMu.Lock()
	defer s.dragMu.Unlock()
	s.resolver.Cancel()
}

// Dragging reports whether a drag is in progress.
func (s *Session) Dragging() bool {
	s.dragMu.Lock()
	defer s.dragMu.Unlock()
	return s.resolver.Active()
}
