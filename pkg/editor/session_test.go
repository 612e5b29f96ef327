package editor

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/sitecraft/pkg/changelog"
	"github.com/matzehuels/sitecraft/pkg/collision"
	"github.com/matzehuels/sitecraft/pkg/document"
	"github.com/matzehuels/sitecraft/pkg/geom"
	"github.com/matzehuels/sitecraft/pkg/placement"
	"github.com/matzehuels/sitecraft/pkg/store"
)

// =============================================================================
// Test gateways
// =============================================================================

// recording wraps a gateway, counting calls and keeping the last request.
type recording struct {
	store.Gateway
	loads, saves atomic.Int32

	mu      sync.Mutex
	last    store.SaveRequest
	entered chan struct{}
	release chan struct{}
	fail    error
}

func newRecording(g store.Gateway) *recording { return &recording{Gateway: g} }

func (r *recording) Load(ctx context.Context, tenantID string) (*document.Snapshot, error) {
	r.loads.Add(1)
	return r.Gateway.Load(ctx, tenantID)
}

func (r *recording) Save(ctx context.Context, req store.SaveRequest) (store.SaveResult, error) {
	r.saves.Add(1)
	r.mu.Lock()
	r.last = req
	entered, release, fail := r.entered, r.release, r.fail
	r.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if release != nil {
		<-release
	}
	if fail != nil {
		return store.SaveResult{}, fail
	}
	return r.Gateway.Save(ctx, req)
}

func (r *recording) lastRequest() store.SaveRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func quietOptions() Options {
	return Options{Logger: log.New(&bytes.Buffer{})}
}

func seeded(t *testing.T) *store.Memory {
	t.Helper()
	mem := store.NewMemory()
	_, err := mem.Save(context.Background(), store.SaveRequest{
		TenantID: "acme",
		Pages: map[string][]document.Instance{
			"homepage": {
				{ID: "hero", Type: document.Hero, ComponentName: "hero1", Position: 0},
				{ID: "card", Type: document.Card, ComponentName: "card5", Position: 1},
				{ID: "footer", Type: document.Footer, ComponentName: "footer1", Position: 2},
			},
			"about": {
				{ID: "title", Type: document.Title, ComponentName: "title1", Position: 0},
			},
		},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return mem
}

func openSession(t *testing.T, g store.Gateway, opts Options) *Session {
	t.Helper()
	s, err := Open(context.Background(), g, "acme", opts)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

// =============================================================================
// Structure and data
// =============================================================================

func TestOpenNewTenant(t *testing.T) {
	s := openSession(t, store.NewMemory(), quietOptions())
	if got := s.Document().Pages(); len(got) != 0 {
		t.Errorf("Pages() = %v, want none", got)
	}
	if s.Dirty() {
		t.Error("new session is dirty")
	}
}

func TestOpenInvalidTenant(t *testing.T) {
	if _, err := Open(context.Background(), store.NewMemory(), "bad tenant!", quietOptions()); err == nil {
		t.Error("Open() accepted an invalid tenant id")
	}
}

func TestInsertSeedsLiveState(t *testing.T) {
	s := openSession(t, store.NewMemory(), quietOptions())

	plain, err := s.Insert("homepage", document.NewInstance(document.Hero, 1), 0)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	data, _ := s.Data(plain.ID)
	if data["title"] != "Find your next home" {
		t.Errorf("default title = %v", data["title"])
	}

	seededInst := document.NewInstance(document.Hero, 2)
	seededInst.Data = map[string]any{"title": "Sea view"}
	stored, err := s.Insert("homepage", seededInst, 1)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	data, _ = s.Data(stored.ID)
	if data["title"] != "Sea view" {
		t.Errorf("seeded title = %v", data["title"])
	}
	if data["subtitle"] != "Browse curated listings in your area" {
		t.Errorf("defaults not merged under live data: %v", data)
	}
}

func TestCopyPastesOnce(t *testing.T) {
	s := openSession(t, store.NewMemory(), quietOptions())
	a, _ := s.Insert("homepage", document.NewInstance(document.Hero, 1), 0)
	if err := s.SetData(a.ID, map[string]any{"title": "Copied"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Copy(a.ID); err != nil {
		t.Fatal(err)
	}

	b, _ := s.Insert("homepage", document.NewInstance(document.Hero, 1), 1)
	c, _ := s.Insert("homepage", document.NewInstance(document.Hero, 1), 2)
	if got, _ := s.Data(b.ID); got["title"] != "Copied" {
		t.Errorf("pasted title = %v, want Copied", got["title"])
	}
	if got, _ := s.Data(c.ID); got["title"] != "Find your next home" {
		t.Errorf("clipboard used twice: %v", got["title"])
	}
}

func TestDataUnknownInstance(t *testing.T) {
	s := openSession(t, store.NewMemory(), quietOptions())
	if _, err := s.Data("missing"); err == nil {
		t.Error("Data() on unknown id returned no error")
	}
	if _, err := s.UpdateByPath("missing", "title", "x"); err == nil {
		t.Error("UpdateByPath() on unknown id returned no error")
	}
}

func TestEffectiveDataLayers(t *testing.T) {
	mem := seeded(t)
	s := openSession(t, mem, quietOptions())
	if _, err := s.UpdateByPath("hero", "title", "Live"); err != nil {
		t.Fatal(err)
	}
	got, err := s.EffectiveData("hero", map[string]any{"subtitle": "Prop"})
	if err != nil {
		t.Fatal(err)
	}
	if got["title"] != "Live" || got["subtitle"] != "Prop" || got["image"] != "/static/hero.jpg" {
		t.Errorf("EffectiveData() = %v", got)
	}
}

func TestRemoveForgetsLiveState(t *testing.T) {
	s := openSession(t, seeded(t), quietOptions())
	if _, err := s.UpdateByPath("card", "property.title", "Loft"); err != nil {
		t.Fatal(err)
	}
	if err := s.Remove("homepage", "card"); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Live().Live("card"); ok {
		t.Error("live state survived Remove")
	}
}

func TestGlobalFamilySharesData(t *testing.T) {
	s := openSession(t, seeded(t), quietOptions())
	if _, err := s.Insert("about", document.NewInstance(document.Footer, 2), 1); err != nil {
		t.Fatal(err)
	}
	if _, err := s.UpdateByPath("footer", "contact.phone", "+49 30 1234"); err != nil {
		t.Fatal(err)
	}
	for _, in := range s.Document().Page("about") {
		if in.Type != document.Footer {
			continue
		}
		data, _ := s.Data(in.ID)
		contact, _ := data["contact"].(map[string]any)
		if contact["phone"] != "+49 30 1234" {
			t.Errorf("footer on about: contact = %v", data["contact"])
		}
	}
}

func TestLoadedDataSurvivesPathUpdate(t *testing.T) {
	mem := seeded(t)
	s := openSession(t, mem, quietOptions())
	if _, err := s.UpdateByPath("hero", "title", "Stored title"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Save(context.Background()); err != nil {
		t.Fatal(err)
	}

	again := openSession(t, mem, quietOptions())
	if _, err := again.UpdateByPath("hero", "subtitle", "New subtitle"); err != nil {
		t.Fatal(err)
	}
	data, _ := again.Data("hero")
	if data["title"] != "Stored title" || data["subtitle"] != "New subtitle" {
		t.Errorf("Data() = %v", data)
	}
}

func TestSetVariant(t *testing.T) {
	s := openSession(t, seeded(t), quietOptions())
	inst, err := s.SetVariant("homepage", "hero", "hero3")
	if err != nil {
		t.Fatal(err)
	}
	if inst.ComponentName != "hero3" {
		t.Errorf("ComponentName = %q", inst.ComponentName)
	}
	data, _ := s.Data("hero")
	if data["showSearch"] != false {
		t.Errorf("hero3 override not applied: showSearch = %v", data["showSearch"])
	}
	if _, err := s.SetVariant("homepage", "hero", "hero9"); err == nil {
		t.Error("SetVariant() accepted an unknown variant")
	}
}

func TestSwitchThemeKeepsEdits(t *testing.T) {
	s := openSession(t, seeded(t), quietOptions())
	if _, err := s.UpdateByPath("hero", "title", "Before switch"); err != nil {
		t.Fatal(err)
	}
	if err := s.SwitchTheme(2); err != nil {
		t.Fatal(err)
	}
	if s.Document().Has("homepage") {
		t.Fatal("theme 2 should start empty")
	}
	if err := s.SwitchTheme(1); err != nil {
		t.Fatal(err)
	}
	got, err := s.EffectiveData("hero", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got["title"] != "Before switch" {
		t.Errorf("title after round trip = %v", got["title"])
	}
}

func TestSwitchThemeLogsOnlyEditedInstances(t *testing.T) {
	s := openSession(t, seeded(t), quietOptions())
	if _, err := s.UpdateByPath("hero", "title", "Edited"); err != nil {
		t.Fatal(err)
	}
	before := len(s.Changelog().Filter(changelog.ComponentUpdated))
	if err := s.SwitchTheme(2); err != nil {
		t.Fatal(err)
	}
	updates := s.Changelog().Filter(changelog.ComponentUpdated)[before:]
	if len(updates) != 1 {
		t.Fatalf("component_updated entries = %d, want 1: %v", len(updates), updates)
	}
	if id := updates[0].Payload["id"]; id != "hero" {
		t.Errorf("updated id = %v, want hero", id)
	}
}

func TestRenderPage(t *testing.T) {
	s := openSession(t, seeded(t), quietOptions())
	if _, err := s.UpdateByPath("hero", "title", "Sunny flats"); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	rep, err := s.RenderPage(&buf, "homepage")
	if err != nil {
		t.Fatal(err)
	}
	if rep.Rendered != 3 {
		t.Errorf("Rendered = %d, want 3", rep.Rendered)
	}
	out := buf.String()
	if !strings.Contains(out, "Sunny flats") || !strings.Contains(out, `data-id="hero"`) {
		t.Errorf("unexpected output:\n%s", out)
	}
	if _, err := s.RenderPage(&buf, "nope"); err == nil {
		t.Error("RenderPage() on unknown page returned no error")
	}
}

func TestDragThroughSession(t *testing.T) {
	s := openSession(t, seeded(t), quietOptions())
	targets := []collision.Target{
		{ID: "hero", Rect: geom.RectXYWH(0, 0, 300, 100)},
		{ID: "card", Rect: geom.RectXYWH(0, 100, 300, 100)},
		{ID: "footer", Rect: geom.RectXYWH(0, 200, 300, 100)},
	}
	if err := s.BeginDrag("homepage", "footer", targets); err != nil {
		t.Fatal(err)
	}
	if !s.Dragging() {
		t.Fatal("Dragging() = false after BeginDrag")
	}
	if _, ok, err := s.DragFrame(context.Background(), placement.Frame{Active: geom.RectXYWH(0, 40, 300, 100)}); err != nil || !ok {
		t.Fatalf("DragFrame() = %v, %v", ok, err)
	}
	if _, changed, err := s.Drop(); err != nil || !changed {
		t.Fatalf("Drop() = %v, %v", changed, err)
	}
	var ids []string
	for _, in := range s.Document().Page("homepage") {
		ids = append(ids, in.ID)
	}
	if strings.Join(ids, ",") != "footer,hero,card" {
		t.Errorf("order = %v", ids)
	}
	if s.Dragging() {
		t.Error("Dragging() = true after Drop")
	}
}

// =============================================================================
// Saving
// =============================================================================

func TestSaveFoldsLiveState(t *testing.T) {
	mem := store.NewMemory()
	s := openSession(t, mem, quietOptions())
	hero, _ := s.Insert("homepage", document.NewInstance(document.Hero, 1), 0)
	header, _ := s.Insert("homepage", document.NewInstance(document.Header, 1), 0)
	if _, err := s.UpdateByPath(hero.ID, "title", "Sunny"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.UpdateByPath(header.ID, "cta.label", "Call us"); err != nil {
		t.Fatal(err)
	}

	res, err := s.Save(context.Background())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if res.PagesSaved != 1 || res.ComponentsSaved != 2 {
		t.Errorf("SaveResult = %+v", res)
	}

	snap, err := mem.Load(context.Background(), "acme")
	if err != nil {
		t.Fatal(err)
	}
	for _, in := range snap.Pages["homepage"] {
		if in.ID == hero.ID && in.Data["title"] != "Sunny" {
			t.Errorf("hero data = %v", in.Data)
		}
	}
	cta, _ := snap.Global["header"]["cta"].(map[string]any)
	if cta["label"] != "Call us" {
		t.Errorf("header global data = %v", snap.Global["header"])
	}
	if n := len(s.Changelog().Filter(changelog.DataSaved)); n != 1 {
		t.Errorf("data_saved entries = %d, want 1", n)
	}
	if s.Dirty() {
		t.Error("Dirty() = true after save")
	}
}

func TestSaveSendsPageDeletes(t *testing.T) {
	rec := newRecording(seeded(t))
	s := openSession(t, rec, quietOptions())
	if err := s.Remove("about", "title"); err != nil {
		t.Fatal(err)
	}
	res, err := s.Save(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	about, ok := rec.lastRequest().Pages["about"]
	if !ok || about == nil || len(about) != 0 {
		t.Errorf("about in request = %v (present %v), want empty slice", about, ok)
	}
	if res.PagesDeleted != 1 {
		t.Errorf("PagesDeleted = %d", res.PagesDeleted)
	}
	snap, _ := rec.Load(context.Background(), "acme")
	if _, ok := snap.Pages["about"]; ok {
		t.Error("about still stored")
	}
	if got := s.Document().PendingDeletes(); len(got) != 0 {
		t.Errorf("PendingDeletes() = %v after save", got)
	}
}

func TestSaveFailureRecordsError(t *testing.T) {
	rec := newRecording(seeded(t))
	rec.fail = store.Retryable(store.ErrNetwork)
	s := openSession(t, rec, quietOptions())
	if err := s.Move("homepage", "footer", 0); err != nil {
		t.Fatal(err)
	}

	_, err := s.Save(context.Background())
	if !errors.Is(err, store.ErrNetwork) {
		t.Fatalf("Save() error = %v, want ErrNetwork", err)
	}
	errs := s.Changelog().Filter(changelog.Error)
	if len(errs) != 1 {
		t.Fatalf("error entries = %d, want 1", len(errs))
	}
	if errs[0].Payload["op"] != "save" || errs[0].Payload["code"] != "NETWORK_ERROR" {
		t.Errorf("payload = %v", errs[0].Payload)
	}
	if got := s.Document().IndexOf("homepage", "footer"); got != 0 {
		t.Errorf("document rolled back: footer at %d", got)
	}
	if !s.Dirty() {
		t.Error("Dirty() = false after failed save")
	}
}

func TestConcurrentSavesCoalesce(t *testing.T) {
	rec := newRecording(seeded(t))
	rec.entered = make(chan struct{}, 8)
	rec.release = make(chan struct{})
	s := openSession(t, rec, quietOptions())

	first := make(chan error, 1)
	go func() {
		_, err := s.Save(context.Background())
		first <- err
	}()
	<-rec.entered

	const waiters = 5
	var wg sync.WaitGroup
	for range waiters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Save(context.Background()); err != nil {
				t.Errorf("Save: %v", err)
			}
		}()
	}
	deadline := time.Now().Add(5 * time.Second)
	for {
		s.saveMu.Lock()
		queued := s.requested
		s.saveMu.Unlock()
		if queued == waiters+1 || time.Now().After(deadline) {
			break
		}
		time.Sleep(time.Millisecond)
	}

	close(rec.release)
	if err := <-first; err != nil {
		t.Fatal(err)
	}
	wg.Wait()
	if got := rec.saves.Load(); got != 2 {
		t.Errorf("gateway saves = %d, want 2", got)
	}
}

func TestAutoSaveDebounces(t *testing.T) {
	rec := newRecording(store.NewMemory())
	opts := quietOptions()
	opts.AutoSave = true
	opts.SaveDebounce = 20 * time.Millisecond
	s := openSession(t, rec, opts)

	for i := range 3 {
		if _, err := s.Insert("homepage", document.NewInstance(document.Card, 1), i); err != nil {
			t.Fatal(err)
		}
	}
	deadline := time.Now().Add(5 * time.Second)
	for rec.saves.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)
	if got := rec.saves.Load(); got != 1 {
		t.Errorf("gateway saves = %d, want 1", got)
	}
	if s.Dirty() {
		t.Error("Dirty() = true after automatic save")
	}
}

func TestCloseFlushes(t *testing.T) {
	mem := store.NewMemory()
	s := openSession(t, mem, quietOptions())
	if _, err := s.Insert("contact", document.NewInstance(document.ContactForm, 1), 0); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	snap, err := mem.Load(context.Background(), "acme")
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Pages["contact"]) != 1 {
		t.Errorf("contact page = %v", snap.Pages["contact"])
	}
	if err := s.Close(context.Background()); err != nil {
		t.Errorf("second Close() = %v", err)
	}
	if _, err := s.Save(context.Background()); err == nil {
		t.Error("Save() after Close() returned no error")
	}
}
