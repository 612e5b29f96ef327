package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/matzehuels/sitecraft/pkg/changelog"
	"github.com/matzehuels/sitecraft/pkg/document"
	"github.com/matzehuels/sitecraft/pkg/editor"
	"github.com/matzehuels/sitecraft/pkg/errors"
	"github.com/matzehuels/sitecraft/pkg/store"
)

func newTestServer(t *testing.T) (*httptest.Server, *store.Memory) {
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
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	quiet := log.New(io.Discard)
	mgr := editor.NewManager(mem, editor.Options{Logger: quiet})
	srv := httptest.NewServer(New(mgr, Options{Logger: quiet}).Handler())
	t.Cleanup(srv.Close)
	return srv, mem
}

func do(t *testing.T, srv *httptest.Server, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, srv.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp, out
}

func ids(t *testing.T, body []byte) string {
	t.Helper()
	var insts []document.Instance
	if err := json.Unmarshal(body, &insts); err != nil {
		t.Fatalf("decode instances: %v\n%s", err, body)
	}
	var out []string
	for _, in := range insts {
		out = append(out, in.ID)
	}
	return strings.Join(out, ",")
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errors.New(errors.ErrCodePageNotFound, "x"), http.StatusNotFound},
		{errors.New(errors.ErrCodeInvalidSlug, "x"), http.StatusBadRequest},
		{store.Retryable(store.ErrNetwork), http.StatusBadGateway},
		{errors.New(errors.ErrCodeStorage, "x"), http.StatusBadGateway},
		{io.EOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusOf(tt.err); got != tt.want {
			t.Errorf("StatusOf(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, body := do(t, srv, http.MethodGet, "/healthz", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"status":"ok"`) {
		t.Errorf("GET /healthz = %d %s", resp.StatusCode, body)
	}
}

func TestPages(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := do(t, srv, http.MethodGet, "/tenants/acme/pages", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list = %d %s", resp.StatusCode, body)
	}
	var pages []PageSummary
	if err := json.Unmarshal(body, &pages); err != nil {
		t.Fatal(err)
	}
	if len(pages) != 1 || pages[0].Slug != "homepage" || pages[0].Components != 3 {
		t.Errorf("pages = %+v", pages)
	}

	resp, body = do(t, srv, http.MethodGet, "/tenants/acme/pages/homepage", nil)
	if resp.StatusCode != http.StatusOK || ids(t, body) != "hero,card,footer" {
		t.Errorf("page = %d %s", resp.StatusCode, body)
	}

	resp, body = do(t, srv, http.MethodGet, "/tenants/acme/pages/missing", nil)
	if resp.StatusCode != http.StatusNotFound || !strings.Contains(string(body), "PAGE_NOT_FOUND") {
		t.Errorf("missing page = %d %s", resp.StatusCode, body)
	}

	resp, _ = do(t, srv, http.MethodGet, "/tenants/bad%20tenant/pages", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid tenant = %d", resp.StatusCode)
	}
}

func TestInsertMoveRemove(t *testing.T) {
	srv, _ := newTestServer(t)

	index := 0
	resp, body := do(t, srv, http.MethodPost, "/tenants/acme/pages/homepage/instances",
		InsertRequest{Type: document.Title, Variant: "title2", Index: &index})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("insert = %d %s", resp.StatusCode, body)
	}
	var inst document.Instance
	if err := json.Unmarshal(body, &inst); err != nil {
		t.Fatal(err)
	}
	if inst.ID == "" || inst.Position != 0 || inst.ComponentName != "title2" {
		t.Errorf("inserted = %+v", inst)
	}

	resp, body = do(t, srv, http.MethodPost, "/tenants/acme/pages/homepage/instances/footer/move", MoveRequest{Index: 0})
	if resp.StatusCode != http.StatusOK || ids(t, body) != "footer,"+inst.ID+",hero,card" {
		t.Errorf("move = %d %s", resp.StatusCode, body)
	}

	resp, body = do(t, srv, http.MethodPost, "/tenants/acme/pages/homepage/instances/card/move", MoveRequest{Page: "about", Index: 0})
	if resp.StatusCode != http.StatusOK || ids(t, body) != "card" {
		t.Errorf("transfer = %d %s", resp.StatusCode, body)
	}

	resp, _ = do(t, srv, http.MethodDelete, "/tenants/acme/pages/homepage/instances/"+inst.ID, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("remove = %d", resp.StatusCode)
	}
	resp, _ = do(t, srv, http.MethodDelete, "/tenants/acme/pages/homepage/instances/"+inst.ID, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("second remove = %d", resp.StatusCode)
	}

	resp, body = do(t, srv, http.MethodPost, "/tenants/acme/pages/homepage/instances",
		InsertRequest{Type: document.Hero, Variant: "hero9"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown variant = %d %s", resp.StatusCode, body)
	}
	resp, _ = do(t, srv, http.MethodPost, "/tenants/acme/pages/homepage/instances", map[string]any{"type": "hero", "colour": "red"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown field = %d", resp.StatusCode)
	}
}

func TestData(t *testing.T) {
	srv, _ := newTestServer(t)
	base := "/tenants/acme/pages/homepage/instances/card/data"

	resp, body := do(t, srv, http.MethodPatch, base, PathUpdate{Path: "property.price", Value: "450000"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch = %d %s", resp.StatusCode, body)
	}

	resp, body = do(t, srv, http.MethodGet, base+"?props="+url.QueryEscape(`{"columns":"4"}`), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get = %d %s", resp.StatusCode, body)
	}
	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		t.Fatal(err)
	}
	prop, _ := data["property"].(map[string]any)
	if prop["price"] != "450000" || prop["currency"] != "EUR" || data["columns"] != "4" {
		t.Errorf("effective data = %v", data)
	}

	resp, _ = do(t, srv, http.MethodPatch, base, PathUpdate{Path: "bad..path", Value: 1})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad path = %d", resp.StatusCode)
	}

	resp, body = do(t, srv, http.MethodPut, base, map[string]any{"showPrice": false})
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"showPrice":false`) {
		t.Errorf("put = %d %s", resp.StatusCode, body)
	}
}

func TestRender(t *testing.T) {
	srv, _ := newTestServer(t)
	do(t, srv, http.MethodPatch, "/tenants/acme/pages/homepage/instances/hero/data", PathUpdate{Path: "title", Value: "Harbour homes"})
	resp, body := do(t, srv, http.MethodGet, "/tenants/acme/pages/homepage/render", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("render = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(string(body), "Harbour homes") {
		t.Errorf("body missing edited title:\n%s", body)
	}
}

func TestDragAndSave(t *testing.T) {
	srv, mem := newTestServer(t)
	targets := `[{"id":"hero","rect":{"left":0,"top":0,"right":300,"bottom":100}},` +
		`{"id":"card","rect":{"left":0,"top":100,"right":300,"bottom":200}},` +
		`{"id":"footer","rect":{"left":0,"top":200,"right":300,"bottom":300}}]`

	resp, body := do(t, srv, http.MethodPost, "/tenants/acme/pages/homepage/drag",
		json.RawMessage(`{"active":"footer","targets":`+targets+`}`))
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("begin = %d %s", resp.StatusCode, body)
	}
	resp, body = do(t, srv, http.MethodPost, "/tenants/acme/drag/frame",
		json.RawMessage(`{"rect":{"left":0,"top":40,"right":300,"bottom":140}}`))
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"collided":true`) {
		t.Fatalf("frame = %d %s", resp.StatusCode, body)
	}
	resp, body = do(t, srv, http.MethodPost, "/tenants/acme/drag/drop", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"changed":true`) {
		t.Fatalf("drop = %d %s", resp.StatusCode, body)
	}

	resp, body = do(t, srv, http.MethodPost, "/tenants/acme/save", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save = %d %s", resp.StatusCode, body)
	}
	var res store.SaveResult
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatal(err)
	}
	if res.PagesSaved != 1 || res.ComponentsSaved != 3 {
		t.Errorf("result = %+v", res)
	}
	snap, _ := mem.Load(context.Background(), "acme")
	if got := snap.Pages["homepage"][0].ID; got != "footer" {
		t.Errorf("stored first instance = %q, want footer", got)
	}

	resp, _ = do(t, srv, http.MethodPost, "/tenants/acme/drag/drop", nil)
	if resp.StatusCode == http.StatusOK {
		t.Error("drop without drag succeeded")
	}
}

func TestThemesAndChangelog(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := do(t, srv, http.MethodPost, "/tenants/acme/themes/2", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("switch = %d %s", resp.StatusCode, body)
	}
	var th ThemeResponse
	if err := json.Unmarshal(body, &th); err != nil {
		t.Fatal(err)
	}
	if th.Active != 2 || len(th.Backups) != 1 || th.Backups[0] != "Theme1Backup" {
		t.Errorf("themes = %+v", th)
	}
	resp, _ = do(t, srv, http.MethodPost, "/tenants/acme/themes/zero", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad theme = %d", resp.StatusCode)
	}

	resp, body = do(t, srv, http.MethodGet, "/tenants/acme/changelog?type=theme_changed", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("changelog = %d", resp.StatusCode)
	}
	var entries []changelog.Entry
	if err := json.Unmarshal(body, &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Type != changelog.ThemeChanged {
		t.Errorf("entries = %+v", entries)
	}
	resp, _ = do(t, srv, http.MethodGet, "/tenants/acme/changelog?type=nope", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown type = %d", resp.StatusCode)
	}
}

func TestChangelogStream(t *testing.T) {
	srv, _ := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/tenants/acme/changelog/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	got := make(chan changelog.Entry, 1)
	go func() {
		var e changelog.Entry
		if err := conn.ReadJSON(&e); err == nil {
			got <- e
		}
	}()
	do(t, srv, http.MethodPost, "/tenants/acme/pages/homepage/instances/footer/move", MoveRequest{Index: 0})

	select {
	case e := <-got:
		if e.Type != changelog.ComponentMoved || e.Payload["id"] != "footer" {
			t.Errorf("entry = %+v", e)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no entry received")
	}
}
