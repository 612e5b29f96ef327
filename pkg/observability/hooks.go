// Package observability lets the host process watch editor sessions, the
// snapshot cache and the HTTP API without those packages importing a metrics
// or logging backend.
//
// Each concern has an interface and a no-op implementation. Instrumented code
// reads the current hooks at the call site:
//
//	observability.Editor().OnSave(ctx, tenant, len(pages), len(deleted), elapsed, err)
//
// The CLI installs logging hooks at debug level; tests call [Reset] when done.
package observability

import (
	"context"
	"sync/atomic"
	"time"
)

// EditorHooks observes editor sessions.
type EditorHooks interface {
	OnLoad(ctx context.Context, tenant string, duration time.Duration, err error)
	// OnSave reports one gateway round trip. pages counts upserted pages.
	OnSave(ctx context.Context, tenant string, pages, deleted int, duration time.Duration, err error)
	OnMutation(ctx context.Context, tenant, entryType string)
	// OnDragFrame reports one placement frame; committed is false for
	// frames that left the document unchanged.
	OnDragFrame(ctx context.Context, tenant string, collided, committed bool)
}

// CacheHooks observes the snapshot cache. keyType names the cached value.
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// HTTPHooks observes API requests. route is the chi route pattern when known.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, route string)
	OnResponse(ctx context.Context, method, route string, statusCode int, duration time.Duration)
	OnError(ctx context.Context, method, route string, err error)
}

type NoopEditorHooks struct{}

func (NoopEditorHooks) OnLoad(context.Context, string, time.Duration, error)           {}
func (NoopEditorHooks) OnSave(context.Context, string, int, int, time.Duration, error) {}
func (NoopEditorHooks) OnMutation(context.Context, string, string)                     {}
func (NoopEditorHooks) OnDragFrame(context.Context, string, bool, bool)                {}

type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, error)                 {}

// registry is replaced wholesale on every Set so readers never lock.
type registry struct {
	editor EditorHooks
	cache  CacheHooks
	http   HTTPHooks
}

var current atomic.Pointer[registry]

func init() { Reset() }

func update(fn func(r *registry)) {
	for {
		old := current.Load()
		next := *old
		fn(&next)
		if current.CompareAndSwap(old, &next) {
			return
		}
	}
}

// SetEditorHooks installs h. A nil h is ignored.
func SetEditorHooks(h EditorHooks) {
	if h != nil {
		update(func(r *registry) { r.editor = h })
	}
}

// SetCacheHooks installs h. A nil h is ignored.
func SetCacheHooks(h CacheHooks) {
	if h != nil {
		update(func(r *registry) { r.cache = h })
	}
}

// SetHTTPHooks installs h. A nil h is ignored.
func SetHTTPHooks(h HTTPHooks) {
	if h != nil {
		update(func(r *registry) { r.http = h })
	}
}

func Editor() EditorHooks { return current.Load().editor }
func Cache() CacheHooks   { return current.Load().cache }
func HTTP() HTTPHooks     { return current.Load().http }

// Reset reinstalls the no-op hooks.
func Reset() {
	current.Store(&registry{NoopEditorHooks{}, NoopCacheHooks{}, NoopHTTPHooks{}})
}
