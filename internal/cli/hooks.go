package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/sitecraft/pkg/observability"
)

// logHooks reports editor and HTTP events to the debug log. serve installs
// them when running with -v.
type logHooks struct {
	logger *log.Logger
}

func (h logHooks) OnLoad(_ context.Context, tenant string, d time.Duration, err error) {
	h.logger.Debug("tenant loaded", "tenant", tenant, "duration", d, "err", err)
}

func (h logHooks) OnSave(_ context.Context, tenant string, pages, deleted int, d time.Duration, err error) {
	h.logger.Debug("tenant saved", "tenant", tenant, "pages", pages, "deleted", deleted, "duration", d, "err", err)
}

func (h logHooks) OnMutation(_ context.Context, tenant, entryType string) {
	h.logger.Debug("mutation", "tenant", tenant, "type", entryType)
}

func (h logHooks) OnDragFrame(context.Context, string, bool, bool) {}

func (h logHooks) OnRequest(context.Context, string, string) {}

func (h logHooks) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	h.logger.Debug("request", "method", method, "route", route, "status", status, "duration", d)
}

func (h logHooks) OnError(_ context.Context, method, route string, err error) {
	h.logger.Debug("request failed", "method", method, "route", route, "err", err)
}

// installLogHooks routes observability events to l when it logs at debug
// level. The returned function restores the no-op hooks.
func installLogHooks(l *log.Logger) func() {
	if l.GetLevel() > log.DebugLevel {
		return func() {}
	}
	h := logHooks{logger: l}
	observability.SetEditorHooks(h)
	observability.SetHTTPHooks(h)
	return observability.Reset
}
