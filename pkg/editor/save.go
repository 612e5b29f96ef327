package editor

import (
	"context"
	"time"

	"github.com/matzehuels/sitecraft/pkg/changelog"
	"github.com/matzehuels/sitecraft/pkg/datamap"
	"github.com/matzehuels/sitecraft/pkg/document"
	"github.com/matzehuels/sitecraft/pkg/errors"
	"github.com/matzehuels/sitecraft/pkg/observability"
	"github.com/matzehuels/sitecraft/pkg/store"
)

func mergeData(base, over map[string]any) map[string]any {
	return datamap.Merge(base, over)
}

// Dirty reports whether the document or the live state changed since the
// last successful save.
func (s *Session) Dirty() bool {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	return s.dirtyLocked()
}

func (s *Session) dirtyLocked() bool {
	return s.doc.Revision() != s.savedDocRev ||
		s.live.Revision() != s.savedLiveRev ||
		len(s.doc.PendingDeletes()) > 0
}

// Save persists the document with the live state folded in. Calls that
// arrive while a save is in flight wait for it and then share a single
// follow-up save, so every caller observes its own changes persisted.
//
// A failed save records an Error entry and returns the error; the in-memory
// document is kept as it is.
func (s *Session) Save(ctx context.Context) (store.SaveResult, error) {
	s.saveMu.Lock()
	if s.closed {
		s.saveMu.Unlock()
		return store.SaveResult{}, errors.New(errors.ErrCodeInvalidInput, "session %s is closed", s.tenantID)
	}
	s.requested++
	ticket := s.requested
	s.saveMu.Unlock()
	return s.save(ctx, ticket)
}

func (s *Session) save(ctx context.Context, ticket uint64) (store.SaveResult, error) {
	select {
	case s.running <- struct{}{}:
	case <-ctx.Done():
		return store.SaveResult{}, ctx.Err()
	}
	defer func() { <-s.running }()

	s.saveMu.Lock()
	if s.completed >= ticket {
		res, err := s.lastRes, s.lastErr
		s.saveMu.Unlock()
		return res, err
	}
	covers := s.requested
	s.saveMu.Unlock()

	res, err := s.saveOnce(ctx)

	s.saveMu.Lock()
	s.completed = covers
	s.lastRes, s.lastErr = res, err
	s.saveMu.Unlock()
	return res, err
}

// saveOnce performs one round trip. The caller holds the running slot.
func (s *Session) saveOnce(ctx context.Context) (store.SaveResult, error) {
	docRev, liveRev := s.doc.Revision(), s.live.Revision()
	req := s.buildRequest()

	start := time.Now()
	res, err := s.gw.Save(ctx, req)
	elapsed := time.Since(start)
	observability.Editor().OnSave(ctx, s.tenantID, len(req.Pages), len(req.Deletions()), elapsed, err)

	if err != nil {
		s.log.Errorf(changelog.Payload{
			"op":   "save",
			"code": string(errors.GetCode(err)),
		}, "save failed: %v", err)
		s.logger.Error("save failed", "err", err, "duration", elapsed)
		return res, err
	}

	s.doc.MarkSaved(req.Deletions())
	s.saveMu.Lock()
	s.savedDocRev, s.savedLiveRev = docRev, liveRev
	s.saveMu.Unlock()

	s.log.Record(changelog.DataSaved, changelog.Payload{
		"pagesSaved":      res.PagesSaved,
		"pagesDeleted":    res.PagesDeleted,
		"componentsSaved": res.ComponentsSaved,
	})
	s.logger.Info("saved", "pages", res.PagesSaved, "deleted", res.PagesDeleted,
		"components", res.ComponentsSaved, "duration", elapsed)
	return res, nil
}

// buildRequest snapshots the document and folds live state into it. Live
// data of global families goes to the tenant-wide global data instead of
// the instance.
func (s *Session) buildRequest() store.SaveRequest {
	snap := s.doc.Snapshot()
	live := s.live.Entries()

	global := snap.Global
	if global == nil {
		global = map[string]map[string]any{}
	}
	for slug, insts := range snap.Pages {
		for i, in := range insts {
			data, ok := live[in.ID]
			if !ok {
				continue
			}
			if s.live.Family(in.Type).Global() {
				global[string(in.Type)] = mergeData(global[string(in.Type)], data)
				continue
			}
			insts[i].Data = mergeData(in.Data, data)
		}
		snap.Pages[slug] = insts
	}

	pages := snap.Pages
	if pages == nil {
		pages = map[string][]document.Instance{}
	}
	for _, slug := range s.doc.PendingDeletes() {
		if _, ok := pages[slug]; !ok {
			pages[slug] = []document.Instance{}
		}
	}

	req := store.SaveRequest{
		TenantID:     s.tenantID,
		Pages:        pages,
		Global:       global,
		Layout:       snap.Layout,
		ThemeBackups: snap.ThemeBackups,
		ActiveTheme:  snap.ActiveTheme,
	}
	if req.ThemeBackups == nil {
		req.ThemeBackups = map[string]document.ThemeBackup{}
	}
	return req
}

// RequestSave schedules a save after the debounce period. Further requests
// within the period push the save back.
func (s *Session) RequestSave() {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if s.closed {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.opts.SaveDebounce, func() {
		ctx, cancel := context.WithTimeout(context.Background(), DefaultSaveTimeout)
		defer cancel()
		if _, err := s.Save(ctx); err != nil {
			s.logger.Debug("automatic save failed", "err", err)
		}
	})
}

// Flush saves immediately if anything changed since the last save and
// cancels a pending automatic save.
func (s *Session) Flush(ctx context.Context) error {
	s.saveMu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	dirty := s.dirtyLocked()
	s.saveMu.Unlock()
	if !dirty {
		return nil
	}
	_, err := s.Save(ctx)
	return err
}

// Close flushes pending changes and ends the session. The session is
// unusable for saving afterwards; Close is idempotent.
func (s *Session) Close(ctx context.Context) error {
	s.saveMu.Lock()
	closed := s.closed
	s.saveMu.Unlock()
	if closed {
		return nil
	}
	err := s.Flush(ctx)

	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.unsub != nil {
		s.unsub()
	}
	s.logger.Debug("session closed")
	return err
}
