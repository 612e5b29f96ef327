// Package store implements the persistence gateway the editor loads tenant
// documents from and saves them to.
//
// A [Gateway] is keyed by tenant id. Save is page-granular: pages absent
// from a [SaveRequest] are left as they are, pages supplied with an empty
// instance slice are deleted, and every other page is replaced. Extras
// (global component data, website layout, theme backups) are replaced only
// when supplied.
//
// Backends:
//   - [Memory]: in-process, for tests and the default server mode
//   - [FileStore]: one JSON file per tenant, for CLI use
//   - [MongoStore]: one MongoDB document per tenant
//
// [Cached] adds a read-through cache in front of any gateway and [WithRetry]
// retries transient failures.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/matzehuels/sitecraft/pkg/document"
	apperrors "github.com/matzehuels/sitecraft/pkg/errors"
)

// Sentinel errors. Backends wrap them, so check with errors.Is.
var (
	// ErrNotFound is returned by Load when the tenant has no document.
	ErrNotFound error = apperrors.New(apperrors.ErrCodeTenantNotFound, "tenant not found")

	// ErrNetwork is returned for transient backend failures (timeouts,
	// connection errors).
	ErrNetwork error = apperrors.New(apperrors.ErrCodeNetwork, "network error")
)

// Gateway loads and saves tenant documents.
type Gateway interface {
	// Load returns the tenant's document or an error wrapping ErrNotFound.
	Load(ctx context.Context, tenantID string) (*document.Snapshot, error)
	// Save applies req atomically.
	Save(ctx context.Context, req SaveRequest) (SaveResult, error)
	// Close releases backend resources.
	Close() error
}

// SaveRequest is one save round trip.
type SaveRequest struct {
	TenantID string `json:"tenantId"`
	// Pages to write. An empty slice deletes the page.
	Pages map[string][]document.Instance `json:"pages"`
	// Extras are replaced when non-nil.
	Global       map[string]map[string]any       `json:"globalComponentsData,omitempty"`
	Layout       map[string]any                  `json:"websiteLayout,omitempty"`
	ThemeBackups map[string]document.ThemeBackup `json:"themeBackups,omitempty"`
	// ActiveTheme is replaced when positive.
	ActiveTheme int `json:"activeTheme,omitempty"`
}

// SaveResult counts what a save wrote.
type SaveResult struct {
	PagesSaved      int `json:"pagesSaved"`
	PagesDeleted    int `json:"pagesDeleted"`
	ComponentsSaved int `json:"componentsSaved"`
}

// Validate checks the tenant id and every page slug.
func (r SaveRequest) Validate() error {
	if err := apperrors.ValidateTenantID(r.TenantID); err != nil {
		return err
	}
	for slug := range r.Pages {
		if err := apperrors.ValidateSlug(slug); err != nil {
			return err
		}
	}
	return nil
}

// Deletions returns the slugs the request deletes.
func (r SaveRequest) Deletions() []string {
	var out []string
	for slug, insts := range r.Pages {
		if len(insts) == 0 {
			out = append(out, slug)
		}
	}
	return out
}

// Apply returns cur with req applied, plus the counts. cur may be nil for a
// tenant without a document; it is never modified.
func Apply(cur *document.Snapshot, req SaveRequest, now time.Time) (*document.Snapshot, SaveResult) {
	next := cur.Clone()
	if next == nil {
		next = &document.Snapshot{TenantID: req.TenantID}
	}
	if next.Pages == nil {
		next.Pages = map[string][]document.Instance{}
	}

	var res SaveResult
	for slug, insts := range req.Pages {
		if len(insts) == 0 {
			delete(next.Pages, slug)
			res.PagesDeleted++
			continue
		}
		next.Pages[slug] = document.CloneInstances(insts)
		res.PagesSaved++
		res.ComponentsSaved += len(insts)
	}

	extras := (&document.Snapshot{
		Global:       req.Global,
		Layout:       req.Layout,
		ThemeBackups: req.ThemeBackups,
	}).Clone()
	if req.Global != nil {
		next.Global = extras.Global
	}
	if req.Layout != nil {
		next.Layout = extras.Layout
	}
	if req.ThemeBackups != nil {
		next.ThemeBackups = extras.ThemeBackups
	}
	if req.ActiveTheme > 0 {
		next.ActiveTheme = req.ActiveTheme
	}
	next.UpdatedAt = now.UTC()
	next.Normalize()
	return next, res
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
