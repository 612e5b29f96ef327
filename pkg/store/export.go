package store

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/sitecraft/pkg/document"
	apperrors "github.com/matzehuels/sitecraft/pkg/errors"
)

// WriteJSON writes snap as indented JSON. The output is the same shape the
// file store keeps on disk and can be read back with [ReadJSON].
func WriteJSON(snap *document.Snapshot, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportJSON writes snap to a JSON file at path.
func ExportJSON(snap *document.Snapshot, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(snap, f)
}

// ReadJSON decodes a tenant document and checks it the way a load would:
// slugs and variants must be valid and instance ids unique across pages.
// Positions are renumbered and missing ids assigned.
func ReadJSON(r io.Reader) (*document.Snapshot, error) {
	var snap document.Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "decode tenant document")
	}
	if snap.TenantID != "" {
		if err := apperrors.ValidateTenantID(snap.TenantID); err != nil {
			return nil, err
		}
	}
	for slug, insts := range snap.Pages {
		if err := apperrors.ValidateSlug(slug); err != nil {
			return nil, err
		}
		for _, in := range insts {
			if err := document.CheckVariant(in.Type, in.ComponentName); err != nil {
				return nil, fmt.Errorf("page %q: %w", slug, err)
			}
		}
	}
	doc, err := document.FromSnapshot(&snap)
	if err != nil {
		return nil, err
	}
	out := doc.Snapshot()
	out.UpdatedAt = snap.UpdatedAt
	return out, nil
}

// ImportJSON reads a tenant document from the JSON file at path.
func ImportJSON(path string) (*document.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSON(f)
}

// ReplaceRequest builds a save that makes tenantID's stored document equal
// to snap: every page of cur missing from snap is deleted and all extras are
// replaced. cur may be nil.
func ReplaceRequest(tenantID string, cur, snap *document.Snapshot) SaveRequest {
	next := snap.Clone()
	req := SaveRequest{
		TenantID:     tenantID,
		Pages:        next.Pages,
		Global:       next.Global,
		Layout:       next.Layout,
		ThemeBackups: next.ThemeBackups,
		ActiveTheme:  next.ActiveTheme,
	}
	if req.Pages == nil {
		req.Pages = map[string][]document.Instance{}
	}
	if cur != nil {
		for slug := range cur.Pages {
			if _, ok := req.Pages[slug]; !ok {
				req.Pages[slug] = []document.Instance{}
			}
		}
	}
	if req.Global == nil {
		req.Global = map[string]map[string]any{}
	}
	if req.Layout == nil {
		req.Layout = map[string]any{}
	}
	if req.ThemeBackups == nil {
		req.ThemeBackups = map[string]document.ThemeBackup{}
	}
	if req.ActiveTheme <= 0 {
		req.ActiveTheme = document.DefaultTheme
	}
	return req
}
