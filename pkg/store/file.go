package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/matzehuels/sitecraft/pkg/document"
	apperrors "github.com/matzehuels/sitecraft/pkg/errors"
)

// FileStore keeps one JSON file per tenant, for CLI use.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
	now     func() time.Time
}

// NewFileStore creates a file-based gateway.
// If baseDir is empty, defaults to ~/.config/sitecraft/tenants/
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		baseDir = filepath.Join(home, ".config", "sitecraft", "tenants")
	}
	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		return nil, fmt.Errorf("create tenant dir: %w", err)
	}
	return &FileStore{baseDir: baseDir, now: time.Now}, nil
}

func (s *FileStore) tenantPath(tenantID string) string {
	return filepath.Join(s.baseDir, tenantID+".json")
}

// Load reads the tenant's file.
func (s *FileStore) Load(_ context.Context, tenantID string) (*document.Snapshot, error) {
	if err := apperrors.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read(tenantID)
}

func (s *FileStore) read(tenantID string) (*document.Snapshot, error) {
	data, err := os.ReadFile(s.tenantPath(tenantID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("tenant %q: %w", tenantID, ErrNotFound)
		}
		return nil, apperrors.Wrap(apperrors.ErrCodeStorage, err, "read tenant file")
	}
	var snap document.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeStorage, err, "parse tenant %q", tenantID)
	}
	snap.TenantID = tenantID
	return &snap, nil
}

// Save applies req and rewrites the tenant's file atomically.
func (s *FileStore) Save(_ context.Context, req SaveRequest) (SaveResult, error) {
	if err := req.Validate(); err != nil {
		return SaveResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.read(req.TenantID)
	if err != nil && !IsNotFound(err) {
		return SaveResult{}, err
	}
	next, res := Apply(cur, req, s.now())

	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return SaveResult{}, apperrors.Wrap(apperrors.ErrCodeInternal, err, "marshal tenant")
	}
	path := s.tenantPath(req.TenantID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return SaveResult{}, apperrors.Wrap(apperrors.ErrCodeStorage, err, "write tenant file")
	}
	if err := os.Rename(tmp, path); err != nil {
		return SaveResult{}, apperrors.Wrap(apperrors.ErrCodeStorage, err, "replace tenant file")
	}
	return res, nil
}

// Tenants lists the tenants with a stored document.
func (s *FileStore) Tenants() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read tenant dir: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

// Path returns the base directory for tenant files.
func (s *FileStore) Path() string {
	return s.baseDir
}

// Close does nothing.
func (s *FileStore) Close() error { return nil }

var _ Gateway = (*FileStore)(nil)
