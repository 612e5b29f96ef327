// Package config loads the sitecraft configuration file.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/sitecraft/pkg/cache"
	"github.com/matzehuels/sitecraft/pkg/changelog"
	"github.com/matzehuels/sitecraft/pkg/collision"
	"github.com/matzehuels/sitecraft/pkg/editor"
	"github.com/matzehuels/sitecraft/pkg/errors"
	"github.com/matzehuels/sitecraft/pkg/geom"
	"github.com/matzehuels/sitecraft/pkg/placement"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreMongo  = "mongo"
)

// Cache backends.
const (
	CacheNone  = "none"
	CacheFile  = "file"
	CacheRedis = "redis"
)

// Config is the decoded configuration file.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Store     StoreConfig     `toml:"store"`
	Cache     CacheConfig     `toml:"cache"`
	Editor    EditorConfig    `toml:"editor"`
	Placement PlacementConfig `toml:"placement"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type StoreConfig struct {
	Backend         string `toml:"backend"`
	Dir             string `toml:"dir"`
	MongoURI        string `toml:"mongo_uri"`
	MongoDatabase   string `toml:"mongo_database"`
	MongoCollection string `toml:"mongo_collection"`
}

type CacheConfig struct {
	Backend       string        `toml:"backend"`
	Dir           string        `toml:"dir"`
	RedisAddr     string        `toml:"redis_addr"`
	RedisPassword string        `toml:"redis_password"`
	RedisDB       int           `toml:"redis_db"`
	TTL           time.Duration `toml:"ttl"`
	// Prefix scopes keys so several deployments can share one Redis.
	Prefix string `toml:"prefix"`
}

type EditorConfig struct {
	ChangelogSize int           `toml:"changelog_size"`
	SaveDebounce  time.Duration `toml:"save_debounce"`
	AutoSave      bool          `toml:"auto_save"`
}

type PlacementConfig struct {
	MidpointOffset float64 `toml:"midpoint_offset"`
	LiveReorder    bool    `toml:"live_reorder"`
	Axis           string  `toml:"axis"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{Addr: "127.0.0.1:8080"},
		Store: StoreConfig{
			Backend:         StoreMemory,
			MongoDatabase:   "sitecraft",
			MongoCollection: "tenants",
		},
		Cache: CacheConfig{
			Backend:   CacheNone,
			RedisAddr: "127.0.0.1:6379",
			TTL:       cache.SnapshotTTL,
		},
		Editor: EditorConfig{
			ChangelogSize: changelog.DefaultCapacity,
			SaveDebounce:  editor.DefaultSaveDebounce,
		},
		Placement: PlacementConfig{
			MidpointOffset: collision.DefaultMidpointOffset,
			Axis:           "vertical",
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/sitecraft/config.toml, falling back
// to ~/.config.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "sitecraft", "config.toml")
}

// Load reads path over the defaults. An empty path tries DefaultPath and
// returns the defaults when that file does not exist.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, errors.Wrap(errors.ErrCodeInvalidInput, err, "read config")
	}
	return Parse(data, cfg)
}

// Parse decodes data over base and validates the result.
func Parse(data []byte, base Config) (Config, error) {
	cfg := base
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return base, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse config")
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return base, errors.New(errors.ErrCodeInvalidInput, "unknown config key %q", undec[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return base, err
	}
	return cfg, nil
}

// Validate checks backend names and numeric ranges.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case StoreMemory, StoreFile:
	case StoreMongo:
		if c.Store.MongoURI == "" {
			return errors.New(errors.ErrCodeInvalidInput, "store.mongo_uri is required for the mongo backend")
		}
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown store backend %q", c.Store.Backend)
	}
	switch c.Cache.Backend {
	case CacheNone, CacheFile, CacheRedis:
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown cache backend %q", c.Cache.Backend)
	}
	if c.Editor.ChangelogSize < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "editor.changelog_size must not be negative")
	}
	if c.Placement.MidpointOffset < 0 || c.Placement.MidpointOffset >= 0.5 {
		return errors.New(errors.ErrCodeInvalidInput, "placement.midpoint_offset must be in [0, 0.5)")
	}
	if _, err := c.axis(); err != nil {
		return err
	}
	return nil
}

func (c Config) axis() (geom.Axis, error) {
	switch c.Placement.Axis {
	case "", "vertical":
		return geom.Vertical, nil
	case "horizontal":
		return geom.Horizontal, nil
	}
	return 0, errors.New(errors.ErrCodeInvalidInput, "unknown placement axis %q", c.Placement.Axis)
}

// EditorOptions converts the editor and placement sections.
func (c Config) EditorOptions() editor.Options {
	axis, _ := c.axis()
	return editor.Options{
		ChangelogSize: c.Editor.ChangelogSize,
		AutoSave:      c.Editor.AutoSave,
		SaveDebounce:  c.Editor.SaveDebounce,
		Placement: placement.Options{
			Collision: collision.Options{
				MidpointOffset: c.Placement.MidpointOffset,
				Axis:           axis,
			},
			Live: c.Placement.LiveReorder,
		},
	}
}
