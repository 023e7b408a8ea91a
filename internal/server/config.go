package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/shaunagostinho/oceagpx/internal/export"
)

const defaultConfigPath = "config.yaml"

// Config holds all application configuration.
type Config struct {
	mu sync.RWMutex

	// Navigation-log source
	Source SourceConfig `yaml:"source" json:"source"`

	// GPX export settings
	Export ExportConfig `yaml:"export" json:"export"`

	// Export journal
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Server
	Server ServerConfig `yaml:"server" json:"server"`

	// Remembered between runs
	State StateConfig `yaml:"state" json:"state"`

	path string // file path for save/load
}

type SourceConfig struct {
	Type     string `yaml:"type" json:"type"`         // "sqlite" or "demo"
	DBPath   string `yaml:"db_path" json:"dbPath"`    // plotter database file
	Timezone string `yaml:"timezone" json:"timezone"` // zone the plotter logged in, "Local" by default
}

type ExportConfig struct {
	DefaultOutputPath string `yaml:"default_output_path" json:"defaultOutputPath"`
	ConfirmOnExport   bool   `yaml:"confirm_on_export" json:"confirmOnExport"`
	MaxPoints         int    `yaml:"max_points" json:"maxPoints"` // 0 = unlimited
}

type LoggingConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

type ServerConfig struct {
	ListenAddr  string   `yaml:"listen_addr" json:"listenAddr"`
	CorsOrigins []string `yaml:"cors_origins" json:"corsOrigins"`
}

type StateConfig struct {
	LastDBPath string `yaml:"last_db_path" json:"lastDbPath"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Type:     "sqlite",
			Timezone: "Local",
		},
		Export: ExportConfig{
			ConfirmOnExport: true,
			MaxPoints:       50000,
		},
		Logging: LoggingConfig{
			Enabled: false,
			Path:    "logs",
		},
		Server: ServerConfig{
			ListenAddr: "127.0.0.1:8080",
		},
	}
}

// LoadConfig reads config from a YAML file, then applies .env and environment
// variable overrides. Falls back to defaults if YAML not found.
func LoadConfig(path string) *Config {
	if path == "" {
		path = defaultConfigPath
	}

	cfg, found, err := readFile(path)
	switch {
	case err != nil:
		log.Printf("[config] %v, using defaults", err)
		cfg = DefaultConfig()
		cfg.path = path
	case !found:
		log.Printf("[config] no config at %s, using defaults", path)
	default:
		log.Printf("[config] loaded from %s", path)
	}

	// .env next to the config, then in CWD. Real env takes precedence.
	envPaths := []string{
		filepath.Join(filepath.Dir(path), ".env"),
		".env",
	}
	for _, ep := range envPaths {
		if _, err := os.Stat(ep); err != nil {
			continue
		}
		if err := godotenv.Load(ep); err != nil {
			log.Printf("[config] error loading %s: %v", ep, err)
			continue
		}
		log.Printf("[config] loaded .env from %s", ep)
	}

	cfg.applyEnvOverrides()
	return cfg
}

// applyEnvOverrides reads environment variables and overrides config values.
// Supported: SOURCE_TYPE, DB_PATH, SOURCE_TZ, OUTPUT_PATH, CONFIRM_ON_EXPORT,
// MAX_POINTS, LOG_ENABLED, LOG_PATH, LISTEN_ADDR, CORS_ORIGINS
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SOURCE_TYPE"); v != "" {
		c.Source.Type = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		c.Source.DBPath = v
	}
	if v := os.Getenv("SOURCE_TZ"); v != "" {
		c.Source.Timezone = v
	}
	if v := os.Getenv("OUTPUT_PATH"); v != "" {
		c.Export.DefaultOutputPath = v
	}
	if v := os.Getenv("CONFIRM_ON_EXPORT"); v != "" {
		c.Export.ConfirmOnExport = truthy(v)
	}
	if v := os.Getenv("MAX_POINTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Export.MaxPoints = n
		}
	}
	// Logging
	if v := os.Getenv("LOG_ENABLED"); v != "" {
		c.Logging.Enabled = truthy(v)
	}
	if v := os.Getenv("LOG_PATH"); v != "" {
		c.Logging.Path = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.Server.ListenAddr = v
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.Server.CorsOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.Server.CorsOrigins = append(c.Server.CorsOrigins, o)
			}
		}
	}
}

func truthy(v string) bool {
	return v == "1" || v == "true" || v == "yes"
}

// Path returns the file the config is saved to.
func (c *Config) Path() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.path == "" {
		return defaultConfigPath
	}
	return c.path
}

// readFile loads the YAML file over the defaults, without .env or
// environment overrides. A missing file is not an error.
func readFile(path string) (*Config, bool, error) {
	cfg := DefaultConfig()
	cfg.path = path

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, false, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, true, nil
}

// Save writes the config to its YAML file.
func (c *Config) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	path := c.path
	if path == "" {
		path = defaultConfigPath
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// PersistLastDBPath records dbPath in memory and in the config file. Only
// state.last_db_path changes on disk; flag, .env and environment overrides
// held by c stay out of the file.
func (c *Config) PersistLastDBPath(dbPath string) error {
	c.SetLastDBPath(dbPath)

	stored, _, err := readFile(c.Path())
	if err != nil {
		return err
	}
	stored.State.LastDBPath = dbPath
	return stored.Save()
}

// SaveUpdate applies a partial JSON update to the config file.
// Runtime overrides held by c are not written.
func (c *Config) SaveUpdate(patch []byte) error {
	stored, _, err := readFile(c.Path())
	if err != nil {
		return err
	}
	if err := stored.UpdateFromJSON(patch); err != nil {
		return err
	}
	return stored.Save()
}

// SetLastDBPath remembers the database opened most recently.
func (c *Config) SetLastDBPath(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.State.LastDBPath = path
}

// DBPath returns the configured database, or the last one opened.
func (c *Config) DBPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.Source.DBPath != "" {
		return c.Source.DBPath
	}
	return c.State.LastDBPath
}

// Location resolves the source timezone. Unknown names fall back to Local.
func (c *Config) Location() *time.Location {
	c.mu.RLock()
	tz := c.Source.Timezone
	c.mu.RUnlock()

	if tz == "" || tz == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("[config] unknown timezone %q, using Local: %v", tz, err)
		return time.Local
	}
	return loc
}

// ExportOptions snapshots the export settings. Prompt and Progress are left
// for the caller.
func (c *Config) ExportOptions() export.Options {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return export.Options{
		OutputDir:       c.Export.DefaultOutputPath,
		MaxPoints:       c.Export.MaxPoints,
		ConfirmOnExport: c.Export.ConfirmOnExport,
	}
}

// ToJSON serializes config for the API.
func (c *Config) ToJSON() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return json.Marshal(c)
}

// UpdateFromJSON applies a partial JSON config update by deep-merging
// incoming fields into the existing config. Fields not present in the
// incoming JSON are preserved.
func (c *Config) UpdateFromJSON(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	currentBytes, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal current config: %w", err)
	}
	var base map[string]interface{}
	if err := json.Unmarshal(currentBytes, &base); err != nil {
		return fmt.Errorf("unmarshal current config: %w", err)
	}

	var patch map[string]interface{}
	if err := json.Unmarshal(data, &patch); err != nil {
		return fmt.Errorf("unmarshal patch: %w", err)
	}

	deepMerge(base, patch)

	merged, err := json.Marshal(base)
	if err != nil {
		return fmt.Errorf("marshal merged config: %w", err)
	}
	return json.Unmarshal(merged, c)
}

// deepMerge recursively merges src into dst. For nested maps, values are
// merged rather than replaced. For all other types, src overwrites dst.
func deepMerge(dst, src map[string]interface{}) {
	for key, srcVal := range src {
		if srcMap, ok := srcVal.(map[string]interface{}); ok {
			if dstMap, ok := dst[key].(map[string]interface{}); ok {
				deepMerge(dstMap, srcMap)
				continue
			}
		}
		dst[key] = srcVal
	}
}
