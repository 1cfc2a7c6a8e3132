package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// DefaultDBPath is where the harvester and ingestor keep the preprints database.
const DefaultDBPath = "data/preprints.db"

// DefaultBusyTimeoutMs lets statements wait up to 10s on a locked database.
const DefaultBusyTimeoutMs = 10000

// FTSConfig names the content table mirrored by the full-text index.
type FTSConfig struct {
	Source  string   `toml:"source" yaml:"source"`
	Columns []string `toml:"columns" yaml:"columns"`
}

// IndexConfig lists the columns of one table that get an idx_<table>_<column> index.
type IndexConfig struct {
	Table   string   `toml:"table" yaml:"table"`
	Columns []string `toml:"columns" yaml:"columns"`
}

// Config holds global application configuration
type Config struct {
	DBPath        string        `toml:"database" yaml:"database"`
	BusyTimeoutMs int           `toml:"busy_timeout_ms" yaml:"busy_timeout_ms"`
	FTS           FTSConfig     `toml:"fts" yaml:"fts"`
	Indexes       []IndexConfig `toml:"indexes" yaml:"indexes"`
	Schedule      string        `toml:"schedule" yaml:"schedule"`

	Verbose bool `toml:"-" yaml:"-"`
}

// New creates a new configuration with defaults
func New() *Config {
	return &Config{
		DBPath:        DefaultDBPath,
		BusyTimeoutMs: DefaultBusyTimeoutMs,
		FTS: FTSConfig{
			Source:  "preprints_ui",
			Columns: []string{"title", "description", "contributors_list"},
		},
		Indexes: []IndexConfig{
			{Table: "preprints", Columns: []string{"date_created", "date_modified", "provider"}},
			{Table: "contributors", Columns: []string{"full_name"}},
			{Table: "preprint_contributors", Columns: []string{"preprint_id", "contributor_id"}},
			{Table: "preprint_subjects", Columns: []string{"preprint_id", "subject_id"}},
			{Table: "preprints_ui", Columns: []string{"date_created", "date_modified", "provider"}},
		},
		Schedule: "0 3 * * *",
	}
}

// Load overlays the file at path on top of c. The format is picked from the
// file extension: .toml, .yaml or .yml.
func (c *Config) Load(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.Decode(string(raw), c); err != nil {
			return fmt.Errorf("decoding TOML config %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, c); err != nil {
			return fmt.Errorf("decoding YAML config %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config format %q (want .toml, .yaml or .yml)", ext)
	}

	return c.Validate()
}

// Validate rejects configurations the maintenance run cannot work with.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("database path is empty")
	}
	if c.BusyTimeoutMs < 0 {
		return fmt.Errorf("busy_timeout_ms must not be negative, got %d", c.BusyTimeoutMs)
	}
	if c.FTS.Source == "" {
		return fmt.Errorf("fts.source is empty")
	}
	if len(c.FTS.Columns) == 0 {
		return fmt.Errorf("fts.columns is empty")
	}
	for i, idx := range c.Indexes {
		if idx.Table == "" {
			return fmt.Errorf("indexes[%d]: table is empty", i)
		}
	}
	return nil
}

// ResolveDBPath makes DBPath absolute. When DBPath is still the default and
// does not exist in the working directory, the parent directories are searched
// for it, so the tool can be started from anywhere inside the project tree.
// A path named explicitly is only made absolute.
func (c *Config) ResolveDBPath(explicit bool) error {
	if filepath.IsAbs(c.DBPath) {
		return nil
	}

	if !explicit && c.DBPath == DefaultDBPath {
		if _, err := os.Stat(c.DBPath); err != nil {
			if found, ferr := c.FindExistingDBPath(); ferr == nil {
				c.DBPath = found
				return nil
			}
		}
	}

	absPath, err := filepath.Abs(c.DBPath)
	if err != nil {
		return fmt.Errorf("resolving database path: %w", err)
	}
	c.DBPath = absPath
	return nil
}

// FindExistingDBPath searches for DBPath up the directory tree
func (c *Config) FindExistingDBPath() (string, error) {
	// Start from current working directory
	currentDir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}

	// Search up the directory tree until we reach the root
	for {
		dbPath := filepath.Join(currentDir, c.DBPath)
		if _, err := os.Stat(dbPath); err == nil {
			return dbPath, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}

		currentDir = parentDir
	}

	return "", fmt.Errorf("no %s found in directory tree", c.DBPath)
}
