// Package config handles the global configuration file and environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/paperfeed/paperfeed/internal/filter"
	"github.com/paperfeed/paperfeed/internal/source/rss"
)

// Config is the configuration stored in ~/.config/paperfeed/config.yml.
type Config struct {
	DataDir  string       `yaml:"data_dir,omitempty"`
	Mailto   string       `yaml:"mailto,omitempty"`
	Feeds    []rss.Feed   `yaml:"feeds,omitempty"`
	OPMLPath string       `yaml:"opml_path,omitempty"`
	Filters  filter.Rules `yaml:"filters,omitempty"`
	Zotero   ZoteroConfig `yaml:"zotero,omitempty"`
}

// ZoteroConfig holds the target library settings.
type ZoteroConfig struct {
	LibraryID   string `yaml:"library_id,omitempty"`
	LibraryType string `yaml:"library_type,omitempty"` // "user" or "group"
	APIKey      string `yaml:"api_key,omitempty"`
	Collection  string `yaml:"collection,omitempty"` // name or key
}

const (
	// ConfigDir is the directory name under XDG_CONFIG_HOME.
	ConfigDir = "paperfeed"
	// ConfigFile is the config file name.
	ConfigFile = "config.yml"

	// Data file names under the data directory.
	PapersFile  = "papers.jsonl"
	HistoryFile = "history.db"
	BibFile     = "papers.bib"
)

// configCache caches the loaded config.
var configCache *Config

// Path returns the path to the config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/paperfeed/config.yml.
func Path() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, ConfigDir, ConfigFile)
}

// Load loads the configuration: a .env file if present, then the config
// file, then environment overrides. A missing config file yields an empty
// config, not an error.
func Load() (*Config, error) {
	if configCache != nil {
		return configCache, nil
	}

	// A .env in the working directory supplies credentials without
	// putting them in the config file. Missing is fine.
	_ = godotenv.Load()

	var cfg Config
	path := Path()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parsing config: %w", err)
			}
		}
	}

	applyEnvOverrides(&cfg)

	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir()
	}
	cfg.DataDir = ExpandPath(cfg.DataDir)
	cfg.OPMLPath = ExpandPath(cfg.OPMLPath)
	if cfg.Zotero.LibraryType == "" {
		cfg.Zotero.LibraryType = "user"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configCache = &cfg
	return &cfg, nil
}

// ResetCache clears the cached config. Useful for testing.
func ResetCache() {
	configCache = nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ZOTERO_API_KEY"); v != "" {
		cfg.Zotero.APIKey = v
	}
	if v := os.Getenv("ZOTERO_LIBRARY_ID"); v != "" {
		cfg.Zotero.LibraryID = v
	}
	if v := os.Getenv("PAPERFEED_MAILTO"); v != "" {
		cfg.Mailto = v
	}
	if v := os.Getenv("PAPERFEED_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
}

func defaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "."
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, ConfigDir)
}

// Validate checks field values that have a closed set of options.
func (c *Config) Validate() error {
	switch c.Zotero.LibraryType {
	case "", "user", "group":
	default:
		return fmt.Errorf("invalid zotero library_type: %s (valid: user, group)", c.Zotero.LibraryType)
	}
	return nil
}

// PapersPath returns the path to the collected-papers JSONL file.
func (c *Config) PapersPath() string {
	return filepath.Join(c.DataDir, PapersFile)
}

// HistoryPath returns the path to the fetch-history database.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.DataDir, HistoryFile)
}

// BibPath returns the path to the BibTeX export file.
func (c *Config) BibPath() string {
	return filepath.Join(c.DataDir, BibFile)
}

// EnsureDataDir creates the data directory if needed.
func (c *Config) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	return nil
}

// AllFeeds returns the configured feeds plus any from the OPML file.
func (c *Config) AllFeeds() ([]rss.Feed, error) {
	feeds := append([]rss.Feed(nil), c.Feeds...)
	if c.OPMLPath != "" {
		opmlFeeds, err := rss.LoadOPML(c.OPMLPath)
		if err != nil {
			return nil, err
		}
		feeds = append(feeds, opmlFeeds...)
	}
	return feeds, nil
}

// ErrLibraryNotConfigured is returned when the Zotero library is not set up.
var ErrLibraryNotConfigured = errors.New("zotero library_id not configured")

// ValidateZotero returns the Zotero settings after checking that the
// library is configured.
func (c *Config) ValidateZotero() (ZoteroConfig, error) {
	if c.Zotero.LibraryID == "" {
		return ZoteroConfig{}, ErrLibraryNotConfigured
	}
	return c.Zotero, nil
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path // Return original if we can't get home directory
	}

	return filepath.Join(home, path[1:])
}

// HelpfulConfigMessage returns a setup hint for when no config exists.
func HelpfulConfigMessage() string {
	configPath := Path()
	return fmt.Sprintf(`No paperfeed configuration found.

Tip: Create %s to configure feeds and the target library:
  mkdir -p %s
  cat > %s <<'EOF'
  feeds:
    - name: bioRxiv
      url: https://connect.biorxiv.org/biorxiv_xml.php?subject=all
  zotero:
    library_id: "12345"
  EOF

Set ZOTERO_API_KEY in the environment or a .env file.`,
		configPath,
		filepath.Dir(configPath),
		configPath)
}
