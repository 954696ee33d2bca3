package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"crashaudit/internal/extract"
)

// Defaults target the repository this tool was written for; every field
// can be overridden in the config file.
const (
	DefaultOwner      = "rust-lang"
	DefaultRepo       = "rust"
	DefaultTestPrefix = "tests/crashes/"
)

// Config holds the crashaudit configuration.
type Config struct {
	Owner       string `toml:"owner"`        // tracker repository owner
	Repo        string `toml:"repo"`         // tracker repository name
	TestPrefix  string `toml:"test_prefix"`  // monitored path prefix in the audited repo
	MergeMarker string `toml:"merge_marker"` // merge-bot commit message marker
	CacheDir    string `toml:"cache_dir"`    // snapshot cache location; empty = user cache dir
}

// Slug returns the "owner/repo" form of the tracker repository.
func (c *Config) Slug() string {
	return c.Owner + "/" + c.Repo
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Owner:       DefaultOwner,
		Repo:        DefaultRepo,
		TestPrefix:  DefaultTestPrefix,
		MergeMarker: extract.DefaultMergeMarker,
	}
}

// ValidatePath checks that the path is absolute or starts with ~
// Returns error if path is relative (like "." or "..")
func ValidatePath(path, fieldName string) error {
	if path == "" {
		return nil // Empty is allowed (means not configured)
	}
	// Allow ~ paths
	if len(path) >= 1 && path[0] == '~' {
		return nil
	}
	// Must be absolute
	if !filepath.IsAbs(path) {
		return fmt.Errorf("%s must be absolute or start with ~, got: %q", fieldName, path)
	}
	return nil
}

// expandPath expands ~ to the user's home directory
func expandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expand ~: %w", err)
		}
		return filepath.Join(home, path[2:]), nil
	}
	if path == "~" {
		return os.UserHomeDir()
	}
	return path, nil
}

// configPath returns the path to the config file
func configPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "crashaudit", "config.toml"), nil
}

// Load reads config from ~/.config/crashaudit/config.toml
// Returns Default() if the file doesn't exist (no error)
// Returns error only if the file exists but is invalid
func Load() (Config, error) {
	path, err := configPath()
	if err != nil {
		return Default(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from an explicit path. Missing fields fall back
// to defaults.
func LoadFrom(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Default(), fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Owner == "" || cfg.Repo == "" {
		return Default(), fmt.Errorf("owner and repo must not be empty")
	}

	// Validate cache_dir (must be absolute or start with ~)
	if err := ValidatePath(cfg.CacheDir, "cache_dir"); err != nil {
		return Default(), err
	}

	// Expand ~ in cache_dir (shell doesn't expand in config files)
	if cfg.CacheDir != "" {
		expanded, err := expandPath(cfg.CacheDir)
		if err != nil {
			return Default(), fmt.Errorf("expand cache_dir: %w", err)
		}
		cfg.CacheDir = expanded
	}

	// Use defaults for empty values
	if cfg.TestPrefix == "" {
		cfg.TestPrefix = DefaultTestPrefix
	}
	if cfg.MergeMarker == "" {
		cfg.MergeMarker = extract.DefaultMergeMarker
	}

	return cfg, nil
}

const defaultConfig = `# crashaudit configuration

# Tracker repository whose open issues are audited against deleted
# crash tests.
# owner = "rust-lang"
# repo = "rust"

# Path prefix of crash regression tests inside the audited repository.
# Files under this prefix are named "<issue>.rs" or "<issue>-<slug>.rs".
# test_prefix = "tests/crashes/"

# Commit message marker used by the merge bot. The pull request number
# is read from the digits immediately following this marker.
# merge_marker = "Auto merge of #"

# Where to store the open-issue snapshot cache.
# Must be an absolute path or start with ~ (no relative paths).
# Defaults to the user cache directory (e.g. ~/.cache/crashaudit).
# cache_dir = "~/.cache/crashaudit"
`

// Init creates a default config file at ~/.config/crashaudit/config.toml
// If force is true, overwrites existing file
// Returns the path to the created file
func Init(force bool) (string, error) {
	path, err := configPath()
	if err != nil {
		return "", err
	}

	// Check if file already exists (skip if force)
	if !force {
		if _, err := os.Stat(path); err == nil {
			return "", errors.New("config file already exists: " + path)
		}
	}

	// Create directory
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	// Write default config
	if err := os.WriteFile(path, []byte(defaultConfig), 0644); err != nil {
		return "", err
	}

	return path, nil
}
