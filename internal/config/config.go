package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"repotree/internal/logging"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

const APP_NAME = "repotree" // application name used for config directory

// Config holds user configuration for repotree. All durations and limits
// are tunables: small enough to feel responsive, large enough to coalesce
// a burst of file-system events. None of the exact figures is load-bearing.
type Config struct {
	// ChildDebounce is the quiescence window applied to watcher events on
	// an ordinary folder before its children are refreshed.
	ChildDebounce time.Duration `yaml:"child_debounce"`

	// RootDebounce is the coarser window applied to the top-level watcher
	// that rebuilds the config-file tree.
	RootDebounce time.Duration `yaml:"root_debounce"`

	// SearchLimit caps the number of results a single search traversal may
	// emit before it stops walking the tree.
	SearchLimit int `yaml:"search_limit"`

	// SearchWorkers bounds per-level search parallelism. Zero means use
	// the number of available CPUs.
	SearchWorkers int `yaml:"search_workers"`

	// SkipPatterns lists directory names never descended into during
	// search or listing.
	SkipPatterns []string `yaml:"skip_patterns"`

	Version string `yaml:"version"` // Track config version
}

// ConfigPath returns the standard config file path for the current platform.
func ConfigPath() (string, error) {
	configDir := filepath.Join(xdg.ConfigHome, APP_NAME)
	configPath := filepath.Join(configDir, "config.yaml")

	logging.Debug("Determined config path", "path", configPath)
	return configPath, nil
}

// Load loads the config from the standard location. A missing file is not
// an error: defaults are returned so the tool works with zero setup.
func Load() (*Config, error) {
	configPath, exists := FindConfigFile()
	logging.Debug("Loading config from", "path", configPath)
	if !exists {
		cfg := DefaultConfig()
		return &cfg, nil
	}

	return LoadFrom(configPath)
}

// LoadFrom loads config from a specific path.
func LoadFrom(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	cfg := DefaultConfig()
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FindConfigFile returns the path to an existing config file, and whether it exists.
func FindConfigFile() (string, bool) {
	primary, err := ConfigPath()
	if err != nil {
		logging.Error("Failed to get config path", "error", err)
		return "", false
	}

	if _, err := os.Stat(primary); err == nil {
		logging.Debug("Config found at primary path", "path", primary)
		return primary, true
	}

	// Return primary path for new config
	return primary, false
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ChildDebounce: 100 * time.Millisecond,
		RootDebounce:  200 * time.Millisecond,
		SearchLimit:   200,
		SearchWorkers: 0,
		SkipPatterns:  []string{".git", "node_modules", "vendor", "dist", "__pycache__"},
		Version:       "1.0",
	}
}

// Save writes the config to the standard location.
func (c *Config) Save() error {
	configPath, _ := FindConfigFile()
	return c.SaveTo(configPath)
}

// SaveTo writes the config to a specific path.
func (c *Config) SaveTo(path string) error {
	if err := c.validate(); err != nil {
		return err
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	defer enc.Close()

	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

func (c *Config) validate() error {
	if c.ChildDebounce <= 0 {
		return fmt.Errorf("child_debounce must be positive, got %v", c.ChildDebounce)
	}
	if c.RootDebounce <= 0 {
		return fmt.Errorf("root_debounce must be positive, got %v", c.RootDebounce)
	}
	if c.SearchLimit <= 0 {
		return fmt.Errorf("search_limit must be positive, got %d", c.SearchLimit)
	}
	if c.SearchWorkers < 0 {
		return fmt.Errorf("search_workers cannot be negative, got %d", c.SearchWorkers)
	}
	return nil
}
