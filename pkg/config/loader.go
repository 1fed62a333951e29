package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/0xmhha/lf-watcher/pkg/fsutil"
)

// Loader provides methods for loading configuration from various sources.
type Loader interface {
	// Load loads configuration with the following precedence:
	// 1. Environment variables
	// 2. Configuration file
	// 3. Default values
	//
	// Returns the merged configuration or an error if validation fails.
	Load() (*Config, error)

	// LoadFromFile loads configuration from a specific file.
	LoadFromFile(path string) (*Config, error)

	// Source returns the config file that Load used, or "" for defaults only.
	Source() string
}

// loader implements the Loader interface.
type loader struct {
	configPath string
	source     string
}

// NewLoader creates a new configuration loader.
//
// If configPath is empty, searches for config file in:
// 1. ./lf-watcher.yaml (current directory)
// 2. $XDG_CONFIG_HOME/lf-watcher/config.yaml.
func NewLoader(configPath string) Loader {
	return &loader{
		configPath: configPath,
	}
}

// Load implements Loader.Load.
func (l *loader) Load() (*Config, error) {
	cfg := Default()

	configPath := l.configPath
	if configPath == "" {
		configPath = l.findConfigFile()
	}

	if configPath != "" {
		fileCfg, err := l.LoadFromFile(configPath)
		if err != nil {
			// An explicit path must load; a discovered one may be skipped.
			if l.configPath != "" {
				return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
			}
		} else {
			cfg = l.mergeConfigs(cfg, fileCfg)
			l.source = configPath
		}
	}

	cfg = l.applyEnvVars(cfg)
	cfg.expandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadFromFile implements Loader.LoadFromFile.
func (l *loader) LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) // nolint:gosec
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return &cfg, nil
}

// Source implements Loader.Source.
func (l *loader) Source() string {
	return l.source
}

// findConfigFile returns the first existing file from SearchPaths.
func (l *loader) findConfigFile() string {
	for _, path := range SearchPaths() {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// mergeConfigs merges file configuration into default configuration.
//
// File values override defaults, but only if they are non-zero.
func (l *loader) mergeConfigs(base, override *Config) *Config {
	result := *base

	// Document
	if override.Document.Path != "" {
		result.Document.Path = override.Document.Path
	}
	if override.Document.TrackingDir != "" {
		result.Document.TrackingDir = override.Document.TrackingDir
	}
	if override.Document.ReloadDebounce > 0 {
		result.Document.ReloadDebounce = override.Document.ReloadDebounce
	}
	if override.Document.WriteSettle > 0 {
		result.Document.WriteSettle = override.Document.WriteSettle
	}
	if override.Document.Retries > 0 {
		result.Document.Retries = override.Document.Retries
	}
	if override.Document.ReadRetryDelay > 0 {
		result.Document.ReadRetryDelay = override.Document.ReadRetryDelay
	}
	if override.Document.WriteRetryDelay > 0 {
		result.Document.WriteRetryDelay = override.Document.WriteRetryDelay
	}

	// Workspace
	if override.Workspace.Root != "" {
		result.Workspace.Root = override.Workspace.Root
	}
	if override.Workspace.LinkExtension != "" {
		result.Workspace.LinkExtension = override.Workspace.LinkExtension
	}

	// Reconcile
	if override.Reconcile.LinkSettleDelay > 0 {
		result.Reconcile.LinkSettleDelay = override.Reconcile.LinkSettleDelay
	}
	if override.Reconcile.EntrySettleDelay > 0 {
		result.Reconcile.EntrySettleDelay = override.Reconcile.EntrySettleDelay
	}
	if override.Reconcile.RenamePairWindow > 0 {
		result.Reconcile.RenamePairWindow = override.Reconcile.RenamePairWindow
	}

	// Shortcut
	if override.Shortcut.UpdateRetries > 0 {
		result.Shortcut.UpdateRetries = override.Shortcut.UpdateRetries
	}
	if override.Shortcut.UpdateRetryDelay > 0 {
		result.Shortcut.UpdateRetryDelay = override.Shortcut.UpdateRetryDelay
	}
	if override.Shortcut.RenameRetries > 0 {
		result.Shortcut.RenameRetries = override.Shortcut.RenameRetries
	}
	if override.Shortcut.RenameRetryDelay > 0 {
		result.Shortcut.RenameRetryDelay = override.Shortcut.RenameRetryDelay
	}
	if override.Shortcut.ResolveTimeout > 0 {
		result.Shortcut.ResolveTimeout = override.Shortcut.ResolveTimeout
	}
	if override.Shortcut.SearchDepth > 0 {
		result.Shortcut.SearchDepth = override.Shortcut.SearchDepth
	}
	if override.Shortcut.SearchBudget > 0 {
		result.Shortcut.SearchBudget = override.Shortcut.SearchBudget
	}
	if len(override.Shortcut.SearchRoots) > 0 {
		result.Shortcut.SearchRoots = override.Shortcut.SearchRoots
	}

	// Storage
	if override.Storage.JournalPath != "" {
		result.Storage.JournalPath = override.Storage.JournalPath
	}
	if override.Storage.Retention > 0 {
		result.Storage.Retention = override.Storage.Retention
	}

	// Logging
	if override.Logging.Level != "" {
		result.Logging.Level = override.Logging.Level
	}
	if override.Logging.Output != "" {
		result.Logging.Output = override.Logging.Output
	}
	if override.Logging.Format != "" {
		result.Logging.Format = override.Logging.Format
	}

	return &result
}

// applyEnvVars applies environment variable overrides to the configuration.
//
// Supported environment variables:
//   - LF_WATCHER_DOCUMENT: Path to the shared document
//   - LF_WATCHER_TRACKING_DIR: Tracking shortcut directory
//   - LF_WATCHER_WORKSPACE: Workspace root
//   - LF_WATCHER_JOURNAL: Path to the journal database
//   - LF_WATCHER_LOG_LEVEL: Log level
func (l *loader) applyEnvVars(cfg *Config) *Config {
	result := *cfg

	if v := os.Getenv("LF_WATCHER_DOCUMENT"); v != "" {
		result.Document.Path = v
	}
	if v := os.Getenv("LF_WATCHER_TRACKING_DIR"); v != "" {
		result.Document.TrackingDir = v
	}
	if v := os.Getenv("LF_WATCHER_WORKSPACE"); v != "" {
		result.Workspace.Root = v
	}
	if v := os.Getenv("LF_WATCHER_JOURNAL"); v != "" {
		result.Storage.JournalPath = v
	}
	if v := os.Getenv("LF_WATCHER_LOG_LEVEL"); v != "" {
		result.Logging.Level = strings.ToLower(v)
	}

	return &result
}

// expandPaths expands ~ in every path-valued setting.
func (c *Config) expandPaths() {
	c.Document.Path = fsutil.ExpandHome(c.Document.Path)
	c.Document.TrackingDir = fsutil.ExpandHome(c.Document.TrackingDir)
	c.Workspace.Root = fsutil.ExpandHome(c.Workspace.Root)
	c.Storage.JournalPath = fsutil.ExpandHome(c.Storage.JournalPath)
	for i, root := range c.Shortcut.SearchRoots {
		c.Shortcut.SearchRoots[i] = fsutil.ExpandHome(root)
	}
}

// Load is a convenience function that creates a loader and loads configuration.
func Load() (*Config, error) {
	return NewLoader("").Load()
}

// LoadFromFile is a convenience function that loads configuration from a file.
func LoadFromFile(path string) (*Config, error) {
	return NewLoader(path).Load()
}

// Save writes the configuration to a YAML file.
//
// Creates parent directories if they don't exist.
// File is created with 0600 permissions (read/write for owner only).
func Save(cfg *Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
