// Package config provides configuration management for lf-watcher.
//
// Configuration is loaded from multiple sources with the following precedence:
// 1. Command-line flags (highest priority)
// 2. Environment variables
// 3. Configuration file
// 4. Default values (lowest priority)
//
// This is the daemon's own configuration. The shared document holding
// bookmarks and yank history belongs to the file manager and is handled by
// package document.
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Document: %s\n", cfg.Document.Path)
package config

import (
	"time"
)

// Config represents the complete application configuration.
//
// Invariants:
// - Document.Path and Document.TrackingDir must be set
// - all delays and retry counts must be > 0
// - Storage.JournalPath must be set.
type Config struct {
	// Shared document settings
	Document DocumentConfig `yaml:"document"`

	// Workspace tree settings
	Workspace WorkspaceConfig `yaml:"workspace"`

	// Reconciliation timing
	Reconcile ReconcileConfig `yaml:"reconcile"`

	// Shortcut file handling
	Shortcut ShortcutConfig `yaml:"shortcut"`

	// Storage settings
	Storage StorageConfig `yaml:"storage"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging"`
}

// DocumentConfig describes the document shared with the file manager.
type DocumentConfig struct {
	// Path to the shared YAML document
	Path string `yaml:"path"`

	// Private directory holding tracking shortcuts
	TrackingDir string `yaml:"tracking_dir"`

	// Quiet period before an external change triggers a reload
	ReloadDebounce time.Duration `yaml:"reload_debounce"`

	// Pause before each read-modify-write cycle
	WriteSettle time.Duration `yaml:"write_settle"`

	// Read and write attempts
	Retries int `yaml:"retries"`

	// Delay between read attempts
	ReadRetryDelay time.Duration `yaml:"read_retry_delay"`

	// Delay between write attempts
	WriteRetryDelay time.Duration `yaml:"write_retry_delay"`
}

// WorkspaceConfig contains workspace tree settings.
type WorkspaceConfig struct {
	// Root overrides the workspace directory named in the document.
	// Relative values are resolved against the home directory.
	Root string `yaml:"root"`

	// Extension of shortcut files inside the workspace
	LinkExtension string `yaml:"link_extension"`
}

// ReconcileConfig contains the settle delays of the reconciliation engine.
type ReconcileConfig struct {
	// Wait before classifying a workspace link target delete
	LinkSettleDelay time.Duration `yaml:"link_settle_delay"`

	// Wait before classifying a bookmark or yank target delete
	EntrySettleDelay time.Duration `yaml:"entry_settle_delay"`

	// Window in which a rename-away and a create are paired into a rename
	RenamePairWindow time.Duration `yaml:"rename_pair_window"`
}

// ShortcutConfig contains shortcut file settings.
type ShortcutConfig struct {
	// Attempts for rewriting a link target
	UpdateRetries int `yaml:"update_retries"`

	// Delay between target rewrite attempts
	UpdateRetryDelay time.Duration `yaml:"update_retry_delay"`

	// Attempts for renaming a workspace link file
	RenameRetries int `yaml:"rename_retries"`

	// Delay between rename attempts
	RenameRetryDelay time.Duration `yaml:"rename_retry_delay"`

	// Upper bound on a single resolution
	ResolveTimeout time.Duration `yaml:"resolve_timeout"`

	// Ancestor levels searched above the last-known parent
	SearchDepth int `yaml:"search_depth"`

	// Maximum directory entries examined per resolution
	SearchBudget int `yaml:"search_budget"`

	// Extra directories searched after the ancestors
	SearchRoots []string `yaml:"search_roots"`
}

// StorageConfig contains storage-related settings.
type StorageConfig struct {
	// Path to BoltDB journal file
	JournalPath string `yaml:"journal_path"`

	// How long journal entries are kept
	Retention time.Duration `yaml:"retention"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `yaml:"level"`

	// Log output destination (stdout, stderr, file path)
	Output string `yaml:"output"`

	// Log format (text, json)
	Format string `yaml:"format"`
}

// Validate checks if the configuration satisfies all invariants.
//
// Thread-safety: This method is read-only and thread-safe.
func (c *Config) Validate() error {
	if c.Document.Path == "" {
		return ErrNoDocumentPath
	}
	if c.Document.TrackingDir == "" {
		return ErrNoTrackingDir
	}
	if c.Document.ReloadDebounce <= 0 || c.Document.WriteSettle <= 0 ||
		c.Document.ReadRetryDelay <= 0 || c.Document.WriteRetryDelay <= 0 {
		return ErrInvalidDelay
	}
	if c.Document.Retries <= 0 {
		return ErrInvalidRetries
	}

	if c.Workspace.LinkExtension == "" || c.Workspace.LinkExtension[0] != '.' {
		return ErrInvalidLinkExtension
	}

	if c.Reconcile.LinkSettleDelay <= 0 || c.Reconcile.EntrySettleDelay <= 0 ||
		c.Reconcile.RenamePairWindow <= 0 {
		return ErrInvalidDelay
	}

	if c.Shortcut.UpdateRetries <= 0 || c.Shortcut.RenameRetries <= 0 {
		return ErrInvalidRetries
	}
	if c.Shortcut.UpdateRetryDelay <= 0 || c.Shortcut.RenameRetryDelay <= 0 ||
		c.Shortcut.ResolveTimeout <= 0 {
		return ErrInvalidDelay
	}
	if c.Shortcut.SearchDepth < 0 || c.Shortcut.SearchBudget <= 0 {
		return ErrInvalidSearch
	}

	if c.Storage.JournalPath == "" {
		return ErrNoJournalPath
	}
	if c.Storage.Retention <= 0 {
		return ErrInvalidRetention
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	validFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validFormats[c.Logging.Format] {
		return ErrInvalidLogFormat
	}

	return nil
}

// Default returns a configuration with sensible default values.
//
// Timings mirror the file manager's own expectations: 100ms document
// debounce and settle, 500ms/1s delete settle, 3x50ms reads, 5x200ms
// link renames.
func Default() *Config {
	return &Config{
		Document: DocumentConfig{
			Path:            defaultDocumentPath(),
			TrackingDir:     defaultTrackingDir(),
			ReloadDebounce:  100 * time.Millisecond,
			WriteSettle:     100 * time.Millisecond,
			Retries:         3,
			ReadRetryDelay:  50 * time.Millisecond,
			WriteRetryDelay: 100 * time.Millisecond,
		},
		Workspace: WorkspaceConfig{
			LinkExtension: ".lnk",
		},
		Reconcile: ReconcileConfig{
			LinkSettleDelay:  500 * time.Millisecond,
			EntrySettleDelay: 1 * time.Second,
			RenamePairWindow: 100 * time.Millisecond,
		},
		Shortcut: ShortcutConfig{
			UpdateRetries:    3,
			UpdateRetryDelay: 100 * time.Millisecond,
			RenameRetries:    5,
			RenameRetryDelay: 200 * time.Millisecond,
			ResolveTimeout:   3 * time.Second,
			SearchDepth:      2,
			SearchBudget:     20000,
		},
		Storage: StorageConfig{
			JournalPath: defaultJournalPath(),
			Retention:   720 * time.Hour, // 30 days
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stderr",
			Format: "text",
		},
	}
}
