package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

const (
	// AppName names the daemon's own config and state directories.
	AppName = "lf-watcher"

	// DocumentAppName names the file manager's config directory.
	DocumentAppName = "lf-windows"

	// DocumentFileName is the shared document's file name.
	DocumentFileName = "config.yaml"
)

// defaultDocumentPath returns the file manager's document path.
//
// Returns: $XDG_CONFIG_HOME/lf-windows/config.yaml.
func defaultDocumentPath() string {
	return filepath.Join(xdg.ConfigHome, DocumentAppName, DocumentFileName)
}

// defaultTrackingDir returns the private tracking shortcut directory.
//
// Returns: $XDG_CONFIG_HOME/lf-windows/tracking.
func defaultTrackingDir() string {
	return filepath.Join(xdg.ConfigHome, DocumentAppName, "tracking")
}

// defaultJournalPath returns the default journal database path.
//
// Returns: $XDG_STATE_HOME/lf-watcher/journal.db.
func defaultJournalPath() string {
	return filepath.Join(xdg.StateHome, AppName, "journal.db")
}

// DefaultConfigPath returns the default configuration file path.
//
// Returns: $XDG_CONFIG_HOME/lf-watcher/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// SearchPaths returns the config file candidates in order of precedence.
func SearchPaths() []string {
	return []string{
		"./lf-watcher.yaml",
		DefaultConfigPath(),
	}
}
