// Package shortcut reads, writes and resolves shortcut files.
//
// A shortcut is a small YAML record naming a target path together with the
// target's file identity (device and file index). The identity lets Resolve
// find the target again after it was moved while nobody was watching, the
// same way shell link tracking does.
package shortcut

import (
	"time"
)

// Kind tells whether a link target is a file or a directory.
type Kind string

const (
	KindFile Kind = "file"
	KindDir  Kind = "dir"
)

// Identity is the stable identity of a file on one volume.
type Identity struct {
	Device uint64 `yaml:"device"`
	Inode  uint64 `yaml:"inode"`
}

// IsZero reports whether the identity is unset.
func (i Identity) IsZero() bool {
	return i.Device == 0 && i.Inode == 0
}

// Link is the on-disk content of a shortcut file.
type Link struct {
	// Target is the last-known full path of the referenced file or directory.
	Target string `yaml:"target"`

	// WorkingDir is the parent directory of Target.
	WorkingDir string `yaml:"working_dir,omitempty"`

	// Kind records what Target was when the link was written.
	Kind Kind `yaml:"kind,omitempty"`

	// Identity is the target's identity when the link was written, if known.
	Identity *Identity `yaml:"identity,omitempty"`
}

// Status is the outcome of a resolution.
type Status int

const (
	// StatusUnavailable means the link could not be read or resolution
	// did not finish. Nothing is known about the target.
	StatusUnavailable Status = iota

	// StatusResolved means Path is the target's current location.
	StatusResolved

	// StatusNotFound means the link was readable but its target is gone.
	StatusNotFound
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusResolved:
		return "resolved"
	case StatusNotFound:
		return "not-found"
	default:
		return "unavailable"
	}
}

// Resolution is the three-way result of Store.Resolve.
type Resolution struct {
	Status Status

	// Path is the resolved location for StatusResolved and the stored
	// target for StatusNotFound.
	Path string

	// Err explains StatusUnavailable.
	Err error
}

// Options configures a Store.
type Options struct {
	// UpdateRetries is the number of attempts for SetTarget.
	UpdateRetries int

	// UpdateRetryDelay is the pause between SetTarget attempts.
	UpdateRetryDelay time.Duration

	// ResolveTimeout bounds a single Resolve call.
	ResolveTimeout time.Duration

	// SearchDepth is how many ancestors above the last-known parent are searched.
	SearchDepth int

	// SearchBudget caps the directory entries examined per resolution.
	SearchBudget int

	// SearchRoots are searched after the ancestors.
	SearchRoots []string
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		UpdateRetries:    3,
		UpdateRetryDelay: 100 * time.Millisecond,
		ResolveTimeout:   3 * time.Second,
		SearchDepth:      2,
		SearchBudget:     20000,
	}
}
