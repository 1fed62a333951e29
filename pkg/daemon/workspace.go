package daemon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"

	"github.com/0xmhha/lf-watcher/pkg/document"
	"github.com/0xmhha/lf-watcher/pkg/fsutil"
)

// WorkspaceRoot returns the workspace directory. A configured override
// wins over the document's workspace name; relative values are taken from
// the home directory.
func WorkspaceRoot(override string, doc *document.Document) string {
	name := override
	if name == "" && doc != nil {
		name = doc.WorkspaceName()
	}
	if name == "" {
		name = document.DefaultWorkspaceName
	}

	name = fsutil.ExpandHome(name)
	if filepath.IsAbs(name) {
		return filepath.Clean(name)
	}
	return filepath.Join(xdg.Home, name)
}

// syncWorkspace creates the workspace when missing, watches it and
// rescans it when its root changed since the last call.
func (d *daemon) syncWorkspace(ctx context.Context) error {
	root := WorkspaceRoot(d.config.Workspace.Root, d.docs.Current())

	d.mu.Lock()
	changed := !fsutil.SamePath(root, d.workspace)
	d.workspace = root
	d.mu.Unlock()

	if !changed {
		return nil
	}

	if err := os.MkdirAll(root, 0750); err != nil {
		return fmt.Errorf("failed to create workspace %s: %w", root, err)
	}

	if err := d.workspaceW.Add(root); err != nil {
		d.logger.Warn("workspace not watched", "path", root, "error", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := d.engine.ScanWorkspace(root)
	return err
}
