package media

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// workspaceDirPerm keeps intermediate media private to the current user.
const workspaceDirPerm = 0o700

// Workspace is the private scratch directory of one operation.
// Every file inside is named "<id>-<name>" so concurrent operations sharing
// a work root never collide.
type Workspace struct {
	id  string
	dir string
	rm  fileRemover
}

// NewWorkspace creates <root>/clipper-<id>/. An empty root means os.TempDir().
func NewWorkspace(root string) (*Workspace, error) {
	return newWorkspace(root, uuid.NewString(), osFileRemover{})
}

func newWorkspace(root, id string, rm fileRemover) (*Workspace, error) {
	if root == "" {
		root = os.TempDir()
	}
	dir := filepath.Join(root, "clipper-"+id)
	if err := os.MkdirAll(dir, workspaceDirPerm); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Workspace{id: id, dir: dir, rm: rm}, nil
}

// ID returns the operation id.
func (w *Workspace) ID() string { return w.id }

// Dir returns the workspace directory.
func (w *Workspace) Dir() string { return w.dir }

// Path returns the path of a file named "<id>-<name>" inside the workspace.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.dir, w.id+"-"+name)
}

// Close removes the workspace and everything in it.
func (w *Workspace) Close() error {
	if err := w.rm.RemoveAll(w.dir); err != nil {
		return fmt.Errorf("remove workspace %s: %w", w.dir, err)
	}
	return nil
}
