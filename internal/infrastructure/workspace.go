package infrastructure

import (
	"fmt"
	"os"

	"github.com/google/uuid"
)

// Workspace is the per-request directory that owns every temporary artifact
type Workspace struct {
	ID  string
	Dir string
}

// WorkspaceFactory creates per-request workspaces under a base directory
type WorkspaceFactory struct {
	baseDir string
}

// NewWorkspaceFactory creates a workspace factory rooted at baseDir (os.TempDir when empty)
func NewWorkspaceFactory(baseDir string) *WorkspaceFactory {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	return &WorkspaceFactory{baseDir: baseDir}
}

// BaseDir returns the directory workspaces are created in
func (f *WorkspaceFactory) BaseDir() string {
	return f.baseDir
}

// Create makes a new uniquely named workspace directory
func (f *WorkspaceFactory) Create() (*Workspace, error) {
	if err := os.MkdirAll(f.baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp base directory: %w", err)
	}

	id := uuid.New().String()
	dir, err := os.MkdirTemp(f.baseDir, "vdl-"+id+"-")
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	return &Workspace{ID: id, Dir: dir}, nil
}

// Cleanup removes the workspace and everything in it
func (w *Workspace) Cleanup() error {
	if err := os.RemoveAll(w.Dir); err != nil {
		return fmt.Errorf("failed to remove workspace %s: %w", w.Dir, err)
	}
	return nil
}
