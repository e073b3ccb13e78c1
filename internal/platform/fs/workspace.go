// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package fs

import (
	"fmt"
	"os"
	"path/filepath"
)

// Workspace owns the scratch directory that transfers download into.
// Each operation gets its own subdirectory named after its ID.
type Workspace struct {
	root string
}

// NewWorkspace creates root if needed.
func NewWorkspace(root string) (*Workspace, error) {
	if root == "" {
		return nil, fmt.Errorf("workspace root is empty")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create workspace %s: %w", root, err)
	}
	return &Workspace{root: root}, nil
}

func (w *Workspace) Root() string { return w.root }

// Dir creates and returns the confined directory for operationID.
func (w *Workspace) Dir(operationID string) (string, error) {
	dir, err := ConfineRelPath(w.root, operationID)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create operation dir: %w", err)
	}
	return dir, nil
}

// Remove deletes the directory of operationID. A missing directory is not an error.
func (w *Workspace) Remove(operationID string) error {
	dir, err := ConfineRelPath(w.root, operationID)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove operation dir: %w", err)
	}
	return nil
}

// Sweep removes leftovers of operations from a previous process and returns
// how many entries were deleted.
func (w *Workspace) Sweep() (int, error) {
	entries, err := os.ReadDir(w.root)
	if err != nil {
		return 0, fmt.Errorf("read workspace: %w", err)
	}
	n := 0
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(w.root, e.Name())); err != nil {
			return n, fmt.Errorf("sweep %s: %w", e.Name(), err)
		}
		n++
	}
	return n, nil
}
