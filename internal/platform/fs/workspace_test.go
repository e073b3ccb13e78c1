// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfineRelPath(t *testing.T) {
	root := t.TempDir()

	got, err := ConfineRelPath(root, "42_abc/file.bin")
	require.NoError(t, err)
	realRoot, _ := filepath.EvalSymlinks(root)
	assert.Equal(t, filepath.Join(realRoot, "42_abc", "file.bin"), got)

	for _, bad := range []string{"../x", "..", "a\\b", "/etc/passwd"} {
		_, err := ConfineRelPath(root, bad)
		assert.Error(t, err, bad)
	}

	// "..." is a legal filename, not a traversal.
	_, err = ConfineRelPath(root, "...")
	assert.NoError(t, err)
}

func TestConfineRelPath_SymlinkEscape(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "link")))

	_, err := ConfineRelPath(root, "link/secret")
	assert.ErrorIs(t, err, ErrEscapesRoot)
}

func TestWorkspace_Lifecycle(t *testing.T) {
	ws, err := NewWorkspace(filepath.Join(t.TempDir(), "work"))
	require.NoError(t, err)

	dir, err := ws.Dir("1_op")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "part"), []byte("x"), 0o600))

	require.NoError(t, ws.Remove("1_op"))
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))

	// Removing twice is fine.
	require.NoError(t, ws.Remove("1_op"))
}

func TestWorkspace_Sweep(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir())
	require.NoError(t, err)
	_, err = ws.Dir("a")
	require.NoError(t, err)
	_, err = ws.Dir("b")
	require.NoError(t, err)

	n, err := ws.Sweep()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	entries, err := os.ReadDir(ws.Root())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNewWorkspace_EmptyRoot(t *testing.T) {
	_, err := NewWorkspace("")
	assert.Error(t, err)
}
