package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRoot(t *testing.T) *Root {
	t.Helper()

	root, err := NewRoot(t.TempDir())
	require.NoError(t, err)

	return root
}

func TestResolveContainment(t *testing.T) {
	root := newTestRoot(t)

	traversals := [][]string{
		{"../secret.txt"},
		{"../../etc/passwd"},
		{"..", "..", "etc", "passwd"},
		{"foo/../../outside.exe"},
		{"/etc/passwd"},
		{".."},
		{"legacy", "..", "..", "escape", "x", "file.exe"},
	}

	for _, parts := range traversals {
		_, err := root.Resolve(parts...)
		assert.ErrorIs(t, err, ErrOutsideRoot, "parts: %v", parts)
	}
}

func TestResolveValidPaths(t *testing.T) {
	root := newTestRoot(t)

	abs, err := root.Resolve("app1-setup.exe")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root.Dir(), "app1-setup.exe"), abs)

	abs, err = root.Resolve("myapp", "windows", "amd64", "release", "setup.exe")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root.Dir(), "myapp", "windows", "amd64", "release", "setup.exe"), abs)
}

func TestStatDistinguishesMissingFromForbidden(t *testing.T) {
	root := newTestRoot(t)

	_, _, err := root.Stat("nope.exe")
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = root.Stat("../nope.exe")
	assert.ErrorIs(t, err, ErrOutsideRoot)

	require.NoError(t, os.WriteFile(filepath.Join(root.Dir(), "real.exe"), []byte("binary"), 0o644))

	abs, size, err := root.Stat("real.exe")
	require.NoError(t, err)
	assert.Equal(t, int64(6), size)
	assert.Equal(t, filepath.Join(root.Dir(), "real.exe"), abs)
}

func TestStatRejectsDirectories(t *testing.T) {
	root := newTestRoot(t)

	require.NoError(t, os.MkdirAll(filepath.Join(root.Dir(), "subdir"), 0o755))

	_, _, err := root.Stat("subdir")
	assert.ErrorIs(t, err, ErrNotFound)
}
