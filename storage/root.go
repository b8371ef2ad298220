// Package storage resolves requested filenames against the storage root
// and streams them to clients, optionally throttled.
package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrOutsideRoot marks a path that resolved outside the storage root.
	// Returned before any filesystem access happens.
	ErrOutsideRoot = errors.New("path resolves outside the storage root")

	// ErrNotFound marks a missing file, distinct from mid-stream errors.
	ErrNotFound = errors.New("file not found")
)

// Root is the single directory all downloadable files must live under.
type Root struct {
	dir string
}

func NewRoot(dir string) (*Root, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}

	return &Root{dir: abs}, nil
}

// Dir returns the absolute storage root directory.
func (r *Root) Dir() string {
	return r.dir
}

// Resolve joins the given path segments under the root and verifies the
// result is still a strict descendant. This is the only gate against
// traversal sequences; it runs before any filesystem access. Both the
// flat {filename} and the legacy {app}/{os}/{arch}/{versionType}/{file}
// layouts resolve through here.
func (r *Root) Resolve(parts ...string) (string, error) {
	joined := filepath.Join(append([]string{r.dir}, parts...)...)

	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", ErrOutsideRoot
	}

	if !strings.HasPrefix(abs, r.dir+string(filepath.Separator)) {
		return "", ErrOutsideRoot
	}

	return abs, nil
}

// Stat resolves and checks existence. It reports ErrOutsideRoot or
// ErrNotFound, or the absolute path and size of a regular file.
func (r *Root) Stat(parts ...string) (string, int64, error) {
	abs, err := r.Resolve(parts...)
	if err != nil {
		return "", 0, err
	}

	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		return "", 0, ErrNotFound
	}

	return abs, info.Size(), nil
}
