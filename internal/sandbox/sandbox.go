// Package sandbox manages ephemeral working directories for scenarios.
package sandbox

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Dir is a fresh, exclusively owned temporary directory. Its path is
// canonicalized exactly once at creation (symlinked temp roots such as
// macOS's /var -> /private/var would otherwise make path comparisons in
// expectations flaky) and reused for the directory's whole lifetime.
type Dir struct {
	path string
}

// New creates an empty uniquely named directory under the system temp
// root and returns it with its canonical path resolved.
func New() (*Dir, error) {
	root := filepath.Join(os.TempDir(), "shellharness-"+uuid.NewString())
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating sandbox directory: %w", err)
	}
	canonical, err := filepath.EvalSymlinks(root)
	if err != nil {
		_ = os.RemoveAll(root)
		return nil, fmt.Errorf("canonicalizing sandbox directory: %w", err)
	}
	return &Dir{path: canonical}, nil
}

// Path returns the canonical absolute path of the sandbox root.
func (d *Dir) Path() string {
	return d.path
}

// Join resolves a sandbox-relative path against the root.
func (d *Dir) Join(rel string) string {
	return filepath.Join(d.path, rel)
}

// WriteFile creates a fixture file at a sandbox-relative path.
func (d *Dir) WriteFile(rel, text string) error {
	if err := os.WriteFile(d.Join(rel), []byte(text), 0o644); err != nil {
		return fmt.Errorf("writing fixture %s: %w", rel, err)
	}
	return nil
}

// MkdirAll creates a fixture directory (and any missing parents) at a
// sandbox-relative path.
func (d *Dir) MkdirAll(rel string) error {
	if err := os.MkdirAll(d.Join(rel), 0o755); err != nil {
		return fmt.Errorf("creating fixture directory %s: %w", rel, err)
	}
	return nil
}

// Remove recursively deletes the sandbox. It is safe to call after a
// failed run; leaking temporary state is never acceptable.
func (d *Dir) Remove() error {
	return os.RemoveAll(d.path)
}
