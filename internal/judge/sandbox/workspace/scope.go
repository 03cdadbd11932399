// Package workspace owns the temporary directories that back sandbox runs.
package workspace

import (
	"os"
	"path/filepath"
	"sync"

	appErr "github.com/Diwakar-Gupta/pepper/pkg/errors"
)

// Scope is an exclusively owned temporary directory.
// Release removes it and is safe to call more than once.
type Scope struct {
	dir  string
	once sync.Once
	err  error
}

// Acquire creates a fresh directory under root (the OS temp dir when empty).
func Acquire(root, prefix string) (*Scope, error) {
	if root != "" {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, appErr.Wrapf(err, appErr.WorkspaceError, "create work root failed")
		}
	}
	dir, err := os.MkdirTemp(root, prefix)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.WorkspaceError, "create workspace failed")
	}
	return &Scope{dir: dir}, nil
}

// Dir returns the absolute path of the scope.
func (s *Scope) Dir() string {
	return s.dir
}

// Path joins name onto the scope directory.
func (s *Scope) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// WriteFile writes data to name inside the scope.
func (s *Scope) WriteFile(name string, data []byte) error {
	if err := os.WriteFile(s.Path(name), data, 0o644); err != nil {
		return appErr.Wrapf(err, appErr.WorkspaceError, "write %s failed", name)
	}
	return nil
}

// Release removes the directory and everything below it.
func (s *Scope) Release() error {
	s.once.Do(func() {
		if err := os.RemoveAll(s.dir); err != nil {
			s.err = appErr.Wrapf(err, appErr.WorkspaceError, "remove workspace failed")
		}
	})
	return s.err
}
