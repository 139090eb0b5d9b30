package tool

import (
	"fmt"
	"os"
	"path/filepath"

	"content-crew/internal/security"
)

// OutputFS is where the crew's posts and images land.
type OutputFS interface {
	Name() string
	WriteFile(path string, data []byte, perm os.FileMode) error
	MkdirAll(path string, perm os.FileMode) error
}

// LocalFS writes to the local disk, optionally confined to a sandbox.
type LocalFS struct {
	sandbox *security.Sandbox
}

// NewLocalFS creates a local backend. A nil sandbox leaves
// paths unrestricted and relative to the working directory.
func NewLocalFS(sandbox *security.Sandbox) *LocalFS {
	return &LocalFS{sandbox: sandbox}
}

func (b *LocalFS) Name() string { return "local" }

func (b *LocalFS) WriteFile(path string, data []byte, perm os.FileMode) error {
	resolved, err := b.resolve(path)
	if err != nil {
		return err
	}
	return os.WriteFile(resolved, data, perm)
}

func (b *LocalFS) MkdirAll(path string, perm os.FileMode) error {
	resolved, err := b.resolve(path)
	if err != nil {
		return err
	}
	return os.MkdirAll(resolved, perm)
}

func (b *LocalFS) resolve(path string) (string, error) {
	if b.sandbox == nil {
		return filepath.Clean(path), nil
	}
	resolved, err := b.sandbox.Resolve(path)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return resolved, nil
}

// NewFilesystemBackend returns the backend named by kind.
func NewFilesystemBackend(kind string, sandbox *security.Sandbox) (OutputFS, error) {
	switch kind {
	case "local", "":
		return NewLocalFS(sandbox), nil
	default:
		return nil, fmt.Errorf("unknown filesystem backend %q", kind)
	}
}
