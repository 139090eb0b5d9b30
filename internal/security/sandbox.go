package security

import (
	"fmt"
	"os"
	"path/filepath"

	"content-crew/internal/domain"
)

// Sandbox confines the paths the content tools may write to.
type Sandbox struct {
	root string // absolute, symlink-resolved
}

// NewSandbox creates a sandbox rooted at root, creating the directory when
// it does not exist yet.
func NewSandbox(root string) (*Sandbox, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve sandbox root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create sandbox root: %w", err)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("eval symlinks for sandbox root: %w", err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("stat sandbox root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("sandbox root %q is not a directory", resolved)
	}

	return &Sandbox{root: resolved}, nil
}

// Resolve maps a tool-supplied path to an absolute path inside the sandbox.
// Relative paths are taken relative to the root.
func (s *Sandbox) Resolve(requested string) (string, error) {
	if requested == "" {
		return "", domain.NewDomainError("Sandbox.Resolve", domain.ErrInvalidInput, "empty path")
	}
	if !filepath.IsAbs(requested) {
		requested = filepath.Join(s.root, requested)
	}
	return s.ValidatePath(requested)
}

// ValidatePath checks that an absolute path resolves to within the sandbox.
// Paths that do not exist yet are checked through their nearest existing
// ancestor, so a symlinked parent cannot smuggle a write outside the root.
func (s *Sandbox) ValidatePath(requested string) (string, error) {
	abs, err := filepath.Abs(requested)
	if err != nil {
		return "", domain.NewDomainError("Sandbox.ValidatePath", domain.ErrPathOutsideSandbox, err.Error())
	}

	resolved, err := resolveExisting(abs)
	if err != nil {
		return "", domain.NewDomainError("Sandbox.ValidatePath", domain.ErrPathOutsideSandbox, err.Error())
	}

	if !s.isWithinRoot(resolved) {
		return "", domain.NewDomainError("Sandbox.ValidatePath", domain.ErrPathOutsideSandbox,
			fmt.Sprintf("resolved %q is outside root %q", resolved, s.root))
	}

	return resolved, nil
}

// Root returns the sandbox root directory.
func (s *Sandbox) Root() string { return s.root }

func (s *Sandbox) isWithinRoot(path string) bool {
	rel, err := filepath.Rel(s.root, path)
	return err == nil && (rel == "." || filepath.IsLocal(rel))
}

// resolveExisting evaluates symlinks on the longest existing prefix of abs
// and re-attaches the missing tail.
func resolveExisting(abs string) (string, error) {
	var tail []string
	cur := abs
	for {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			for i := len(tail) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, tail[i])
			}
			return resolved, nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", err
		}
		tail = append(tail, filepath.Base(cur))
		cur = parent
	}
}
