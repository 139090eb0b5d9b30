package tool

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"content-crew/internal/domain"
)

// Registry is the shared toolbox every agent draws from. Each agent sees a
// scoped view of it; the MCP server exposes all of it.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]domain.Tool
	names  []string // sorted
	logger *slog.Logger
}

// NewRegistry returns an empty registry. A nil logger falls back to
// slog.Default.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{byName: make(map[string]domain.Tool), logger: logger}
}

// Register guards t with its parameter schema and adds it. A schema that
// does not compile leaves t unguarded with a warning.
func (r *Registry) Register(t domain.Tool) error {
	name := t.Name()

	guarded, err := WithSchemaValidation(t)
	if err != nil {
		r.logger.Warn("tool registered without argument checks", "tool", name, "error", err)
		guarded = t
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	pos, found := slices.BinarySearch(r.names, name)
	if found {
		return fmt.Errorf("tool %q already registered", name)
	}
	r.names = slices.Insert(r.names, pos, name)
	r.byName[name] = guarded
	return nil
}

// Get implements domain.Toolbox.
func (r *Registry) Get(name string) (domain.Tool, error) {
	r.mu.RLock()
	t, ok := r.byName[name]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.NewDomainError("Registry.Get", domain.ErrToolNotFound, name)
	}
	return t, nil
}

// Len reports how many tools are registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}

// Schemas implements domain.Toolbox, ordered by tool name.
func (r *Registry) Schemas() []domain.ToolSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ToolSchema, len(r.names))
	for i, name := range r.names {
		out[i] = r.byName[name].Schema()
	}
	return out
}
