package llm

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"content-crew/internal/domain"
	"content-crew/internal/infra/config"
)

// Registry maps configured provider names to ready providers. It is built
// once at startup and read-only afterwards.
type Registry struct {
	providers map[string]domain.LLMProvider
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]domain.LLMProvider)}
}

// BuildRegistry constructs every provider in cfg, each behind its own
// circuit breaker when cfg enables one.
func BuildRegistry(cfg config.LLMConfig, logger *slog.Logger) (*Registry, error) {
	r := NewRegistry()
	for _, pc := range cfg.Providers {
		p, err := NewProvider(pc, logger)
		if err != nil {
			return nil, fmt.Errorf("llm provider %s: %w", pc.Name, err)
		}
		if cfg.CircuitBreaker.Enabled {
			p = NewCircuitBreakerProvider(p, cfg.CircuitBreaker, logger)
		}
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds p under p.Name().
func (r *Registry) Register(p domain.LLMProvider) error {
	name := p.Name()
	if _, dup := r.providers[name]; dup {
		return fmt.Errorf("llm provider %s: registered twice", name)
	}
	r.providers[name] = p
	return nil
}

// Get returns the provider called name.
func (r *Registry) Get(name string) (domain.LLMProvider, error) {
	if p, ok := r.providers[name]; ok {
		return p, nil
	}
	return nil, domain.NewDomainError("Registry.Get", domain.ErrProviderNotFound, name)
}

// Primary returns the provider every agent talks to: the default one, or a
// failover chain starting with it when failover is enabled.
func (r *Registry) Primary(cfg config.LLMConfig, logger *slog.Logger) (domain.LLMProvider, error) {
	primary, err := r.Get(cfg.DefaultProvider)
	if err != nil {
		return nil, fmt.Errorf("default llm provider: %w", err)
	}
	if !cfg.Failover.Enabled || len(cfg.Failover.Fallbacks) == 0 {
		return primary, nil
	}
	fallbacks := make([]domain.LLMProvider, 0, len(cfg.Failover.Fallbacks))
	for _, name := range cfg.Failover.Fallbacks {
		fb, err := r.Get(name)
		if err != nil {
			return nil, fmt.Errorf("failover provider: %w", err)
		}
		fallbacks = append(fallbacks, fb)
	}
	return NewFailoverProvider(primary, fallbacks, logger), nil
}

// List returns the registered names in order.
func (r *Registry) List() []string {
	return slices.Sorted(maps.Keys(r.providers))
}

// NewProvider constructs the provider described by cfg.
func NewProvider(cfg config.ProviderConfig, logger *slog.Logger) (domain.LLMProvider, error) {
	switch cfg.Type {
	case "openai", "":
		return NewOpenAIProvider(cfg, logger), nil
	case "openai_sdk":
		return NewOpenAISDKProvider(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unsupported provider type %q", cfg.Type)
	}
}
