package main

import (
	"fmt"
	"log/slog"

	"content-crew/internal/adapter/llm"
	"content-crew/internal/domain"
	"content-crew/internal/infra/config"
)

// LLMComponents holds the provider registry and the provider agents use.
type LLMComponents struct {
	Registry   *llm.Registry
	DefaultLLM domain.LLMProvider
}

func initLLM(cfg *config.Config, log *slog.Logger) (*LLMComponents, error) {
	registry, err := llm.BuildRegistry(cfg.LLM, log)
	if err != nil {
		return nil, err
	}
	if cb := cfg.LLM.CircuitBreaker; cb.Enabled {
		log.Info("llm circuit breaker enabled",
			"max_failures", cb.MaxFailures,
			"timeout", cb.Timeout,
			"interval", cb.Interval,
		)
	}

	primary, err := registry.Primary(cfg.LLM, log)
	if err != nil {
		return nil, err
	}
	if cfg.LLM.Failover.Enabled {
		log.Info("model failover enabled", "fallbacks", cfg.LLM.Failover.Fallbacks)
	}
	log.Debug("llm providers ready", "providers", registry.List(), "default", cfg.LLM.DefaultProvider)

	return &LLMComponents{Registry: registry, DefaultLLM: primary}, nil
}

// requireAPIKey reports a startup error when the default provider has no key.
func requireAPIKey(cfg *config.Config) error {
	pc, ok := cfg.Provider(cfg.LLM.DefaultProvider)
	if !ok {
		return fmt.Errorf("default provider %q is not configured", cfg.LLM.DefaultProvider)
	}
	if pc.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY environment variable is not set: %w", domain.ErrMissingAPIKey)
	}
	return nil
}
