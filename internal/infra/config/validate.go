package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...interface{}) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// when one or more problems are found, allowing callers to inspect all issues.
// API keys are not required here; commands that call a provider check them.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateCrew(cfg, ve)
	validateLLM(cfg, ve)
	validateTools(cfg, ve)
	validateWaveSpeed(cfg, ve)
	validateStore(cfg, ve)
	validateScheduler(cfg, ve)
	validateLogger(cfg, ve)
	validateTracer(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateCrew(cfg *Config, ve *ValidationError) {
	c := cfg.Crew
	if c.Delegation != DelegationTools && c.Delegation != DelegationHandoffs {
		ve.Add("crew.delegation must be %q or %q, got %q", DelegationTools, DelegationHandoffs, c.Delegation)
	}
	if c.StartAgent == "" {
		ve.Add("crew.start_agent must not be empty")
	}
	if c.MaxTurns <= 0 {
		ve.Add("crew.max_turns must be > 0")
	}
	if c.Timeout <= 0 {
		ve.Add("crew.timeout must be > 0")
	}
	if c.ContextMessages < 0 {
		ve.Add("crew.context_messages must be >= 0")
	}
	if c.SubAgent.MaxConcurrent <= 0 {
		ve.Add("crew.sub_agent.max_concurrent must be > 0")
	}
	if c.SubAgent.MaxTurns <= 0 {
		ve.Add("crew.sub_agent.max_turns must be > 0")
	}
	if c.SubAgent.Timeout <= 0 {
		ve.Add("crew.sub_agent.timeout must be > 0")
	}
	for agent, model := range c.Models {
		if strings.TrimSpace(model) == "" {
			ve.Add("crew.models[%q] must not be empty", agent)
		}
	}
}

var validProviderTypes = map[string]bool{
	"openai":     true,
	"openai_sdk": true,
}

func validateLLM(cfg *Config, ve *ValidationError) {
	if cfg.LLM.DefaultProvider == "" {
		ve.Add("llm.default_provider must not be empty")
	}

	names := make(map[string]bool, len(cfg.LLM.Providers))
	for i, p := range cfg.LLM.Providers {
		if p.Name == "" {
			ve.Add("llm.providers[%d].name must not be empty", i)
			continue
		}
		if names[p.Name] {
			ve.Add("llm.providers[%d].name %q is duplicated", i, p.Name)
		}
		names[p.Name] = true
		if p.Type != "" && !validProviderTypes[p.Type] {
			ve.Add("llm.providers[%d].type %q is not supported (want openai or openai_sdk)", i, p.Type)
		}
		if p.BaseURL != "" {
			if u, err := url.Parse(p.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
				ve.Add("llm.providers[%d].base_url %q is not a valid URL", i, p.BaseURL)
			}
		}
	}

	if cfg.LLM.DefaultProvider != "" && !names[cfg.LLM.DefaultProvider] {
		ve.Add("llm.default_provider %q does not match any provider", cfg.LLM.DefaultProvider)
	}
	if cfg.LLM.Failover.Enabled {
		if len(cfg.LLM.Failover.Fallbacks) == 0 {
			ve.Add("llm.failover.fallbacks must not be empty when failover is enabled")
		}
		for _, fb := range cfg.LLM.Failover.Fallbacks {
			if !names[fb] {
				ve.Add("llm.failover.fallbacks: unknown provider %q", fb)
			}
		}
	}
}

var validSearchBackends = map[string]bool{
	"openai":  true,
	"searxng": true,
}

func validateTools(cfg *Config, ve *ValidationError) {
	t := cfg.Tools
	switch {
	case t.SearchBackend == "":
		ve.Add("tools.search_backend is required: the Researcher Agent searches with web_search (want openai or searxng)")
	case !validSearchBackends[t.SearchBackend]:
		ve.Add("tools.search_backend %q is not supported (want openai or searxng)", t.SearchBackend)
	}
	if t.SearchBackend == "searxng" && t.SearXNGURL == "" {
		ve.Add("tools.searxng_url is required when search_backend is searxng")
	}
	if t.SearchBackend == "openai" && t.SearchModel == "" {
		ve.Add("tools.search_model is required when search_backend is openai")
	}
	if t.SearchCacheSize < 0 {
		ve.Add("tools.search_cache_size must be >= 0")
	}
	if t.ImageMaxSide < 0 {
		ve.Add("tools.image_max_side must be >= 0")
	}
	if t.RateLimitPerMin < 0 {
		ve.Add("tools.rate_limit_per_min must be >= 0")
	}
	if t.DownloadTimeout <= 0 {
		ve.Add("tools.download_timeout must be > 0")
	}
	if t.FilesystemBackend != "" && t.FilesystemBackend != "local" {
		ve.Add("tools.filesystem_backend %q is not supported (want local)", t.FilesystemBackend)
	}
}

func validateWaveSpeed(cfg *Config, ve *ValidationError) {
	w := cfg.WaveSpeed
	if u, err := url.Parse(w.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		ve.Add("wavespeed.base_url %q is not a valid URL", w.BaseURL)
	}
	if w.Model == "" {
		ve.Add("wavespeed.model must not be empty")
	}
	if w.PollInterval <= 0 {
		ve.Add("wavespeed.poll_interval must be > 0")
	}
	if w.MaxWait <= 0 {
		ve.Add("wavespeed.max_wait must be > 0")
	}
	if w.RequestTimeout <= 0 {
		ve.Add("wavespeed.request_timeout must be > 0")
	}
}

func validateStore(cfg *Config, ve *ValidationError) {
	if cfg.Store.Enabled && cfg.Store.Path == "" {
		ve.Add("store.path must not be empty when the store is enabled")
	}
}

func validateScheduler(cfg *Config, ve *ValidationError) {
	if !cfg.Scheduler.Enabled {
		return
	}
	seen := make(map[string]bool)
	for i, task := range cfg.Scheduler.Tasks {
		if task.Name == "" {
			ve.Add("scheduler.tasks[%d].name must not be empty", i)
		} else if seen[task.Name] {
			ve.Add("scheduler.tasks[%d].name %q is duplicated", i, task.Name)
		}
		seen[task.Name] = true
		if task.Schedule == "" {
			ve.Add("scheduler.tasks[%d].schedule must not be empty", i)
		}
		if strings.TrimSpace(task.Prompt) == "" {
			ve.Add("scheduler.tasks[%d].prompt must not be empty", i)
		}
	}
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

func validateLogger(cfg *Config, ve *ValidationError) {
	if !validLogLevels[strings.ToLower(cfg.Logger.Level)] {
		ve.Add("logger.level %q is not valid (want debug, info, warn or error)", cfg.Logger.Level)
	}
	if f := cfg.Logger.Format; f != "text" && f != "json" {
		ve.Add("logger.format %q is not valid (want text or json)", f)
	}
}

func validateTracer(cfg *Config, ve *ValidationError) {
	if !cfg.Tracer.Enabled {
		return
	}
	if e := cfg.Tracer.Exporter; e != "stdout" && e != "noop" {
		ve.Add("tracer.exporter %q is not valid (want stdout or noop)", e)
	}
}
