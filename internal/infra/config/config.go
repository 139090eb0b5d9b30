package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/argon2"
	"gopkg.in/yaml.v3"
)

// DefaultPrompt is the concept the CLI runs when no prompt is given.
const DefaultPrompt = "Whast is an ai model influencer fanvue?"

// Delegation modes for the crew.
const (
	DelegationTools    = "tools"
	DelegationHandoffs = "handoffs"
)

// Config is the top-level application configuration.
type Config struct {
	Crew      CrewConfig      `yaml:"crew"`
	LLM       LLMConfig       `yaml:"llm"`
	Tools     ToolsConfig     `yaml:"tools"`
	WaveSpeed WaveSpeedConfig `yaml:"wavespeed"`
	Store     StoreConfig     `yaml:"store"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Logger    LoggerConfig    `yaml:"logger"`
	Tracer    TracerConfig    `yaml:"tracer"`
}

// CrewConfig holds orchestration settings.
type CrewConfig struct {
	Delegation      string            `yaml:"delegation"` // "tools" or "handoffs"
	StartAgent      string            `yaml:"start_agent"`
	Prompt          string            `yaml:"prompt"`
	MaxTurns        int               `yaml:"max_turns"`
	Timeout         time.Duration     `yaml:"timeout"`
	ContextMessages int               `yaml:"context_messages"`
	Models          map[string]string `yaml:"models,omitempty"` // agent name → model override
	SubAgent        SubAgentConfig    `yaml:"sub_agent"`
	TraceMetadata   map[string]string `yaml:"trace_metadata,omitempty"`
}

// SubAgentConfig bounds nested agent-as-tool runs.
type SubAgentConfig struct {
	MaxConcurrent int           `yaml:"max_concurrent"`
	MaxTurns      int           `yaml:"max_turns"`
	Timeout       time.Duration `yaml:"timeout"`
}

// FailoverConfig holds model failover settings.
type FailoverConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Fallbacks []string `yaml:"fallbacks"`
}

// LLMConfig holds LLM provider settings.
type LLMConfig struct {
	DefaultProvider string               `yaml:"default_provider"`
	Providers       []ProviderConfig     `yaml:"providers"`
	Failover        FailoverConfig       `yaml:"failover"`
	CircuitBreaker  CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// CircuitBreakerConfig holds circuit breaker settings.
type CircuitBreakerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
	Interval    time.Duration `yaml:"interval"`
}

// PoolConfig holds HTTP connection pool settings.
type PoolConfig struct {
	MaxIdleConns        int           `yaml:"max_idle_conns"`
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host"`
	MaxConnsPerHost     int           `yaml:"max_conns_per_host"`
	IdleConnTimeout     time.Duration `yaml:"idle_conn_timeout"`
}

// ProviderConfig holds settings for a single LLM provider.
type ProviderConfig struct {
	Name        string        `yaml:"name"`
	Type        string        `yaml:"type"` // "openai" (raw HTTP) or "openai_sdk"
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	ConnTimeout time.Duration `yaml:"conn_timeout"`
	RespTimeout time.Duration `yaml:"resp_timeout"`
	Pool        PoolConfig    `yaml:"pool"`
}

// ToolsConfig holds tool settings.
type ToolsConfig struct {
	SandboxRoot       string        `yaml:"sandbox_root"` // empty = no path restriction
	AllowPrivateURLs  bool          `yaml:"allow_private_urls"`
	DownloadTimeout   time.Duration `yaml:"download_timeout"`
	ImageMaxSide      int           `yaml:"image_max_side"` // 0 = keep original size
	SearchBackend     string        `yaml:"search_backend"` // "openai" or "searxng"
	SearXNGURL        string        `yaml:"searxng_url"`
	SearchModel       string        `yaml:"search_model"`
	SearchCacheTTL    time.Duration `yaml:"search_cache_ttl"`
	SearchCacheSize   int           `yaml:"search_cache_size"`
	RateLimitPerMin   int           `yaml:"rate_limit_per_min"` // per image tool, 0 = unlimited
	FilesystemBackend string        `yaml:"filesystem_backend"` // "local"
}

// WaveSpeedConfig holds image generation API settings.
type WaveSpeedConfig struct {
	BaseURL        string               `yaml:"base_url"`
	APIKey         string               `yaml:"api_key"`
	Model          string               `yaml:"model"`
	PollInterval   time.Duration        `yaml:"poll_interval"`
	MaxWait        time.Duration        `yaml:"max_wait"`
	RequestTimeout time.Duration        `yaml:"request_timeout"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// StoreConfig holds run history settings.
type StoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// SchedulerConfig holds cron/scheduler settings.
type SchedulerConfig struct {
	Enabled bool                  `yaml:"enabled"`
	Tasks   []ScheduledTaskConfig `yaml:"tasks"`
}

// ScheduledTaskConfig defines a single scheduled run.
type ScheduledTaskConfig struct {
	Name     string `yaml:"name"`
	Schedule string `yaml:"schedule"` // cron expression or duration string
	Prompt   string `yaml:"prompt"`
	Agent    string `yaml:"agent,omitempty"` // empty = crew.start_agent
	OneShot  bool   `yaml:"one_shot,omitempty"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Crew: CrewConfig{
			Delegation:      DelegationTools,
			StartAgent:      "Content Strategyst Agent",
			Prompt:          DefaultPrompt,
			MaxTurns:        10,
			Timeout:         15 * time.Minute,
			ContextMessages: 100,
			SubAgent: SubAgentConfig{
				MaxConcurrent: 5,
				MaxTurns:      10,
				Timeout:       10 * time.Minute,
			},
			TraceMetadata: map[string]string{
				"__trace_source__": "agent-builder",
				"workflow_id":      "wf_69401d993224819094e445f20ece37f5093720847ed200b7",
			},
		},
		LLM: LLMConfig{
			DefaultProvider: "openai",
			Providers: []ProviderConfig{
				{
					Name:        "openai",
					Type:        "openai",
					BaseURL:     "https://api.openai.com/v1",
					Model:       "gpt-4.1",
					ConnTimeout: 30 * time.Second,
					RespTimeout: 180 * time.Second,
				},
			},
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:     true,
				MaxFailures: 5,
				Timeout:     30 * time.Second,
				Interval:    60 * time.Second,
			},
		},
		Tools: ToolsConfig{
			DownloadTimeout:   60 * time.Second,
			SearchBackend:     "openai",
			SearchModel:       "gpt-4o-search-preview",
			SearchCacheTTL:    15 * time.Minute,
			SearchCacheSize:   128,
			FilesystemBackend: "local",
		},
		WaveSpeed: WaveSpeedConfig{
			BaseURL:        "https://api.wavespeed.ai/api/v3",
			Model:          "google/nano-banana-pro",
			PollInterval:   100 * time.Millisecond,
			MaxWait:        5 * time.Minute,
			RequestTimeout: 60 * time.Second,
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:     true,
				MaxFailures: 5,
				Timeout:     30 * time.Second,
				Interval:    60 * time.Second,
			},
		},
		Store: StoreConfig{
			Enabled: false,
			Path:    "./data/runs.db",
		},
		Logger: LoggerConfig{
			Level:  "warn",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
	}
}

// Load reads a YAML config file, applies env var overrides, and decrypts secrets.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnvOverrides(cfg)
			if err := Validate(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	if err := validatePermissions(absPath); err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	ApplyEnvOverrides(cfg)

	passphrase := os.Getenv("CREW_CONFIG_KEY")
	if passphrase != "" {
		if err := decryptSecrets(cfg, passphrase); err != nil {
			return nil, fmt.Errorf("decrypt secrets: %w", err)
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnvOverrides maps CREW_* and provider env vars to config fields.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CREW_DELEGATION"); v != "" {
		cfg.Crew.Delegation = v
	}
	if v := os.Getenv("CREW_START_AGENT"); v != "" {
		cfg.Crew.StartAgent = v
	}
	if v := os.Getenv("CREW_MAX_TURNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Crew.MaxTurns = n
		}
	}
	if v := os.Getenv("CREW_LLM_DEFAULT_PROVIDER"); v != "" {
		cfg.LLM.DefaultProvider = v
	}
	if v := os.Getenv("CREW_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("CREW_LOGGER_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := os.Getenv("CREW_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("CREW_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
	if v := os.Getenv("CREW_TOOLS_SANDBOX_ROOT"); v != "" {
		cfg.Tools.SandboxRoot = v
	}
	if v := os.Getenv("CREW_TOOLS_SEARCH_BACKEND"); v != "" {
		cfg.Tools.SearchBackend = v
	}
	if v := os.Getenv("CREW_TOOLS_SEARXNG_URL"); v != "" {
		cfg.Tools.SearXNGURL = v
	}
	if v := os.Getenv("CREW_STORE_ENABLED"); v != "" {
		cfg.Store.Enabled = v == "true"
	}
	if v := os.Getenv("CREW_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("WAVESPEED_API_KEY"); v != "" {
		cfg.WaveSpeed.APIKey = v
	}

	// OPENAI_API_KEY and OPENAI_BASE_URL apply to every OpenAI-type provider.
	// Per-provider CREW_LLM_PROVIDER_<NAME>_API_KEY wins over both.
	openaiKey := os.Getenv("OPENAI_API_KEY")
	openaiBase := os.Getenv("OPENAI_BASE_URL")
	for i := range cfg.LLM.Providers {
		p := &cfg.LLM.Providers[i]
		if isOpenAIType(p.Type) {
			if openaiKey != "" {
				p.APIKey = openaiKey
			}
			if openaiBase != "" {
				p.BaseURL = openaiBase
			}
		}
		envName := "CREW_LLM_PROVIDER_" + strings.ToUpper(strings.ReplaceAll(p.Name, "-", "_")) + "_API_KEY"
		if v := os.Getenv(envName); v != "" {
			p.APIKey = v
		}
	}
}

func isOpenAIType(t string) bool {
	return t == "" || t == "openai" || t == "openai_sdk"
}

// Provider returns the provider config with the given name.
func (c *Config) Provider(name string) (ProviderConfig, bool) {
	for _, p := range c.LLM.Providers {
		if p.Name == name {
			return p, true
		}
	}
	return ProviderConfig{}, false
}

// decryptSecrets finds "enc:..." values in API keys and decrypts them.
func decryptSecrets(cfg *Config, passphrase string) error {
	for i := range cfg.LLM.Providers {
		key := cfg.LLM.Providers[i].APIKey
		if strings.HasPrefix(key, "enc:") {
			decrypted, err := DecryptValue(strings.TrimPrefix(key, "enc:"), passphrase)
			if err != nil {
				return fmt.Errorf("provider %s api_key: %w", cfg.LLM.Providers[i].Name, err)
			}
			cfg.LLM.Providers[i].APIKey = decrypted
		}
	}

	if strings.HasPrefix(cfg.WaveSpeed.APIKey, "enc:") {
		decrypted, err := DecryptValue(strings.TrimPrefix(cfg.WaveSpeed.APIKey, "enc:"), passphrase)
		if err != nil {
			return fmt.Errorf("wavespeed api_key: %w", err)
		}
		cfg.WaveSpeed.APIKey = decrypted
	}

	return nil
}

// EncryptValue encrypts a plaintext value with AES-256-GCM using a passphrase.
func EncryptValue(plaintext, passphrase string) (string, error) {
	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	// Format: hex(salt) + ":" + hex(nonce+ciphertext)
	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(ciphertext), nil
}

// DecryptValue decrypts an AES-256-GCM encrypted value.
func DecryptValue(encrypted, passphrase string) (string, error) {
	saltHex, dataHex, ok := strings.Cut(encrypted, ":")
	if !ok {
		return "", fmt.Errorf("invalid encrypted format")
	}

	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return "", fmt.Errorf("decode salt: %w", err)
	}
	data, err := hex.DecodeString(dataHex)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plaintext), nil
}

func newGCM(passphrase string, salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}

// deriveKey uses Argon2id to derive a 32-byte key from passphrase + salt.
func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, 1, 64*1024, 4, 32)
}

// validatePermissions checks the config file has restrictive permissions.
func validatePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat config: %w", err)
	}
	mode := info.Mode().Perm()
	// Allow 0600 and 0644 (readable by others but not writable)
	if mode&0o077 > 0o044 {
		return fmt.Errorf("config file %s has insecure permissions %o (want 0600 or 0644)", path, mode)
	}
	return nil
}
