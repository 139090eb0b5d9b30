package main

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"content-crew/internal/infra/config"
)

func TestCheckConfigFile_NotFound(t *testing.T) {
	fn := checkConfigFile("/nonexistent/path/crew.yaml", nil)
	result := fn(nil)
	if result.Status != StatusWarn {
		t.Errorf("expected WARN for missing config, got %s", result.Status)
	}
}

func TestCheckConfigFile_LoadError(t *testing.T) {
	fn := checkConfigFile("crew.yaml", &config.ValidationError{Errors: []string{"bad yaml"}})
	result := fn(nil)
	if result.Status != StatusFail {
		t.Errorf("expected FAIL for load error, got %s", result.Status)
	}
	if result.Fix == "" {
		t.Error("expected fix suggestion")
	}
}

func TestCheckConfigFile_Valid(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "crew.yaml")
	if err := os.WriteFile(cfgPath, []byte("crew:\n  max_turns: 5\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	result := checkConfigFile(cfgPath, nil)(nil)
	if result.Status != StatusPass {
		t.Errorf("expected PASS, got %s: %s", result.Status, result.Message)
	}
}

func TestCheckLLMAPIKey(t *testing.T) {
	if result := checkLLMAPIKey(nil); result.Status != StatusFail {
		t.Errorf("nil config: got %s", result.Status)
	}

	cfg := config.Defaults()
	if result := checkLLMAPIKey(cfg); result.Status != StatusFail {
		t.Errorf("missing key: got %s", result.Status)
	}

	cfg.LLM.Providers[0].APIKey = "sk-test"
	if result := checkLLMAPIKey(cfg); result.Status != StatusPass {
		t.Errorf("with key: got %s: %s", result.Status, result.Message)
	}

	cfg.LLM.Providers = append(cfg.LLM.Providers, config.ProviderConfig{Name: "backup", Type: "openai"})
	result := checkLLMAPIKey(cfg)
	if result.Status != StatusWarn || !strings.Contains(result.Message, "backup") {
		t.Errorf("partial keys: got %s: %s", result.Status, result.Message)
	}
}

func TestCheckLLMConnectivity(t *testing.T) {
	var gotAuth, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.Defaults()
	cfg.LLM.Providers[0].BaseURL = server.URL + "/v1/"
	cfg.LLM.Providers[0].APIKey = "sk-test"

	result := checkLLMConnectivity(cfg)
	if result.Status != StatusPass {
		t.Fatalf("expected PASS, got %s: %s", result.Status, result.Message)
	}
	if gotAuth != "Bearer sk-test" || gotPath != "/v1/models" {
		t.Errorf("request auth=%q path=%q", gotAuth, gotPath)
	}
}

func TestCheckLLMConnectivityRejectedKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	cfg := config.Defaults()
	cfg.LLM.Providers[0].BaseURL = server.URL
	cfg.LLM.Providers[0].APIKey = "sk-bad"

	if result := checkLLMConnectivity(cfg); result.Status != StatusFail {
		t.Errorf("expected FAIL, got %s", result.Status)
	}
}

func TestCheckLLMConnectivitySkipsWithoutKey(t *testing.T) {
	if result := checkLLMConnectivity(config.Defaults()); result.Status != StatusWarn {
		t.Errorf("expected WARN, got %s", result.Status)
	}
}

func TestCheckWaveSpeedKey(t *testing.T) {
	cfg := config.Defaults()
	if result := checkWaveSpeedKey(cfg); result.Status != StatusWarn {
		t.Errorf("missing key: got %s", result.Status)
	}
	cfg.WaveSpeed.APIKey = "ws"
	if result := checkWaveSpeedKey(cfg); result.Status != StatusPass {
		t.Errorf("with key: got %s", result.Status)
	}
}

func TestCheckSandbox(t *testing.T) {
	cfg := config.Defaults()
	if result := checkSandbox(cfg); result.Status != StatusWarn {
		t.Errorf("no sandbox: got %s", result.Status)
	}

	cfg.Tools.SandboxRoot = t.TempDir()
	if result := checkSandbox(cfg); result.Status != StatusPass {
		t.Errorf("temp dir: got %s: %s", result.Status, result.Message)
	}

	cfg.Tools.SandboxRoot = filepath.Join(t.TempDir(), "missing")
	if result := checkSandbox(cfg); result.Status != StatusFail {
		t.Errorf("missing dir: got %s", result.Status)
	}
}

func TestCheckRunStore(t *testing.T) {
	cfg := config.Defaults()
	if result := checkRunStore(cfg); result.Status != StatusPass {
		t.Errorf("disabled: got %s", result.Status)
	}

	cfg.Store.Enabled = true
	cfg.Store.Path = filepath.Join(t.TempDir(), "data", "runs.db")
	if result := checkRunStore(cfg); result.Status != StatusPass {
		t.Errorf("enabled: got %s: %s", result.Status, result.Message)
	}
	if _, err := os.Stat(filepath.Dir(cfg.Store.Path)); err != nil {
		t.Errorf("store dir not created: %v", err)
	}
}

func TestCheckSearXNG(t *testing.T) {
	cfg := config.Defaults()
	if result := checkSearXNG(cfg); result.Status != StatusPass {
		t.Errorf("openai backend: got %s", result.Status)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()
	cfg.Tools.SearchBackend = "searxng"
	cfg.Tools.SearXNGURL = server.URL
	if result := checkSearXNG(cfg); result.Status != StatusPass {
		t.Errorf("reachable: got %s: %s", result.Status, result.Message)
	}
}

func TestReportCounts(t *testing.T) {
	checks := []Check{
		{Name: "ok", Fn: func(*config.Config) CheckResult { return CheckResult{Status: StatusPass, Message: "fine"} }},
		{Name: "meh", Fn: func(*config.Config) CheckResult { return CheckResult{Status: StatusWarn, Message: "hmm"} }},
		{Name: "bad", Fn: func(*config.Config) CheckResult {
			return CheckResult{Status: StatusFail, Message: errors.New("broken").Error(), Fix: "repair it"}
		}},
	}

	var buf bytes.Buffer
	warn, fail := report(&buf, nil, checks)
	if warn != 1 || fail != 1 {
		t.Errorf("warn=%d fail=%d", warn, fail)
	}
	out := buf.String()
	for _, want := range []string{"[PASS] ok: fine", "[WARN] meh: hmm", "[FAIL] bad: broken", "Fix: repair it", "1 passed, 1 warnings, 1 failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestStatusIcon(t *testing.T) {
	if statusIcon("other") != "[????]" {
		t.Error("unknown status icon")
	}
}
