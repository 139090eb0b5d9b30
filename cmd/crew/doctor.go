package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"content-crew/internal/infra/config"
)

// CheckStatus is the verdict of one doctor check.
type CheckStatus string

const (
	StatusPass CheckStatus = "PASS"
	StatusWarn CheckStatus = "WARN"
	StatusFail CheckStatus = "FAIL"
)

type CheckResult struct {
	Status  CheckStatus
	Message string
	Fix     string
}

// Check is a named probe. Fn receives nil when the config failed to load.
type Check struct {
	Name string
	Fn   func(cfg *config.Config) CheckResult
}

func pass(format string, args ...any) CheckResult {
	return CheckResult{Status: StatusPass, Message: fmt.Sprintf(format, args...)}
}

func warn(format string, args ...any) CheckResult {
	return CheckResult{Status: StatusWarn, Message: fmt.Sprintf(format, args...)}
}

func fail(format string, args ...any) CheckResult {
	return CheckResult{Status: StatusFail, Message: fmt.Sprintf(format, args...)}
}

func (r CheckResult) withFix(fix string) CheckResult {
	r.Fix = fix
	return r
}

// needsConfig wraps fn so a missing config yields onMissing instead.
func needsConfig(onMissing CheckStatus, fn func(*config.Config) CheckResult) func(*config.Config) CheckResult {
	return func(cfg *config.Config) CheckResult {
		if cfg == nil {
			return CheckResult{Status: onMissing, Message: "cannot check, config not loaded"}
		}
		return fn(cfg)
	}
}

// runDoctor prints every check and fails when any check failed.
func runDoctor(args []string) error {
	cfgPath := configPath(args)
	cfg, cfgErr := config.Load(cfgPath)

	checks := []Check{
		{Name: "Config file", Fn: checkConfigFile(cfgPath, cfgErr)},
		{Name: "OpenAI API key", Fn: checkLLMAPIKey},
		{Name: "LLM connectivity", Fn: checkLLMConnectivity},
		{Name: "WaveSpeed API key", Fn: checkWaveSpeedKey},
		{Name: "Tool sandbox", Fn: checkSandbox},
		{Name: "Run store", Fn: checkRunStore},
		{Name: "Network", Fn: checkNetwork},
		{Name: "SearXNG", Fn: checkSearXNG},
	}

	if _, failed := report(os.Stdout, cfg, checks); failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	return nil
}

func report(w io.Writer, cfg *config.Config, checks []Check) (warned, failed int) {
	fmt.Fprintf(w, "crew doctor\n%s\n\n", strings.Repeat("=", 50))

	counts := map[CheckStatus]int{}
	for _, c := range checks {
		r := c.Fn(cfg)
		counts[r.Status]++
		fmt.Fprintf(w, "  %s %s: %s\n", statusIcon(r.Status), c.Name, r.Message)
		if r.Fix != "" {
			fmt.Fprintf(w, "      Fix: %s\n", r.Fix)
		}
	}
	warned, failed = counts[StatusWarn], counts[StatusFail]

	fmt.Fprintf(w, "\n%s\nResults: %d passed, %d warnings, %d failed\n\n",
		strings.Repeat("-", 50), counts[StatusPass], warned, failed)
	switch {
	case failed > 0:
		fmt.Fprintln(w, "Fix the FAIL issues above before running the crew.")
	case warned > 0:
		fmt.Fprintln(w, "The crew should run, but consider addressing the warnings.")
	default:
		fmt.Fprintln(w, "All checks passed! The crew is ready to run.")
	}
	return warned, failed
}

func statusIcon(s CheckStatus) string {
	switch s {
	case StatusPass, StatusWarn, StatusFail:
		return "[" + string(s) + "]"
	}
	return "[????]"
}

// checkConfigFile reports how the config loaded. A missing file only warns
// because defaults and environment variables still apply.
func checkConfigFile(cfgPath string, cfgErr error) func(*config.Config) CheckResult {
	return func(*config.Config) CheckResult {
		if cfgErr != nil {
			return fail("config error: %v", cfgErr).withFix("Check the syntax and values in " + cfgPath)
		}
		if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
			return warn("no config file at %s, using defaults", cfgPath)
		}
		return pass("config loaded from %s", cfgPath)
	}
}

var checkLLMAPIKey = needsConfig(StatusFail, func(cfg *config.Config) CheckResult {
	if err := requireAPIKey(cfg); err != nil {
		return fail("%v", err).withFix("export OPENAI_API_KEY=sk-...")
	}
	var missing []string
	for _, p := range cfg.LLM.Providers {
		if p.APIKey == "" {
			missing = append(missing, p.Name)
		}
	}
	if len(missing) > 0 {
		return warn("default provider has a key; missing for [%s]", strings.Join(missing, ", "))
	}
	return pass("API key configured for %s", cfg.LLM.DefaultProvider)
})

// checkLLMConnectivity lists models on the default provider, which needs a
// valid key but costs no tokens.
var checkLLMConnectivity = needsConfig(StatusFail, func(cfg *config.Config) CheckResult {
	p, ok := cfg.Provider(cfg.LLM.DefaultProvider)
	if !ok {
		return fail("default provider %q not found in config", cfg.LLM.DefaultProvider)
	}
	if p.APIKey == "" {
		return warn("skipped, no API key for default provider")
	}

	base := strings.TrimRight(p.BaseURL, "/")
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	status, latency, err := probeHTTP(base+"/models", 10*time.Second, "Bearer "+p.APIKey)
	switch {
	case err != nil:
		return fail("cannot reach %s: %v", base, err).withFix("Check your internet connection and OPENAI_BASE_URL")
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return fail("%s rejected the API key (status %d)", p.Name, status).withFix("Check OPENAI_API_KEY")
	case status >= 400:
		return warn("%s responded with status %d", p.Name, status)
	}
	return pass("%s reachable (latency: %dms)", p.Name, latency.Milliseconds())
})

var checkWaveSpeedKey = needsConfig(StatusWarn, func(cfg *config.Config) CheckResult {
	if cfg.WaveSpeed.APIKey == "" {
		return warn("not set, generate_image and edit_image will fail").withFix("export WAVESPEED_API_KEY=...")
	}
	return pass("configured for %s", cfg.WaveSpeed.Model)
})

var checkSandbox = needsConfig(StatusWarn, func(cfg *config.Config) CheckResult {
	root := cfg.Tools.SandboxRoot
	if root == "" {
		return warn("no sandbox, tools may write anywhere the process can").
			withFix("Set tools.sandbox_root to confine file writes")
	}
	if err := probeWritable(root); err != nil {
		return fail("sandbox root %s is not writable: %v", root, err).withFix("mkdir -p " + root)
	}
	return pass("writable at %s", root)
})

var checkRunStore = needsConfig(StatusWarn, func(cfg *config.Config) CheckResult {
	if !cfg.Store.Enabled {
		return pass("run history disabled")
	}
	dir := filepath.Dir(cfg.Store.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fail("cannot create %s: %v", dir, err)
	}
	if err := probeWritable(dir); err != nil {
		return fail("%s is not writable: %v", dir, err)
	}
	return pass("database at %s", cfg.Store.Path)
})

func checkNetwork(*config.Config) CheckResult {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var d net.Dialer
	for _, addr := range []string{"1.1.1.1:443", "8.8.8.8:443"} {
		if conn, err := d.DialContext(ctx, "tcp", addr); err == nil {
			conn.Close()
			return pass("internet connectivity OK")
		}
	}
	return fail("no internet connectivity detected").withFix("Check your network connection and firewall settings")
}

var checkSearXNG = needsConfig(StatusWarn, func(cfg *config.Config) CheckResult {
	if cfg.Tools.SearchBackend != "searxng" {
		return pass("search backend is %q, SearXNG not required", cfg.Tools.SearchBackend)
	}
	url := cfg.Tools.SearXNGURL
	if url == "" {
		url = "http://localhost:8888"
	}
	status, _, err := probeHTTP(url, 5*time.Second, "")
	switch {
	case err != nil:
		return fail("SearXNG not reachable at %s: %v", url, err).withFix("Start SearXNG or update tools.searxng_url")
	case status >= 400:
		return warn("SearXNG responded with status %d at %s", status, url)
	}
	return pass("SearXNG reachable at %s", url)
})

// probeHTTP issues a GET and returns the status and round-trip time.
func probeHTTP(url string, timeout time.Duration, auth string) (int, time.Duration, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, 0, err
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	start := time.Now()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, time.Since(start), nil
}

func probeWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".crew-doctor-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
