// Package integration holds end-to-end tests against the live OpenAI and
// WaveSpeed APIs. They run with -tags integration and skip themselves when
// the needed keys are absent.
package integration

import (
	"context"
	"os"
	"testing"
	"time"
)

const defaultTestModel = "gpt-4o-mini"

// Env is the live-test environment read from the process environment.
type Env struct {
	OpenAIKey    string
	OpenAIBase   string
	Model        string
	WaveSpeedKey string
	Slow         bool
}

func readEnv() Env {
	model := os.Getenv("CREW_TEST_MODEL")
	if model == "" {
		model = defaultTestModel
	}
	return Env{
		OpenAIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIBase:   os.Getenv("OPENAI_BASE_URL"),
		Model:        model,
		WaveSpeedKey: os.Getenv("WAVESPEED_API_KEY"),
		Slow:         os.Getenv("SKIP_SLOW_TESTS") != "1",
	}
}

// Live returns the environment or skips t when running with -short or when
// any of the named variables is unset.
func Live(t *testing.T, required ...string) Env {
	t.Helper()
	if testing.Short() {
		t.Skip("live API test skipped in short mode")
	}
	for _, name := range required {
		if os.Getenv(name) == "" {
			t.Skipf("live API test skipped: %s not set", name)
		}
	}
	return readEnv()
}

// RequireSlow skips full crew runs when SKIP_SLOW_TESTS=1.
func (e Env) RequireSlow(t *testing.T) {
	t.Helper()
	if !e.Slow {
		t.Skip("full crew run skipped: SKIP_SLOW_TESTS=1")
	}
}

// Context bounds one test and is cancelled at cleanup.
func (e Env) Context(t *testing.T, d time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	t.Cleanup(cancel)
	return ctx
}
