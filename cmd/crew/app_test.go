package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"content-crew/internal/infra/config"
)

func toolsConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Tools.SandboxRoot = t.TempDir()
	cfg.Tools.SearchBackend = "searxng"
	cfg.Tools.SearXNGURL = "http://127.0.0.1:1"
	return cfg
}

func TestInitToolsWritesThroughConfiguredBackend(t *testing.T) {
	cfg := toolsConfig(t)
	cfg.Tools.FilesystemBackend = "local"

	reg, err := initTools(cfg, nil, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("initTools: %v", err)
	}
	wf, err := reg.Get("write_file")
	if err != nil {
		t.Fatal(err)
	}
	res, err := wf.Execute(context.Background(), json.RawMessage(`{"path":"draft.md","content":"hello"}`))
	if err != nil || res.IsError {
		t.Fatalf("write_file = %+v, %v", res, err)
	}

	data, err := os.ReadFile(filepath.Join(cfg.Tools.SandboxRoot, "draft.md"))
	if err != nil || string(data) != "hello" {
		t.Errorf("sandboxed file = %q, %v", data, err)
	}
}

func TestInitToolsRejectsUnknownBackend(t *testing.T) {
	cfg := toolsConfig(t)
	cfg.Tools.FilesystemBackend = "s3"

	_, err := initTools(cfg, nil, slog.New(slog.DiscardHandler))
	if err == nil || !strings.Contains(err.Error(), `unknown filesystem backend "s3"`) {
		t.Errorf("err = %v", err)
	}
}
