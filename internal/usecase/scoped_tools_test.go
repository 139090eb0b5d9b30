package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"content-crew/internal/domain"
)

func newTestRegistry() mapExecutor {
	return newMapExecutor(
		&staticTool{name: "web_search", result: "results"},
		&staticTool{name: "write_file", result: "written"},
		&staticTool{name: "download_image", result: "saved"},
	)
}

func TestScopedToolGetAllowed(t *testing.T) {
	scoped := NewScopedToolbox(newTestRegistry(), []string{"web_search", "write_file"})

	tool, err := scoped.Get("web_search")
	if err != nil {
		t.Fatalf("Get allowed tool: %v", err)
	}
	result, _ := tool.Execute(context.Background(), json.RawMessage(`{}`))
	if result.Content != "results" {
		t.Errorf("Content = %q, want %q", result.Content, "results")
	}
}

func TestScopedToolGetDenied(t *testing.T) {
	scoped := NewScopedToolbox(newTestRegistry(), []string{"web_search"})

	_, err := scoped.Get("download_image")
	if !errors.Is(err, domain.ErrToolNotFound) {
		t.Errorf("err = %v, want ErrToolNotFound", err)
	}
}

func TestScopedToolSchemasFiltered(t *testing.T) {
	scoped := NewScopedToolbox(newTestRegistry(), []string{"write_file", "web_search", "not_registered"})

	schemas := scoped.Schemas()
	if len(schemas) != 2 {
		t.Fatalf("got %d schemas, want 2", len(schemas))
	}
	if schemas[0].Name != "web_search" || schemas[1].Name != "write_file" {
		t.Errorf("schemas = %v, %v", schemas[0].Name, schemas[1].Name)
	}
}

func TestScopedToolEmptyAllowListExposesNothing(t *testing.T) {
	scoped := NewScopedToolbox(newTestRegistry(), nil)

	if schemas := scoped.Schemas(); len(schemas) != 0 {
		t.Errorf("got %d schemas, want none", len(schemas))
	}
	if _, err := scoped.Get("web_search"); err == nil {
		t.Error("expected error for unscoped tool")
	}
}

func TestAgentToolsetOrderAndHandoffs(t *testing.T) {
	ts := newAgentToolset(NewScopedToolbox(newTestRegistry(), []string{"web_search"}))
	r := NewRunner(RunnerDeps{Agents: newAgentSet(), Logger: newTestLogger()})
	ts.add(newAgentTool(domain.AgentSpec{Name: "Ghostwriter Agent"}, r, domain.NopHooks{}))
	ts.addHandoff(domain.AgentSpec{Name: "Quality Reviewer Agent"})
	ts.addHandoff(domain.AgentSpec{Name: "Quality Reviewer Agent"})

	var names []string
	for _, s := range ts.Schemas() {
		names = append(names, s.Name)
	}
	want := []string{"web_search", "ghostwriter_agent", "transfer_to_quality_reviewer_agent"}
	if len(names) != len(want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}

	if target, ok := ts.handoffTarget("transfer_to_quality_reviewer_agent"); !ok || target != "Quality Reviewer Agent" {
		t.Errorf("handoffTarget = %q, %v", target, ok)
	}
	if _, ok := ts.handoffTarget("ghostwriter_agent"); ok {
		t.Error("agent tool must not be a handoff")
	}
	if _, err := ts.Get("ghostwriter_agent"); err != nil {
		t.Errorf("Get agent tool: %v", err)
	}
}

func TestHandoffToolExecute(t *testing.T) {
	h := newHandoffTool(domain.AgentSpec{Name: "Researcher Agent"})
	if h.Name() != "transfer_to_researcher_agent" {
		t.Errorf("Name = %q", h.Name())
	}
	res, err := h.Execute(context.Background(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Content != `{"assistant":"Researcher Agent"}` {
		t.Errorf("Content = %q", res.Content)
	}
}

func TestAgentToolSchema(t *testing.T) {
	tool := newAgentTool(domain.AgentSpec{Name: "Image Creator Agent"}, nil, nil)
	schema := tool.Schema()
	if schema.Name != "image_creator_agent" {
		t.Errorf("Name = %q", schema.Name)
	}

	var params struct {
		Required []string `json:"required"`
	}
	if err := json.Unmarshal(schema.Parameters, &params); err != nil {
		t.Fatalf("parameters are not JSON: %v", err)
	}
	if len(params.Required) != 1 || params.Required[0] != "input" {
		t.Errorf("required = %v", params.Required)
	}
}

func TestAgentToolInvalidParams(t *testing.T) {
	tool := newAgentTool(domain.AgentSpec{Name: "X"}, nil, nil)
	res, err := tool.Execute(context.Background(), json.RawMessage(`not json`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.IsError {
		t.Error("expected error result")
	}
}

func TestSubAgentPoolLimit(t *testing.T) {
	pool := newSubAgentPool(SubAgentConfig{MaxConcurrent: 1, Timeout: 50 * time.Millisecond}, newTestLogger())

	release := make(chan struct{})
	started := make(chan struct{})
	go pool.Spawn(context.Background(), "first", func(context.Context) (string, error) {
		close(started)
		<-release
		return "", nil
	})
	<-started

	_, err := pool.Spawn(context.Background(), "second", func(context.Context) (string, error) {
		t.Error("second sub-agent should not run")
		return "", nil
	})
	close(release)

	if !errors.Is(err, domain.ErrLimitReached) {
		t.Fatalf("err = %v, want ErrLimitReached", err)
	}
	if code := domain.ErrorCodeOf(err); code != domain.CodeSubAgentLimit {
		t.Errorf("code = %s", code)
	}
}

func TestSubAgentPoolNestedSpawnReusesSlot(t *testing.T) {
	pool := newSubAgentPool(SubAgentConfig{MaxConcurrent: 1, Timeout: time.Second}, newTestLogger())

	out, err := pool.Spawn(context.Background(), "Researcher", func(ctx context.Context) (string, error) {
		return pool.Spawn(ctx, "Ghostwriter", func(context.Context) (string, error) {
			return "draft", nil
		})
	})
	if err != nil {
		t.Fatalf("nested spawn: %v", err)
	}
	if out != "draft" {
		t.Errorf("out = %q", out)
	}
	if len(pool.semaphore) != 0 {
		t.Errorf("slots still held: %d", len(pool.semaphore))
	}
}

func TestSubAgentPoolTimeout(t *testing.T) {
	pool := newSubAgentPool(SubAgentConfig{Timeout: 20 * time.Millisecond}, newTestLogger())

	_, err := pool.Spawn(context.Background(), "slow", func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if code := domain.ErrorCodeOf(err); code != domain.CodeSubAgentTimeout {
		t.Errorf("code = %s", code)
	}
}

func TestSubAgentPoolDefaults(t *testing.T) {
	pool := newSubAgentPool(SubAgentConfig{}, newTestLogger())
	if cap(pool.semaphore) != 5 || pool.config.MaxTurns != 10 || pool.config.Timeout != 10*time.Minute {
		t.Errorf("config = %+v", pool.config)
	}
}
