package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"content-crew/internal/domain"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func noBackoff(int) time.Duration { return 0 }

// agentSet is an AgentLookup over a fixed list.
type agentSet map[string]domain.AgentSpec

func newAgentSet(agents ...domain.AgentSpec) agentSet {
	set := make(agentSet, len(agents))
	for _, a := range agents {
		set[a.Name] = a
	}
	return set
}

func (s agentSet) Agent(name string) (domain.AgentSpec, bool) {
	a, ok := s[name]
	return a, ok
}

// mapExecutor is a minimal tool registry.
type mapExecutor map[string]domain.Tool

func newMapExecutor(tools ...domain.Tool) mapExecutor {
	m := make(mapExecutor, len(tools))
	for _, t := range tools {
		m[t.Name()] = t
	}
	return m
}

func (m mapExecutor) Get(name string) (domain.Tool, error) {
	t, ok := m[name]
	if !ok {
		return nil, domain.NewDomainError("Registry.Get", domain.ErrToolNotFound, name)
	}
	return t, nil
}

func (m mapExecutor) Schemas() []domain.ToolSchema {
	out := make([]domain.ToolSchema, 0, len(m))
	for _, t := range m {
		out = append(out, t.Schema())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// staticTool returns a fixed result after an optional delay.
type staticTool struct {
	name   string
	result string
	delay  time.Duration
	err    error

	mu   sync.Mutex
	args []string
}

func (s *staticTool) Name() string        { return s.name }
func (s *staticTool) Description() string { return s.name + " tool" }
func (s *staticTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{Name: s.name, Description: s.Description(), Parameters: json.RawMessage(`{"type":"object"}`)}
}

func (s *staticTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	s.mu.Lock()
	s.args = append(s.args, string(params))
	s.mu.Unlock()
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return nil, s.err
	}
	return &domain.ToolResult{Content: s.result}, nil
}

func (s *staticTool) calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.args...)
}

type step struct {
	msg domain.Message
	err error
}

// scriptedLLM answers each agent, identified by its system prompt, from a
// queue of steps.
type scriptedLLM struct {
	mu       sync.Mutex
	scripts  map[string][]step
	requests []domain.ChatRequest
}

func newScriptedLLM() *scriptedLLM {
	return &scriptedLLM{scripts: make(map[string][]step)}
}

func (s *scriptedLLM) on(instructions string, steps ...step) *scriptedLLM {
	s.scripts[instructions] = append(s.scripts[instructions], steps...)
	return s
}

func (s *scriptedLLM) Name() string { return "scripted" }

func (s *scriptedLLM) Chat(_ context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)

	agent := req.Messages[0].Content
	steps := s.scripts[agent]
	if len(steps) == 0 {
		return nil, fmt.Errorf("no script left for %q", agent)
	}
	st := steps[0]
	s.scripts[agent] = steps[1:]
	if st.err != nil {
		return nil, st.err
	}
	msg := st.msg
	msg.Role = domain.RoleAssistant
	return &domain.ChatResponse{Message: msg, Usage: domain.Usage{PromptTokens: 7, CompletionTokens: 3, TotalTokens: 10}}, nil
}

func (s *scriptedLLM) recorded() []domain.ChatRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ChatRequest(nil), s.requests...)
}

// funcLLM adapts a function to LLMProvider.
type funcLLM func(req domain.ChatRequest) (*domain.ChatResponse, error)

func (f funcLLM) Chat(_ context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	return f(req)
}
func (f funcLLM) Name() string { return "func" }

// streamLLM replays delta sequences, one per call.
type streamLLM struct {
	mu     sync.Mutex
	rounds [][]domain.StreamDelta
	chats  int
}

func (s *streamLLM) Name() string { return "stream" }

func (s *streamLLM) Chat(context.Context, domain.ChatRequest) (*domain.ChatResponse, error) {
	s.mu.Lock()
	s.chats++
	s.mu.Unlock()
	return &domain.ChatResponse{Message: domain.Message{Role: domain.RoleAssistant, Content: "sync answer"}}, nil
}

func (s *streamLLM) ChatStream(_ context.Context, req domain.ChatRequest) (<-chan domain.StreamDelta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !req.Stream {
		return nil, fmt.Errorf("stream flag not set")
	}
	if len(s.rounds) == 0 {
		return nil, fmt.Errorf("no rounds left")
	}
	round := s.rounds[0]
	s.rounds = s.rounds[1:]

	ch := make(chan domain.StreamDelta, len(round))
	for _, d := range round {
		ch <- d
	}
	close(ch)
	return ch, nil
}

// recordingHooks captures run events as strings.
type recordingHooks struct {
	mu     sync.Mutex
	events []string
}

func (h *recordingHooks) add(e string) {
	h.mu.Lock()
	h.events = append(h.events, e)
	h.mu.Unlock()
}

func (h *recordingHooks) OnAgentStart(_ context.Context, agent, input string) {
	h.add("start:" + agent + ":" + input)
}
func (h *recordingHooks) OnAgentEnd(_ context.Context, agent, output string) {
	h.add("end:" + agent + ":" + output)
}
func (h *recordingHooks) OnToolCall(_ context.Context, agent string, call domain.ToolCall) {
	h.add("call:" + agent + ":" + call.Name)
}
func (h *recordingHooks) OnToolResult(_ context.Context, agent string, call domain.ToolCall, res domain.ToolResult) {
	h.add("result:" + agent + ":" + call.Name + ":" + res.Content)
}
func (h *recordingHooks) OnHandoff(_ context.Context, from, to string) {
	h.add("handoff:" + from + "->" + to)
}
func (h *recordingHooks) OnDelta(_ context.Context, agent, content string) {
	h.add("delta:" + content)
}

func (h *recordingHooks) list() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.events...)
}

// memStore is an in-memory RunStore.
type memStore struct {
	mu   sync.Mutex
	runs []domain.RunRecord
}

func (m *memStore) SaveRun(_ context.Context, rec domain.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, rec)
	return nil
}

func (m *memStore) GetRun(_ context.Context, id string) (*domain.RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.runs {
		if m.runs[i].ID == id {
			rec := m.runs[i]
			return &rec, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memStore) ListRuns(context.Context, int) ([]domain.RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.RunRecord(nil), m.runs...), nil
}

func textMsg(content string) step {
	return step{msg: domain.Message{Content: content}}
}

func callsMsg(calls ...domain.ToolCall) step {
	return step{msg: domain.Message{ToolCalls: calls}}
}

func errStep(err error) step {
	return step{err: err}
}

func call(id, name, args string) domain.ToolCall {
	return domain.ToolCall{ID: id, Name: name, Arguments: json.RawMessage(args)}
}
