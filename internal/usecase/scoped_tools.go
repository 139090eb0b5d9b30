package usecase

import "content-crew/internal/domain"

// NewScopedToolbox exposes only the named tools of inner. Unlike a
// registry view, an empty allow list exposes nothing: agents without tools
// must not see the shared registry.
func NewScopedToolbox(inner domain.Toolbox, allowedTools []string) domain.Toolbox {
	allowed := make(map[string]bool, len(allowedTools))
	for _, name := range allowedTools {
		allowed[name] = true
	}
	return &scopedToolbox{inner: inner, allowed: allowed}
}

type scopedToolbox struct {
	inner   domain.Toolbox
	allowed map[string]bool
}

func (s *scopedToolbox) Get(name string) (domain.Tool, error) {
	if !s.allowed[name] || s.inner == nil {
		return nil, domain.NewDomainError("ScopedTools.Get", domain.ErrToolNotFound, name)
	}
	return s.inner.Get(name)
}

func (s *scopedToolbox) Schemas() []domain.ToolSchema {
	if len(s.allowed) == 0 || s.inner == nil {
		return nil
	}
	all := s.inner.Schemas()
	filtered := make([]domain.ToolSchema, 0, len(s.allowed))
	for _, schema := range all {
		if s.allowed[schema.Name] {
			filtered = append(filtered, schema)
		}
	}
	return filtered
}

// agentToolset is what one agent can call in a turn: its scoped registry
// tools, agent-as-tool wrappers and handoff functions.
type agentToolset struct {
	base     domain.Toolbox
	extra    map[string]domain.Tool
	order    []string
	handoffs map[string]string // tool name → target agent name
}

func newAgentToolset(base domain.Toolbox) *agentToolset {
	return &agentToolset{
		base:     base,
		extra:    make(map[string]domain.Tool),
		handoffs: make(map[string]string),
	}
}

func (ts *agentToolset) add(t domain.Tool) {
	if _, dup := ts.extra[t.Name()]; dup {
		return
	}
	ts.extra[t.Name()] = t
	ts.order = append(ts.order, t.Name())
}

func (ts *agentToolset) addHandoff(target domain.AgentSpec) {
	name := domain.HandoffToolName(target.Name)
	if _, dup := ts.handoffs[name]; dup {
		return
	}
	ts.handoffs[name] = target.Name
	ts.add(newHandoffTool(target))
}

// handoffTarget returns the agent a handoff tool transfers to.
func (ts *agentToolset) handoffTarget(toolName string) (string, bool) {
	target, ok := ts.handoffs[toolName]
	return target, ok
}

func (ts *agentToolset) Get(name string) (domain.Tool, error) {
	if t, ok := ts.extra[name]; ok {
		return t, nil
	}
	return ts.base.Get(name)
}

// Schemas lists registry tools first, then agent tools and handoffs in
// declaration order.
func (ts *agentToolset) Schemas() []domain.ToolSchema {
	schemas := ts.base.Schemas()
	for _, name := range ts.order {
		schemas = append(schemas, ts.extra[name].Schema())
	}
	return schemas
}
