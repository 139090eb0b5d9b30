package domain

import (
	"strings"
	"unicode"
)

// ModelSettings are per-agent sampling overrides. Nil pointers leave the
// provider default in place.
type ModelSettings struct {
	Temperature *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"       yaml:"top_p,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"  yaml:"max_tokens,omitempty"`
	Store       bool     `json:"store,omitempty"       yaml:"store,omitempty"`
}

// AgentSpec is the static configuration of one agent persona.
// Tools name entries of the tool registry; Handoffs and SubAgents name other
// agents, which allows two agents to reference each other.
type AgentSpec struct {
	Name               string         `json:"name"`
	Instructions       string         `json:"instructions"`
	Model              string         `json:"model"`
	ModelSettings      *ModelSettings `json:"model_settings,omitempty"`
	HandoffDescription string         `json:"handoff_description,omitempty"`
	Tools              []string       `json:"tools,omitempty"`
	Handoffs           []string       `json:"handoffs,omitempty"`
	SubAgents          []string       `json:"sub_agents,omitempty"`
}

// AgentLookup resolves agents by name.
type AgentLookup interface {
	Agent(name string) (AgentSpec, bool)
}

// ToolName converts an agent name into a function-name-safe identifier:
// "Researcher Agent" -> "researcher_agent".
func ToolName(agentName string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.TrimSpace(agentName) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
			lastUnderscore = false
		case !lastUnderscore && b.Len() > 0:
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// HandoffToolName is the function name a model calls to transfer control to
// the named agent.
func HandoffToolName(agentName string) string {
	return "transfer_to_" + ToolName(agentName)
}
