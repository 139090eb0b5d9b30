// Package crew declares the content pipeline agents and wires them for
// either delegation mode.
package crew

import (
	"fmt"
	"sort"

	"content-crew/internal/domain"
)

// Agent names.
const (
	ContentManagerName  = "Content Strategyst Agent"
	ResearcherName      = "Researcher Agent"
	GhostwriterName     = "Ghostwriter Agent"
	ImageCreatorName    = "Image Creator Agent"
	QualityReviewerName = "Quality Reviewer Agent"
)

// Mode selects how agents delegate to each other.
type Mode string

const (
	// ModeTools exposes delegates as callable tools; the caller keeps control.
	ModeTools Mode = "tools"
	// ModeHandoffs transfers control through transfer_to_<agent> functions.
	ModeHandoffs Mode = "handoffs"
)

func creativeSettings() *domain.ModelSettings {
	one := 1.0
	return &domain.ModelSettings{Temperature: &one, TopP: &one, MaxTokens: 2048, Store: true}
}

// ContentManager returns the orchestrating agent without delegation targets.
func ContentManager() domain.AgentSpec {
	return domain.AgentSpec{
		Name:               ContentManagerName,
		Instructions:       contentManagerInstructions,
		Model:              "gpt-4.1",
		HandoffDescription: "Outlines the post and writes the finished content to a file.",
		Tools:              []string{"write_file"},
	}
}

// Researcher returns the research and coordination agent without delegation targets.
func Researcher() domain.AgentSpec {
	return domain.AgentSpec{
		Name:               ResearcherName,
		Instructions:       researcherInstructions,
		Model:              "gpt-4.1",
		HandoffDescription: "Researches a topic and assembles the post with the writing, image and review agents.",
		Tools:              []string{"web_search"},
	}
}

// Ghostwriter returns the drafting agent.
func Ghostwriter() domain.AgentSpec {
	return domain.AgentSpec{
		Name:               GhostwriterName,
		Instructions:       ghostwriterInstructions,
		Model:              "gpt-4o",
		ModelSettings:      creativeSettings(),
		HandoffDescription: "Writes the post draft from research notes.",
	}
}

// ImageCreator returns the agent that generates and downloads the post image.
func ImageCreator() domain.AgentSpec {
	return domain.AgentSpec{
		Name:               ImageCreatorName,
		Instructions:       imageCreatorInstructions,
		Model:              "gpt-4o",
		HandoffDescription: "Generates an image for the post and saves it locally.",
		Tools:              []string{"generate_image", "download_image"},
	}
}

// QualityReviewer returns the reviewing agent.
func QualityReviewer() domain.AgentSpec {
	return domain.AgentSpec{
		Name:               QualityReviewerName,
		Instructions:       qualityReviewerInstructions,
		Model:              "gpt-4o",
		ModelSettings:      creativeSettings(),
		HandoffDescription: "Reviews a draft and returns specific feedback.",
	}
}

// Crew is an immutable set of agents resolvable by name.
type Crew struct {
	mode   Mode
	agents map[string]domain.AgentSpec
}

// Build returns the five agents wired for mode.
//
// In tools mode the content manager calls the researcher as a tool and the
// researcher calls the three leaf agents as tools. In handoffs mode the
// content manager hands off to the researcher, which hands off to the leaf
// agents or back to the content manager.
func Build(mode Mode) (*Crew, error) {
	cm, r := ContentManager(), Researcher()
	leaves := []string{GhostwriterName, ImageCreatorName, QualityReviewerName}

	switch mode {
	case ModeTools:
		cm.SubAgents = []string{ResearcherName}
		r.SubAgents = leaves
	case ModeHandoffs:
		cm.Handoffs = []string{ResearcherName}
		r.Handoffs = append(leaves, ContentManagerName)
	default:
		return nil, domain.NewDomainError("crew.Build", domain.ErrInvalidInput,
			fmt.Sprintf("unknown delegation mode %q", mode))
	}

	c := &Crew{mode: mode, agents: make(map[string]domain.AgentSpec, 5)}
	for _, a := range []domain.AgentSpec{cm, r, Ghostwriter(), ImageCreator(), QualityReviewer()} {
		c.agents[a.Name] = a
	}
	return c, nil
}

// Mode returns the delegation mode the crew was built for.
func (c *Crew) Mode() Mode { return c.mode }

// Agent implements domain.AgentLookup.
func (c *Crew) Agent(name string) (domain.AgentSpec, bool) {
	a, ok := c.agents[name]
	return a, ok
}

// Lookup resolves an agent by name.
func (c *Crew) Lookup(name string) (domain.AgentSpec, error) {
	a, ok := c.agents[name]
	if !ok {
		return domain.AgentSpec{}, domain.NewSubSystemError("crew", "Crew.Lookup", domain.ErrNotFound, name)
	}
	return a, nil
}

// Names returns the agent names, sorted.
func (c *Crew) Names() []string {
	names := make([]string, 0, len(c.agents))
	for name := range c.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateModels checks that every model override names a crew agent.
func (c *Crew) ValidateModels(models map[string]string) error {
	for name := range models {
		if _, ok := c.agents[name]; !ok {
			return domain.NewSubSystemError("crew", "Crew.ValidateModels", domain.ErrNotFound,
				fmt.Sprintf("model override for unknown agent %q", name))
		}
	}
	return nil
}

// ValidateTools checks that every tool an agent references is registered.
func (c *Crew) ValidateTools(tools domain.Toolbox) error {
	for _, name := range c.Names() {
		for _, tool := range c.agents[name].Tools {
			if _, err := tools.Get(tool); err != nil {
				return fmt.Errorf("crew: agent %q: %w", name, err)
			}
		}
	}
	return nil
}

var _ domain.AgentLookup = (*Crew)(nil)
