package console

import "github.com/charmbracelet/lipgloss"

// ANSI palette indices, matching the basic 8-color terminal set.
const (
	colorRed     = lipgloss.Color("1")
	colorGreen   = lipgloss.Color("2")
	colorYellow  = lipgloss.Color("3")
	colorBlue    = lipgloss.Color("4")
	colorMagenta = lipgloss.Color("5")
	colorCyan    = lipgloss.Color("6")
	colorWhite   = lipgloss.Color("7")
)

// agentColors keys agents by display name. Unknown agents are white.
var agentColors = map[string]lipgloss.Color{
	"Content Manager Agent":    colorMagenta,
	"Content Strategyst Agent": colorMagenta,
	"Researcher Agent":         colorCyan,
	"Ghostwriter Agent":        colorGreen,
	"Image Creator Agent":      colorYellow,
	"Quality Reviewer Agent":   colorBlue,
}

type styles struct {
	dim     lipgloss.Style
	bright  lipgloss.Style
	tool    lipgloss.Style
	err     lipgloss.Style
	agentFn func(name string) lipgloss.Style
}

func newStyles(r, errR *lipgloss.Renderer) styles {
	return styles{
		dim:    r.NewStyle().Faint(true),
		bright: r.NewStyle().Bold(true),
		tool:   r.NewStyle().Foreground(colorYellow),
		err:    errR.NewStyle().Foreground(colorRed),
		agentFn: func(name string) lipgloss.Style {
			c, ok := agentColors[name]
			if !ok {
				c = colorWhite
			}
			return r.NewStyle().Foreground(c)
		},
	}
}
