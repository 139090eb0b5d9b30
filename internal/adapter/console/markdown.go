package console

import "github.com/charmbracelet/glamour"

// RenderMarkdown renders md for the terminal, wrapped at width columns.
// On failure md is returned unchanged along with the error.
func RenderMarkdown(md string, width int) (string, error) {
	if width <= 0 {
		width = 100
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md, err
	}
	out, err := r.Render(md)
	if err != nil {
		return md, err
	}
	return out, nil
}
