package domain

import "testing"

func TestToolName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Researcher Agent", "researcher_agent"},
		{"Content Strategyst Agent", "content_strategyst_agent"},
		{"  Image  Creator-Agent ", "image_creator_agent"},
		{"QA!", "qa"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ToolName(tt.in); got != tt.want {
			t.Errorf("ToolName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHandoffToolName(t *testing.T) {
	if got := HandoffToolName("Ghostwriter Agent"); got != "transfer_to_ghostwriter_agent" {
		t.Errorf("got %q", got)
	}
}
