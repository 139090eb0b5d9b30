// Package console prints run activity for a human watching the terminal:
// agent starts and ends, tool calls, results and streamed model text.
package console

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"content-crew/internal/domain"
)

const (
	maxInputPreview   = 100
	maxOutputPreview  = 150
	maxResultPreview  = 100
	maxToolArgsInline = 200
	sectionWidth      = 60
)

// Printer writes colored, timestamped activity lines. It implements
// domain.RunHooks, so it can be passed to a run directly. Colors are
// dropped when the writer is not a terminal.
type Printer struct {
	mu      sync.Mutex
	out     io.Writer
	errOut  io.Writer
	st      styles
	now     func() time.Time
	deltas  bool
	inDelta bool
}

var _ domain.RunHooks = (*Printer)(nil)

// Option configures a Printer.
type Option func(*Printer)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Printer) { p.now = now }
}

// WithDeltas makes the printer echo streamed model text to out as it
// arrives.
func WithDeltas(enabled bool) Option {
	return func(p *Printer) { p.deltas = enabled }
}

// New creates a Printer. errOut receives Error lines.
func New(out, errOut io.Writer, opts ...Option) *Printer {
	p := &Printer{
		out:    out,
		errOut: errOut,
		st:     newStyles(lipgloss.NewRenderer(out), lipgloss.NewRenderer(errOut)),
		now:    time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *Printer) timestamp() string {
	return p.now().UTC().Format("15:04:05.000")
}

// println writes one event. A pending streamed line is terminated first so
// events never start mid-line.
func (p *Printer) println(lines ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inDelta {
		fmt.Fprintln(p.out)
		p.inDelta = false
	}
	for _, l := range lines {
		fmt.Fprintln(p.out, l)
	}
}

// AgentStart logs an agent beginning work on input.
func (p *Printer) AgentStart(name, input string) {
	p.println(
		"",
		p.st.dim.Render("["+p.timestamp()+"]")+" "+p.st.agentFn(name).Bold(true).Render("🤖 "+name),
		p.st.dim.Render("   ├─ Input: "+truncate(input, maxInputPreview)),
	)
}

// AgentEnd logs an agent finishing with output.
func (p *Printer) AgentEnd(name, output string) {
	p.println(
		p.st.dim.Render("["+p.timestamp()+"]")+" "+p.st.agentFn(name).Render("✅ "+name+" completed"),
		p.st.dim.Render("   └─ Output: "+truncate(output, maxOutputPreview)),
	)
}

// ToolCall logs a tool invocation. Arguments are shown indented when they
// are short enough.
func (p *Printer) ToolCall(name string, args json.RawMessage) {
	lines := []string{p.st.dim.Render("["+p.timestamp()+"]") + " " + p.st.tool.Render("🔧 Tool: "+name)}
	if s := indentArgs(args); len(s) < maxToolArgsInline {
		lines = append(lines, p.st.dim.Render("   └─ "+s))
	}
	p.println(lines...)
}

// ToolResult logs the first part of a tool's output.
func (p *Printer) ToolResult(name, output string) {
	p.println(p.st.dim.Render(fmt.Sprintf("[%s] ✅ %s result: %s", p.timestamp(), name, truncate(output, maxResultPreview))))
}

// Handoff logs control moving between agents.
func (p *Printer) Handoff(from, to string) {
	p.println(p.st.dim.Render(fmt.Sprintf("[%s] ↪ %s → %s", p.timestamp(), from, to)))
}

// Error logs message and err to the error writer.
func (p *Printer) Error(message string, err error) {
	line := "❌ Error: " + message
	if err != nil {
		line += " " + err.Error()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.errOut, p.st.err.Render(line))
}

// Section prints a banner around title.
func (p *Printer) Section(title string) {
	bar := p.st.bright.Render(strings.Repeat("═", sectionWidth))
	p.println("", bar, p.st.bright.Render("  "+title), bar, "")
}

// Delta writes streamed model text verbatim.
func (p *Printer) Delta(content string) {
	if content == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	io.WriteString(p.out, content)
	p.inDelta = !strings.HasSuffix(content, "\n")
}

func (p *Printer) OnAgentStart(_ context.Context, agent, input string) { p.AgentStart(agent, input) }
func (p *Printer) OnAgentEnd(_ context.Context, agent, output string)  { p.AgentEnd(agent, output) }
func (p *Printer) OnHandoff(_ context.Context, from, to string)        { p.Handoff(from, to) }

func (p *Printer) OnToolCall(_ context.Context, _ string, call domain.ToolCall) {
	p.ToolCall(call.Name, call.Arguments)
}

func (p *Printer) OnToolResult(_ context.Context, _ string, call domain.ToolCall, result domain.ToolResult) {
	p.ToolResult(call.Name, result.Content)
}

func (p *Printer) OnDelta(_ context.Context, _ string, content string) {
	if p.deltas {
		p.Delta(content)
	}
}

// truncate keeps the first n runes of s and marks the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func indentArgs(args json.RawMessage) string {
	if len(bytes.TrimSpace(args)) == 0 {
		return "{}"
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, args, "", "  "); err != nil {
		return string(args)
	}
	return buf.String()
}
