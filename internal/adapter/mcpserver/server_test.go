package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-crew/internal/adapter/tool"
	"content-crew/internal/domain"
	"content-crew/internal/security"
)

func nopLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type failingTool struct{}

func (failingTool) Name() string        { return "always_fails" }
func (failingTool) Description() string { return "fails" }
func (failingTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{Name: "always_fails", Description: "fails"}
}
func (failingTool) Execute(context.Context, json.RawMessage) (*domain.ToolResult, error) {
	return nil, errors.New("backend down")
}

func newTestClient(t *testing.T) (*mcpclient.Client, string) {
	t.Helper()
	dir := t.TempDir()
	sandbox, err := security.NewSandbox(dir)
	require.NoError(t, err)

	reg := tool.NewRegistry(nopLogger())
	require.NoError(t, reg.Register(tool.NewWriteFileTool(tool.NewLocalFS(sandbox), nopLogger())))
	require.NoError(t, reg.Register(failingTool{}))

	srv := New(reg, "test", nopLogger())
	c, err := mcpclient.NewInProcessClient(srv.MCPServer())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	ctx := context.Background()
	require.NoError(t, c.Start(ctx))

	init := mcp.InitializeRequest{}
	init.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	init.Params.ClientInfo = mcp.Implementation{Name: "crew-test", Version: "1.0.0"}
	_, err = c.Initialize(ctx, init)
	require.NoError(t, err)
	return c, dir
}

func callTool(t *testing.T, c *mcpclient.Client, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	res, err := c.CallTool(context.Background(), req)
	require.NoError(t, err)
	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := mcp.AsTextContent(res.Content[0])
	require.True(t, ok, "content is not text")
	return text.Text
}

func TestListTools(t *testing.T) {
	c, _ := newTestClient(t)

	res, err := c.ListTools(context.Background(), mcp.ListToolsRequest{})
	require.NoError(t, err)

	names := map[string]mcp.Tool{}
	for _, tl := range res.Tools {
		names[tl.Name] = tl
	}
	require.Contains(t, names, "write_file")
	require.Contains(t, names, "always_fails")
	assert.Equal(t, "Write text content to a file on the local filesystem", names["write_file"].Description)
}

func TestCallWriteFile(t *testing.T) {
	c, dir := newTestClient(t)

	res := callTool(t, c, "write_file", map[string]any{"path": "post.md", "content": "# Hi"})
	assert.False(t, res.IsError)
	assert.Equal(t, "File written successfully to post.md", resultText(t, res))

	data, err := os.ReadFile(filepath.Join(dir, "post.md"))
	require.NoError(t, err)
	assert.Equal(t, "# Hi", string(data))
}

func TestCallWriteFileSchemaViolation(t *testing.T) {
	c, _ := newTestClient(t)

	res := callTool(t, c, "write_file", map[string]any{"path": "x.md"})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "arguments rejected")
}

func TestCallToolErrorIsResult(t *testing.T) {
	c, _ := newTestClient(t)

	res := callTool(t, c, "always_fails", nil)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "backend down")
}
