package mcpclient

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer() *server.MCPServer {
	s := server.NewMCPServer("test-tools", "1.0.0", server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool("search",
		mcp.WithDescription("web search"),
		mcp.WithString("q", mcp.Required(), mcp.Description("query")),
	), func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		q, _ := req.GetArguments()["q"].(string)
		if q == "" {
			return mcp.NewToolResultError("q is required"), nil
		}
		return mcp.NewToolResultText(`{"results":["` + q + `"]}`), nil
	})

	s.AddTool(mcp.NewTool("echo",
		mcp.WithDescription("echo text"),
	), func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("plain text"), nil
	})

	return s
}

func newTestClient(t *testing.T) *Client {
	ctx := context.Background()
	inproc, err := client.NewInProcessClient(newTestServer())
	require.NoError(t, err)

	c, err := NewFromClient(ctx, inproc, WithTransport("inprocess"), WithClientInfo("test", "0.1"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestListTools(t *testing.T) {
	c := newTestClient(t)

	list := c.ListTools(context.Background())
	require.Len(t, list, 2)

	byName := map[string]int{}
	for i, d := range list {
		byName[d.Name] = i
	}
	require.Contains(t, byName, "search")
	d := list[byName["search"]]
	assert.Equal(t, "web search", d.Description)

	schema, ok := d.InputSchema.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "object", schema["type"])
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "q")
	assert.Equal(t, []any{"q"}, schema["required"])
}

func TestCallTool(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	res := c.CallTool(ctx, "search", map[string]any{"q": "go"})
	require.False(t, res.IsError())
	assert.Equal(t, map[string]any{"results": []any{"go"}}, res.Payload())

	res = c.CallTool(ctx, "search", nil)
	require.True(t, res.IsError())
	assert.Equal(t, "q is required", res.ErrorMessage())

	res = c.CallTool(ctx, "echo", nil)
	require.False(t, res.IsError())
	s, err := res.Encode()
	require.NoError(t, err)
	assert.Equal(t, `"plain text"`, s)

	res = c.CallTool(ctx, "missing", nil)
	assert.True(t, res.IsError())
}

func TestConnect_Unsupported(t *testing.T) {
	_, err := Connect(context.Background(), "http://localhost:1/mcp", WithTransport("stdio"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedTransport)
}

func TestResultFromMCP(t *testing.T) {
	tcases := []struct {
		name   string
		res    *mcp.CallToolResult
		failed bool
		exp    string
	}{
		{name: "nil", res: nil, exp: `{}`},
		{name: "empty", res: &mcp.CallToolResult{}, exp: `{}`},
		{name: "json", res: mcp.NewToolResultText(`{"a":1}`), exp: `{"a":1}`},
		{name: "json_error_key", res: mcp.NewToolResultText(`{"error":"quota"}`), failed: true, exp: `{"error":"quota"}`},
		{name: "text", res: mcp.NewToolResultText(`hello`), exp: `"hello"`},
		{name: "is_error", res: mcp.NewToolResultError(`denied`), failed: true, exp: `{"error":"denied"}`},
		{name: "is_error_empty", res: &mcp.CallToolResult{IsError: true}, failed: true, exp: `{"error":"tool reported an error"}`},
		{
			name: "joined",
			res: &mcp.CallToolResult{Content: []mcp.Content{
				mcp.NewTextContent("line1"),
				mcp.NewImageContent("AAAA", "image/png"),
				mcp.NewTextContent("line2"),
			}},
			exp: `"line1\nline2"`,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			r := ResultFromMCP(tc.res)
			assert.Equal(t, tc.failed, r.IsError())
			s, err := r.Encode()
			require.NoError(t, err)
			assert.JSONEq(t, tc.exp, s)
		})
	}
}
