package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/effective-security/mcpagent/pkg/llmfactory"
	"github.com/effective-security/mcpagent/pkg/llms"
	"github.com/effective-security/xlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedModel calls the search tool when tools are offered,
// and answers from the tool output or the query otherwise.
type scriptedModel struct {
	lock  sync.Mutex
	calls int
}

func (m *scriptedModel) GetName() string                    { return "scripted" }
func (m *scriptedModel) GetProviderType() llms.ProviderType { return llms.ProviderOpenAI }

func (m *scriptedModel) GenerateContent(_ context.Context, msgs []llms.Message, opts ...llms.CallOption) (*llms.ContentResponse, error) {
	m.lock.Lock()
	m.calls++
	m.lock.Unlock()

	o := llms.NewCallOptions(llms.CallOptions{}, opts...)
	last := msgs[len(msgs)-1]
	switch {
	case last.Role == llms.RoleTool:
		resp := last.Parts[0].(llms.ToolCallResponse)
		return answer("Go is a language: " + resp.Content), nil
	case len(o.Tools) > 0:
		return &llms.ContentResponse{Choices: []*llms.ContentChoice{{
			ToolCalls: []llms.ToolCall{{
				ID:           "call_1",
				Type:         "function",
				FunctionCall: &llms.FunctionCall{Name: "search", Arguments: `{"q":"go"}`},
			}},
		}}}, nil
	default:
		return answer("plain answer"), nil
	}
}

func answer(text string) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: text}}}
}

func setup(t *testing.T, toolList string) *scriptedModel {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/mcp/tools":
			_, _ = w.Write([]byte(toolList))
		case "/mcp/call_tool":
			var req map[string]any
			b, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(b, &req)
			_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"tool": req["name"], "hits": 1}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	t.Setenv("MCP_BASE_URL", srv.URL+"/mcp/")
	t.Setenv("MCP_TRANSPORT", "http")
	t.Setenv("LLM_API_KEY", "sk-test")
	t.Setenv("REDIS_URL", "")
	t.Setenv("MEMORY_DB", "")

	model := &scriptedModel{}
	llmfactory.NewLLM = func(_ *llmfactory.ProviderConfig, _ ...string) (llms.Model, error) {
		return model, nil
	}
	t.Cleanup(func() {
		llmfactory.NewLLM = llmfactory.CreateLLM
	})
	return model
}

const searchTools = `[{"name":"search","description":"Search the web","inputSchema":{"type":"object","properties":{"q":{"type":"string"}}}}]`

func run(t *testing.T, stdin string, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	err := Run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return stdout.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", out)
}

func TestHelp(t *testing.T) {
	out, err := run(t, "", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "chat")
	assert.Contains(t, out, "repl")

	_, err = run(t, "", "unknown")
	require.Error(t, err)
}

func TestTools(t *testing.T) {
	setup(t, searchTools)

	out, err := run(t, "", "tools")
	require.NoError(t, err)
	assert.Equal(t, "search: Search the web\n", out)

	out, err = run(t, "", "tools", "--json")
	require.NoError(t, err)
	var defs []llms.Tool
	require.NoError(t, json.Unmarshal([]byte(out), &defs))
	require.Len(t, defs, 1)
	assert.Equal(t, "search", defs[0].Function.Name)
	assert.Equal(t, "function", defs[0].Type)

	out, err = run(t, "", "tools", "--yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "name: search")
}

func TestTools_Empty(t *testing.T) {
	setup(t, `[]`)

	out, err := run(t, "", "tools")
	require.NoError(t, err)
	assert.Equal(t, "no tools available\n", out)
}

func TestChat(t *testing.T) {
	model := setup(t, searchTools)

	out, err := run(t, "", "chat", "what", "is", "go")
	require.NoError(t, err)
	assert.Equal(t, "Go is a language: {\"hits\":1,\"tool\":\"search\"}\n", out)
	assert.Equal(t, 2, model.calls)

	out, err = run(t, "", "--stats", "chat", "--json", "what is go")
	require.NoError(t, err)
	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "what is go", res["query"])
	assert.Equal(t, true, res["success"])
	assert.Equal(t, float64(1), res["tools_available"])
}

func TestChat_NoQuery(t *testing.T) {
	model := setup(t, searchTools)

	out, err := run(t, "", "chat")
	assert.ErrorIs(t, err, ErrRunFailed)
	assert.Equal(t, "Error: no query parameter provided\n", out)
	assert.Equal(t, 0, model.calls)
}

func TestChat_PureChat(t *testing.T) {
	setup(t, `[]`)

	out, err := run(t, "", "--verbose", "chat", "hello")
	require.NoError(t, err)
	assert.Equal(t, "plain answer\n", out)
}

func TestMemory(t *testing.T) {
	model := setup(t, searchTools)
	t.Setenv("MEMORY_ID", "alice")

	out, err := run(t, "", "memory", "hello")
	require.NoError(t, err)
	assert.Equal(t, "plain answer\n", out)
	assert.Equal(t, 1, model.calls)
}

func TestRepl(t *testing.T) {
	model := setup(t, searchTools)

	out, err := run(t, "\n  \nwhat is go\nquit\nignored\n", "repl")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "Go is a language"))
	assert.Equal(t, 2, model.calls)

	out, err = run(t, "hello\n退出\n", "repl", "--memory")
	require.NoError(t, err)
	assert.Contains(t, out, "plain answer\n")
	assert.Equal(t, 3, model.calls)

	// end of input leaves the loop
	_, err = run(t, "hello\n", "repl", "--memory")
	require.NoError(t, err)
	assert.Equal(t, 4, model.calls)
}

func TestIsQuit(t *testing.T) {
	assert.True(t, isQuit("quit"))
	assert.True(t, isQuit("EXIT"))
	assert.True(t, isQuit("退出"))
	assert.False(t, isQuit("quit now"))
}

func TestLogLevel(t *testing.T) {
	assert.Equal(t, xlog.DEBUG, logLevel("debug"))
	assert.Equal(t, xlog.WARNING, logLevel(""))
}
