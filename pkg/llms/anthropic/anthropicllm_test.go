package anthropic_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/effective-security/mcpagent/pkg/llms"
	"github.com/effective-security/mcpagent/pkg/llms/anthropic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := anthropic.New(anthropic.WithModel("claude-sonnet-4-5"))
	assert.ErrorIs(t, err, anthropic.ErrMissingToken)

	_, err = anthropic.New(anthropic.WithToken("fake-token"))
	assert.EqualError(t, err, "anthropic: model is required")

	llm, err := anthropic.New(
		anthropic.WithToken("fake-token"),
		anthropic.WithModel("claude-sonnet-4-5"),
		anthropic.WithBaseURL("https://custom.anthropic.com"),
		anthropic.WithHTTPClient(&http.Client{}),
		anthropic.WithAnthropicBetaHeader("beta-feature-1"),
	)
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet-4-5", llm.GetName())
	assert.Equal(t, llms.ProviderAnthropic, llm.GetProviderType())
}

type recorded struct {
	path   string
	header http.Header
	body   map[string]any
}

func newServer(t *testing.T, status int, reply string) (*httptest.Server, *recorded) {
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.path = r.URL.Path
		rec.header = r.Header.Clone()
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &rec.body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func newLLM(t *testing.T, url string) *anthropic.LLM {
	llm, err := anthropic.New(
		anthropic.WithToken("fake-token"),
		anthropic.WithModel("claude-sonnet-4-5"),
		anthropic.WithBaseURL(url),
		anthropic.WithMaxRetries(0),
	)
	require.NoError(t, err)
	return llm
}

var searchTool = llms.Tool{
	Type: "function",
	Function: &llms.FunctionDefinition{
		Name:        "search",
		Description: "Search the web",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"q": map[string]any{"type": "string"},
			},
			"required": []any{"q"},
		},
	},
}

func TestGenerateContent_ToolUse(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, `{
		"id": "msg_1",
		"type": "message",
		"role": "assistant",
		"model": "claude-sonnet-4-5",
		"content": [
			{"type": "text", "text": "Let me search."},
			{"type": "tool_use", "id": "toolu_1", "name": "search", "input": {"q": "golang"}}
		],
		"stop_reason": "tool_use",
		"usage": {"input_tokens": 10, "output_tokens": 5}
	}`)
	llm := newLLM(t, srv.URL)

	msgs := []llms.Message{
		llms.MessageFromTextParts(llms.RoleSystem, "be brief"),
		llms.MessageFromTextParts(llms.RoleUser, "find golang"),
	}
	resp, err := llm.GenerateContent(context.Background(), msgs,
		llms.WithTools([]llms.Tool{searchTool}),
		llms.WithToolChoice(llms.ToolChoiceAuto),
		llms.WithMaxTokens(100),
	)
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)

	choice := resp.Choices[0]
	assert.Equal(t, "Let me search.", choice.Content)
	assert.Equal(t, "tool_use", choice.StopReason)
	require.Len(t, choice.ToolCalls, 1)
	assert.Equal(t, "toolu_1", choice.ToolCalls[0].ID)
	assert.Equal(t, "search", choice.ToolCalls[0].Name())
	assert.JSONEq(t, `{"q":"golang"}`, choice.ToolCalls[0].Arguments())
	assert.EqualValues(t, 15, choice.GenerationInfo["TotalTokens"])

	assert.Equal(t, "/v1/messages", rec.path)
	assert.Equal(t, "fake-token", rec.header.Get("X-Api-Key"))
	assert.Equal(t, "claude-sonnet-4-5", rec.body["model"])
	assert.EqualValues(t, 100, rec.body["max_tokens"])

	system := rec.body["system"].([]any)
	require.Len(t, system, 1)
	assert.Equal(t, "be brief", system[0].(map[string]any)["text"])

	tools := rec.body["tools"].([]any)
	require.Len(t, tools, 1)
	tool := tools[0].(map[string]any)
	assert.Equal(t, "search", tool["name"])
	schema := tool["input_schema"].(map[string]any)
	assert.Equal(t, []any{"q"}, schema["required"])

	assert.Equal(t, "auto", rec.body["tool_choice"].(map[string]any)["type"])
}

func TestGenerateContent_ToolResults(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, `{
		"id": "msg_2",
		"type": "message",
		"role": "assistant",
		"model": "claude-sonnet-4-5",
		"content": [{"type": "text", "text": "Go is a language."}],
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 20, "output_tokens": 4}
	}`)
	llm := newLLM(t, srv.URL)

	calls := []llms.ToolCall{
		{ID: "t1", Type: "function", FunctionCall: &llms.FunctionCall{Name: "search", Arguments: `{"q":"go"}`}},
		{ID: "t2", Type: "function", FunctionCall: &llms.FunctionCall{Name: "search", Arguments: ""}},
	}
	msgs := []llms.Message{
		llms.MessageFromTextParts(llms.RoleUser, "what is go?"),
		llms.AssistantMessage("", calls...),
		llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{ToolCallID: "t1", Name: "search", Content: `{"a":1}`}),
		llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{ToolCallID: "t2", Name: "search", Content: `{}`}),
	}
	resp, err := llm.GenerateContent(context.Background(), msgs)
	require.NoError(t, err)
	assert.Equal(t, "Go is a language.", resp.Choices[0].Content)
	assert.Empty(t, resp.Choices[0].ToolCalls)

	sent := rec.body["messages"].([]any)
	require.Len(t, sent, 3)
	assert.Equal(t, "assistant", sent[1].(map[string]any)["role"])
	results := sent[2].(map[string]any)
	assert.Equal(t, "user", results["role"])
	assert.Len(t, results["content"], 2)

	tools := rec.body["tools"].([]any)
	require.Len(t, tools, 1)
	assert.Equal(t, "search", tools[0].(map[string]any)["name"])
	assert.Equal(t, "none", rec.body["tool_choice"].(map[string]any)["type"])
}

func TestGenerateContent_Errors(t *testing.T) {
	srv, _ := newServer(t, http.StatusBadRequest, `{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`)
	llm := newLLM(t, srv.URL)

	_, err := llm.GenerateContent(context.Background(), []llms.Message{
		llms.MessageFromTextParts(llms.RoleUser, "hi"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic: failed to create message")

	srv, _ = newServer(t, http.StatusOK, `{"id":"m","type":"message","role":"assistant","content":[],"usage":{"input_tokens":1,"output_tokens":0}}`)
	llm = newLLM(t, srv.URL)
	_, err = llm.GenerateContent(context.Background(), []llms.Message{
		llms.MessageFromTextParts(llms.RoleUser, "hi"),
	})
	assert.ErrorIs(t, err, anthropic.ErrEmptyResponse)
}

func TestProcessMessages(t *testing.T) {
	t.Parallel()

	msgs, system, err := anthropic.ProcessMessages([]llms.Message{
		llms.MessageFromTextParts(llms.RoleSystem, "one"),
		llms.MessageFromTextParts(llms.RoleSystem, "two"),
		{Role: llms.RoleUser},
		llms.MessageFromTextParts(llms.RoleUser, "hi"),
	})
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo", system)
	assert.Len(t, msgs, 1)

	_, _, err = anthropic.ProcessMessages([]llms.Message{
		llms.MessageFromTextParts("function", "x"),
	})
	assert.ErrorIs(t, err, anthropic.ErrUnsupportedMessageType)

	_, _, err = anthropic.ProcessMessages([]llms.Message{
		llms.AssistantMessage("", llms.ToolCall{ID: "1", FunctionCall: &llms.FunctionCall{Name: "f", Arguments: "{bad"}}),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal tool call arguments")

	_, _, err = anthropic.ProcessMessages([]llms.Message{
		llms.MessageFromTextParts(llms.RoleTool, "not a response"),
	})
	assert.ErrorIs(t, err, anthropic.ErrInvalidContentType)
}

func TestToTools(t *testing.T) {
	t.Parallel()

	assert.Nil(t, anthropic.ToTools(nil))

	tools := anthropic.ToTools([]llms.Tool{searchTool, {Type: "function"}})
	require.Len(t, tools, 1)
	require.NotNil(t, tools[0].OfTool)
	assert.Equal(t, "search", tools[0].OfTool.Name)
	assert.Equal(t, []string{"q"}, tools[0].OfTool.InputSchema.Required)
}
