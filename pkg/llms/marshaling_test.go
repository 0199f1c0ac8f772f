package llms_test

import (
	"encoding/json"
	"testing"

	"github.com/effective-security/mcpagent/pkg/llms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageJSON(t *testing.T) {
	t.Run("single text", func(t *testing.T) {
		js, err := json.Marshal(llms.MessageFromTextParts(llms.RoleUser, "hello"))
		require.NoError(t, err)
		assert.JSONEq(t, `{"role":"user","text":"hello"}`, string(js))
	})

	t.Run("log", func(t *testing.T) {
		log := []llms.Message{
			llms.MessageFromTextParts(llms.RoleSystem, "be nice"),
			llms.AssistantMessage("", llms.ToolCall{ID: "c1", Type: "function", FunctionCall: &llms.FunctionCall{Name: "search", Arguments: "{}"}}),
			llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{ToolCallID: "c1", Name: "search", Content: "{}"}),
		}
		js, err := json.Marshal(log)
		require.NoError(t, err)

		var back []llms.Message
		require.NoError(t, json.Unmarshal(js, &back))
		assert.Equal(t, log, back)
	})

	t.Run("errors", func(t *testing.T) {
		var m llms.Message
		assert.ErrorIs(t, json.Unmarshal([]byte(`{"role":"human","text":"x"}`), &m), llms.ErrUnexpectedRole)
		assert.EqualError(t, json.Unmarshal([]byte(`{"role":"user","parts":[{"type":"image"}]}`), &m), "unknown content type: image")
		assert.EqualError(t, json.Unmarshal([]byte(`{"role":"tool","parts":[{"type":"tool_response"}]}`), &m), "missing tool_response")
	})
}
