package llms_test

import (
	"testing"

	"github.com/effective-security/mcpagent/pkg/llms"
	"github.com/stretchr/testify/assert"
)

func TestCallOptions(t *testing.T) {
	tools := []llms.Tool{{Type: "function", Function: &llms.FunctionDefinition{Name: "search"}}}

	opts := llms.NewCallOptions(llms.CallOptions{Model: "default", MaxTokens: 10},
		llms.WithModel("gpt-4o"),
		llms.WithTools(tools),
		llms.WithToolChoice(llms.ToolChoiceAuto),
		llms.WithTemperature(0.2),
		llms.WithTopP(0.9),
		llms.WithStopWords([]string{"STOP"}),
	)
	assert.Equal(t, "gpt-4o", opts.Model)
	assert.Equal(t, 10, opts.MaxTokens)
	assert.Equal(t, tools, opts.Tools)
	assert.Equal(t, 0.2, opts.Temperature)
	assert.Equal(t, 0.9, opts.TopP)
	assert.Equal(t, []string{"STOP"}, opts.StopWords)
	assert.Equal(t, "auto", opts.ToolChoiceName())

	opts = llms.NewCallOptions(llms.CallOptions{}, llms.WithMaxTokens(5))
	assert.Nil(t, opts.Tools)
	assert.Empty(t, opts.ToolChoiceName())

	opts.ToolChoice = llms.ToolChoice{Type: "function", Function: &llms.FunctionReference{Name: "search"}}
	assert.Equal(t, "search", opts.ToolChoiceName())
	opts.ToolChoice = &llms.ToolChoice{Type: "function"}
	assert.Empty(t, opts.ToolChoiceName())
}
