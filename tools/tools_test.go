package tools_test

import (
	"testing"

	"github.com/effective-security/mcpagent/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDescriptors(t *testing.T) {
	list, err := tools.DecodeDescriptors([]byte(`[
		{"name":"search","description":"web search","inputSchema":{"type":"object"}},
		{"name":12,"description":"numeric name"},
		"not an object",
		{"name":"calc","inputSchema":"{\"type\":\"object\"}"}
	]`))
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "search", list[0].Name)
	assert.Equal(t, "web search", list[0].Description)
	assert.Equal(t, map[string]any{"type": "object"}, list[0].InputSchema)
	assert.Empty(t, list[1].Name)
	assert.Equal(t, `{"type":"object"}`, list[2].InputSchema)

	for _, wrapped := range []string{`{"tools":[{"name":"a"}]}`, `{"data":[{"name":"a"}]}`} {
		list, err = tools.DecodeDescriptors([]byte(wrapped))
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "a", list[0].Name)
	}

	_, err = tools.DecodeDescriptors([]byte(`{"name":"a"}`))
	assert.EqualError(t, err, "unexpected tool list type: map[string]interface {}")

	_, err = tools.DecodeDescriptors([]byte(`<html>`))
	assert.Error(t, err)
}
