package store

import (
	"testing"
	"time"

	"github.com/effective-security/mcpagent/pkg/llms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	assert.Equal(t, map[string]struct{}{"hello": {}, "world": {}, "42": {}}, tokenize("Hello, world! 42 hello"))
	assert.Equal(t, map[string]struct{}{"我": {}, "喜": {}, "欢": {}, "go": {}}, tokenize("我喜欢Go"))
	assert.Empty(t, tokenize(" ,.! "))
}

func TestRank(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	list := []*Memory{
		{ID: "1", Content: "cats and dogs", CreatedAt: now},
		{ID: "2", Content: "cats only", CreatedAt: now.Add(time.Second)},
		{ID: "3", Content: "birds", CreatedAt: now},
		{ID: "4", Content: "dogs and cats again", CreatedAt: now.Add(2 * time.Second)},
	}

	res := Rank("cats dogs", list, 10)
	require.Len(t, res, 3)
	assert.Equal(t, "4", res[0].ID)
	assert.Equal(t, "1", res[1].ID)
	assert.Equal(t, "2", res[2].ID)
	assert.Equal(t, 1.0, res[0].Score)
	assert.Equal(t, 0.5, res[2].Score)

	// input is not modified
	assert.Zero(t, list[0].Score)

	assert.Len(t, Rank("cats", list, 0), 3)
	assert.Len(t, Rank("cats", list, 1), 1)
	assert.Empty(t, Rank("", list, 5))
	assert.Empty(t, Rank("fish", list, 5))

	zh := []*Memory{{ID: "z", Content: "我住在北京"}}
	res = Rank("北京天气", zh, 5)
	require.Len(t, res, 1)
	assert.Equal(t, 0.5, res[0].Score)
}

func TestNewMemories(t *testing.T) {
	_, err := NewMemories(nil, "")
	assert.ErrorIs(t, err, ErrInvalidUser)

	list, err := NewMemories([]llms.Message{
		llms.MessageFromTextParts(llms.RoleUser, " q "),
		llms.MessageFromTextParts(llms.RoleAssistant, ""),
		llms.AssistantMessage("a"),
	}, "u")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "q", list[0].Content)
	assert.Equal(t, "user", list[0].Role)
	assert.Equal(t, "assistant", list[1].Role)
	assert.True(t, list[1].CreatedAt.After(list[0].CreatedAt))
}

func TestFormatMemories(t *testing.T) {
	assert.Equal(t, `{"results":[]}`, FormatMemories(nil))
	assert.Equal(t,
		`{"results":[{"memory":"likes blue","role":"user","score":0.5}]}`,
		FormatMemories([]*Memory{{Content: "likes blue", Role: "user", Score: 0.5}}))
}
