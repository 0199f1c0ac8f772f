package bedrock_test

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpagent/pkg/llms"
	"github.com/effective-security/mcpagent/pkg/llms/bedrock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConverse struct {
	input *bedrockruntime.ConverseInput
	out   *bedrockruntime.ConverseOutput
	err   error
}

func (f *fakeConverse) Converse(_ context.Context, params *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	f.input = params
	return f.out, f.err
}

func textOutput(text string) *bedrockruntime.ConverseOutput {
	return &bedrockruntime.ConverseOutput{
		Output: &types.ConverseOutputMemberMessage{
			Value: types.Message{
				Role:    types.ConversationRoleAssistant,
				Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: text}},
			},
		},
		StopReason: types.StopReasonEndTurn,
		Usage: &types.TokenUsage{
			InputTokens:  aws.Int32(10),
			OutputTokens: aws.Int32(2),
			TotalTokens:  aws.Int32(12),
		},
	}
}

func newLLM(t *testing.T, fake *fakeConverse) *bedrock.LLM {
	llm, err := bedrock.New(context.Background(),
		bedrock.WithClient(fake),
		bedrock.WithModel("anthropic.claude-test"),
		bedrock.WithMaxTokens(512),
	)
	require.NoError(t, err)
	return llm
}

func TestGenerateContent_Text(t *testing.T) {
	fake := &fakeConverse{out: textOutput("hello")}
	llm := newLLM(t, fake)
	assert.Equal(t, "anthropic.claude-test", llm.GetName())
	assert.Equal(t, llms.ProviderBedrock, llm.GetProviderType())

	resp, err := llm.GenerateContent(context.Background(), []llms.Message{
		llms.MessageFromTextParts(llms.RoleSystem, "be brief"),
		llms.MessageFromTextParts(llms.RoleUser, "hi"),
	}, llms.WithTemperature(0.2))
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "hello", resp.Choices[0].Content)
	assert.Equal(t, "end_turn", resp.Choices[0].StopReason)
	assert.Equal(t, int64(12), resp.Choices[0].GenerationInfo["TotalTokens"])

	in := fake.input
	assert.Equal(t, "anthropic.claude-test", aws.ToString(in.ModelId))
	assert.Len(t, in.System, 1)
	assert.Len(t, in.Messages, 1)
	assert.Equal(t, int32(512), aws.ToInt32(in.InferenceConfig.MaxTokens))
	assert.InDelta(t, 0.2, aws.ToFloat32(in.InferenceConfig.Temperature), 0.001)
	assert.Nil(t, in.ToolConfig)
}

func TestGenerateContent_ToolUse(t *testing.T) {
	fake := &fakeConverse{out: &bedrockruntime.ConverseOutput{
		Output: &types.ConverseOutputMemberMessage{
			Value: types.Message{
				Role: types.ConversationRoleAssistant,
				Content: []types.ContentBlock{
					&types.ContentBlockMemberToolUse{Value: types.ToolUseBlock{
						ToolUseId: aws.String("tu_1"),
						Name:      aws.String("search"),
						Input:     document.NewLazyDocument(map[string]any{"q": "golang"}),
					}},
				},
			},
		},
		StopReason: types.StopReasonToolUse,
	}}
	llm := newLLM(t, fake)

	tools := []llms.Tool{{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        "search",
			Description: "Search the web",
			Parameters:  map[string]any{"type": "object", "properties": map[string]any{"q": map[string]any{"type": "string"}}},
		},
	}}
	resp, err := llm.GenerateContent(context.Background(), []llms.Message{
		llms.MessageFromTextParts(llms.RoleUser, "find golang"),
	}, llms.WithTools(tools), llms.WithToolChoice(llms.ToolChoiceAuto))
	require.NoError(t, err)

	choice := resp.Choices[0]
	assert.Empty(t, choice.Content)
	require.Len(t, choice.ToolCalls, 1)
	assert.Equal(t, "tu_1", choice.ToolCalls[0].ID)
	assert.Equal(t, "search", choice.ToolCalls[0].Name())
	assert.JSONEq(t, `{"q":"golang"}`, choice.ToolCalls[0].Arguments())

	require.NotNil(t, fake.input.ToolConfig)
	assert.Len(t, fake.input.ToolConfig.Tools, 1)
	assert.IsType(t, &types.ToolChoiceMemberAuto{}, fake.input.ToolConfig.ToolChoice)
}

func TestGenerateContent_ToolHistory(t *testing.T) {
	fake := &fakeConverse{out: textOutput("done")}
	llm := newLLM(t, fake)

	calls := []llms.ToolCall{
		{ID: "a", FunctionCall: &llms.FunctionCall{Name: "search", Arguments: `{"q":"go"}`}},
		{ID: "b", FunctionCall: &llms.FunctionCall{Name: "search"}},
	}
	_, err := llm.GenerateContent(context.Background(), []llms.Message{
		llms.MessageFromTextParts(llms.RoleUser, "q"),
		llms.AssistantMessage("thinking", calls...),
		llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{ToolCallID: "a", Content: `{"x":1}`}),
		llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{ToolCallID: "b", Content: `"text"`}),
	})
	require.NoError(t, err)

	msgs := fake.input.Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, types.ConversationRoleAssistant, msgs[1].Role)
	assert.Len(t, msgs[1].Content, 3)
	assert.Equal(t, types.ConversationRoleUser, msgs[2].Role)
	require.Len(t, msgs[2].Content, 2)

	first := msgs[2].Content[0].(*types.ContentBlockMemberToolResult)
	assert.IsType(t, &types.ToolResultContentBlockMemberJson{}, first.Value.Content[0])
	second := msgs[2].Content[1].(*types.ContentBlockMemberToolResult)
	assert.IsType(t, &types.ToolResultContentBlockMemberText{}, second.Value.Content[0])

	require.NotNil(t, fake.input.ToolConfig)
	assert.Len(t, fake.input.ToolConfig.Tools, 1)
}

func TestGenerateContent_Errors(t *testing.T) {
	fake := &fakeConverse{err: errors.New("throttled")}
	llm := newLLM(t, fake)

	_, err := llm.GenerateContent(context.Background(), []llms.Message{llms.MessageFromTextParts(llms.RoleUser, "hi")})
	assert.EqualError(t, err, "bedrock: converse failed: throttled")

	fake.err = nil
	fake.out = &bedrockruntime.ConverseOutput{}
	_, err = llm.GenerateContent(context.Background(), []llms.Message{llms.MessageFromTextParts(llms.RoleUser, "hi")})
	assert.ErrorIs(t, err, bedrock.ErrEmptyResponse)

	_, err = llm.GenerateContent(context.Background(), []llms.Message{llms.MessageFromTextParts("function", "hi")})
	assert.ErrorIs(t, err, bedrock.ErrUnsupportedRole)
}

func TestGenerateContent_ToolInput(t *testing.T) {
	tcases := []struct {
		name  string
		input document.Interface
		exp   string
	}{
		{name: "object", input: document.NewLazyDocument(map[string]any{"q": "golang", "n": 2}), exp: `{"q":"golang","n":2}`},
		{name: "nested", input: document.NewLazyDocument(map[string]any{"f": map[string]any{"a": []any{"x"}}}), exp: `{"f":{"a":["x"]}}`},
		{name: "nil", exp: `{}`},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			llm := newLLM(t, &fakeConverse{out: &bedrockruntime.ConverseOutput{
				Output: &types.ConverseOutputMemberMessage{Value: types.Message{
					Role: types.ConversationRoleAssistant,
					Content: []types.ContentBlock{
						&types.ContentBlockMemberToolUse{Value: types.ToolUseBlock{
							ToolUseId: aws.String("tu_1"),
							Name:      aws.String("search"),
							Input:     tc.input,
						}},
					},
				}},
				StopReason: types.StopReasonToolUse,
			}})
			resp, err := llm.GenerateContent(context.Background(), []llms.Message{
				llms.MessageFromTextParts(llms.RoleUser, "find golang"),
			})
			require.NoError(t, err)
			require.Len(t, resp.Choices[0].ToolCalls, 1)
			assert.JSONEq(t, tc.exp, resp.Choices[0].ToolCalls[0].Arguments())
		})
	}
}
