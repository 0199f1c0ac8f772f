// Package bedrock implements llms.Model over the AWS Bedrock Converse API.
package bedrock

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpagent/pkg/llms"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "anthropic.claude-3-5-sonnet-20240620-v1:0"
	// DefaultMaxTokens is the default generation limit.
	DefaultMaxTokens = 4096
)

var (
	ErrEmptyResponse   = errors.New("bedrock: no response")
	ErrUnsupportedRole = errors.New("bedrock: unsupported role")
)

// ConverseAPI is the subset of the bedrockruntime client used by the LLM.
type ConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// LLM is a Bedrock LLM implementation.
type LLM struct {
	modelID   string
	maxTokens int
	client    ConverseAPI
}

var _ llms.Model = (*LLM)(nil)

// New creates a new Bedrock LLM implementation. Without WithClient the
// client is created from the default AWS configuration chain.
func New(ctx context.Context, opts ...Option) (*LLM, error) {
	o := &options{
		modelID:   DefaultModel,
		maxTokens: DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.client == nil {
		var loadOpts []func(*config.LoadOptions) error
		if o.region != "" {
			loadOpts = append(loadOpts, config.WithRegion(o.region))
		}
		cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, errors.Wrap(err, "bedrock: failed to load AWS config")
		}
		o.client = bedrockruntime.NewFromConfig(cfg)
	}

	return &LLM{
		modelID:   o.modelID,
		maxTokens: o.maxTokens,
		client:    o.client,
	}, nil
}

// GetName implements the Model interface.
func (l *LLM) GetName() string {
	return l.modelID
}

// GetProviderType implements the Model interface.
func (l *LLM) GetProviderType() llms.ProviderType {
	return llms.ProviderBedrock
}

// GenerateContent implements llms.Model.
func (l *LLM) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.NewCallOptions(llms.CallOptions{
		Model:     l.modelID,
		MaxTokens: l.maxTokens,
	}, options...)

	msgs, system, err := ConvertMessages(messages)
	if err != nil {
		return nil, err
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(opts.Model),
		Messages: msgs,
		System:   system,
		InferenceConfig: &types.InferenceConfiguration{
			StopSequences: opts.StopWords,
		},
	}
	if opts.MaxTokens > 0 {
		input.InferenceConfig.MaxTokens = aws.Int32(int32(opts.MaxTokens))
	}
	if opts.Temperature > 0 {
		input.InferenceConfig.Temperature = aws.Float32(float32(opts.Temperature))
	}
	if opts.TopP > 0 {
		input.InferenceConfig.TopP = aws.Float32(float32(opts.TopP))
	}

	if tools := ConvertTools(opts.Tools); len(tools) > 0 {
		input.ToolConfig = &types.ToolConfiguration{
			Tools:      tools,
			ToolChoice: toolChoice(opts.ToolChoiceName()),
		}
	} else if names := llms.CalledTools(messages); len(names) > 0 {
		// toolUse and toolResult blocks in the history require a tool configuration
		input.ToolConfig = &types.ToolConfiguration{Tools: placeholderTools(names)}
	}

	out, err := l.client.Converse(ctx, input)
	if err != nil {
		return nil, errors.Wrap(err, "bedrock: converse failed")
	}
	return convertOutput(out)
}

// ConvertTools converts the function definitions to Converse tool specs.
func ConvertTools(tools []llms.Tool) []types.Tool {
	var list []types.Tool
	for _, t := range tools {
		if t.Function == nil {
			continue
		}
		schema := t.Function.Parameters
		if schema == nil {
			schema = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		list = append(list, &types.ToolMemberToolSpec{
			Value: types.ToolSpecification{
				Name:        aws.String(t.Function.Name),
				Description: aws.String(t.Function.Description),
				InputSchema: &types.ToolInputSchemaMemberJson{Value: document.NewLazyDocument(schema)},
			},
		})
	}
	return list
}

func placeholderTools(names []string) []types.Tool {
	defs := make([]llms.Tool, 0, len(names))
	for _, name := range names {
		defs = append(defs, llms.Tool{
			Type:     "function",
			Function: &llms.FunctionDefinition{Name: name, Description: name},
		})
	}
	return ConvertTools(defs)
}

func toolChoice(choice string) types.ToolChoice {
	switch choice {
	case "", llms.ToolChoiceAuto, llms.ToolChoiceNone:
		return &types.ToolChoiceMemberAuto{Value: types.AutoToolChoice{}}
	case llms.ToolChoiceRequired:
		return &types.ToolChoiceMemberAny{Value: types.AnyToolChoice{}}
	}
	return &types.ToolChoiceMemberTool{Value: types.SpecificToolChoice{Name: aws.String(choice)}}
}

// ConvertMessages converts the message log to Converse messages and system
// blocks. Consecutive tool responses are grouped into one user message.
func ConvertMessages(messages []llms.Message) ([]types.Message, []types.SystemContentBlock, error) {
	var system []types.SystemContentBlock
	var msgs []types.Message

	for _, m := range messages {
		var role types.ConversationRole
		switch m.Role {
		case llms.RoleSystem:
			if text := m.Text(); text != "" {
				system = append(system, &types.SystemContentBlockMemberText{Value: text})
			}
			continue
		case llms.RoleUser, llms.RoleTool:
			role = types.ConversationRoleUser
		case llms.RoleAssistant:
			role = types.ConversationRoleAssistant
		default:
			return nil, nil, errors.WithMessagef(ErrUnsupportedRole, "%v", m.Role)
		}

		var blocks []types.ContentBlock
		for _, part := range m.Parts {
			switch p := part.(type) {
			case llms.TextContent:
				if p.Text != "" {
					blocks = append(blocks, &types.ContentBlockMemberText{Value: p.Text})
				}
			case llms.ToolCall:
				args := map[string]any{}
				if raw := strings.TrimSpace(p.Arguments()); raw != "" {
					if err := json.Unmarshal([]byte(raw), &args); err != nil {
						return nil, nil, errors.Wrap(err, "bedrock: failed to unmarshal tool call arguments")
					}
				}
				blocks = append(blocks, &types.ContentBlockMemberToolUse{
					Value: types.ToolUseBlock{
						ToolUseId: aws.String(p.ID),
						Name:      aws.String(p.Name()),
						Input:     document.NewLazyDocument(args),
					},
				})
			case llms.ToolCallResponse:
				blocks = append(blocks, &types.ContentBlockMemberToolResult{
					Value: types.ToolResultBlock{
						ToolUseId: aws.String(p.ToolCallID),
						Content:   []types.ToolResultContentBlock{toolResultContent(p.Content)},
					},
				})
			}
		}
		if len(blocks) == 0 {
			continue
		}

		if m.Role == llms.RoleTool && len(msgs) > 0 && isToolResults(msgs[len(msgs)-1]) {
			last := &msgs[len(msgs)-1]
			last.Content = append(last.Content, blocks...)
			continue
		}
		msgs = append(msgs, types.Message{Role: role, Content: blocks})
	}
	return msgs, system, nil
}

func isToolResults(m types.Message) bool {
	if m.Role != types.ConversationRoleUser || len(m.Content) == 0 {
		return false
	}
	for _, b := range m.Content {
		if _, ok := b.(*types.ContentBlockMemberToolResult); !ok {
			return false
		}
	}
	return true
}

// toolResultContent sends JSON objects as json blocks, anything else as text.
func toolResultContent(content string) types.ToolResultContentBlock {
	var v any
	if err := json.Unmarshal([]byte(content), &v); err == nil {
		if obj, ok := v.(map[string]any); ok {
			return &types.ToolResultContentBlockMemberJson{Value: document.NewLazyDocument(obj)}
		}
	}
	return &types.ToolResultContentBlockMemberText{Value: content}
}

func convertOutput(out *bedrockruntime.ConverseOutput) (*llms.ContentResponse, error) {
	if out == nil {
		return nil, errors.WithStack(ErrEmptyResponse)
	}
	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok || len(msg.Value.Content) == 0 {
		return nil, errors.WithStack(ErrEmptyResponse)
	}

	choice := &llms.ContentChoice{
		StopReason:     string(out.StopReason),
		GenerationInfo: map[string]any{},
	}
	if out.Usage != nil {
		choice.GenerationInfo["InputTokens"] = int64(aws.ToInt32(out.Usage.InputTokens))
		choice.GenerationInfo["OutputTokens"] = int64(aws.ToInt32(out.Usage.OutputTokens))
		choice.GenerationInfo["TotalTokens"] = int64(aws.ToInt32(out.Usage.TotalTokens))
	}

	var text strings.Builder
	for _, block := range msg.Value.Content {
		switch b := block.(type) {
		case *types.ContentBlockMemberText:
			text.WriteString(b.Value)
		case *types.ContentBlockMemberToolUse:
			args := "{}"
			if b.Value.Input != nil {
				js, err := b.Value.Input.MarshalSmithyDocument()
				if err != nil {
					return nil, errors.Wrap(err, "bedrock: failed to encode tool input")
				}
				args = string(js)
			}
			choice.ToolCalls = append(choice.ToolCalls, llms.ToolCall{
				ID:   aws.ToString(b.Value.ToolUseId),
				Type: "function",
				FunctionCall: &llms.FunctionCall{
					Name:      aws.ToString(b.Value.Name),
					Arguments: args,
				},
			})
		}
	}
	choice.Content = text.String()

	return &llms.ContentResponse{Choices: []*llms.ContentChoice{choice}}, nil
}
