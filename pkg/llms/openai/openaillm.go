package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpagent/pkg/llms"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

var (
	// ErrEmptyResponse is returned when the API returns no choices.
	ErrEmptyResponse = errors.New("openai: no response")
	// ErrMissingToken is returned when no API key is configured.
	ErrMissingToken = errors.New("openai: missing API key")
)

// LLM is a chat model over the OpenAI Chat Completions API.
type LLM struct {
	client openai.Client
	model  string
}

var _ llms.Model = (*LLM)(nil)

// New returns a new OpenAI LLM.
func New(opts ...Option) (*LLM, error) {
	o := &options{
		model:      DefaultChatModel,
		baseURL:    DefaultBaseURL,
		maxRetries: DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.token == "" {
		return nil, ErrMissingToken
	}

	sdkOpts := []option.RequestOption{
		option.WithAPIKey(o.token),
		option.WithBaseURL(o.baseURL),
		option.WithMaxRetries(o.maxRetries),
	}
	if o.organization != "" {
		sdkOpts = append(sdkOpts, option.WithOrganization(o.organization))
	}
	if o.httpClient != nil {
		sdkOpts = append(sdkOpts, option.WithHTTPClient(o.httpClient))
	}
	for k, v := range o.headers {
		sdkOpts = append(sdkOpts, option.WithHeader(k, v))
	}

	return &LLM{
		client: openai.NewClient(sdkOpts...),
		model:  o.model,
	}, nil
}

// GetName implements the Model interface.
func (o *LLM) GetName() string {
	return o.model
}

// GetProviderType implements the Model interface.
func (o *LLM) GetProviderType() llms.ProviderType {
	return llms.ProviderOpenAI
}

// GenerateContent implements the Model interface.
func (o *LLM) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.NewCallOptions(llms.CallOptions{Model: o.model}, options...)

	chatMsgs, err := ChatMessages(messages)
	if err != nil {
		return nil, err
	}

	params := openai.ChatCompletionNewParams{
		Model:    opts.Model,
		Messages: chatMsgs,
	}
	if opts.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(opts.MaxTokens))
	}
	if opts.Temperature > 0 {
		params.Temperature = openai.Float(opts.Temperature)
	}
	if opts.TopP > 0 {
		params.TopP = openai.Float(opts.TopP)
	}
	if len(opts.StopWords) > 0 {
		params.Stop = openai.ChatCompletionNewParamsStopUnion{OfStringArray: opts.StopWords}
	}
	if tools := ToTools(opts.Tools); len(tools) > 0 {
		params.Tools = tools
		if choice := opts.ToolChoiceName(); choice != "" {
			params.ToolChoice = toolChoice(choice)
		}
	}

	result, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, errors.Wrap(err, "openai: failed to create chat completion")
	}
	if len(result.Choices) == 0 {
		return nil, errors.WithStack(ErrEmptyResponse)
	}

	c := result.Choices[0]
	choice := &llms.ContentChoice{
		Content:    c.Message.Content,
		StopReason: fmt.Sprint(c.FinishReason),
		GenerationInfo: map[string]any{
			"InputTokens":  result.Usage.PromptTokens,
			"OutputTokens": result.Usage.CompletionTokens,
			"TotalTokens":  result.Usage.TotalTokens,
			"ID":           result.ID,
		},
	}
	for _, tc := range c.Message.ToolCalls {
		choice.ToolCalls = append(choice.ToolCalls, llms.ToolCall{
			ID:   tc.ID,
			Type: string(tc.Type),
			FunctionCall: &llms.FunctionCall{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}

	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{choice},
	}, nil
}

// ChatMessages converts the message log to Chat Completions messages.
// A tool message yields one API message per tool response part.
func ChatMessages(messages []llms.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	chatMsgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, mc := range messages {
		switch mc.Role {
		case llms.RoleSystem:
			chatMsgs = append(chatMsgs, openai.SystemMessage(mc.Text()))
		case llms.RoleUser:
			chatMsgs = append(chatMsgs, openai.UserMessage(mc.Text()))
		case llms.RoleAssistant:
			chatMsgs = append(chatMsgs, assistantMessage(mc))
		case llms.RoleTool:
			responses := mc.ToolResponses()
			if len(responses) == 0 {
				return nil, errors.New("openai: tool message without tool response")
			}
			for _, r := range responses {
				chatMsgs = append(chatMsgs, openai.ToolMessage(r.Content, r.ToolCallID))
			}
		default:
			return nil, errors.Errorf("openai: role %v not supported", mc.Role)
		}
	}
	return chatMsgs, nil
}

func assistantMessage(mc llms.Message) openai.ChatCompletionMessageParamUnion {
	calls := mc.ToolCalls()
	if len(calls) == 0 {
		return openai.AssistantMessage(mc.Text())
	}

	asst := openai.ChatCompletionAssistantMessageParam{}
	if text := mc.Text(); text != "" {
		asst.Content.OfString = openai.String(text)
	}
	for _, tc := range calls {
		args := tc.Arguments()
		if strings.TrimSpace(args) == "" {
			args = "{}"
		}
		asst.ToolCalls = append(asst.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
			OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
				ID: tc.ID,
				Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
					Name:      tc.Name(),
					Arguments: args,
				},
			},
		})
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: &asst}
}

// ToTools converts LLM tool definitions to Chat Completions function tools.
func ToTools(tools []llms.Tool) []openai.ChatCompletionToolUnionParam {
	if len(tools) == 0 {
		return nil
	}
	list := make([]openai.ChatCompletionToolUnionParam, 0, len(tools))
	for _, t := range tools {
		if t.Function == nil {
			continue
		}
		fn := openai.FunctionDefinitionParam{
			Name:        t.Function.Name,
			Description: openai.String(t.Function.Description),
			Parameters:  openai.FunctionParameters(t.Function.Parameters),
		}
		if t.Function.Strict {
			fn.Strict = openai.Bool(true)
		}
		list = append(list, openai.ChatCompletionFunctionTool(fn))
	}
	return list
}

// toolChoice maps the choice to the API value, a named function is sent
// as "required" since the catalog offers it among the tools.
func toolChoice(choice string) openai.ChatCompletionToolChoiceOptionUnionParam {
	switch choice {
	case llms.ToolChoiceAuto, llms.ToolChoiceNone, llms.ToolChoiceRequired:
	default:
		choice = llms.ToolChoiceRequired
	}
	return openai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: openai.String(choice)}
}
