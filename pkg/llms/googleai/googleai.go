package googleai

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpagent/pkg/llms"
	"google.golang.org/genai"
)

var (
	ErrNoContentInResponse = errors.New("googleai: no content in generation response")
	ErrUnsupportedRole     = errors.New("googleai: unsupported role")
)

const (
	CITATIONS = "citations"
	SAFETY    = "safety"
)

// GetName implements the Model interface.
func (g *GoogleAI) GetName() string {
	return g.opts.DefaultModel
}

// GetProviderType implements the Model interface.
func (g *GoogleAI) GetProviderType() llms.ProviderType {
	return llms.ProviderGoogleAI
}

// GenerateContent implements the [llms.Model] interface.
func (g *GoogleAI) GenerateContent(
	ctx context.Context,
	messages []llms.Message,
	options ...llms.CallOption,
) (*llms.ContentResponse, error) {
	opts := llms.NewCallOptions(llms.CallOptions{
		Model:       g.opts.DefaultModel,
		MaxTokens:   g.opts.DefaultMaxTokens,
		Temperature: g.opts.DefaultTemperature,
		TopP:        g.opts.DefaultTopP,
	}, options...)

	callCfg := &genai.GenerateContentConfig{
		StopSequences:   opts.StopWords,
		CandidateCount:  1,
		MaxOutputTokens: int32(opts.MaxTokens),
		Temperature:     genai.Ptr(float32(opts.Temperature)),
		TopP:            genai.Ptr(float32(opts.TopP)),
	}

	var harm []*genai.SafetySetting
	for _, category := range []genai.HarmCategory{
		genai.HarmCategoryDangerousContent,
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
	} {
		harm = append(harm, &genai.SafetySetting{Category: category, Threshold: g.opts.HarmThreshold})
	}
	callCfg.SafetySettings = harm

	callCfg.Tools = ConvertTools(opts.Tools)
	if len(callCfg.Tools) > 0 {
		callCfg.ToolConfig = toolConfig(opts.ToolChoiceName())
	}

	history, system, err := ConvertMessages(messages)
	if err != nil {
		return nil, err
	}
	if system != nil {
		callCfg.SystemInstruction = system
	}

	resp, err := g.client.Models.GenerateContent(ctx, opts.Model, history, callCfg)
	if err != nil {
		return nil, errors.Wrap(err, "googleai: failed to generate content")
	}
	if len(resp.Candidates) == 0 {
		return nil, errors.WithStack(ErrNoContentInResponse)
	}
	return convertCandidate(resp.Candidates[0], resp.UsageMetadata)
}

// ConvertTools converts the function definitions to a single genai tool
// holding all function declarations.
func ConvertTools(tools []llms.Tool) []*genai.Tool {
	var decls []*genai.FunctionDeclaration
	for _, tool := range tools {
		if tool.Function == nil {
			continue
		}
		decl := &genai.FunctionDeclaration{
			Name:        tool.Function.Name,
			Description: tool.Function.Description,
		}
		if tool.Function.Parameters != nil {
			decl.ParametersJsonSchema = tool.Function.Parameters
		}
		decls = append(decls, decl)
	}
	if len(decls) == 0 {
		return nil
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

func toolConfig(choice string) *genai.ToolConfig {
	fc := &genai.FunctionCallingConfig{}
	switch choice {
	case "", llms.ToolChoiceAuto:
		fc.Mode = genai.FunctionCallingConfigModeAuto
	case llms.ToolChoiceNone:
		fc.Mode = genai.FunctionCallingConfigModeNone
	case llms.ToolChoiceRequired:
		fc.Mode = genai.FunctionCallingConfigModeAny
	default:
		fc.Mode = genai.FunctionCallingConfigModeAny
		fc.AllowedFunctionNames = []string{choice}
	}
	return &genai.ToolConfig{FunctionCallingConfig: fc}
}

// ConvertMessages converts the message log to genai contents and the
// system instruction. Tool responses are sent as user function responses.
func ConvertMessages(messages []llms.Message) ([]*genai.Content, *genai.Content, error) {
	var system []string
	history := make([]*genai.Content, 0, len(messages))
	for _, mc := range messages {
		c := &genai.Content{}
		switch mc.Role {
		case llms.RoleSystem:
			system = append(system, mc.Text())
			continue
		case llms.RoleUser, llms.RoleTool:
			c.Role = string(genai.RoleUser)
		case llms.RoleAssistant:
			c.Role = string(genai.RoleModel)
		default:
			return nil, nil, errors.WithMessagef(ErrUnsupportedRole, "%v", mc.Role)
		}

		for _, part := range mc.Parts {
			switch p := part.(type) {
			case llms.TextContent:
				if p.Text != "" {
					c.Parts = append(c.Parts, &genai.Part{Text: p.Text})
				}
			case llms.ToolCall:
				args := map[string]any{}
				if raw := strings.TrimSpace(p.Arguments()); raw != "" {
					if err := json.Unmarshal([]byte(raw), &args); err != nil {
						return nil, nil, errors.Wrap(err, "googleai: failed to unmarshal tool call arguments")
					}
				}
				c.Parts = append(c.Parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{ID: p.ID, Name: p.Name(), Args: args},
				})
			case llms.ToolCallResponse:
				c.Parts = append(c.Parts, &genai.Part{
					FunctionResponse: &genai.FunctionResponse{
						ID:       p.ToolCallID,
						Name:     p.Name,
						Response: functionResponse(p.Content),
					},
				})
			}
		}
		if len(c.Parts) > 0 {
			history = append(history, c)
		}
	}

	var sys *genai.Content
	if len(system) > 0 {
		sys = &genai.Content{Parts: []*genai.Part{{Text: strings.Join(system, "\n")}}}
	}
	return history, sys, nil
}

// functionResponse returns the JSON object of the tool result, other
// values are wrapped as {"output": value}.
func functionResponse(content string) map[string]any {
	var v any
	if err := json.Unmarshal([]byte(content), &v); err != nil {
		return map[string]any{"output": content}
	}
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{"output": v}
}

func convertCandidate(candidate *genai.Candidate, usage *genai.GenerateContentResponseUsageMetadata) (*llms.ContentResponse, error) {
	var buf strings.Builder
	var toolCalls []llms.ToolCall

	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			switch {
			case part.FunctionCall != nil:
				b, err := json.Marshal(part.FunctionCall.Args)
				if err != nil {
					return nil, errors.Wrap(err, "googleai: failed to marshal function call arguments")
				}
				toolCalls = append(toolCalls, llms.ToolCall{
					ID:   part.FunctionCall.ID,
					Type: "function",
					FunctionCall: &llms.FunctionCall{
						Name:      part.FunctionCall.Name,
						Arguments: string(b),
					},
				})
			case part.Text != "" && !part.Thought:
				buf.WriteString(part.Text)
			}
		}
	}

	metadata := map[string]any{
		CITATIONS: candidate.CitationMetadata,
		SAFETY:    candidate.SafetyRatings,
	}
	if usage != nil {
		metadata["InputTokens"] = int64(usage.PromptTokenCount)
		metadata["OutputTokens"] = int64(usage.CandidatesTokenCount + usage.ToolUsePromptTokenCount + usage.ThoughtsTokenCount)
		metadata["TotalTokens"] = int64(usage.TotalTokenCount)
	}

	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{
				Content:        buf.String(),
				StopReason:     string(candidate.FinishReason),
				GenerationInfo: metadata,
				ToolCalls:      toolCalls,
			},
		},
	}, nil
}
