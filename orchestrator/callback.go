package orchestrator

import (
	"context"

	"github.com/effective-security/mcpagent/pkg/llms"
)

//go:generate mockgen -source=callback.go -destination=../mocks/mockorchestrator/callback_mock.gen.go -package mockorchestrator

// Callback receives the events of a chat turn.
type Callback interface {
	OnChatStart(ctx context.Context, name, query string)
	OnChatEnd(ctx context.Context, name string, reply *Reply)
	OnLLMCallStart(ctx context.Context, name string, llm llms.Model, payload []llms.Message)
	OnLLMCallEnd(ctx context.Context, name string, llm llms.Model, resp *llms.ContentResponse)
	OnToolStart(ctx context.Context, name string, call llms.ToolCall)
	OnToolEnd(ctx context.Context, name string, call llms.ToolCall, output string)
	OnToolError(ctx context.Context, name string, call llms.ToolCall, err error)
}
