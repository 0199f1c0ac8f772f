package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpagent/orchestrator"
	"github.com/effective-security/mcpagent/pkg/llms"
	"github.com/effective-security/mcpagent/pkg/metricskey"
	"github.com/effective-security/mcpagent/store"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/xlog"
)

// MemoryAgent answers a query with the user's relevant memories in the
// system prompt, and stores the exchange afterwards. Tools are not offered.
type MemoryAgent struct {
	model llms.Model
	store store.MemoryStore
	cfg   *config
}

// NewMemoryAgent returns a memory agent.
func NewMemoryAgent(model llms.Model, st store.MemoryStore, opts ...Option) *MemoryAgent {
	return &MemoryAgent{
		model: model,
		store: st,
		cfg:   newConfig("memory-agent", DefaultMemoryPrompt, opts),
	}
}

// Run answers the query. Memory failures are logged and do not fail the run.
func (a *MemoryAgent) Run(ctx context.Context, query string) *Result {
	if isEmpty(query) {
		return noQuery(query)
	}

	started := time.Now()
	defer metricskey.PerfChatRun.MeasureSince(started, a.cfg.name)

	if a.cfg.callback != nil {
		a.cfg.callback.OnChatStart(ctx, a.cfg.name, query)
	}

	memories, err := a.store.Search(ctx, query, a.cfg.userID, a.cfg.limit)
	if err != nil {
		logger.ContextKV(ctx, xlog.WARNING,
			"agent", a.cfg.name,
			"reason", "memory_search",
			"err", err.Error())
		memories = nil
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"agent", a.cfg.name,
		"user", a.cfg.userID,
		"memories", len(memories))

	msgs := []llms.Message{
		llms.MessageFromTextParts(llms.RoleSystem, a.cfg.systemPrompt+"   Memory Data "+store.FormatMemories(memories)),
		llms.MessageFromTextParts(llms.RoleUser, fmt.Sprintf("user query: %s  ", query)),
	}

	answer, err := a.generate(ctx, msgs)
	if err != nil {
		metricskey.StatsChatCallsFailed.IncrCounter(1, a.cfg.name)
		logger.ContextKV(ctx, xlog.ERROR,
			"agent", a.cfg.name,
			"query", slices.StringUpto(query, 64),
			"err", err.Error())
		res := &Result{
			Query:    query,
			Response: "Error: LLM call failed: " + err.Error(),
			Error:    err.Error(),
		}
		a.chatEnd(ctx, &orchestrator.Reply{Text: res.Response, Err: err, State: orchestrator.StateError})
		return res
	}
	metricskey.StatsChatCallsSucceeded.IncrCounter(1, a.cfg.name)

	exchange := []llms.Message{
		llms.MessageFromTextParts(llms.RoleUser, query),
		llms.AssistantMessage(answer),
	}
	if err = a.store.AddMessages(ctx, exchange, a.cfg.userID); err != nil {
		logger.ContextKV(ctx, xlog.WARNING,
			"agent", a.cfg.name,
			"reason", "memory_add",
			"err", err.Error())
	}

	a.chatEnd(ctx, &orchestrator.Reply{Text: answer, State: orchestrator.StateDone})
	return &Result{
		Query:    query,
		Response: answer,
		Success:  true,
	}
}

func (a *MemoryAgent) chatEnd(ctx context.Context, reply *orchestrator.Reply) {
	if a.cfg.callback != nil {
		a.cfg.callback.OnChatEnd(ctx, a.cfg.name, reply)
	}
}

func (a *MemoryAgent) generate(ctx context.Context, msgs []llms.Message) (string, error) {
	modelName := a.model.GetName()
	started := time.Now()
	metricskey.StatsLLMMessagesSent.IncrCounter(float64(len(msgs)), a.cfg.name, modelName)

	if a.cfg.callback != nil {
		a.cfg.callback.OnLLMCallStart(ctx, a.cfg.name, a.model, msgs)
	}

	resp, err := a.model.GenerateContent(ctx, msgs, a.cfg.callOptions...)
	metricskey.PerfLLMCall.MeasureSince(started, a.cfg.name, modelName)
	if err == nil && (resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil) {
		err = errors.WithStack(orchestrator.ErrEmptyResponse)
	}
	if err != nil {
		metricskey.StatsLLMCallsFailed.IncrCounter(1, a.cfg.name, modelName)
		return "", err
	}

	if a.cfg.callback != nil {
		a.cfg.callback.OnLLMCallEnd(ctx, a.cfg.name, a.model, resp)
	}
	return resp.Choices[0].Content, nil
}
