package agent

import (
	"context"

	"github.com/effective-security/mcpagent/orchestrator"
	"github.com/effective-security/mcpagent/pkg/llms"
	"github.com/effective-security/mcpagent/tools"
	"github.com/effective-security/xlog"
)

// ToolSource lists and invokes the tools of a server.
type ToolSource interface {
	tools.Catalog
	tools.Invoker
}

// ToolAgent answers a query, calling the tools of a server when the model asks for it.
type ToolAgent struct {
	model  llms.Model
	source ToolSource
	cfg    *config
}

// NewToolAgent returns a tool agent.
func NewToolAgent(model llms.Model, source ToolSource, opts ...Option) *ToolAgent {
	return &ToolAgent{
		model:  model,
		source: source,
		cfg:    newConfig("tool-agent", DefaultToolPrompt, opts),
	}
}

// Run fetches the current catalog and runs one turn for the query.
func (a *ToolAgent) Run(ctx context.Context, query string) *Result {
	if isEmpty(query) {
		return noQuery(query)
	}

	defs := tools.LoadDefinitions(ctx, a.source)

	opts := []orchestrator.Option{
		orchestrator.WithName(a.cfg.name),
		orchestrator.WithCallOptions(a.cfg.callOptions...),
	}
	if a.cfg.callback != nil {
		opts = append(opts, orchestrator.WithCallback(a.cfg.callback))
	}
	o := orchestrator.New(a.model, a.source, defs, opts...)

	log := orchestrator.NewLog(llms.MessageFromTextParts(llms.RoleSystem, a.cfg.systemPrompt))
	reply := o.Chat(ctx, query, log)

	res := &Result{
		Query:          query,
		Response:       reply.Text,
		ToolsAvailable: len(defs),
		Success:        !reply.Failed(),
	}
	if reply.Failed() {
		res.Error = reply.Err.Error()
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"agent", a.cfg.name,
		"tools_available", len(defs),
		"tool_calls", reply.ToolCalls,
		"state", reply.State)
	return res
}
