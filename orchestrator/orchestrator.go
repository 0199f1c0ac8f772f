package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpagent/pkg/llms"
	"github.com/effective-security/mcpagent/pkg/llmutils"
	"github.com/effective-security/mcpagent/pkg/metricskey"
	"github.com/effective-security/mcpagent/tools"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpagent", "orchestrator")

// DefaultName is the name reported in logs and metrics
const DefaultName = "orchestrator"

var (
	// ErrEmptyResponse is returned when the model replies with no choices.
	ErrEmptyResponse = errors.New("empty response from model")
	// ErrInvalidArguments is returned when tool arguments are not a JSON object.
	ErrInvalidArguments = errors.New("tool arguments must be a JSON object")
)

// Reply is the outcome of a chat turn.
type Reply struct {
	// Text is the answer, or the error message prefixed with "Error: ".
	Text string
	// Err is the cause of the failure.
	Err error
	// State is the terminal state, DONE or ERROR.
	State State
	// ToolCalls is the number of dispatched tool calls.
	ToolCalls int
}

// Failed returns true if the turn ended in the ERROR state.
func (r *Reply) Failed() bool {
	return r.State == StateError
}

// Option configures the Orchestrator.
type Option func(*Orchestrator)

// WithName sets the name used in logs and metrics.
func WithName(name string) Option {
	return func(o *Orchestrator) {
		o.name = name
	}
}

// WithCallback sets the event handler.
func WithCallback(cb Callback) Option {
	return func(o *Orchestrator) {
		o.callback = cb
	}
}

// WithCallOptions sets options passed to every completion request.
func WithCallOptions(opts ...llms.CallOption) Option {
	return func(o *Orchestrator) {
		o.callOptions = append(o.callOptions, opts...)
	}
}

// Orchestrator runs chat turns against a model and a tool invoker.
type Orchestrator struct {
	name        string
	model       llms.Model
	invoker     tools.Invoker
	definitions []llms.Tool
	callOptions []llms.CallOption
	callback    Callback
}

// New returns an Orchestrator offering the definitions to the model.
// With no definitions the model is called without tools.
func New(model llms.Model, invoker tools.Invoker, definitions []llms.Tool, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		name:        DefaultName,
		model:       model,
		invoker:     invoker,
		definitions: definitions,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Name returns the orchestrator name.
func (o *Orchestrator) Name() string {
	return o.name
}

// Definitions returns the tools offered to the model.
func (o *Orchestrator) Definitions() []llms.Tool {
	return o.definitions
}

// Chat runs one turn for the query, appending to the log.
// A nil log is treated as empty.
func (o *Orchestrator) Chat(ctx context.Context, query string, log *Log) *Reply {
	started := time.Now()
	defer metricskey.PerfChatRun.MeasureSince(started, o.name)

	if log == nil {
		log = NewLog()
	}
	if o.callback != nil {
		o.callback.OnChatStart(ctx, o.name, query)
	}

	reply := o.chat(ctx, query, log)

	if reply.Failed() {
		metricskey.StatsChatCallsFailed.IncrCounter(1, o.name)
		logger.ContextKV(ctx, xlog.ERROR,
			"name", o.name,
			"state", reply.State,
			"query", slices.StringUpto(query, 64),
			"err", reply.Err.Error())
	} else {
		metricskey.StatsChatCallsSucceeded.IncrCounter(1, o.name)
	}
	if o.callback != nil {
		o.callback.OnChatEnd(ctx, o.name, reply)
	}
	return reply
}

func (o *Orchestrator) chat(ctx context.Context, query string, log *Log) *Reply {
	version := log.Snapshot()
	log.Append(llms.MessageFromTextParts(llms.RoleUser, query))
	o.enter(ctx, StateLLMPlanning)

	opts := o.callOptions
	if len(o.definitions) > 0 {
		opts = append(append([]llms.CallOption{}, o.callOptions...),
			llms.WithTools(o.definitions),
			llms.WithToolChoice(llms.ToolChoiceAuto),
		)
	}

	resp, err := o.generate(ctx, log, opts)
	if err != nil {
		log.Restore(version)
		return o.failed(ctx, err, "LLM call failed")
	}

	choice := resp.Choices[0]
	calls := normalizeToolCalls(choice.ToolCalls)
	log.Append(llms.AssistantMessage(choice.Content, calls...))

	if len(calls) == 0 {
		o.enter(ctx, StateNoTools)
		o.enter(ctx, StateDone)
		return &Reply{Text: choice.Content, State: StateDone}
	}

	o.enter(ctx, StateToolsRequested, "tool_calls", len(calls))
	o.enter(ctx, StateExecutingTools)

	for _, call := range calls {
		// providers omit arguments for tools without parameters, so "" and null mean {}
		args, err := ParseArguments(call.Arguments())
		if err != nil {
			metricskey.StatsToolArgsParseErrors.IncrCounter(1, call.Name())
			log.Restore(version)
			return o.failed(ctx, err, "failed to parse tool arguments")
		}

		content, err := o.dispatch(ctx, call, args)
		if err != nil {
			log.Restore(version)
			return o.failed(ctx, err, fmt.Sprintf("tool %s call failed", call.Name()))
		}

		log.Append(llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{
			ToolCallID: call.ID,
			Name:       call.Name(),
			Content:    content,
		}))
	}

	o.enter(ctx, StateLLMFinalizing)

	// tool results stay in the log if the final answer fails
	resp, err = o.generate(ctx, log, o.callOptions)
	if err != nil {
		r := o.failed(ctx, err, "failed to generate final response")
		r.ToolCalls = len(calls)
		return r
	}

	text := resp.Choices[0].Content
	log.Append(llms.AssistantMessage(text))
	o.enter(ctx, StateDone)

	return &Reply{Text: text, State: StateDone, ToolCalls: len(calls)}
}

func (o *Orchestrator) enter(ctx context.Context, state State, kv ...any) {
	logger.ContextKV(ctx, xlog.DEBUG, append([]any{"name", o.name, "state", state}, kv...)...)
}

func (o *Orchestrator) failed(ctx context.Context, err error, msg string) *Reply {
	o.enter(ctx, StateError, "reason", msg)
	return &Reply{
		Text:  "Error: " + msg + ": " + err.Error(),
		Err:   errors.WithMessage(err, msg),
		State: StateError,
	}
}

// generate requests a completion, a response with no choices is an error.
func (o *Orchestrator) generate(ctx context.Context, log *Log, opts []llms.CallOption) (*llms.ContentResponse, error) {
	modelName := o.model.GetName()
	payload := log.Messages()

	if o.callback != nil {
		o.callback.OnLLMCallStart(ctx, o.name, o.model, payload)
	}

	started := time.Now()
	metricskey.StatsLLMMessagesSent.IncrCounter(float64(len(payload)), o.name, modelName)

	resp, err := o.model.GenerateContent(ctx, payload, opts...)
	metricskey.PerfLLMCall.MeasureSince(started, o.name, modelName)
	if err != nil {
		metricskey.StatsLLMCallsFailed.IncrCounter(1, o.name, modelName)
		return nil, err
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		metricskey.StatsLLMCallsFailed.IncrCounter(1, o.name, modelName)
		return nil, errors.WithStack(ErrEmptyResponse)
	}

	tokensIn, tokensOut, tokensTotal := llmutils.CountTokens(resp)
	metricskey.StatsLLMInputTokens.IncrCounter(float64(tokensIn), o.name, modelName)
	metricskey.StatsLLMOutputTokens.IncrCounter(float64(tokensOut), o.name, modelName)
	metricskey.StatsLLMTotalTokens.IncrCounter(float64(tokensTotal), o.name, modelName)

	if o.callback != nil {
		o.callback.OnLLMCallEnd(ctx, o.name, o.model, resp)
	}
	return resp, nil
}

// dispatch invokes the tool and returns the encoded result.
// Error results are returned as content, the model decides how to use them.
func (o *Orchestrator) dispatch(ctx context.Context, call llms.ToolCall, args map[string]any) (content string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("unexpected failure: %v", r)
		}
		if err != nil && o.callback != nil {
			o.callback.OnToolError(ctx, o.name, call, err)
		}
	}()

	logger.ContextKV(ctx, xlog.DEBUG,
		"name", o.name,
		"status", "call_tool",
		"tool_call_id", call.ID,
		"tool_name", call.Name())

	if o.callback != nil {
		o.callback.OnToolStart(ctx, o.name, call)
	}

	res := o.invoker.CallTool(ctx, call.Name(), args)
	content, err = res.Encode()
	if err != nil {
		return "", err
	}

	if res.IsError() {
		logger.ContextKV(ctx, xlog.WARNING,
			"name", o.name,
			"tool_call_id", call.ID,
			"tool_name", call.Name(),
			"err", res.ErrorMessage())
	}
	if o.callback != nil {
		o.callback.OnToolEnd(ctx, o.name, call, content)
	}
	return content, nil
}

// normalizeToolCalls assigns an id to calls that have none,
// tool responses must refer to the call by id.
func normalizeToolCalls(calls []llms.ToolCall) []llms.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	res := make([]llms.ToolCall, len(calls))
	for i, tc := range calls {
		if tc.FunctionCall == nil {
			tc.FunctionCall = &llms.FunctionCall{}
		}
		if tc.Type == "" {
			tc.Type = "function"
		}
		if tc.ID == "" {
			tc.ID = fmt.Sprintf("%s_%d", tc.Name(), i)
		}
		res[i] = tc
	}
	return res
}

// ParseArguments decodes the raw JSON arguments of a tool call.
// Empty and null arguments are decoded as an empty object.
func ParseArguments(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return map[string]any{}, nil
	}

	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, errors.WithStack(err)
	}
	switch m := v.(type) {
	case map[string]any:
		return m, nil
	case nil:
		return map[string]any{}, nil
	default:
		return nil, errors.WithMessagef(ErrInvalidArguments, "got %T", v)
	}
}
