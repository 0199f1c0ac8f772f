// Package callbacks provides orchestrator.Callback implementations.
package callbacks

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/effective-security/mcpagent/orchestrator"
	"github.com/effective-security/mcpagent/pkg/llms"
	"github.com/effective-security/mcpagent/pkg/llmutils"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/xlog"
)

// ensure that the callbacks implement the correct interfaces
var (
	_ orchestrator.Callback = (*Noop)(nil)
	_ orchestrator.Callback = (*Printer)(nil)
	_ orchestrator.Callback = (*PackageLogger)(nil)
	_ orchestrator.Callback = (*Fanout)(nil)
	_ orchestrator.Callback = (*Scratchpad)(nil)
)

// Mode defines the mode for callback printing
type Mode int

const (
	// ModeDefault is the default mode for callback printing
	ModeDefault Mode = iota
	// ModeVerbose is the verbose mode for callback printing
	ModeVerbose
)

// Fanout is a callback handler that forwards the events to multiple callbacks.
type Fanout struct {
	callbacks []orchestrator.Callback
}

func NewFanout(callbacks ...orchestrator.Callback) *Fanout {
	return &Fanout{callbacks: callbacks}
}

func (l *Fanout) Add(callback orchestrator.Callback) {
	l.callbacks = append(l.callbacks, callback)
}

func (l *Fanout) OnChatStart(ctx context.Context, name, query string) {
	for _, callback := range l.callbacks {
		callback.OnChatStart(ctx, name, query)
	}
}

func (l *Fanout) OnChatEnd(ctx context.Context, name string, reply *orchestrator.Reply) {
	for _, callback := range l.callbacks {
		callback.OnChatEnd(ctx, name, reply)
	}
}

func (l *Fanout) OnLLMCallStart(ctx context.Context, name string, llm llms.Model, payload []llms.Message) {
	for _, callback := range l.callbacks {
		callback.OnLLMCallStart(ctx, name, llm, payload)
	}
}

func (l *Fanout) OnLLMCallEnd(ctx context.Context, name string, llm llms.Model, resp *llms.ContentResponse) {
	for _, callback := range l.callbacks {
		callback.OnLLMCallEnd(ctx, name, llm, resp)
	}
}

func (l *Fanout) OnToolStart(ctx context.Context, name string, call llms.ToolCall) {
	for _, callback := range l.callbacks {
		callback.OnToolStart(ctx, name, call)
	}
}

func (l *Fanout) OnToolEnd(ctx context.Context, name string, call llms.ToolCall, output string) {
	for _, callback := range l.callbacks {
		callback.OnToolEnd(ctx, name, call, output)
	}
}

func (l *Fanout) OnToolError(ctx context.Context, name string, call llms.ToolCall, err error) {
	for _, callback := range l.callbacks {
		callback.OnToolError(ctx, name, call, err)
	}
}

// Noop does nothing.
type Noop struct{}

func NewNoop() *Noop {
	return &Noop{}
}

func (l *Noop) OnChatStart(ctx context.Context, name, query string) {}
func (l *Noop) OnChatEnd(ctx context.Context, name string, reply *orchestrator.Reply) {}
func (l *Noop) OnToolStart(ctx context.Context, name string, call llms.ToolCall) {}
func (l *Noop) OnToolError(ctx context.Context, name string, call llms.ToolCall, err error) {}
func (l *Noop) OnToolEnd(ctx context.Context, name string, call llms.ToolCall, output string) {
}
func (l *Noop) OnLLMCallStart(ctx context.Context, name string, llm llms.Model, payload []llms.Message) {
}
func (l *Noop) OnLLMCallEnd(ctx context.Context, name string, llm llms.Model, resp *llms.ContentResponse) {
}

// Printer is a callback handler that prints to the Writer.
type Printer struct {
	Out  io.Writer
	Mode Mode

	lock sync.Mutex
}

func NewPrinter(out io.Writer, mode Mode) *Printer {
	return &Printer{Out: out, Mode: mode}
}

func (l *Printer) OnChatStart(ctx context.Context, name, query string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Chat Start: %s\n", name)
	fmt.Fprintf(l.Out, "Input: %s\n", query)
}

func (l *Printer) OnChatEnd(ctx context.Context, name string, reply *orchestrator.Reply) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Chat End: %s: %s, %d tool calls\n", name, reply.State, reply.ToolCalls)
	if l.Mode == ModeVerbose && reply.Text != "" {
		fmt.Fprintln(l.Out, reply.Text)
	}
}

func (l *Printer) OnLLMCallStart(ctx context.Context, name string, llm llms.Model, payload []llms.Message) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "LLM Call: %s: %s model, %d messages\n", name, llm.GetName(), len(payload))
	if l.Mode == ModeVerbose {
		llmutils.PrintMessages(l.Out, payload)
	}
}

func (l *Printer) OnLLMCallEnd(ctx context.Context, name string, llm llms.Model, resp *llms.ContentResponse) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "LLM Call End: %s: %s model, %d choices\n", name, llm.GetName(), len(resp.Choices))
}

func (l *Printer) OnToolStart(ctx context.Context, name string, call llms.ToolCall) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Tool Start: %s (%s)\n", call.Name(), call.ID)
	fmt.Fprintf(l.Out, "Input: %s\n", call.Arguments())
}

func (l *Printer) OnToolEnd(ctx context.Context, name string, call llms.ToolCall, output string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Tool End: %s (%s)\n", call.Name(), call.ID)
	if l.Mode == ModeVerbose {
		fmt.Fprintf(l.Out, "Output: %s\n", output)
	}
}

func (l *Printer) OnToolError(ctx context.Context, name string, call llms.ToolCall, err error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Tool Error: %s (%s): %s\n", call.Name(), call.ID, err.Error())
}

// PackageLogger is a callback handler that prints to the logger.
type PackageLogger struct {
	logger *xlog.PackageLogger
}

func NewPackageLogger(logger *xlog.PackageLogger) *PackageLogger {
	return &PackageLogger{logger: logger}
}

func (l *PackageLogger) OnChatStart(ctx context.Context, name, query string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "chat_start",
		"name", name,
		"input", slices.StringUpto(query, 64),
	)
}

func (l *PackageLogger) OnChatEnd(ctx context.Context, name string, reply *orchestrator.Reply) {
	if reply.Err != nil {
		l.logger.ContextKV(ctx, xlog.ERROR,
			"event", "chat_error",
			"name", name,
			"state", reply.State,
			"err", reply.Err.Error(),
		)
		return
	}
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "chat_end",
		"name", name,
		"state", reply.State,
		"tool_calls", reply.ToolCalls,
	)
}

func (l *PackageLogger) OnLLMCallStart(ctx context.Context, name string, llm llms.Model, payload []llms.Message) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "llm_call_start",
		"name", name,
		"model", llm.GetName(),
		"messages", len(payload),
	)
}

func (l *PackageLogger) OnLLMCallEnd(ctx context.Context, name string, llm llms.Model, resp *llms.ContentResponse) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "llm_call_end",
		"name", name,
		"model", llm.GetName(),
		"choices", len(resp.Choices),
	)
}

func (l *PackageLogger) OnToolStart(ctx context.Context, name string, call llms.ToolCall) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_start",
		"name", name,
		"tool", call.Name(),
		"tool_call_id", call.ID,
		"input", call.Arguments(),
	)
}

func (l *PackageLogger) OnToolEnd(ctx context.Context, name string, call llms.ToolCall, output string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_end",
		"name", name,
		"tool", call.Name(),
		"tool_call_id", call.ID,
		"output", slices.StringUpto(output, 256),
	)
}

func (l *PackageLogger) OnToolError(ctx context.Context, name string, call llms.ToolCall, err error) {
	l.logger.ContextKV(ctx, xlog.ERROR,
		"event", "tool_error",
		"name", name,
		"tool", call.Name(),
		"tool_call_id", call.ID,
		"err", err.Error(),
	)
}
