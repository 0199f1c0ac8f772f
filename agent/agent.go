// Package agent provides the entry points: a single-shot tool agent that
// lets the model call the tools of a tool server, and a memory agent that
// answers with the help of the user's stored conversation.
package agent

import (
	"strings"

	"github.com/effective-security/mcpagent/orchestrator"
	"github.com/effective-security/mcpagent/pkg/llms"
	"github.com/effective-security/mcpagent/store"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpagent", "agent")

const (
	// DefaultToolPrompt is the system prompt of the tool agent
	DefaultToolPrompt = "你是一个智能 agent，可以决定是否调用相关工具来完成任务。你会根据用户的问题进行回复或工具调用。"
	// DefaultMemoryPrompt is the system prompt of the memory agent
	DefaultMemoryPrompt = "You are a helpful assistant that helps people find information."
	// DefaultMemoryUser is the user id of the memory agent
	DefaultMemoryUser = "mofa-memory-user"

	// ErrNoQuery is reported when the query is empty
	ErrNoQuery = "Error: no query parameter provided"
)

// Result is the output of an agent run.
type Result struct {
	Query    string `json:"query" yaml:"query"`
	Response string `json:"response,omitempty" yaml:"response,omitempty"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
	// ToolsAvailable is the number of tools offered to the model
	ToolsAvailable int  `json:"tools_available" yaml:"tools_available"`
	Success        bool `json:"success" yaml:"success"`
}

func noQuery(query string) *Result {
	return &Result{
		Query: query,
		Error: ErrNoQuery,
	}
}

func isEmpty(query string) bool {
	return strings.TrimSpace(query) == ""
}

type config struct {
	name         string
	systemPrompt string
	callOptions  []llms.CallOption
	callback     orchestrator.Callback
	userID       string
	limit        int
}

// Option configures an agent.
type Option func(*config)

// WithName sets the name used in logs and metrics.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// WithSystemPrompt sets the system prompt, empty value keeps the default.
func WithSystemPrompt(prompt string) Option {
	return func(c *config) {
		if prompt != "" {
			c.systemPrompt = prompt
		}
	}
}

// WithCallOptions sets options passed to every completion request.
func WithCallOptions(opts ...llms.CallOption) Option {
	return func(c *config) {
		c.callOptions = append(c.callOptions, opts...)
	}
}

// WithCallback sets the event handler of the tool agent.
func WithCallback(cb orchestrator.Callback) Option {
	return func(c *config) {
		c.callback = cb
	}
}

// WithMemoryUser sets the user id of the memory agent, empty value keeps the default.
func WithMemoryUser(userID string) Option {
	return func(c *config) {
		if userID != "" {
			c.userID = userID
		}
	}
}

// WithMemoryLimit sets the number of memories added to the prompt.
func WithMemoryLimit(limit int) Option {
	return func(c *config) {
		if limit > 0 {
			c.limit = limit
		}
	}
}

func newConfig(name, prompt string, opts []Option) *config {
	c := &config{
		name:         name,
		systemPrompt: prompt,
		userID:       DefaultMemoryUser,
		limit:        store.DefaultLimit,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
