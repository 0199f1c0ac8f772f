package main

import (
	"context"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpagent/agent"
	"github.com/effective-security/mcpagent/callbacks"
	"github.com/effective-security/mcpagent/config"
	"github.com/effective-security/mcpagent/mcp/httpclient"
	"github.com/effective-security/mcpagent/mcp/mcpclient"
	"github.com/effective-security/mcpagent/orchestrator"
	"github.com/effective-security/mcpagent/pkg/llmfactory"
	"github.com/effective-security/mcpagent/pkg/llms"
	"github.com/effective-security/mcpagent/store"
	"github.com/effective-security/mcpagent/tools"
	"github.com/effective-security/xlog"
	"github.com/jessevdk/go-flags"
	"github.com/redis/go-redis/v9"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpagent", "cmd")

// Cli is the root command, the struct tags are interpreted by go-flags.
type Cli struct {
	Config   string   `short:"c" long:"cfg" description:"config file, YAML or JSON"`
	EnvFiles []string `long:"env-file" default:".env" description:"dotenv file to load, missing files are ignored"`
	LogLevel string   `long:"log-level" description:"log level: TRACE|DEBUG|INFO|NOTICE|WARNING|ERROR"`
	Verbose  bool     `short:"V" long:"verbose" description:"print the conversation to stderr"`
	Stats    bool     `long:"stats" description:"print run statistics to stderr"`

	Chat    ChatCmd    `command:"chat" description:"Answer a query, calling the server tools when needed"`
	Memory  MemoryCmd  `command:"memory" description:"Answer a query with the user's stored conversation"`
	Tools   ToolsCmd   `command:"tools" description:"List the tools of the server"`
	Repl    ReplCmd    `command:"repl" description:"Answer queries read from stdin until quit"`
	Version VersionCmd `command:"version" description:"Print the version"`

	ctx    context.Context
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	cfg    *config.Config

	scratchpad *callbacks.Scratchpad
}

// Run parses the arguments and executes the selected command.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	c := &Cli{
		ctx:    ctx,
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
	}
	c.Chat.cli = c
	c.Memory.cli = c
	c.Tools.cli = c
	c.Repl.cli = c
	c.Version.cli = c

	parser := flags.NewParser(c, flags.HelpFlag|flags.PassDoubleDash)
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		if cmd == nil {
			return nil
		}
		if _, ok := cmd.(*VersionCmd); !ok {
			if err := c.setup(); err != nil {
				return err
			}
		}
		return cmd.Execute(args)
	}

	_, err := parser.ParseArgs(args)
	if ferr, ok := err.(*flags.Error); ok && ferr.Type == flags.ErrHelp {
		_, _ = io.WriteString(stdout, ferr.Message+"\n")
		return nil
	}
	return err
}

// setup loads the configuration and sets the log level
func (c *Cli) setup() error {
	if err := config.LoadDotEnv(c.EnvFiles...); err != nil {
		return err
	}
	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	if c.LogLevel != "" {
		cfg.LogLevel = c.LogLevel
	}
	c.cfg = cfg

	xlog.SetFormatter(xlog.NewStringFormatter(c.stderr))
	xlog.SetGlobalLogLevel(logLevel(cfg.LogLevel))
	return nil
}

func logLevel(level string) xlog.LogLevel {
	switch strings.ToUpper(level) {
	case "TRACE":
		return xlog.TRACE
	case "DEBUG":
		return xlog.DEBUG
	case "INFO":
		return xlog.INFO
	case "NOTICE":
		return xlog.NOTICE
	case "ERROR":
		return xlog.ERROR
	default:
		return xlog.WARNING
	}
}

// callback returns the callbacks for the agents
func (c *Cli) callback() orchestrator.Callback {
	fanout := callbacks.NewFanout(callbacks.NewPackageLogger(logger))
	if c.Verbose {
		fanout.Add(callbacks.NewPrinter(c.stderr, callbacks.ModeVerbose))
	}
	if c.Stats {
		c.scratchpad = callbacks.NewScratchpad(callbacks.ModeDefault)
		fanout.Add(c.scratchpad)
	}
	return fanout
}

// startRun returns the context of a run, recorded when --stats is set
func (c *Cli) startRun(ctx context.Context) context.Context {
	if c.scratchpad == nil {
		return ctx
	}
	return c.scratchpad.StartRun(ctx)
}

func (c *Cli) endRun(ctx context.Context) {
	if c.scratchpad == nil {
		return
	}
	if _, transcript := c.scratchpad.EndRun(ctx); len(transcript) > 0 {
		_, _ = c.stderr.Write(transcript)
	}
}

// model returns the model for the agent, from the providers file when configured
func (c *Cli) model(agentName string) (llms.Model, error) {
	if c.cfg.LLM.ProvidersFile != "" {
		f, err := llmfactory.Load(c.cfg.LLM.ProvidersFile)
		if err != nil {
			return nil, errors.WithMessage(err, "failed to load LLM providers")
		}
		return f.AgentModel(agentName, c.cfg.LLM.Model)
	}
	return llmfactory.NewLLM(c.cfg.ProviderConfig())
}

func (c *Cli) callOptions() []llms.CallOption {
	var opts []llms.CallOption
	if c.cfg.LLM.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(c.cfg.LLM.MaxTokens))
	}
	if c.cfg.LLM.Temperature > 0 {
		opts = append(opts, llms.WithTemperature(c.cfg.LLM.Temperature))
	}
	return opts
}

// toolSource connects to the tool server with the configured transport
func (c *Cli) toolSource(ctx context.Context) (tools.Client, error) {
	mcpCfg := c.cfg.MCP
	if mcpCfg.Transport == config.TransportHTTP {
		var opts []httpclient.Option
		for k, v := range mcpCfg.Headers {
			opts = append(opts, httpclient.WithHeader(k, v))
		}
		return httpclient.New(mcpCfg.BaseURL, opts...), nil
	}

	cl, err := mcpclient.Connect(ctx, mcpCfg.BaseURL,
		mcpclient.WithTransport(mcpCfg.Transport),
		mcpclient.WithHeaders(mcpCfg.Headers),
		mcpclient.WithClientInfo("mcpagent", version),
	)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to connect to %s", mcpCfg.BaseURL)
	}
	return cl, nil
}

// toolAgent returns the tool agent and the function to release the tool server session
func (c *Cli) toolAgent(ctx context.Context) (*agent.ToolAgent, func(), error) {
	name := c.cfg.Agent.Name
	if name == "" {
		name = "tool-agent"
	}
	model, err := c.model(name)
	if err != nil {
		return nil, nil, err
	}
	source, err := c.toolSource(ctx)
	if err != nil {
		return nil, nil, err
	}

	opts := []agent.Option{
		agent.WithName(name),
		agent.WithCallOptions(c.callOptions()...),
		agent.WithCallback(c.callback()),
	}
	if c.cfg.Agent.SystemPrompt != "" {
		opts = append(opts, agent.WithSystemPrompt(c.cfg.Agent.SystemPrompt))
	}

	closer := func() {
		if err := source.Close(); err != nil {
			logger.KV(xlog.WARNING, "reason", "close", "err", err.Error())
		}
	}
	return agent.NewToolAgent(model, source, opts...), closer, nil
}

// memoryStore opens the configured memory backend
func (c *Cli) memoryStore() (store.MemoryStore, func(), error) {
	memCfg := c.cfg.Memory
	switch memCfg.Backend {
	case config.BackendRedis:
		opt, err := redis.ParseURL(memCfg.RedisURL)
		if err != nil {
			return nil, nil, errors.Wrap(err, "invalid Redis URL")
		}
		client := redis.NewClient(opt)
		return store.NewRedisStore(client, memCfg.RedisPrefix), func() { _ = client.Close() }, nil
	case config.BackendSQLite:
		s, err := store.OpenSQLite(memCfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	default:
		return store.NewMemoryStore(), func() {}, nil
	}
}

// memoryAgent returns the memory agent and the function to release the store
func (c *Cli) memoryAgent() (*agent.MemoryAgent, func(), error) {
	model, err := c.model("memory-agent")
	if err != nil {
		return nil, nil, err
	}
	st, closer, err := c.memoryStore()
	if err != nil {
		return nil, nil, err
	}

	memCfg := c.cfg.Memory
	opts := []agent.Option{
		agent.WithMemoryUser(memCfg.UserID),
		agent.WithMemoryLimit(memCfg.Limit),
		agent.WithCallOptions(c.callOptions()...),
		agent.WithCallback(c.callback()),
	}
	if memCfg.SystemPrompt != "" {
		opts = append(opts, agent.WithSystemPrompt(memCfg.SystemPrompt))
	}
	return agent.NewMemoryAgent(model, st, opts...), closer, nil
}

// runner answers one query
type runner interface {
	Run(ctx context.Context, query string) *agent.Result
}

// run executes the query and prints the response, or the result with asJSON
func (c *Cli) run(ctx context.Context, r runner, query string, asJSON bool) *agent.Result {
	ctx = c.startRun(ctx)
	res := r.Run(ctx, query)
	c.endRun(ctx)

	if asJSON {
		printJSON(c.stdout, res)
		return res
	}
	text := res.Response
	if !res.Success && text == "" {
		text = res.Error
	}
	_, _ = io.WriteString(c.stdout, text+"\n")
	return res
}
