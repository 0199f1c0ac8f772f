package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpagent/pkg/llmutils"
	"github.com/effective-security/mcpagent/tools"
)

// ErrRunFailed is returned when the agent could not answer
var ErrRunFailed = errors.New("agent run failed")

// ChatCmd answers a query with the tool agent
type ChatCmd struct {
	JSON bool `long:"json" description:"print the run result as JSON"`

	Args struct {
		Query []string `positional-arg-name:"query" description:"the user query"`
	} `positional-args:"yes"`

	cli *Cli
}

// Execute runs the command
func (cmd *ChatCmd) Execute(_ []string) error {
	c := cmd.cli
	a, closer, err := c.toolAgent(c.ctx)
	if err != nil {
		return err
	}
	defer closer()

	res := c.run(c.ctx, a, strings.Join(cmd.Args.Query, " "), cmd.JSON)
	if !res.Success {
		return ErrRunFailed
	}
	return nil
}

// MemoryCmd answers a query with the memory agent
type MemoryCmd struct {
	JSON bool `long:"json" description:"print the run result as JSON"`

	Args struct {
		Query []string `positional-arg-name:"query" description:"the user query"`
	} `positional-args:"yes"`

	cli *Cli
}

// Execute runs the command
func (cmd *MemoryCmd) Execute(_ []string) error {
	c := cmd.cli
	a, closer, err := c.memoryAgent()
	if err != nil {
		return err
	}
	defer closer()

	res := c.run(c.ctx, a, strings.Join(cmd.Args.Query, " "), cmd.JSON)
	if !res.Success {
		return ErrRunFailed
	}
	return nil
}

// ToolsCmd prints the tool catalog
type ToolsCmd struct {
	JSON bool `long:"json" description:"print the function definitions as JSON"`
	YAML bool `long:"yaml" description:"print the function definitions as YAML"`

	cli *Cli
}

// Execute runs the command
func (cmd *ToolsCmd) Execute(_ []string) error {
	c := cmd.cli
	source, err := c.toolSource(c.ctx)
	if err != nil {
		return err
	}
	defer func() { _ = source.Close() }()

	defs := tools.FormatTools(source.ListTools(c.ctx))
	switch {
	case cmd.JSON:
		printJSON(c.stdout, defs)
	case cmd.YAML:
		_, _ = io.WriteString(c.stdout, llmutils.ToYAML(defs))
	case len(defs) == 0:
		_, _ = io.WriteString(c.stdout, "no tools available\n")
	default:
		for _, d := range defs {
			fmt.Fprintf(c.stdout, "%s: %s\n", d.Function.Name, d.Function.Description)
		}
	}
	return nil
}

// ReplCmd answers the queries read from stdin, one per line
type ReplCmd struct {
	Memory bool `long:"memory" description:"answer with the memory agent"`

	cli *Cli
}

var quitCommands = []string{"quit", "exit", "退出"}

// Execute runs the command
func (cmd *ReplCmd) Execute(_ []string) error {
	c := cmd.cli

	var (
		r      runner
		closer func()
		err    error
	)
	if cmd.Memory {
		r, closer, err = c.memoryAgent()
	} else {
		r, closer, err = c.toolAgent(c.ctx)
	}
	if err != nil {
		return err
	}
	defer closer()

	fmt.Fprintf(c.stdout, "mcpagent %s, type %s to leave\n", version, strings.Join(quitCommands, "/"))

	scanner := bufio.NewScanner(c.stdin)
	for {
		_, _ = io.WriteString(c.stdout, "> ")
		if !scanner.Scan() {
			break
		}
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if isQuit(query) {
			break
		}
		if c.ctx.Err() != nil {
			return c.ctx.Err()
		}
		c.run(c.ctx, r, query, false)
	}
	return errors.WithStack(scanner.Err())
}

func isQuit(query string) bool {
	for _, q := range quitCommands {
		if strings.EqualFold(query, q) {
			return true
		}
	}
	return false
}

// version is set with -ldflags "-X main.version=..."
var version = "dev"

// VersionCmd prints the version
type VersionCmd struct {
	cli *Cli
}

// Execute runs the command
func (cmd *VersionCmd) Execute(_ []string) error {
	_, err := io.WriteString(cmd.cli.stdout, version+"\n")
	return err
}

func printJSON(w io.Writer, v any) {
	_, _ = io.WriteString(w, llmutils.ToJSONIndent(v)+"\n")
}
