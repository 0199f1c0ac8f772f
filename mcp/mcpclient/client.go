// Package mcpclient implements the tool catalog and tool invoker
// over the Model Context Protocol.
package mcpclient

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpagent/pkg/metricskey"
	"github.com/effective-security/mcpagent/tools"
	"github.com/effective-security/xlog"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpagent", "mcpclient")

// Transport names
const (
	TransportStreamableHTTP = "streamable-http"
	TransportSSE            = "sse"
	// TransportHTTP is the REST surface served by mcp/httpclient
	TransportHTTP = "http"
)

// ErrUnsupportedTransport is returned for unknown transport names.
var ErrUnsupportedTransport = errors.New("unsupported transport")

type options struct {
	transport     string
	clientName    string
	clientVersion string
	headers       map[string]string
}

// Option configures the Client.
type Option func(*options)

// WithTransport sets the transport, streamable-http by default.
func WithTransport(transport string) Option {
	return func(o *options) {
		o.transport = transport
	}
}

// WithClientInfo sets the implementation info sent on initialize.
func WithClientInfo(name, version string) Option {
	return func(o *options) {
		o.clientName = name
		o.clientVersion = version
	}
}

// WithHeaders sets the headers sent with every request.
func WithHeaders(headers map[string]string) Option {
	return func(o *options) {
		o.headers = headers
	}
}

// Client is a MCP session.
type Client struct {
	mcp       *client.Client
	transport string
}

var _ tools.Client = (*Client)(nil)

// Connect opens a session with the server at baseURL.
func Connect(ctx context.Context, baseURL string, opts ...Option) (*Client, error) {
	o := newOptions(opts)

	var (
		c   *client.Client
		err error
	)
	switch strings.ToLower(o.transport) {
	case TransportStreamableHTTP:
		c, err = client.NewStreamableHttpClient(baseURL, transport.WithHTTPHeaders(o.headers))
	case TransportSSE:
		c, err = client.NewSSEMCPClient(baseURL, transport.WithHeaders(o.headers))
	default:
		return nil, errors.WithMessagef(ErrUnsupportedTransport, "%q", o.transport)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create %s client", o.transport)
	}

	return start(ctx, c, o)
}

// NewFromClient initializes a session over an existing mcp-go client,
// for example one returned by client.NewInProcessClient.
func NewFromClient(ctx context.Context, c *client.Client, opts ...Option) (*Client, error) {
	return start(ctx, c, newOptions(opts))
}

func newOptions(opts []Option) *options {
	o := &options{
		transport:     TransportStreamableHTTP,
		clientName:    "mcpagent",
		clientVersion: "1.0.0",
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func start(ctx context.Context, c *client.Client, o *options) (*Client, error) {
	if err := c.Start(ctx); err != nil {
		_ = c.Close()
		return nil, errors.Wrap(err, "failed to start MCP client")
	}

	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{
		Name:    o.clientName,
		Version: o.clientVersion,
	}

	res, err := c.Initialize(ctx, req)
	if err != nil {
		_ = c.Close()
		return nil, errors.Wrap(err, "failed to initialize MCP session")
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "initialized",
		"transport", o.transport,
		"server", res.ServerInfo.Name,
		"server_version", res.ServerInfo.Version,
		"protocol", res.ProtocolVersion)

	return &Client{mcp: c, transport: o.transport}, nil
}

// ListTools returns the tools exposed by the server,
// or an empty list if the request fails.
func (c *Client) ListTools(ctx context.Context) []tools.Descriptor {
	res, err := c.mcp.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		metricskey.StatsCatalogFetchFailed.IncrCounter(1, c.transport)
		logger.ContextKV(ctx, xlog.WARNING,
			"reason", "list_tools",
			"transport", c.transport,
			"err", err.Error())
		return nil
	}

	list := make([]tools.Descriptor, 0, len(res.Tools))
	for _, t := range res.Tools {
		list = append(list, toDescriptor(t))
	}
	return list
}

// toDescriptor uses the wire form of the tool,
// which carries either the raw or the structured input schema.
func toDescriptor(t mcp.Tool) tools.Descriptor {
	raw, err := json.Marshal(t)
	if err != nil {
		return tools.Descriptor{Name: t.Name, Description: t.Description}
	}
	var m map[string]any
	if err = json.Unmarshal(raw, &m); err != nil {
		return tools.Descriptor{Name: t.Name, Description: t.Description}
	}
	return tools.DescriptorFromMap(m)
}

// CallTool invokes a tool.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) tools.Result {
	started := time.Now()
	defer metricskey.PerfToolCall.MeasureSince(started, name)

	if args == nil {
		args = map[string]any{}
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	res, err := c.mcp.CallTool(ctx, req)
	if err != nil {
		metricskey.StatsToolCallsFailed.IncrCounter(1, name)
		logger.ContextKV(ctx, xlog.WARNING,
			"reason", "call_tool",
			"tool", name,
			"err", err.Error())
		return tools.FailureFromError(err)
	}

	result := ResultFromMCP(res)
	if result.IsError() {
		metricskey.StatsToolCallsFailed.IncrCounter(1, name)
	} else {
		metricskey.StatsToolCallsSucceeded.IncrCounter(1, name)
	}
	return result
}

// Close terminates the session.
func (c *Client) Close() error {
	return c.mcp.Close()
}

// ResultFromMCP converts a MCP call result: text contents are joined,
// JSON text is decoded, and an error result is reported as {"error": text}.
func ResultFromMCP(res *mcp.CallToolResult) tools.Result {
	if res == nil {
		return tools.Success(nil)
	}

	text := strings.TrimSpace(joinText(res.Content))
	if res.IsError {
		if text == "" {
			text = "tool reported an error"
		}
		return tools.Failure(text)
	}
	if text == "" {
		return tools.Success(nil)
	}

	var v any
	if err := json.Unmarshal([]byte(text), &v); err == nil {
		return tools.FromPayload(v)
	}
	return tools.Success(text)
}

func joinText(content []mcp.Content) string {
	var parts []string
	for _, c := range content {
		switch tc := c.(type) {
		case mcp.TextContent:
			parts = append(parts, tc.Text)
		case *mcp.TextContent:
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}
