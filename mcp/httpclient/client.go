// Package httpclient implements the tool catalog and tool invoker over the
// REST surface of a tool server: GET {base}/tools and POST {base}/call_tool.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpagent/pkg/metricskey"
	"github.com/effective-security/mcpagent/tools"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpagent", "httpclient")

// DefaultBaseURL is the address of a local tool server.
const DefaultBaseURL = "http://127.0.0.1:9000/mcp/"

const maxErrorBody = 512

// Doer performs a HTTP request.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client, http.DefaultClient is used otherwise.
func WithHTTPClient(doer Doer) Option {
	return func(c *Client) {
		c.httpClient = doer
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Set(key, value)
	}
}

// Client is a REST tool server client.
type Client struct {
	baseURL    string
	httpClient Doer
	headers    http.Header
}

var _ tools.Client = (*Client)(nil)

// New returns a client for the tool server at baseURL,
// the trailing slash is removed.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
		headers:    make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the normalized server address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListTools returns the tools exposed by the server,
// or an empty list if the server can not be reached.
func (c *Client) ListTools(ctx context.Context) []tools.Descriptor {
	body, err := c.do(ctx, http.MethodGet, "/tools", nil)
	if err == nil {
		var list []tools.Descriptor
		list, err = tools.DecodeDescriptors(body)
		if err == nil {
			return list
		}
	}

	metricskey.StatsCatalogFetchFailed.IncrCounter(1, "http")
	logger.ContextKV(ctx, xlog.WARNING,
		"reason", "list_tools",
		"url", c.baseURL,
		"err", err.Error())
	return nil
}

type callToolRequest struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// CallTool invokes a tool. The "data" member of the response object is
// returned, transport and server failures are returned as error results.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) tools.Result {
	started := time.Now()
	defer metricskey.PerfToolCall.MeasureSince(started, name)

	if args == nil {
		args = map[string]any{}
	}
	payload, err := json.Marshal(callToolRequest{Name: name, Arguments: args})
	if err != nil {
		return c.failed(ctx, name, errors.Wrap(err, "failed to encode arguments"))
	}

	body, err := c.do(ctx, http.MethodPost, "/call_tool", payload)
	if err != nil {
		return c.failed(ctx, name, err)
	}

	var v any
	if err = json.Unmarshal(body, &v); err != nil {
		return c.failed(ctx, name, errors.Wrap(err, "failed to decode tool response"))
	}

	res := tools.FromPayload(unwrapData(v))
	if res.IsError() {
		metricskey.StatsToolCallsFailed.IncrCounter(1, name)
	} else {
		metricskey.StatsToolCallsSucceeded.IncrCounter(1, name)
	}
	return res
}

// Close releases idle connections.
func (c *Client) Close() error {
	if cl, ok := c.httpClient.(interface{ CloseIdleConnections() }); ok {
		cl.CloseIdleConnections()
	}
	return nil
}

func (c *Client) failed(ctx context.Context, name string, err error) tools.Result {
	metricskey.StatsToolCallsFailed.IncrCounter(1, name)
	logger.ContextKV(ctx, xlog.WARNING,
		"reason", "call_tool",
		"tool", name,
		"err", err.Error())
	return tools.FailureFromError(err)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	for k, v := range c.headers {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, errors.WithMessagef(tools.ErrToolServer, "%s %s: %d %s",
			method, path, resp.StatusCode, slices.StringUpto(strings.TrimSpace(string(data)), maxErrorBody))
	}
	return data, nil
}

// unwrapData returns the "data" member of a response object, or {} when it
// is absent. An object reporting "error" without "data" is returned as is.
// Other values are returned unchanged.
func unwrapData(v any) any {
	obj, ok := v.(map[string]any)
	if !ok {
		return v
	}
	if data, ok := obj["data"]; ok {
		return data
	}
	if _, ok := obj["error"]; ok {
		return obj
	}
	return map[string]any{}
}
