package tools

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
)

//go:generate mockgen -source=tools.go -destination=../mocks/mocktools/tools_mock.gen.go -package mocktools

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpagent", "tools")

var (
	// ErrToolServer is returned when the tool server replies with an error status.
	ErrToolServer = errors.New("tool server error")
	// ErrMissingName is returned when a tool descriptor has no name.
	ErrMissingName = errors.New("tool name is missing")
	// ErrInvalidSchema is returned when the parameter schema can not be used.
	ErrInvalidSchema = errors.New("invalid parameter schema")
)

// Catalog returns the tools a server currently exposes.
type Catalog interface {
	// ListTools returns the current catalog.
	// On any transport failure it returns an empty list.
	ListTools(ctx context.Context) []Descriptor
}

// Invoker performs remote tool calls.
type Invoker interface {
	// CallTool invokes the named tool with the arguments.
	// Failures are returned as an error Result.
	CallTool(ctx context.Context, name string, args map[string]any) Result
}

// Client is a tool server session.
type Client interface {
	Catalog
	Invoker
	// Close releases the session.
	Close() error
}

// Descriptor is a tool as reported by the server.
// Description and InputSchema are kept as received,
// FormatTools applies the normalization rules.
type Descriptor struct {
	Name        string `json:"name" yaml:"name"`
	Description any    `json:"description,omitempty" yaml:"description,omitempty"`
	InputSchema any    `json:"inputSchema,omitempty" yaml:"inputSchema,omitempty"`
}

// DescriptorFromMap returns a descriptor from a decoded JSON object.
// A non-string name is treated as missing.
func DescriptorFromMap(m map[string]any) Descriptor {
	name, _ := m["name"].(string)
	return Descriptor{
		Name:        name,
		Description: m["description"],
		InputSchema: m["inputSchema"],
	}
}

// DecodeDescriptors decodes a tool list. The list can be a JSON array,
// or an object wrapping the array under "tools" or "data".
// Entries that are not JSON objects are ignored.
func DecodeDescriptors(data []byte) ([]Descriptor, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, errors.Wrap(err, "failed to decode tool list")
	}

	if obj, ok := v.(map[string]any); ok {
		if list, ok := obj["tools"]; ok {
			v = list
		} else if list, ok := obj["data"]; ok {
			v = list
		}
	}

	list, ok := v.([]any)
	if !ok {
		return nil, errors.Errorf("unexpected tool list type: %T", v)
	}

	res := make([]Descriptor, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		res = append(res, DescriptorFromMap(m))
	}
	return res, nil
}
