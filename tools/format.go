package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpagent/pkg/llms"
	"github.com/effective-security/mcpagent/pkg/metricskey"
	"github.com/effective-security/xlog"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// FormatTools converts descriptors to function definitions.
// Descriptors without a name, or with a schema that is not a JSON object,
// are dropped. The input is not modified.
func FormatTools(descriptors []Descriptor) []llms.Tool {
	defs := make([]llms.Tool, 0, len(descriptors))
	for _, d := range descriptors {
		tool, err := FormatTool(d)
		if err != nil {
			reason := "schema"
			if errors.Is(err, ErrMissingName) {
				reason = "name"
			}
			metricskey.StatsCatalogToolsSkipped.IncrCounter(1, reason)
			logger.KV(xlog.DEBUG, "status", "skipped", "tool", d.Name, "reason", err.Error())
			continue
		}
		defs = append(defs, tool)
	}
	return defs
}

// FormatTool converts one descriptor to a function definition.
func FormatTool(d Descriptor) (llms.Tool, error) {
	if d.Name == "" {
		return llms.Tool{}, ErrMissingName
	}

	params, err := ResolveSchema(d.InputSchema)
	if err != nil {
		return llms.Tool{}, err
	}

	return llms.Tool{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        d.Name,
			Description: descriptionString(d.Description),
			Parameters:  params,
		},
	}, nil
}

// ResolveSchema returns a copy of the parameter schema with "type" and
// "properties" present. An absent or empty schema resolves to an empty
// object schema; a string is parsed as JSON.
func ResolveSchema(v any) (map[string]any, error) {
	var raw []byte
	switch s := v.(type) {
	case string:
		if s == "" {
			return defaultSchema(), nil
		}
		if !gjson.Valid(s) {
			return nil, errors.WithMessage(ErrInvalidSchema, "not a valid JSON")
		}
		raw = []byte(s)
	case json.RawMessage:
		if len(s) == 0 {
			return defaultSchema(), nil
		}
		if !gjson.ValidBytes(s) {
			return nil, errors.WithMessage(ErrInvalidSchema, "not a valid JSON")
		}
		raw = s
	case map[string]any:
		if len(s) == 0 {
			return defaultSchema(), nil
		}
		js, err := json.Marshal(s)
		if err != nil {
			return nil, errors.WithMessage(ErrInvalidSchema, err.Error())
		}
		raw = js
	default:
		if isEmptyValue(v) {
			return defaultSchema(), nil
		}
		return nil, errors.WithMessagef(ErrInvalidSchema, "unsupported type %T", v)
	}

	parsed := gjson.ParseBytes(raw)
	if !parsed.IsObject() {
		return nil, errors.WithMessage(ErrInvalidSchema, "not a JSON object")
	}

	var err error
	if !parsed.Get("type").Exists() {
		if raw, err = sjson.SetBytes(raw, "type", "object"); err != nil {
			return nil, errors.WithMessage(ErrInvalidSchema, err.Error())
		}
	}
	if !parsed.Get("properties").Exists() {
		if raw, err = sjson.SetRawBytes(raw, "properties", []byte("{}")); err != nil {
			return nil, errors.WithMessage(ErrInvalidSchema, err.Error())
		}
	}

	var schema map[string]any
	if err = json.Unmarshal(raw, &schema); err != nil {
		return nil, errors.WithMessage(ErrInvalidSchema, err.Error())
	}
	return schema, nil
}

// LoadDefinitions fetches the catalog and returns the function definitions.
// An empty result means the model is used without tools.
func LoadDefinitions(ctx context.Context, catalog Catalog) []llms.Tool {
	list := catalog.ListTools(ctx)
	defs := FormatTools(list)

	logger.ContextKV(ctx, xlog.INFO, "status", "catalog", "discovered", len(list), "available", len(defs))
	for _, def := range defs {
		logger.ContextKV(ctx, xlog.DEBUG, "tool", def.Function.Name, "description", def.Function.Description)
	}
	if len(defs) == 0 {
		logger.ContextKV(ctx, xlog.WARNING, "status", "no_tools", "reason", "model will answer without tools")
	}
	return defs
}

func defaultSchema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

func descriptionString(v any) string {
	switch d := v.(type) {
	case nil:
		return ""
	case string:
		return d
	case fmt.Stringer:
		return d.String()
	}
	if js, err := json.Marshal(v); err == nil {
		return string(js)
	}
	return fmt.Sprint(v)
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case float64:
		return t == 0
	case int:
		return t == 0
	case int64:
		return t == 0
	case json.Number:
		return t == "0"
	case []any:
		return len(t) == 0
	}
	return false
}
