package tools

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/errors"
)

// Result is the outcome of a tool call: a success payload,
// or an error payload in the form {"error": "..."}.
type Result struct {
	payload any
	failed  bool
}

// Success returns a success result. A nil payload is reported as {}.
func Success(data any) Result {
	if data == nil {
		data = map[string]any{}
	}
	return Result{payload: data}
}

// Failure returns an error result.
func Failure(msg string) Result {
	return Result{
		payload: map[string]any{"error": msg},
		failed:  true,
	}
}

// FailureFromError returns an error result with the message of err.
func FailureFromError(err error) Result {
	return Failure(err.Error())
}

// FromPayload classifies a payload received from a tool server:
// any object with an "error" key is a failure.
func FromPayload(v any) Result {
	if m, ok := v.(map[string]any); ok {
		if _, ok := m["error"]; ok {
			return Result{payload: m, failed: true}
		}
	}
	return Success(v)
}

// IsError returns true for error results.
func (r Result) IsError() bool {
	return r.failed
}

// Payload returns the value sent to the model.
func (r Result) Payload() any {
	if r.payload == nil {
		return map[string]any{}
	}
	return r.payload
}

// ErrorMessage returns the error message of a failed result.
func (r Result) ErrorMessage() string {
	if !r.failed {
		return ""
	}
	m, _ := r.payload.(map[string]any)
	switch v := m["error"].(type) {
	case string:
		return v
	case nil:
		return "unknown error"
	default:
		return fmt.Sprint(v)
	}
}

// Encode returns the payload as JSON text, non-ASCII characters are kept as is.
func (r Result) Encode() (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r.Payload()); err != nil {
		return "", errors.Wrap(err, "failed to encode tool result")
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
