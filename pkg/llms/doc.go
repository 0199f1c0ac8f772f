// Package llms provides a provider-neutral chat completion interface.
//
// A conversation is an ordered list of Message values with roles system, user,
// assistant and tool. Assistant messages may carry ToolCall parts, tool messages
// carry a ToolCallResponse that references the originating call by ID.
//
// Each subpackage adapts one provider SDK to the Model interface.
package llms
