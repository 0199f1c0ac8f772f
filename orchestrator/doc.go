// Package orchestrator runs a single tool-calling turn: the user query is
// sent to the model together with the available tool definitions, requested
// tool calls are dispatched in order, and a final answer is produced from
// the tool results.
//
// Chat never returns an error. Failures are reported in Reply as a text
// prefixed with "Error: ", and the message log is rolled back when a
// failure happens before tool results are recorded.
package orchestrator
