// Package tools defines the tool catalog, the tool invoker and the
// translation of tool descriptors into LLM function definitions.
package tools
