package orchestrator

import (
	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpagent/pkg/llms"
)

// Version identifies a point in the message log
type Version int

// Log is an ordered, append-only message log of one conversation.
// It is not safe for concurrent use.
type Log struct {
	messages []llms.Message
}

// NewLog returns a log with the initial messages.
func NewLog(msgs ...llms.Message) *Log {
	l := &Log{}
	l.Append(msgs...)
	return l
}

// Append adds messages to the end of the log.
func (l *Log) Append(msgs ...llms.Message) {
	l.messages = append(l.messages, msgs...)
}

// Messages returns a copy of the log.
func (l *Log) Messages() []llms.Message {
	return append([]llms.Message(nil), l.messages...)
}

// Len returns the number of messages.
func (l *Log) Len() int {
	return len(l.messages)
}

// Last returns the last message, or false if the log is empty.
func (l *Log) Last() (llms.Message, bool) {
	if len(l.messages) == 0 {
		return llms.Message{}, false
	}
	return l.messages[len(l.messages)-1], true
}

// Snapshot returns the current version of the log.
func (l *Log) Snapshot() Version {
	return Version(len(l.messages))
}

// Restore removes the messages appended after the snapshot v.
func (l *Log) Restore(v Version) {
	if v < 0 {
		v = 0
	}
	if int(v) < len(l.messages) {
		clear(l.messages[v:])
		l.messages = l.messages[:v]
	}
}

// Validate checks that every tool response refers to
// a tool call requested earlier in the log.
func (l *Log) Validate() error {
	requested := map[string]bool{}
	for i, msg := range l.messages {
		for _, tc := range msg.ToolCalls() {
			requested[tc.ID] = true
		}
		for _, tr := range msg.ToolResponses() {
			if !requested[tr.ToolCallID] {
				return errors.Newf("message %d: tool response %q does not match any tool call", i, tr.ToolCallID)
			}
		}
	}
	return nil
}
