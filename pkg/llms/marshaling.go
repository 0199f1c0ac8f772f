package llms

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// partJSON is the wire shape of a content part, following the OpenAI naming.
type partJSON struct {
	Type         string            `json:"type"`
	Text         string            `json:"text,omitempty"`
	ToolCall     *ToolCall         `json:"tool_call,omitempty"`
	ToolResponse *ToolCallResponse `json:"tool_response,omitempty"`
}

type messageJSON struct {
	Role  Role       `json:"role"`
	Text  *string    `json:"text,omitempty"`
	Parts []partJSON `json:"parts,omitempty"`
}

// MarshalJSON implements json.Marshaler for Message
func (m Message) MarshalJSON() ([]byte, error) {
	// single text part can be simplified
	if len(m.Parts) == 1 {
		if tp, ok := m.Parts[0].(TextContent); ok {
			return json.Marshal(messageJSON{Role: m.Role, Text: &tp.Text})
		}
	}

	res := messageJSON{
		Role:  m.Role,
		Parts: make([]partJSON, 0, len(m.Parts)),
	}
	for _, p := range m.Parts {
		switch pp := p.(type) {
		case TextContent:
			res.Parts = append(res.Parts, partJSON{Type: "text", Text: pp.Text})
		case ToolCall:
			tc := pp
			res.Parts = append(res.Parts, partJSON{Type: "tool_call", ToolCall: &tc})
		case ToolCallResponse:
			tr := pp
			res.Parts = append(res.Parts, partJSON{Type: "tool_response", ToolResponse: &tr})
		default:
			return nil, errors.Errorf("unsupported content part: %T", p)
		}
	}
	return json.Marshal(res)
}

// UnmarshalJSON implements json.Unmarshaler for Message
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw messageJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.WithStack(err)
	}

	switch raw.Role {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
	default:
		return errors.WithMessagef(ErrUnexpectedRole, "role %q", raw.Role)
	}

	m.Role = raw.Role
	m.Parts = nil
	if raw.Text != nil {
		m.Parts = append(m.Parts, TextPart(*raw.Text))
	}
	for _, p := range raw.Parts {
		switch p.Type {
		case "text":
			m.Parts = append(m.Parts, TextPart(p.Text))
		case "tool_call":
			if p.ToolCall == nil {
				return errors.New("missing tool_call")
			}
			m.Parts = append(m.Parts, *p.ToolCall)
		case "tool_response":
			if p.ToolResponse == nil {
				return errors.New("missing tool_response")
			}
			m.Parts = append(m.Parts, *p.ToolResponse)
		default:
			return errors.Errorf("unknown content type: %s", p.Type)
		}
	}
	return nil
}
