package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// TokenPayload is the interpreted content of one stream event. A single
// event may carry a text token, a structural batch and a session update at
// the same time. Raw is set when the payload was not a JSON object and the
// whole string was taken as text.
type TokenPayload struct {
	Text      string
	HasText   bool
	Items     []StructuralItem
	SessionID string
	Raw       bool
}

type payloadInterpreter func(data string) (TokenPayload, error)

// payloadInterpreters are tried in order; the last one never fails.
var payloadInterpreters = []payloadInterpreter{
	interpretObject,
	interpretRaw,
}

// InterpretPayload decodes an event payload. It never fails: anything that
// is not a structured object becomes a literal text token.
func InterpretPayload(data string) TokenPayload {
	for _, interpret := range payloadInterpreters {
		payload, err := interpret(data)
		if err == nil {
			return payload
		}
	}
	return TokenPayload{}
}

type wirePayload struct {
	SessionID      Text             `json:"session_id"`
	StructuralData []StructuralItem `json:"structural_data"`
	Text           json.RawMessage  `json:"text"`
	Chunk          json.RawMessage  `json:"chunk"`
	Content        json.RawMessage  `json:"content"`
}

func interpretObject(data string) (TokenPayload, error) {
	trimmed := bytes.TrimSpace([]byte(data))
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return TokenPayload{}, ErrMalformedPayload
	}

	var wire wirePayload
	if err := json.Unmarshal(trimmed, &wire); err != nil {
		return TokenPayload{}, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	payload := TokenPayload{
		SessionID: string(wire.SessionID),
		Items:     wire.StructuralData,
	}
	for _, field := range []json.RawMessage{wire.Text, wire.Chunk, wire.Content} {
		if text, ok := tokenText(field); ok {
			payload.Text = text
			payload.HasText = true
			break
		}
	}

	return payload, nil
}

func interpretRaw(data string) (TokenPayload, error) {
	return TokenPayload{Text: data, HasText: true, Raw: true}, nil
}

// tokenText returns the text of a token field. Empty strings, false, zero
// and null carry no token.
func tokenText(raw json.RawMessage) (string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "", false
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil || s == "" {
			return "", false
		}
		return s, true
	case 'n', 'f':
		return "", false
	case '{', '[':
		return string(trimmed), true
	default:
		var n json.Number
		if err := json.Unmarshal(trimmed, &n); err == nil {
			if f, err := n.Float64(); err == nil && f == 0 {
				return "", false
			}
		}
		return string(trimmed), true
	}
}
