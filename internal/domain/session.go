package domain

import "encoding/json"

type Role string

const (
	RoleUser   Role = "user"
	RoleBot    Role = "bot"
	RoleError  Role = "error"
	RoleSystem Role = "system"
)

type HistoryEntry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatSession is the conversation state owned by the orchestrator.
//
// RememberMode keeps the polarity of the original widget: when it is true
// user messages are NOT appended to History, and the cache fingerprint
// includes the serialized History. The name reads backwards; the behaviour
// is kept as observed.
type ChatSession struct {
	SessionID    string
	History      []HistoryEntry
	RememberMode bool
}

func (s ChatSession) Clone() ChatSession {
	clone := s
	clone.History = append([]HistoryEntry(nil), s.History...)
	return clone
}

// Payload is the outbound request body.
type Payload struct {
	Message   string  `json:"message"`
	SessionID *string `json:"session_id"`
}

func NewPayload(message, sessionID string) Payload {
	payload := Payload{Message: message}
	if sessionID != "" {
		id := sessionID
		payload.SessionID = &id
	}
	return payload
}

// Fingerprint is the normalized cache key of a turn: the message alone, or
// the message followed by the JSON history when remember mode is on.
func Fingerprint(message string, history []HistoryEntry, rememberMode bool) string {
	if !rememberMode {
		return message
	}

	entries := history
	if entries == nil {
		entries = []HistoryEntry{}
	}
	encoded, err := json.Marshal(entries)
	if err != nil {
		return message
	}

	return message + "_" + string(encoded)
}
