package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// EventType tags one frame coming from the agent over the realtime channel.
type EventType string

const (
	EventRegister      EventType = "register"
	EventLLMStart      EventType = "llm_start"
	EventLLMToken      EventType = "llm_token"
	EventAgentAction   EventType = "agent_action"
	EventToolStart     EventType = "tool_start"
	EventToolEnd       EventType = "tool_end"
	EventCommandResult EventType = "command_result"
	EventError         EventType = "error"
	EventProgress      EventType = "progress_update"
)

// Event is one record emitted by the remote agent. The payload fields are a
// union: which of them is populated depends on Type. Output is kept raw
// because agents send it either as a plain string or as a structured object.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"sessionId"`
	Timestamp time.Time `json:"timestamp,omitempty"`

	Content  string          `json:"content,omitempty"`
	Log      string          `json:"log,omitempty"`
	ToolName string          `json:"toolName,omitempty"`
	Output   json.RawMessage `json:"output,omitempty"`
	Result   string          `json:"result,omitempty"`
	Error    string          `json:"error,omitempty"`
	Message  string          `json:"message,omitempty"`

	// ReceivedAt is stamped by the channel adapter on arrival.
	ReceivedAt time.Time `json:"receivedAt"`
}

// OutputText renders the tool output as text regardless of whether the agent
// sent a JSON string or a structured object.
func (e Event) OutputText() string {
	if len(e.Output) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(e.Output, &s); err == nil {
		return s
	}
	return string(e.Output)
}

// OutputEquals compares two output payloads structurally, so the same payload
// delivered twice is recognized even when whitespace differs.
func (e Event) OutputEquals(other json.RawMessage) bool {
	return OutputEqual(e.Output, other)
}

// OutputEqual is the structural comparison behind OutputEquals, exposed for
// callers holding two raw payloads.
func OutputEqual(a, b json.RawMessage) bool {
	return equalJSON(a, b)
}

func equalJSON(a, b json.RawMessage) bool {
	if len(a) == 0 || len(b) == 0 {
		return len(a) == 0 && len(b) == 0
	}
	var ca, cb bytes.Buffer
	if err := json.Compact(&ca, a); err != nil {
		return bytes.Equal(a, b)
	}
	if err := json.Compact(&cb, b); err != nil {
		return bytes.Equal(a, b)
	}
	return bytes.Equal(ca.Bytes(), cb.Bytes())
}
