// Package events contains event contract definitions for WebSocket
// communication between the dashboard backend and its clients.
package events

import (
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Session lifecycle events
	MessageTypeSessionCreated MessageType = "session:created"
	MessageTypeSessionReset   MessageType = "session:reset"
	MessageTypeSessionDeleted MessageType = "session:deleted"

	// Emitted after a cleaning operation commits
	MessageTypeOperationApplied MessageType = "operation:applied"

	// Connection messages
	MessageTypeConnect    MessageType = "connect"
	MessageTypeDisconnect MessageType = "disconnect"
	MessageTypeError      MessageType = "error"
)

// BaseMessage represents the base structure for all WebSocket messages
type BaseMessage struct {
	ID        string      `json:"id,omitempty"`       // Unique message ID
	Type      MessageType `json:"type"`               // Message type
	Timestamp time.Time   `json:"timestamp"`          // Message timestamp
	TraceID   string      `json:"trace_id,omitempty"` // Request trace ID
}

// WebSocketMessage represents a complete WebSocket message
type WebSocketMessage struct {
	BaseMessage
	SessionID string      `json:"session_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

// SessionEvent is the payload for session lifecycle events.
type SessionEvent struct {
	SessionID string `json:"session_id"`
	Name      string `json:"name,omitempty"`
	State     string `json:"state,omitempty"`
	Rows      int    `json:"rows,omitempty"`
	Columns   int    `json:"columns,omitempty"`
}

// OperationEvent is the payload for operation:applied events.
type OperationEvent struct {
	SessionID   string   `json:"session_id"`
	Operation   string   `json:"operation"`
	Strategy    string   `json:"strategy,omitempty"`
	Columns     []string `json:"columns,omitempty"`
	CellsFilled int      `json:"cells_filled"`
	Dropped     []string `json:"dropped,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
	Summary     string   `json:"summary,omitempty"`
}

// ErrorEvent is the payload for error messages pushed to clients.
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Retry   bool   `json:"retry"`
}
