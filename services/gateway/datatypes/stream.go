// Copyright (C) 2026 DocuChat Labs (oss@docuchat.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

// =============================================================================
// SSE Stream Event Types
// =============================================================================

// Stream event type values written on the SSE wire.
const (
	StreamEventStatus = "status"
	StreamEventToken  = "token"
	StreamEventDone   = "done"
	StreamEventError  = "error"
)

// StreamEvent is a single Server-Sent Event payload.
//
// # Description
//
// Each event carries type-specific content plus metadata populated by the
// SSE writer at emission time:
//   - Id: UUID v4 for ordering and deduplication
//   - CreatedAt: Unix timestamp in milliseconds
//   - Hash: SHA-256 hash of the event content for integrity
//   - PrevHash: hash of the previous event for chain verification
//
// # Fields
//
//   - Type: One of status, token, done, error.
//   - Content: Token text (token events).
//   - Message: Human-readable status text (status events).
//   - Error: Sanitized error message (error events).
//   - SessionId: Request correlation id (done events).
type StreamEvent struct {
	Id        string `json:"id,omitempty"`
	Type      string `json:"type"`
	CreatedAt int64  `json:"created_at,omitempty"`
	Content   string `json:"content,omitempty"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	SessionId string `json:"session_id,omitempty"`
	Hash      string `json:"hash,omitempty"`
	PrevHash  string `json:"prev_hash,omitempty"`
}

// NewStreamEvent creates an event with the given type. Metadata fields are
// left empty; the SSE writer fills them when the event is written.
func NewStreamEvent(eventType string) *StreamEvent {
	return &StreamEvent{Type: eventType}
}

// WithContent sets the token content and returns the event for chaining.
func (e *StreamEvent) WithContent(content string) *StreamEvent {
	e.Content = content
	return e
}

// WithMessage sets the status message and returns the event for chaining.
func (e *StreamEvent) WithMessage(message string) *StreamEvent {
	e.Message = message
	return e
}

// WithError sets the error text and returns the event for chaining.
func (e *StreamEvent) WithError(errMsg string) *StreamEvent {
	e.Error = errMsg
	return e
}

// WithSessionId sets the session id and returns the event for chaining.
func (e *StreamEvent) WithSessionId(sessionId string) *StreamEvent {
	e.SessionId = sessionId
	return e
}
