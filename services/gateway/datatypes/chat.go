// Copyright (C) 2026 DocuChat Labs (oss@docuchat.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes provides request and response types for the gateway
// service.
//
// This file contains the chat request types and the message content union.
// For SSE stream event types, see stream.go.
package datatypes

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// MaxMessageContentBytes is the maximum size of a single message content
	// after flattening. Larger payloads are rejected at validation time.
	MaxMessageContentBytes = 32 * 1024 // 32KB

	// MaxMessagesPerRequest is the maximum number of messages in a request.
	MaxMessagesPerRequest = 100
)

// ConversationRequiredMessage is the client-facing validation message
// returned when the conversation invariant is violated. The wording is part
// of the HTTP contract and must not change.
const ConversationRequiredMessage = "messages are required in the request body and the last message must be from the user"

// ValidationFailedMessage is the client-facing message returned when a
// decoded request violates the structural limits (message count, content
// size). Together with ConversationRequiredMessage it enumerates every 400
// body the chat endpoints produce.
const ValidationFailedMessage = "invalid request: validation failed"

// ErrInvalidConversation is returned when a request carries no messages or
// the trailing message is not from the user.
var ErrInvalidConversation = errors.New(ConversationRequiredMessage)

// =============================================================================
// Roles
// =============================================================================

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Supported reports whether the role belongs to the fixed role set the
// gateway forwards to the chat engine. Messages carrying any other role are
// dropped silently during normalization.
func (r Role) Supported() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	}
	return false
}

// =============================================================================
// Message Types
// =============================================================================

// Message is a single incoming conversation message.
//
// # Description
//
// The role is unconstrained at the boundary; filtering to the supported role
// set happens during normalization, not validation. Content accepts every
// shape clients send in practice: a plain string, an array of parts, null,
// or any other JSON value (see MessageContent).
//
// # Fields
//
//   - Role: Author of the message. Free-form at the boundary.
//   - Content: Raw content union. Flattened to a string by the normalizer.
type Message struct {
	Role    string         `json:"role"`
	Content MessageContent `json:"content" validate:"maxbytes"`
}

// NormalizedMessage is the canonical form forwarded to the chat engine:
// a supported role and a flattened string content.
//
// Invariants: Role is always in the supported set and Content is always a
// plain string (parts already joined, non-text parts already dropped).
type NormalizedMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// =============================================================================
// Shared Validator Instance
// =============================================================================

// chatValidate is the validator instance for chat datatypes.
var chatValidate *validator.Validate

func init() {
	chatValidate = validator.New()
	_ = chatValidate.RegisterValidation("maxbytes", validateMaxBytes)
}

// validateMaxBytes enforces the per-message content size cap. Byte length is
// checked (not rune count) so oversized multi-byte payloads cannot slip
// through.
func validateMaxBytes(fl validator.FieldLevel) bool {
	content, ok := fl.Field().Interface().(MessageContent)
	if !ok {
		return true
	}
	return len(content.Flatten()) <= MaxMessageContentBytes
}

// =============================================================================
// Chat Request
// =============================================================================

// ChatRequest represents the body of a streaming chat request.
//
// # Description
//
// ChatRequest carries the full conversation in chronological order. The last
// element must be the user's new turn; everything before it is history. The
// gateway owns no conversation state, so clients resend the history on every
// call.
//
// # Validation
//
// Two layers apply:
//   - Validate(): structural limits via go-playground/validator
//     (message count cap, per-message content size cap).
//   - ValidateConversation(): at least one message, and the trailing
//     message's role must be "user". Violations map to HTTP 400 with
//     ConversationRequiredMessage.
//
// # Examples
//
//	req := ChatRequest{
//	    Messages: []Message{
//	        {Role: "user", Content: TextContent("Hello")},
//	    },
//	}
//
// # Limitations
//
//   - Maximum 100 messages per request; clients must truncate history.
//   - Content limited to 32KB per message after flattening.
type ChatRequest struct {
	Messages []Message `json:"messages" validate:"max=100,dive"`
}

// Validate checks the structural limits of the request.
func (r *ChatRequest) Validate() error {
	return chatValidate.Struct(r)
}

// ValidateConversation checks the conversation invariant: the message list
// is non-empty and the trailing message is from the user. This runs before
// any normalization; a violation means no further processing happens.
func (r *ChatRequest) ValidateConversation() error {
	if len(r.Messages) == 0 {
		return ErrInvalidConversation
	}
	if Role(r.Messages[len(r.Messages)-1].Role) != RoleUser {
		return ErrInvalidConversation
	}
	return nil
}
