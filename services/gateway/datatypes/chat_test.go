// Copyright (C) 2026 DocuChat Labs (oss@docuchat.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"errors"
	"strings"
	"testing"
)

// =============================================================================
// ChatRequest Validation Tests
// =============================================================================

func TestChatRequest_Validate_Success(t *testing.T) {
	req := &ChatRequest{
		Messages: []Message{
			{Role: "user", Content: TextContent("Hello")},
		},
	}

	if err := req.Validate(); err != nil {
		t.Errorf("expected valid request, got error: %v", err)
	}
}

func TestChatRequest_Validate_TooManyMessages(t *testing.T) {
	messages := make([]Message, MaxMessagesPerRequest+1)
	for i := range messages {
		messages[i] = Message{Role: "user", Content: TextContent("Message")}
	}

	req := &ChatRequest{Messages: messages}
	if err := req.Validate(); err == nil {
		t.Errorf("expected error for %d messages (max is %d), got nil",
			len(messages), MaxMessagesPerRequest)
	}
}

func TestChatRequest_Validate_ExactlyMaxMessages(t *testing.T) {
	messages := make([]Message, MaxMessagesPerRequest)
	for i := range messages {
		messages[i] = Message{Role: "user", Content: TextContent("Message")}
	}

	req := &ChatRequest{Messages: messages}
	if err := req.Validate(); err != nil {
		t.Errorf("expected valid request with exactly %d messages, got error: %v",
			MaxMessagesPerRequest, err)
	}
}

func TestChatRequest_Validate_ContentTooLarge(t *testing.T) {
	req := &ChatRequest{
		Messages: []Message{
			{Role: "user", Content: TextContent(strings.Repeat("a", MaxMessageContentBytes+1))},
		},
	}

	err := req.Validate()
	if err == nil {
		t.Fatal("expected error for oversized content, got nil")
	}
	// The size cap is a registered validator rule on the content field, not
	// an ad hoc check; the failure must report that rule.
	if !strings.Contains(err.Error(), "maxbytes") {
		t.Errorf("expected the maxbytes rule to reject the content, got: %v", err)
	}
}

func TestChatRequest_Validate_ContentExactlyAtLimit(t *testing.T) {
	req := &ChatRequest{
		Messages: []Message{
			{Role: "user", Content: TextContent(strings.Repeat("a", MaxMessageContentBytes))},
		},
	}

	if err := req.Validate(); err != nil {
		t.Errorf("expected content at the limit to pass, got error: %v", err)
	}
}

func TestChatRequest_Validate_SizeLimitAppliesToFlattenedParts(t *testing.T) {
	half := strings.Repeat("a", MaxMessageContentBytes/2+1)
	req := &ChatRequest{
		Messages: []Message{
			{Role: "user", Content: PartsContent(half, half)},
		},
	}

	if err := req.Validate(); err == nil {
		t.Error("expected error when flattened parts exceed the limit, got nil")
	}
}

// =============================================================================
// Conversation Invariant Tests
// =============================================================================

func TestChatRequest_ValidateConversation_Success(t *testing.T) {
	req := &ChatRequest{
		Messages: []Message{
			{Role: "assistant", Content: TextContent("Hi, how can I help?")},
			{Role: "user", Content: TextContent("Hello")},
		},
	}

	if err := req.ValidateConversation(); err != nil {
		t.Errorf("expected valid conversation, got error: %v", err)
	}
}

func TestChatRequest_ValidateConversation_EmptyMessages(t *testing.T) {
	req := &ChatRequest{Messages: []Message{}}

	err := req.ValidateConversation()
	if err == nil {
		t.Fatal("expected error for empty messages, got nil")
	}
	if !errors.Is(err, ErrInvalidConversation) {
		t.Errorf("expected ErrInvalidConversation, got %v", err)
	}
	if err.Error() != ConversationRequiredMessage {
		t.Errorf("expected the fixed client-facing message, got %q", err.Error())
	}
}

func TestChatRequest_ValidateConversation_NilMessages(t *testing.T) {
	req := &ChatRequest{}

	if err := req.ValidateConversation(); !errors.Is(err, ErrInvalidConversation) {
		t.Errorf("expected ErrInvalidConversation for nil messages, got %v", err)
	}
}

func TestChatRequest_ValidateConversation_LastNotUser(t *testing.T) {
	req := &ChatRequest{
		Messages: []Message{
			{Role: "user", Content: TextContent("Hello")},
			{Role: "assistant", Content: TextContent("Hi")},
		},
	}

	if err := req.ValidateConversation(); !errors.Is(err, ErrInvalidConversation) {
		t.Errorf("expected ErrInvalidConversation when assistant speaks last, got %v", err)
	}
}

func TestChatRequest_ValidateConversation_UnknownRoleLast(t *testing.T) {
	req := &ChatRequest{
		Messages: []Message{
			{Role: "moderator", Content: TextContent("Hello")},
		},
	}

	if err := req.ValidateConversation(); !errors.Is(err, ErrInvalidConversation) {
		t.Errorf("expected ErrInvalidConversation for unknown trailing role, got %v", err)
	}
}

// =============================================================================
// Role Tests
// =============================================================================

func TestRole_Supported(t *testing.T) {
	for _, role := range []Role{RoleSystem, RoleUser, RoleAssistant, RoleTool} {
		if !role.Supported() {
			t.Errorf("expected role %q to be supported", role)
		}
	}
	for _, role := range []Role{"moderator", "function", "", "USER"} {
		if role.Supported() {
			t.Errorf("expected role %q to be unsupported", role)
		}
	}
}
