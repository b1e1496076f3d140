// Copyright (C) 2026 DocuChat Labs (oss@docuchat.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package conversation

import (
	"strings"
	"testing"

	"github.com/docuchat-ai/docuchat/services/gateway/datatypes"
)

// =============================================================================
// Normalize Tests
// =============================================================================

func TestNormalize_DropsUnsupportedRoles(t *testing.T) {
	msgs := []datatypes.Message{
		{Role: "system", Content: datatypes.TextContent("be brief")},
		{Role: "moderator", Content: datatypes.TextContent("dropped")},
		{Role: "user", Content: datatypes.TextContent("hi")},
		{Role: "function", Content: datatypes.TextContent("also dropped")},
		{Role: "assistant", Content: datatypes.TextContent("hello")},
	}

	got := Normalize(msgs)

	if len(got) != 3 {
		t.Fatalf("expected 3 retained messages, got %d", len(got))
	}
	if got[0].Role != datatypes.RoleSystem || got[1].Role != datatypes.RoleUser || got[2].Role != datatypes.RoleAssistant {
		t.Errorf("retained messages out of order: %+v", got)
	}
}

func TestNormalize_FlattensContent(t *testing.T) {
	msgs := []datatypes.Message{
		{Role: "user", Content: datatypes.PartsContent("Hello", map[string]any{"text": "world"})},
	}

	got := Normalize(msgs)

	if len(got) != 1 {
		t.Fatalf("expected 1 message, got %d", len(got))
	}
	if got[0].Content != "Hello world" {
		t.Errorf("expected flattened content 'Hello world', got %q", got[0].Content)
	}
}

func TestNormalize_EmptyInputYieldsEmptyNonNil(t *testing.T) {
	got := Normalize(nil)
	if got == nil {
		t.Fatal("expected non-nil slice for empty input")
	}
	if len(got) != 0 {
		t.Errorf("expected empty slice, got %d elements", len(got))
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	msgs := []datatypes.Message{
		{Role: "user", Content: datatypes.PartsContent("a", "b")},
		{Role: "assistant", Content: datatypes.TextContent("c")},
	}

	once := Normalize(msgs)

	// Re-feed the normalized output as raw messages.
	again := make([]datatypes.Message, len(once))
	for i, m := range once {
		again[i] = datatypes.Message{Role: string(m.Role), Content: datatypes.TextContent(m.Content)}
	}
	twice := Normalize(again)

	if len(once) != len(twice) {
		t.Fatalf("length changed on renormalization: %d != %d", len(once), len(twice))
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Errorf("message %d changed on renormalization: %+v != %+v", i, once[i], twice[i])
		}
	}
}

// =============================================================================
// Split Tests
// =============================================================================

func TestSplit_SingleMessage(t *testing.T) {
	msgs := []datatypes.Message{
		{Role: "user", Content: datatypes.TextContent("Hello")},
	}

	history, turn := Split(msgs)

	if len(history) != 0 {
		t.Errorf("expected empty history, got %d messages", len(history))
	}
	if turn != "Hello" {
		t.Errorf("expected current turn 'Hello', got %q", turn)
	}
}

func TestSplit_MultiTurnConversation(t *testing.T) {
	msgs := []datatypes.Message{
		{Role: "user", Content: datatypes.TextContent("first question")},
		{Role: "assistant", Content: datatypes.TextContent("first answer")},
		{Role: "user", Content: datatypes.TextContent("second question")},
	}

	history, turn := Split(msgs)

	if len(history) != 2 {
		t.Fatalf("expected 2 history messages, got %d", len(history))
	}
	if history[0].Content != "first question" || history[1].Content != "first answer" {
		t.Errorf("history out of order: %+v", history)
	}
	if turn != "second question" {
		t.Errorf("expected current turn 'second question', got %q", turn)
	}
}

func TestSplit_HistoryRoleFilterApplies(t *testing.T) {
	msgs := []datatypes.Message{
		{Role: "moderator", Content: datatypes.TextContent("dropped")},
		{Role: "user", Content: datatypes.TextContent("question")},
	}

	history, turn := Split(msgs)

	if len(history) != 0 {
		t.Errorf("expected unsupported history role to be dropped, got %+v", history)
	}
	if turn != "question" {
		t.Errorf("expected current turn 'question', got %q", turn)
	}
}

func TestSplit_CurrentTurnFlattensParts(t *testing.T) {
	msgs := []datatypes.Message{
		{Role: "user", Content: datatypes.PartsContent(
			map[string]any{"type": "text", "text": "What does"},
			map[string]any{"type": "text", "text": "section 4 say?"},
		)},
	}

	_, turn := Split(msgs)

	if turn != "What does section 4 say?" {
		t.Errorf("expected flattened turn, got %q", turn)
	}
}

// =============================================================================
// Docs-Only Prompt Tests
// =============================================================================

func TestWithDocsOnlyPrompt_PrependsSystemMessage(t *testing.T) {
	history := []datatypes.NormalizedMessage{
		{Role: datatypes.RoleUser, Content: "earlier question"},
	}

	got := WithDocsOnlyPrompt(history)

	if len(got) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(got))
	}
	if got[0].Role != datatypes.RoleSystem {
		t.Errorf("expected system message first, got role %q", got[0].Role)
	}
	if got[0].Content != DocsOnlyPrompt {
		t.Errorf("unexpected system prompt: %q", got[0].Content)
	}
	if got[1] != history[0] {
		t.Errorf("original history not preserved: %+v", got[1])
	}
}

func TestWithDocsOnlyPrompt_DoesNotModifyInput(t *testing.T) {
	history := []datatypes.NormalizedMessage{
		{Role: datatypes.RoleUser, Content: "q"},
	}

	_ = WithDocsOnlyPrompt(history)

	if len(history) != 1 || history[0].Content != "q" {
		t.Errorf("input slice was modified: %+v", history)
	}
}

func TestDocsOnlyPrompt_ContainsExactRefusal(t *testing.T) {
	// The refusal wording is a product contract; the prompt must carry it
	// verbatim so the model can echo it.
	if DocsOnlyRefusal != "No encontré esa información en el documento." {
		t.Errorf("refusal string changed: %q", DocsOnlyRefusal)
	}
	if !strings.Contains(DocsOnlyPrompt, DocsOnlyRefusal) {
		t.Error("docs-only prompt does not contain the refusal string")
	}
}
