// Copyright (C) 2026 DocuChat Labs (oss@docuchat.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"encoding/json"
	"testing"
)

// =============================================================================
// MessageContent Decoding Tests
// =============================================================================

func decodeContent(t *testing.T, raw string) MessageContent {
	t.Helper()
	var c MessageContent
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		t.Fatalf("failed to decode content %q: %v", raw, err)
	}
	return c
}

func TestMessageContent_Flatten_PlainString(t *testing.T) {
	c := decodeContent(t, `"Hello world"`)
	if got := c.Flatten(); got != "Hello world" {
		t.Errorf("expected 'Hello world', got %q", got)
	}
}

func TestMessageContent_Flatten_Null(t *testing.T) {
	c := decodeContent(t, `null`)
	if got := c.Flatten(); got != "" {
		t.Errorf("expected empty string for null content, got %q", got)
	}
}

func TestMessageContent_Flatten_EmptyArray(t *testing.T) {
	c := decodeContent(t, `[]`)
	if got := c.Flatten(); got != "" {
		t.Errorf("expected empty string for empty array, got %q", got)
	}
}

func TestMessageContent_Flatten_StringParts(t *testing.T) {
	c := decodeContent(t, `["Hello", "world"]`)
	if got := c.Flatten(); got != "Hello world" {
		t.Errorf("expected 'Hello world', got %q", got)
	}
}

func TestMessageContent_Flatten_ObjectPartsWithText(t *testing.T) {
	c := decodeContent(t, `[{"type":"text","text":"Hello"},{"type":"text","text":"world"}]`)
	if got := c.Flatten(); got != "Hello world" {
		t.Errorf("expected 'Hello world', got %q", got)
	}
}

func TestMessageContent_Flatten_ObjectPartWithoutText(t *testing.T) {
	// Parts without a text field contribute an empty string but keep their
	// position in the join.
	c := decodeContent(t, `["a",{"text":"b"},{},"c"]`)
	if got := c.Flatten(); got != "a b  c" {
		t.Errorf("expected 'a b  c', got %q", got)
	}
}

func TestMessageContent_Flatten_MixedParts(t *testing.T) {
	c := decodeContent(t, `["plain", {"type":"text","text":"from object"}]`)
	if got := c.Flatten(); got != "plain from object" {
		t.Errorf("expected 'plain from object', got %q", got)
	}
}

func TestMessageContent_Flatten_NumberScalar(t *testing.T) {
	c := decodeContent(t, `42`)
	if got := c.Flatten(); got != "42" {
		t.Errorf("expected '42', got %q", got)
	}
}

func TestMessageContent_Flatten_BoolScalar(t *testing.T) {
	c := decodeContent(t, `true`)
	if got := c.Flatten(); got != "true" {
		t.Errorf("expected 'true', got %q", got)
	}
}

func TestMessageContent_Flatten_NumericTextField(t *testing.T) {
	c := decodeContent(t, `[{"text": 7}]`)
	if got := c.Flatten(); got != "7" {
		t.Errorf("expected '7', got %q", got)
	}
}

func TestMessageContent_Flatten_ObjectScalar(t *testing.T) {
	// A bare object (not inside a part array) coerces to compact JSON.
	c := decodeContent(t, `{"unexpected":"shape"}`)
	if got := c.Flatten(); got != `{"unexpected":"shape"}` {
		t.Errorf("expected compact JSON, got %q", got)
	}
}

func TestMessageContent_Flatten_Idempotent(t *testing.T) {
	c := decodeContent(t, `["Hello", {"text":"world"}]`)
	first := c.Flatten()
	second := TextContent(first).Flatten()
	if first != second {
		t.Errorf("flatten not idempotent: %q != %q", first, second)
	}
}

func TestMessageContent_IsEmpty(t *testing.T) {
	if !decodeContent(t, `null`).IsEmpty() {
		t.Error("expected null content to be empty")
	}
	if decodeContent(t, `"x"`).IsEmpty() {
		t.Error("expected non-blank content to be non-empty")
	}
}

func TestMessageContent_MarshalRoundTrip(t *testing.T) {
	raw := `["a",{"text":"b"}]`
	c := decodeContent(t, raw)
	out, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var again MessageContent
	if err := json.Unmarshal(out, &again); err != nil {
		t.Fatalf("re-decode failed: %v", err)
	}
	if again.Flatten() != c.Flatten() {
		t.Errorf("round trip changed flattened value: %q != %q", again.Flatten(), c.Flatten())
	}
}
