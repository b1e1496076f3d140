// Copyright (C) 2026 DocuChat Labs (oss@docuchat.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/docuchat-ai/docuchat/services/gateway/datatypes"
)

// =============================================================================
// Mock Server Helpers
// =============================================================================

// newOllamaServer returns a server that answers /api/chat with the given
// NDJSON lines. The handler decodes the request so tests can assert on the
// forwarded messages.
func newOllamaServer(t *testing.T, lines []string, gotReq *ollamaChatRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		body, _ := io.ReadAll(r.Body)
		if gotReq != nil {
			if err := json.Unmarshal(body, gotReq); err != nil {
				t.Errorf("failed to decode request body: %v", err)
			}
		}
		for _, line := range lines {
			fmt.Fprintln(w, line)
		}
	}))
}

func newTestOllamaEngine(baseURL string) *OllamaEngine {
	return &OllamaEngine{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		model:      "test-model",
	}
}

// =============================================================================
// Constructor Tests
// =============================================================================

func TestNewOllamaEngine_RequiresBaseURL(t *testing.T) {
	t.Parallel()

	if _, err := NewOllamaEngine("", "llama3.1"); err == nil {
		t.Error("expected error for empty base URL, got nil")
	}
}

func TestNewOllamaEngine_DefaultsModel(t *testing.T) {
	t.Parallel()

	eng, err := NewOllamaEngine("http://localhost:11434", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if eng.model == "" {
		t.Error("expected a default model to be set")
	}
}

// =============================================================================
// Streaming Tests
// =============================================================================

func TestOllamaChatStream_TokensInOrder(t *testing.T) {
	t.Parallel()

	var gotReq ollamaChatRequest
	server := newOllamaServer(t, []string{
		`{"message":{"role":"assistant","content":"Hello"},"done":false}`,
		`{"message":{"role":"assistant","content":" world"},"done":false}`,
		`{"message":{"role":"assistant","content":""},"done":true}`,
	}, &gotReq)
	defer server.Close()

	eng := newTestOllamaEngine(server.URL)

	var events []StreamEvent
	err := eng.ChatStream(context.Background(), "Hi", nil, func(event StreamEvent) error {
		events = append(events, event)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected streaming error: %v", err)
	}

	tokens := collectTokens(events)
	if len(tokens) != 2 || tokens[0] != "Hello" || tokens[1] != " world" {
		t.Errorf("unexpected token sequence: %v", tokens)
	}
	if !gotReq.Stream {
		t.Error("expected the stream flag to be set on the request")
	}
	if gotReq.Model != "test-model" {
		t.Errorf("expected model 'test-model' on the request, got %q", gotReq.Model)
	}
}

func TestOllamaChatStream_ForwardsHistoryInOrder(t *testing.T) {
	t.Parallel()

	var gotReq ollamaChatRequest
	server := newOllamaServer(t, []string{
		`{"message":{"role":"assistant","content":"ok"},"done":true}`,
	}, &gotReq)
	defer server.Close()

	eng := newTestOllamaEngine(server.URL)
	history := []datatypes.NormalizedMessage{
		{Role: datatypes.RoleSystem, Content: "be brief"},
		{Role: datatypes.RoleUser, Content: "first"},
		{Role: datatypes.RoleAssistant, Content: "reply"},
	}

	err := eng.ChatStream(context.Background(), "second", history, func(StreamEvent) error {
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected streaming error: %v", err)
	}

	if len(gotReq.Messages) != 4 {
		t.Fatalf("expected 4 forwarded messages, got %d", len(gotReq.Messages))
	}
	for i, m := range history {
		if gotReq.Messages[i].Role != string(m.Role) || gotReq.Messages[i].Content != m.Content {
			t.Errorf("history message %d mangled: %+v", i, gotReq.Messages[i])
		}
	}
	last := gotReq.Messages[3]
	if last.Role != "user" || last.Content != "second" {
		t.Errorf("expected the current turn last, got %+v", last)
	}
}

func TestOllamaChatStream_InBandErrorChunk(t *testing.T) {
	t.Parallel()

	server := newOllamaServer(t, []string{
		`{"message":{"role":"assistant","content":"partial"},"done":false}`,
		`{"error":"model crashed"}`,
	}, nil)
	defer server.Close()

	eng := newTestOllamaEngine(server.URL)

	var events []StreamEvent
	err := eng.ChatStream(context.Background(), "Hi", nil, func(event StreamEvent) error {
		events = append(events, event)
		return nil
	})
	if err == nil {
		t.Fatal("expected an error for the in-band error chunk, got nil")
	}
	if !strings.Contains(err.Error(), "model crashed") {
		t.Errorf("expected the engine error text to surface, got: %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("expected a token event and an error event, got %d events", len(events))
	}
	if events[0].Type != StreamEventToken || events[0].Content != "partial" {
		t.Errorf("unexpected first event: %+v", events[0])
	}
	if events[1].Type != StreamEventError || events[1].Err != "model crashed" {
		t.Errorf("expected the error forwarded to the callback, got %+v", events[1])
	}
}

func TestOllamaChatStream_CallbackAbortStopsStream(t *testing.T) {
	t.Parallel()

	server := newOllamaServer(t, []string{
		`{"message":{"role":"assistant","content":"a"},"done":false}`,
		`{"message":{"role":"assistant","content":"b"},"done":false}`,
		`{"message":{"role":"assistant","content":""},"done":true}`,
	}, nil)
	defer server.Close()

	eng := newTestOllamaEngine(server.URL)

	delivered := 0
	abort := fmt.Errorf("client went away")
	err := eng.ChatStream(context.Background(), "Hi", nil, func(StreamEvent) error {
		delivered++
		return abort
	})
	if err == nil || !strings.Contains(err.Error(), "client went away") {
		t.Fatalf("expected the callback error to propagate, got: %v", err)
	}
	if delivered != 1 {
		t.Errorf("expected the stream to stop after the first callback, delivered %d", delivered)
	}
}

// =============================================================================
// Error Path Tests
// =============================================================================

func TestOllamaChatStream_ModelNotFoundHint(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":"model \"test-model\" not found, try pulling it first"}`)
	}))
	defer server.Close()

	eng := newTestOllamaEngine(server.URL)

	err := eng.ChatStream(context.Background(), "Hi", nil, func(StreamEvent) error {
		t.Error("callback must not run when the invocation fails")
		return nil
	})
	if err == nil {
		t.Fatal("expected an error for the missing model, got nil")
	}
	if !strings.Contains(err.Error(), "ollama pull test-model") {
		t.Errorf("expected the actionable pull hint, got: %v", err)
	}
}

func TestOllamaChatStream_NonOKStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "overloaded")
	}))
	defer server.Close()

	eng := newTestOllamaEngine(server.URL)

	err := eng.ChatStream(context.Background(), "Hi", nil, func(StreamEvent) error {
		return nil
	})
	if err == nil {
		t.Fatal("expected an error for a 500 response, got nil")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("expected the status code in the error, got: %v", err)
	}
}

// =============================================================================
// Non-Streaming Tests
// =============================================================================

func TestOllamaChat_ParsesAnswer(t *testing.T) {
	t.Parallel()

	var gotReq ollamaChatRequest
	server := newOllamaServer(t, []string{
		`{"message":{"role":"assistant","content":"the answer"},"done":true}`,
	}, &gotReq)
	defer server.Close()

	eng := newTestOllamaEngine(server.URL)

	answer, err := eng.Chat(context.Background(), "Hi", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != "the answer" {
		t.Errorf("expected 'the answer', got %q", answer)
	}
	if gotReq.Stream {
		t.Error("expected the stream flag to be unset for Chat")
	}
}
