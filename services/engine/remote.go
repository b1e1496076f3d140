// Copyright (C) 2026 DocuChat Labs (oss@docuchat.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/docuchat-ai/docuchat/services/gateway/datatypes"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var remoteTracer = otel.Tracer("docuchat.engine.remote")

// =============================================================================
// Calling Shapes
// =============================================================================

// CallShape selects the wire shape used to invoke the remote chat engine.
//
// The engine service's request contract is not versioned: older deployments
// expect the positional JSON array body, newer ones the options object. The
// client cannot detect the deployed version up front, so it attempts the
// configured primary shape and falls back once to the other on invocation
// failure.
type CallShape string

const (
	// CallShapePositional sends the legacy array body:
	// [message, chatHistory, stream].
	CallShapePositional CallShape = "positional"

	// CallShapeOptions sends the object body:
	// {"message": ..., "chat_history": [...], "stream": ...}.
	CallShapeOptions CallShape = "options"
)

// Other returns the alternate shape used for the single fallback attempt.
func (s CallShape) Other() CallShape {
	if s == CallShapePositional {
		return CallShapeOptions
	}
	return CallShapePositional
}

// ParseCallShape converts a configuration string into a CallShape.
// Unrecognized values default to the options shape.
func ParseCallShape(s string) CallShape {
	if strings.EqualFold(s, string(CallShapePositional)) {
		return CallShapePositional
	}
	return CallShapeOptions
}

// =============================================================================
// Wire Types
// =============================================================================

// optionsChatRequest is the object-shaped request body.
type optionsChatRequest struct {
	Message     string                        `json:"message"`
	ChatHistory []datatypes.NormalizedMessage `json:"chat_history"`
	Stream      bool                          `json:"stream"`
	Model       string                        `json:"model,omitempty"`
}

// remoteChunk is one NDJSON line of a streaming engine response.
type remoteChunk struct {
	Token string `json:"token,omitempty"`
	Done  bool   `json:"done"`
	Error string `json:"error,omitempty"`
}

// remoteAnswer is the body of a non-streaming engine response.
type remoteAnswer struct {
	Answer string `json:"answer"`
	Error  string `json:"error,omitempty"`
}

// =============================================================================
// RemoteEngine
// =============================================================================

// RemoteEngine is an HTTP client for an external chat-engine service.
//
// # Description
//
// The engine service owns retrieval over the persisted document index,
// ranking, and model invocation; this client only speaks the three-argument
// chat contract (message, history, stream flag) and adapts the response.
//
// Invocation failures (transport errors and non-2xx statuses) trigger
// exactly one retry with the alternate calling shape. Failures after the
// stream has started are never retried; a retry at that point would
// duplicate already-delivered output.
//
// # Thread Safety
//
// Safe for concurrent use; all fields are read-only after construction.
type RemoteEngine struct {
	httpClient *http.Client
	baseURL    string
	model      string
	primary    CallShape
}

// NewRemoteEngine creates a client for the chat-engine service at baseURL.
//
// # Inputs
//
//   - baseURL: Engine service base URL, e.g. "http://docuchat-engine:8000".
//   - model: Model identifier forwarded to the engine (options shape only;
//     the legacy positional contract has no model slot).
//   - primary: Calling shape to attempt first.
func NewRemoteEngine(baseURL, model string, primary CallShape) *RemoteEngine {
	baseURL = strings.TrimSuffix(baseURL, "/")
	slog.Info("Initializing remote chat engine client",
		"base_url", baseURL,
		"model", model,
		"primary_shape", primary,
	)
	return &RemoteEngine{
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		baseURL:    baseURL,
		model:      model,
		primary:    primary,
	}
}

var _ ChatEngine = (*RemoteEngine)(nil)

// Chat implements ChatEngine.
func (e *RemoteEngine) Chat(ctx context.Context, message string, history []datatypes.NormalizedMessage) (string, error) {
	ctx, span := remoteTracer.Start(ctx, "RemoteEngine.Chat")
	defer span.End()

	resp, err := e.invokeWithFallback(ctx, message, history, false)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("failed to read chat engine response: %w", err)
	}
	var answer remoteAnswer
	if err := json.Unmarshal(body, &answer); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("failed to parse chat engine response: %w", err)
	}
	if answer.Error != "" {
		return "", fmt.Errorf("chat engine returned an error: %s", answer.Error)
	}
	return answer.Answer, nil
}

// ChatStream implements ChatEngine.
//
// The invocation (request plus status check) is subject to the calling-shape
// fallback; consumption of the already-open stream is not. An in-band error
// chunk is forwarded to the callback as a StreamEventError and then returned
// as an error.
func (e *RemoteEngine) ChatStream(ctx context.Context, message string, history []datatypes.NormalizedMessage, callback StreamCallback) error {
	ctx, span := remoteTracer.Start(ctx, "RemoteEngine.ChatStream")
	defer span.End()
	span.SetAttributes(
		attribute.Int("engine.history_length", len(history)),
		attribute.String("engine.primary_shape", string(e.primary)),
	)

	resp, err := e.invokeWithFallback(ctx, message, history, true)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "engine invocation failed")
		return err
	}
	defer resp.Body.Close()

	return e.consumeStream(resp.Body, callback)
}

// invokeWithFallback attempts the primary calling shape and retries exactly
// once with the alternate shape on failure. If both attempts fail, the
// original triggering error is what surfaces. No other retry occurs.
func (e *RemoteEngine) invokeWithFallback(ctx context.Context, message string, history []datatypes.NormalizedMessage, stream bool) (*http.Response, error) {
	resp, primaryErr := e.invoke(ctx, e.primary, message, history, stream)
	if primaryErr == nil {
		return resp, nil
	}
	// A canceled request means the client went away, not that the shape was
	// wrong. Don't burn a second engine call on it.
	if ctx.Err() != nil {
		return nil, primaryErr
	}

	alternate := e.primary.Other()
	slog.Warn("Chat engine invocation failed, retrying with alternate calling shape",
		"primary_shape", e.primary,
		"alternate_shape", alternate,
		"error", primaryErr,
	)
	resp, altErr := e.invoke(ctx, alternate, message, history, stream)
	if altErr != nil {
		return nil, fmt.Errorf("chat engine rejected both calling shapes: %w", primaryErr)
	}
	return resp, nil
}

// invoke performs a single engine call with the given shape and verifies the
// status code. The response body is left open for the caller on success.
func (e *RemoteEngine) invoke(ctx context.Context, shape CallShape, message string, history []datatypes.NormalizedMessage, stream bool) (*http.Response, error) {
	if history == nil {
		history = []datatypes.NormalizedMessage{}
	}

	var payload []byte
	var err error
	switch shape {
	case CallShapePositional:
		payload, err = json.Marshal([]any{message, history, stream})
	default:
		payload, err = json.Marshal(optionsChatRequest{
			Message:     message,
			ChatHistory: history,
			Stream:      stream,
			Model:       e.model,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat engine request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/chat", bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat engine request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, &InvocationError{Shape: shape, Message: err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		msg := strings.TrimSpace(string(body))
		var engineErr remoteAnswer
		if json.Unmarshal(body, &engineErr) == nil && engineErr.Error != "" {
			msg = engineErr.Error
		}
		return nil, &InvocationError{StatusCode: resp.StatusCode, Shape: shape, Message: msg}
	}
	return resp, nil
}

// consumeStream decodes the engine's NDJSON output and forwards tokens to
// the callback in production order. Empty token fields on non-final chunks
// are skipped; nothing is buffered or reordered.
func (e *RemoteEngine) consumeStream(body io.Reader, callback StreamCallback) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk remoteChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			return fmt.Errorf("failed to parse chat engine stream chunk: %w", err)
		}
		if chunk.Error != "" {
			// Forward so the transport layer can tell the client, then stop
			// pulling.
			_ = callback(StreamEvent{Type: StreamEventError, Err: chunk.Error})
			return fmt.Errorf("chat engine stream error: %s", chunk.Error)
		}
		if chunk.Token != "" {
			if err := callback(StreamEvent{Type: StreamEventToken, Content: chunk.Token}); err != nil {
				return err
			}
		}
		if chunk.Done {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("chat engine stream read failed: %w", err)
	}
	return nil
}
