// Copyright (C) 2026 DocuChat Labs (oss@docuchat.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers contains the gin HTTP handlers for the gateway's chat
// surface: SSE streaming, websocket streaming, and health.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/docuchat-ai/docuchat/services/engine"
	"github.com/docuchat-ai/docuchat/services/gateway/conversation"
	"github.com/docuchat-ai/docuchat/services/gateway/datatypes"
	"github.com/docuchat-ai/docuchat/services/gateway/observability"
)

// heartbeatInterval is how often keepalive comments are sent during
// streaming. 15s stays under common load balancer idle timeouts (60s).
const heartbeatInterval = 15 * time.Second

// =============================================================================
// Interface Definition
// =============================================================================

// StreamingChatHandler defines the gateway's streaming chat endpoints.
type StreamingChatHandler interface {
	// HandleChatStream processes a chat conversation and streams the answer
	// over SSE.
	HandleChatStream(c *gin.Context)
}

// =============================================================================
// Struct Definition
// =============================================================================

// streamingChatHandler implements StreamingChatHandler.
//
// # Fields
//
//   - chatEngine: Backend that produces answers. Must not be nil.
//   - docsOnly: When true, every conversation is prefixed with the
//     docs-only system prompt before reaching the engine.
//   - tracer: OpenTelemetry tracer for handler spans.
type streamingChatHandler struct {
	chatEngine engine.ChatEngine
	docsOnly   bool
	tracer     trace.Tracer
}

// =============================================================================
// Constructor
// =============================================================================

// NewStreamingChatHandler creates a StreamingChatHandler.
//
// # Inputs
//
//   - chatEngine: Engine backend with streaming support. Must not be nil;
//     a nil engine is a programming error and panics.
//   - docsOnly: Whether to enforce document-grounded answers on every
//     request.
//
// # Outputs
//
//   - StreamingChatHandler: Ready for use with the Gin router.
//
// # Examples
//
//	handler := handlers.NewStreamingChatHandler(chatEngine, cfg.DocsOnly)
//	router.POST("/v1/chat/stream", handler.HandleChatStream)
func NewStreamingChatHandler(chatEngine engine.ChatEngine, docsOnly bool) StreamingChatHandler {
	if chatEngine == nil {
		panic("NewStreamingChatHandler: chatEngine must not be nil")
	}
	return &streamingChatHandler{
		chatEngine: chatEngine,
		docsOnly:   docsOnly,
		tracer:     otel.Tracer("docuchat.gateway.handlers.chat"),
	}
}

// =============================================================================
// Handler Methods
// =============================================================================

// HandleChatStream processes chat requests with SSE streaming.
//
// # Description
//
// Handles POST /v1/chat/stream requests. The flow is:
//  1. Parse the request body
//  2. Validate structure and conversation shape
//  3. Split the conversation into history and current turn
//  4. Optionally prepend the docs-only system prompt
//  5. Invoke the engine and stream tokens as SSE events
//  6. Emit the done event
//
// The SSE response is opened lazily, on the first engine event. An engine
// failure before any output therefore still yields a plain HTTP error
// response; a failure after streaming has begun is reported as a single
// error event followed by stream termination.
//
// # Inputs
//
//   - c: Gin context containing the HTTP request.
//
// Request Body (datatypes.ChatRequest):
//   - messages: Required. Array of message objects (1-100) with role and
//     content. Content may be a string or an array of parts. The last
//     message must be from the user.
//
// # Outputs
//
// SSE Events:
//   - event: status, data: {"type":"status","message":"Generating response..."}
//   - event: token, data: {"type":"token","content":"Hello"}
//   - event: done, data: {"type":"done","session_id":"..."}
//   - event: error, data: {"type":"error","error":"..."}
//
// HTTP Status (before streaming starts):
//   - 400 Bad Request: Validation failure or malformed conversation
//   - 500 Internal Server Error: Unparseable body, SSE setup failure, or
//     engine failure before the first event
//
// # Limitations
//
//   - Errors during streaming are sent as events, not HTTP errors
//
// # Assumptions
//
//   - Client supports SSE
func (h *streamingChatHandler) HandleChatStream(c *gin.Context) {
	startTime := time.Now()
	endpoint := observability.EndpointChatStream

	ctx, span := h.tracer.Start(c.Request.Context(), "HandleChatStream")
	defer span.End()

	// Track active stream (for metrics)
	if m := observability.DefaultMetrics; m != nil {
		m.StreamStarted(endpoint)
		defer m.StreamEnded(endpoint)
	}

	success := false
	defer func() {
		if m := observability.DefaultMetrics; m != nil {
			duration := time.Since(startTime).Seconds()
			m.RecordRequest(endpoint, success)
			m.RecordStreamDuration(endpoint, duration, success)
		}
	}()

	// Step 1: Parse request body. An unparseable body is treated as a
	// processing failure, not a client validation error: validation applies
	// to decoded conversations only.
	var req datatypes.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request body")
		slog.Error("Failed to parse streaming chat request", "error", err)
		if m := observability.DefaultMetrics; m != nil {
			m.RecordError(endpoint, observability.ErrorCodeInternal)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": sanitizeErrorForClient(err.Error())})
		return
	}

	span.SetAttributes(attribute.Int("request.message_count", len(req.Messages)))

	// Step 2: Validate structural limits
	if err := req.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		slog.Error("Streaming request validation failed", "error", err)
		if m := observability.DefaultMetrics; m != nil {
			m.RecordError(endpoint, observability.ErrorCodeValidation)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": datatypes.ValidationFailedMessage})
		return
	}

	// Step 3: Validate conversation shape (non-empty, user speaks last)
	if err := req.ValidateConversation(); err != nil {
		span.SetStatus(codes.Error, "malformed conversation")
		slog.Warn("Rejected streaming chat: malformed conversation",
			"message_count", len(req.Messages),
		)
		if m := observability.DefaultMetrics; m != nil {
			m.RecordError(endpoint, observability.ErrorCodeValidation)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": datatypes.ConversationRequiredMessage})
		return
	}

	// Step 4: Split into history and current turn
	history, currentTurn := conversation.Split(req.Messages)
	if h.docsOnly {
		history = conversation.WithDocsOnlyPrompt(history)
	}

	requestID := uuid.New().String()
	span.SetAttributes(attribute.String("request.id", requestID))

	// Step 5: Stream from the engine. The SSE response is opened on the
	// first event so that invocation failures (including the calling-shape
	// fallback exhausting both shapes) can still produce an HTTP error.
	var sw SSEWriter
	heartbeatDone := make(chan struct{})

	ensureStream := func() error {
		if sw != nil {
			return nil
		}
		SetSSEHeaders(c.Writer)
		writer, err := NewSSEWriter(c.Writer)
		if err != nil {
			return err
		}
		sw = writer
		if err := sw.WriteStatus("Generating response..."); err != nil {
			return err
		}
		go h.runHeartbeat(ctx, sw, endpoint, heartbeatDone)
		return nil
	}

	var tokenCount int32
	firstTokenTime := time.Time{}
	errorEventSent := false

	callback := func(event engine.StreamEvent) error {
		// Explicit context cancellation check (cost control). Stop pulling
		// engine output immediately if the client disconnected.
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		switch event.Type {
		case engine.StreamEventToken:
			if err := ensureStream(); err != nil {
				return err
			}
			if firstTokenTime.IsZero() {
				firstTokenTime = time.Now()
			}
			atomic.AddInt32(&tokenCount, 1)
			return sw.WriteToken(event.Content)

		case engine.StreamEventError:
			if err := ensureStream(); err != nil {
				return err
			}
			errorEventSent = true
			return sw.WriteError(sanitizeErrorForClient(event.Err))
		}
		return nil
	}

	streamErr := h.chatEngine.ChatStream(ctx, currentTurn, history, callback)

	// Stop heartbeat
	close(heartbeatDone)

	if streamErr != nil {
		span.RecordError(streamErr)
		span.SetStatus(codes.Error, "engine streaming failed")
		span.SetAttributes(attribute.Int("stream.token_count", int(atomic.LoadInt32(&tokenCount))))
		slog.Error("Engine streaming failed",
			"error", streamErr,
			"requestId", requestID,
			"tokenCount", atomic.LoadInt32(&tokenCount),
		)

		if errors.Is(streamErr, context.Canceled) {
			if m := observability.DefaultMetrics; m != nil {
				m.RecordError(endpoint, observability.ErrorCodeClientDisconnect)
				m.RecordClientDisconnect(endpoint)
			}
			return
		}
		if m := observability.DefaultMetrics; m != nil {
			m.RecordError(endpoint, observability.ErrorCodeEngine)
		}

		if sw == nil {
			// Nothing was streamed yet; a plain HTTP error is still possible.
			c.JSON(http.StatusInternalServerError, gin.H{"error": sanitizeErrorForClient(streamErr.Error())})
			return
		}
		if !errorEventSent {
			_ = sw.WriteError(sanitizeErrorForClient(streamErr.Error()))
		}
		return
	}

	// Record time to first token
	if !firstTokenTime.IsZero() {
		ttft := firstTokenTime.Sub(startTime).Seconds()
		span.SetAttributes(attribute.Float64("stream.time_to_first_token_seconds", ttft))
		if m := observability.DefaultMetrics; m != nil {
			m.RecordTimeToFirstToken(endpoint, ttft)
		}
	}

	span.SetAttributes(attribute.Int("stream.token_count", int(atomic.LoadInt32(&tokenCount))))
	if m := observability.DefaultMetrics; m != nil {
		m.RecordTokens(endpoint, int(atomic.LoadInt32(&tokenCount)))
	}

	// Step 6: Emit done event. An engine that produced no tokens still
	// completes the stream; open it now if needed.
	if err := ensureStream(); err != nil {
		span.RecordError(err)
		slog.Error("Failed to open SSE stream for done event",
			"error", err,
			"requestId", requestID,
		)
		if m := observability.DefaultMetrics; m != nil {
			m.RecordError(endpoint, observability.ErrorCodeInternal)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Streaming not supported"})
		return
	}
	if err := sw.WriteDone(requestID); err != nil {
		span.RecordError(err)
		slog.Error("Failed to write done event",
			"error", err,
			"requestId", requestID,
		)
		return
	}

	success = true
	span.SetStatus(codes.Ok, "stream completed successfully")
}

// =============================================================================
// Helpers
// =============================================================================

// runHeartbeat sends keepalive comments until the stream finishes.
func (h *streamingChatHandler) runHeartbeat(
	ctx context.Context,
	writer SSEWriter,
	endpoint observability.Endpoint,
	done <-chan struct{},
) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := writer.WriteKeepAlive(); err != nil {
				slog.Debug("Failed to write keepalive", "error", err)
				return
			}
			if m := observability.DefaultMetrics; m != nil {
				m.RecordKeepAlive(endpoint)
			}
		}
	}
}

// sanitizeErrorForClient maps internal errors to a generic client message.
// Full errors are logged internally; clients never see internals.
func sanitizeErrorForClient(errMsg string) string {
	slog.Debug("Sanitizing error for client", "original_error", errMsg)
	return "An error occurred while processing your request"
}
