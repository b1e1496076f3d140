// Copyright (C) 2026 DocuChat Labs (oss@docuchat.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package engine defines the chat engine contract and its backends.
//
// The chat engine is an opaque collaborator: it owns retrieval, ranking and
// model invocation. The gateway hands it three logical arguments (the
// current turn, the normalized history, and a streaming flag) and adapts
// whatever comes back. Nothing in this package inspects engine internals
// beyond that contract.
package engine

import (
	"context"

	"github.com/docuchat-ai/docuchat/services/gateway/datatypes"
)

// =============================================================================
// Stream Event Types
// =============================================================================

// StreamEventType identifies the kind of event a streaming engine emits.
type StreamEventType string

const (
	// StreamEventToken carries a fragment of generated output text.
	StreamEventToken StreamEventType = "token"

	// StreamEventError carries an error raised by the engine mid-stream.
	StreamEventError StreamEventType = "error"
)

// StreamEvent is a single event produced by a streaming engine backend.
type StreamEvent struct {
	Type    StreamEventType
	Content string
	Err     string
}

// StreamCallback receives engine events in production order.
//
// # Description
//
// The callback is invoked once per event, in the order the engine produced
// them. Returning a non-nil error aborts the stream; backends stop pulling
// engine output and propagate the error (this is how client disconnects
// cancel generation).
//
// # Assumptions
//
//   - Called sequentially from a single goroutine per request.
type StreamCallback func(event StreamEvent) error

// =============================================================================
// Interface Definition
// =============================================================================

// ChatEngine is the contract every engine backend implements.
//
// # Description
//
// Both methods take the current turn and the normalized history. Chat blocks
// until the full answer is available; ChatStream delivers output
// incrementally through the callback and returns once the engine signals
// end-of-output.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use; HTTP handlers invoke
// engines from concurrent requests.
type ChatEngine interface {
	// Chat sends the conversation and returns the complete answer.
	//
	// # Inputs
	//
	//   - ctx: Cancellation, timeouts and tracing.
	//   - message: The user's current turn, already flattened.
	//   - history: Normalized prior messages in chronological order.
	//
	// # Outputs
	//
	//   - string: The engine's full answer.
	//   - error: Non-nil if the invocation failed.
	Chat(ctx context.Context, message string, history []datatypes.NormalizedMessage) (string, error)

	// ChatStream sends the conversation and streams the answer through the
	// callback.
	//
	// # Inputs
	//
	//   - ctx: Cancellation, timeouts and tracing.
	//   - message: The user's current turn, already flattened.
	//   - history: Normalized prior messages in chronological order.
	//   - callback: Receives events in production order. A callback error
	//     aborts the stream.
	//
	// # Outputs
	//
	//   - error: Non-nil if invocation failed, the stream broke, or the
	//     callback aborted. A nil return means the engine signaled a normal
	//     end-of-output.
	ChatStream(ctx context.Context, message string, history []datatypes.NormalizedMessage, callback StreamCallback) error
}
