// Copyright (C) 2026 DocuChat Labs (oss@docuchat.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package conversation normalizes incoming chat conversations into the
// canonical form the chat engine consumes.
//
// Normalization is deliberately total: no content shape fails, everything
// coerces to a string. The only lossy step is the role filter, which drops
// messages whose role falls outside the supported set.
package conversation

import (
	"github.com/docuchat-ai/docuchat/services/gateway/datatypes"
)

// Normalize converts a raw message list into the canonical ordered sequence
// of role/content pairs.
//
// # Description
//
// Each message's content is flattened to a string (see
// datatypes.MessageContent.Flatten) and messages whose role is outside the
// supported set {system, user, assistant, tool} are dropped silently.
// Relative order of the retained messages is preserved. Normalization is
// idempotent: normalizing already-normalized input yields the same values.
//
// # Inputs
//
//   - msgs: Raw incoming messages in chronological order.
//
// # Outputs
//
//   - []datatypes.NormalizedMessage: Retained messages, flattened, in the
//     original order. Never nil; an empty input yields an empty slice.
func Normalize(msgs []datatypes.Message) []datatypes.NormalizedMessage {
	normalized := make([]datatypes.NormalizedMessage, 0, len(msgs))
	for _, m := range msgs {
		role := datatypes.Role(m.Role)
		if !role.Supported() {
			continue
		}
		normalized = append(normalized, datatypes.NormalizedMessage{
			Role:    role,
			Content: m.Content.Flatten(),
		})
	}
	return normalized
}

// Split separates the trailing user message (the new turn) from the
// preceding history.
//
// # Description
//
// The caller guarantees the validated precondition: msgs is non-empty and
// the last element's role is "user" (datatypes.ChatRequest.
// ValidateConversation enforces this before any processing). Split
// normalizes everything before the last element into history and flattens
// the last element's content into the current turn string.
//
// # Inputs
//
//   - msgs: The full, validated conversation.
//
// # Outputs
//
//   - history: Normalized messages excluding the last element.
//   - currentTurn: Flattened content of the last element.
func Split(msgs []datatypes.Message) (history []datatypes.NormalizedMessage, currentTurn string) {
	last := msgs[len(msgs)-1]
	return Normalize(msgs[:len(msgs)-1]), last.Content.Flatten()
}
