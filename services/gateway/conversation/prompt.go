// Copyright (C) 2026 DocuChat Labs (oss@docuchat.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package conversation

import (
	"github.com/docuchat-ai/docuchat/services/gateway/datatypes"
)

// DocsOnlyRefusal is the fixed refusal string the engine must produce
// verbatim when the answer is not present in the indexed documents. The
// deployed document corpora are Spanish; the wording is part of the product
// contract and must not be translated or reworded.
const DocsOnlyRefusal = "No encontré esa información en el documento."

// DocsOnlyPrompt is the system message prepended to the history when the
// docs-only mode is enabled by configuration.
const DocsOnlyPrompt = "Answer using only the information contained in the supplied source documents. " +
	"Do not use outside knowledge. If the answer cannot be found in the documents, reply exactly: " +
	DocsOnlyRefusal

// WithDocsOnlyPrompt prepends the docs-only system message to the history.
//
// # Description
//
// This is a process-wide configuration toggle, not a per-request decision:
// the handler applies it to every request when the gateway runs in docs-only
// mode. The input slice is not modified.
//
// # Inputs
//
//   - history: Normalized history, possibly empty.
//
// # Outputs
//
//   - []datatypes.NormalizedMessage: New slice with the system message
//     first, followed by the original history in order.
func WithDocsOnlyPrompt(history []datatypes.NormalizedMessage) []datatypes.NormalizedMessage {
	augmented := make([]datatypes.NormalizedMessage, 0, len(history)+1)
	augmented = append(augmented, datatypes.NormalizedMessage{
		Role:    datatypes.RoleSystem,
		Content: DocsOnlyPrompt,
	})
	return append(augmented, history...)
}
