// Copyright (C) 2026 DocuChat Labs (oss@docuchat.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import "fmt"

// InvocationError is returned when the remote chat engine rejects an
// invocation attempt before any output was streamed.
//
// # Fields
//
//   - StatusCode: HTTP status from the engine, or 0 for transport failures.
//   - Shape: The calling shape that was attempted.
//   - Message: The engine's error body when available, else the transport
//     error text.
type InvocationError struct {
	StatusCode int
	Shape      CallShape
	Message    string
}

func (e *InvocationError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("chat engine rejected %s invocation (status %d): %s", e.Shape, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("chat engine %s invocation failed: %s", e.Shape, e.Message)
}
