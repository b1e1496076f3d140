// Copyright (C) 2026 DocuChat Labs (oss@docuchat.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"encoding/json"
	"strconv"
)

// =============================================================================
// Message Content Union
// =============================================================================

// MessageContent is the tagged union over the content shapes clients send:
// a plain string, an ordered array of parts, null, or any other JSON value.
//
// # Description
//
// OpenAI-compatible clients send either `"content": "text"` or
// `"content": [{"type":"text","text":"..."}, ...]`. Rather than branching on
// the runtime shape throughout the codebase, the union is decoded once at
// the boundary and flattened to the canonical string form via Flatten().
//
// # Flattening Rules
//
//   - string: returned unchanged.
//   - array: each part's textual contribution, joined by a single space.
//     A string part contributes itself; an object part contributes its
//     "text" field coerced to string if present, otherwise the empty string.
//   - null (or absent): empty string.
//   - anything else: its string representation.
//
// Note the join rule keeps empty contributions: ["a",{"text":"b"},{},"c"]
// flattens to "a b  c" (double space where the empty part sat).
//
// # Thread Safety
//
// MessageContent is immutable after decoding; safe for concurrent reads.
type MessageContent struct {
	value any
}

// TextContent wraps a plain string as a MessageContent. Mostly useful for
// constructing requests in tests and the CLI client.
func TextContent(s string) MessageContent {
	return MessageContent{value: s}
}

// PartsContent wraps a decoded part array as a MessageContent.
func PartsContent(parts ...any) MessageContent {
	return MessageContent{value: parts}
}

// UnmarshalJSON decodes any JSON value without rejecting unknown shapes.
// Malformed content never fails the request; everything coerces to a string
// at flatten time.
func (c *MessageContent) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	c.value = v
	return nil
}

// MarshalJSON re-encodes the original value so requests round-trip.
func (c MessageContent) MarshalJSON() ([]byte, error) {
	if c.value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(c.value)
}

// Flatten produces the canonical string form of the content.
//
// # Outputs
//
//   - string: The flattened content. Never fails; unknown shapes coerce to
//     their string representation and null yields "".
func (c MessageContent) Flatten() string {
	switch v := c.value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []any:
		return flattenParts(v)
	default:
		return stringifyScalar(v)
	}
}

// IsEmpty reports whether the flattened content is the empty string.
func (c MessageContent) IsEmpty() bool {
	return c.Flatten() == ""
}

// flattenParts joins the textual contribution of each part with a single
// space. Empty contributions are kept so part positions stay visible in the
// joined output.
func flattenParts(parts []any) string {
	if len(parts) == 0 {
		return ""
	}
	contributions := make([]string, len(parts))
	for i, part := range parts {
		switch p := part.(type) {
		case string:
			contributions[i] = p
		case map[string]any:
			if text, ok := p["text"]; ok {
				contributions[i] = stringifyScalar(text)
			}
		default:
			contributions[i] = stringifyScalar(p)
		}
	}
	joined := contributions[0]
	for _, c := range contributions[1:] {
		joined += " " + c
	}
	return joined
}

// stringifyScalar coerces a decoded JSON value to its string representation.
// Numbers print without a trailing ".0" for integral values; composites fall
// back to their compact JSON encoding.
func stringifyScalar(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		data, err := json.Marshal(s)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
