// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/tidwall/jsonc"
)

// DecodePayload decodes a single event payload. The input may be JSON or
// JSONC (comments and trailing commas are stripped first). The top-level
// value must be an object.
func DecodePayload(data []byte) (map[string]any, error) {
	value, err := decodeValue(data)
	if err != nil {
		return nil, err
	}
	payload, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("event payload must be a JSON object, got %s", jsonKind(value))
	}
	return payload, nil
}

// DecodePayloads decodes either one event object or an array of event
// objects, as found in sync timeline dumps and test fixtures.
func DecodePayloads(data []byte) ([]map[string]any, error) {
	value, err := decodeValue(data)
	if err != nil {
		return nil, err
	}

	switch typed := value.(type) {
	case map[string]any:
		return []map[string]any{typed}, nil
	case []any:
		payloads := make([]map[string]any, 0, len(typed))
		for index, element := range typed {
			payload, ok := element.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("event %d: must be a JSON object, got %s", index, jsonKind(element))
			}
			payloads = append(payloads, payload)
		}
		return payloads, nil
	default:
		return nil, fmt.Errorf("expected an event object or array of events, got %s", jsonKind(value))
	}
}

func decodeValue(data []byte) (any, error) {
	decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, fmt.Errorf("decoding event JSON: %w", err)
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding event JSON: trailing data after first value")
	}
	return value, nil
}

func jsonKind(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case json.Number:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", value)
	}
}
