// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cryptoevent

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"

	"github.com/bureau-foundation/cryptoevents/lib/digest"
	"github.com/bureau-foundation/cryptoevents/lib/eventschema"
)

// ParserConfig holds the dependencies of a Parser.
type ParserConfig struct {
	// Verifier checks payloads against named schemas. If nil, the
	// embedded schemas (eventschema.Default) are used.
	Verifier eventschema.Verifier

	// Logger receives debug records for rejected and skipped payloads.
	// Payload content is never logged, only its fingerprint. If nil, a
	// no-op logger is used.
	Logger *slog.Logger
}

// Parser builds typed events from decoded payloads. A Parser holds no
// mutable state and is safe for concurrent use.
type Parser struct {
	verifier eventschema.Verifier
	logger   *slog.Logger
}

// NewParser creates a Parser.
func NewParser(config ParserConfig) *Parser {
	verifier := config.Verifier
	if verifier == nil {
		verifier = eventschema.Default()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Parser{verifier: verifier, logger: logger}
}

// verify runs the named schema and logs the rejection.
func (p *Parser) verify(name eventschema.Name, payload map[string]any) error {
	if err := p.verifier.Verify(name, payload); err != nil {
		p.logger.Debug("payload rejected",
			"schema", name,
			"payload", digest.LogValue(payload),
			"error", err,
		)
		return err
	}
	return nil
}

// transactionID returns unsigned.transaction_id, or "" when the payload
// has no unsigned block or the block has no transaction ID.
func transactionID(payload map[string]any) string {
	unsigned, ok := payload["unsigned"].(map[string]any)
	if !ok {
		return ""
	}
	return stringField(unsigned, "transaction_id")
}

func stringField(object map[string]any, key string) string {
	value, _ := object[key].(string)
	return value
}

func objectField(object map[string]any, key string) map[string]any {
	value, _ := object[key].(map[string]any)
	return value
}

// integerField reads a JSON integer that may have been decoded as
// float64 (plain encoding/json), json.Number (UseNumber), or a Go
// integer (CBOR or hand-built payloads).
func integerField(object map[string]any, key string) (int64, error) {
	switch value := object[key].(type) {
	case json.Number:
		return value.Int64()
	case float64:
		if value != math.Trunc(value) || value > math.MaxInt64 || value < math.MinInt64 {
			return 0, fmt.Errorf("%s: %v is not an integer", key, value)
		}
		return int64(value), nil
	case int:
		return int64(value), nil
	case int64:
		return value, nil
	case uint64:
		if value > math.MaxInt64 {
			return 0, fmt.Errorf("%s: %d overflows int64", key, value)
		}
		return int64(value), nil
	default:
		return 0, fmt.Errorf("%s: expected an integer, got %T", key, value)
	}
}

// deepCopy copies decoded JSON containers (objects and arrays)
// recursively. Scalars are immutable and shared.
func deepCopy(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return deepCopyObject(typed)
	case []any:
		copied := make([]any, len(typed))
		for index, element := range typed {
			copied[index] = deepCopy(element)
		}
		return copied
	default:
		return value
	}
}

func deepCopyObject(object map[string]any) map[string]any {
	if object == nil {
		return nil
	}
	copied := make(map[string]any, len(object))
	for key, value := range object {
		copied[key] = deepCopy(value)
	}
	return copied
}
