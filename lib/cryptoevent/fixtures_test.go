// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cryptoevent

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/bureau-foundation/cryptoevents/lib/eventschema"
	"github.com/bureau-foundation/cryptoevents/messaging"
)

const (
	olmPayload = `{
		"sender": "@a:x",
		"type": "m.room.encrypted",
		"content": {
			"algorithm": "m.olm.v1.curve25519-aes-sha2",
			"ciphertext": "CT",
			"sender_key": "SK"
		}
	}`

	megolmPayload = `{
		"event_id": "$143273582443PhrSn:example.org",
		"sender": "@example:example.org",
		"origin_server_ts": 1432735824653,
		"room_id": "!jEsUZKDJdhlrceRyVU:example.org",
		"type": "m.room.encrypted",
		"unsigned": {"age": 1234, "transaction_id": "m1476648745605.19"},
		"content": {
			"algorithm": "m.megolm.v1.aes-sha2",
			"ciphertext": "AwgAEnACgAkLmt6qF84IK++J7UDH2Za1YVchHyprqTqsg2yyOwAtHaZTwyNg37afzg8f3r9IsN9r4RNFg7MaZencUJe4qvELiDiopUjy5wYVDAtqdBzer5bWRD9ldxp1FLgbQvBcjkkywYjCsmsq6+hArLd9oAQZnGKn/qLsK+5uNX3PaWzDRC9wZPQvWYYPCTov3jCwXKTPsLKIiTrcCXDqMvnn8m+T3zF/I2zqxg158tnUwWWIw51UO",
			"device_id": "RJYKSTBOIE",
			"sender_key": "IlRMeOPX2e0MurIyfWEucYBRVOEEUMrOHqn/8mLqMjA",
			"session_id": "X3lUlvLELLYxeTx4yOVu6UDpasGEVO0Jbu+QFnm0cKQ"
		}
	}`

	roomKeyPayload = `{
		"sender": "@alice:example.org",
		"type": "m.room_key",
		"keys": {"ed25519": "4VjV3OhFUxWFAcO5YOaQVmTIn29JdRmtNh9iAxoyhkc"},
		"content": {
			"algorithm": "m.megolm.v1.aes-sha2",
			"room_id": "!Cuyf34gef24t:localhost",
			"session_id": "X3lUlvLELLYxeTx4yOVu6UDpasGEVO0Jbu+QFnm0cKQ",
			"session_key": "AgAAAADxKHa9uFxcXzwYoNueL5Xqi69IkD4sni8LlfJL7qNBEY"
		}
	}`

	forwardedRoomKeyPayload = `{
		"sender": "@alice:example.org",
		"type": "m.forwarded_room_key",
		"content": {
			"algorithm": "m.megolm.v1.aes-sha2",
			"room_id": "!Cuyf34gef24t:localhost",
			"session_id": "X3lUlvLELLYxeTx4yOVu6UDpasGEVO0Jbu+QFnm0cKQ",
			"session_key": "AgAAAADxKHa9uFxcXzwYoNueL5Xqi69IkD4sni8LlfJL7qNBEY",
			"sender_key": "RF3s+E7RkTQTGF2d8Deol0FkQvgII2aJDf3/Jp5mxVU",
			"sender_claimed_ed25519_key": "aj40p+aw64yPIdsxoog8Jhd0ZcEeUUlVxJ1nUAkFy70",
			"forwarding_curve25519_key_chain": ["hPQNcabIABgGnx3/ACv/jmMmiQHoeFfuLB17tzWp6Hw"]
		}
	}`
)

// decodeJSON decodes with json.Number, as messaging.DecodePayload does.
func decodeJSON(t *testing.T, raw string) map[string]any {
	t.Helper()
	payload, err := messaging.DecodePayload([]byte(raw))
	if err != nil {
		t.Fatalf("decoding test payload: %v", err)
	}
	return payload
}

// decodePlainJSON decodes with plain encoding/json, so numbers are
// float64.
func decodePlainJSON(t *testing.T, raw string) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("decoding test payload: %v", err)
	}
	return payload
}

// recordingVerifier wraps the default registry and records which
// schemas were consulted.
type recordingVerifier struct {
	mu    sync.Mutex
	names []eventschema.Name
}

func (r *recordingVerifier) Verify(name eventschema.Name, payload any) error {
	r.mu.Lock()
	r.names = append(r.names, name)
	r.mu.Unlock()
	return eventschema.Default().Verify(name, payload)
}

func (r *recordingVerifier) consulted(name eventschema.Name) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, consulted := range r.names {
		if consulted == name {
			return true
		}
	}
	return false
}
