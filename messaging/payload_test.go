// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDecodePayloadJSONC(t *testing.T) {
	payload, err := DecodePayload([]byte(`{
		// Olm event captured from a sync response.
		"sender": "@a:x",
		"origin_server_ts": 1432735824653,
		"content": {"algorithm": "m.olm.v1.curve25519-aes-sha2",},
	}`))
	if err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if payload["sender"] != "@a:x" {
		t.Errorf("sender = %v, want @a:x", payload["sender"])
	}
	timestamp, ok := payload["origin_server_ts"].(json.Number)
	if !ok {
		t.Fatalf("origin_server_ts = %T, want json.Number", payload["origin_server_ts"])
	}
	if timestamp.String() != "1432735824653" {
		t.Errorf("origin_server_ts = %s, want 1432735824653", timestamp)
	}
}

func TestDecodePayloadErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"array", `[{}]`, "got array"},
		{"string", `"event"`, "got string"},
		{"malformed", `{"sender":`, "decoding event JSON"},
		{"trailing", `{} {}`, "trailing data"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := DecodePayload([]byte(test.input))
			if err == nil {
				t.Fatal("DecodePayload succeeded, want error")
			}
			if !strings.Contains(err.Error(), test.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, test.wantErr)
			}
		})
	}
}

func TestDecodePayloads(t *testing.T) {
	single, err := DecodePayloads([]byte(`{"sender":"@a:x"}`))
	if err != nil {
		t.Fatalf("DecodePayloads(object): %v", err)
	}
	if len(single) != 1 {
		t.Errorf("len = %d, want 1", len(single))
	}

	many, err := DecodePayloads([]byte(`[{"sender":"@a:x"},{"sender":"@b:x"}]`))
	if err != nil {
		t.Fatalf("DecodePayloads(array): %v", err)
	}
	if len(many) != 2 || many[1]["sender"] != "@b:x" {
		t.Errorf("payloads = %v", many)
	}

	if _, err := DecodePayloads([]byte(`[{"sender":"@a:x"}, 3]`)); err == nil {
		t.Error("DecodePayloads accepted a non-object array element")
	}
}
