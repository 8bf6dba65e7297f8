// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cryptoevent

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/bureau-foundation/cryptoevents/lib/eventschema"
	"github.com/bureau-foundation/cryptoevents/lib/ref"
	"github.com/bureau-foundation/cryptoevents/lib/schema"
	"github.com/bureau-foundation/cryptoevents/messaging"
)

func parseMegolmFixture(t *testing.T, raw string) *MegolmEvent {
	t.Helper()
	event, err := NewParser(ParserConfig{}).ParseMegolm(decodeJSON(t, raw))
	if err != nil {
		t.Fatalf("ParseMegolm: %v", err)
	}
	return event
}

func TestParseMegolm(t *testing.T) {
	event := parseMegolmFixture(t, megolmPayload)

	if event.EventID != ref.MustParseEventID("$143273582443PhrSn:example.org") {
		t.Errorf("EventID = %q", event.EventID)
	}
	if event.Sender != ref.MustParseUserID("@example:example.org") {
		t.Errorf("Sender = %q", event.Sender)
	}
	if event.ServerTimestamp != 1432735824653 {
		t.Errorf("ServerTimestamp = %d, want 1432735824653", event.ServerTimestamp)
	}
	if event.Timestamp().UnixMilli() != 1432735824653 {
		t.Errorf("Timestamp() = %v", event.Timestamp())
	}
	if event.SenderKey != "IlRMeOPX2e0MurIyfWEucYBRVOEEUMrOHqn/8mLqMjA" {
		t.Errorf("SenderKey = %q", event.SenderKey)
	}
	if event.DeviceID != ref.MustParseDeviceID("RJYKSTBOIE") {
		t.Errorf("DeviceID = %q", event.DeviceID)
	}
	if event.SessionID != "X3lUlvLELLYxeTx4yOVu6UDpasGEVO0Jbu+QFnm0cKQ" {
		t.Errorf("SessionID = %q", event.SessionID)
	}
	if !strings.HasPrefix(event.Ciphertext, "AwgAEnACgAkLmt6qF84IK") {
		t.Errorf("Ciphertext = %q", event.Ciphertext)
	}
	if event.Algorithm != schema.AlgorithmMegolm {
		t.Errorf("Algorithm = %q", event.Algorithm)
	}
	if event.RoomID != ref.MustParseRoomID("!jEsUZKDJdhlrceRyVU:example.org") {
		t.Errorf("RoomID = %q", event.RoomID)
	}
	if event.TransactionID != "m1476648745605.19" {
		t.Errorf("TransactionID = %q", event.TransactionID)
	}
}

func TestParseMegolmFloatTimestamp(t *testing.T) {
	event, err := NewParser(ParserConfig{}).ParseMegolm(decodePlainJSON(t, megolmPayload))
	if err != nil {
		t.Fatalf("ParseMegolm: %v", err)
	}
	if event.ServerTimestamp != 1432735824653 {
		t.Errorf("ServerTimestamp = %d, want 1432735824653", event.ServerTimestamp)
	}
}

func TestParseMegolmNeverDecryptedOrVerified(t *testing.T) {
	// Extra fields claiming otherwise are ignored.
	payload := decodeJSON(t, megolmPayload)
	payload["decrypted"] = true
	payload["verified"] = true
	payload["content"].(map[string]any)["decrypted"] = true

	event, err := NewParser(ParserConfig{}).ParseMegolm(payload)
	if err != nil {
		t.Fatalf("ParseMegolm: %v", err)
	}
	if event.Decrypted() {
		t.Error("Decrypted() = true")
	}
	if event.Verified() {
		t.Error("Verified() = true")
	}
}

func TestParseMegolmMissingRoomID(t *testing.T) {
	payload := decodeJSON(t, megolmPayload)
	delete(payload, "room_id")

	event, err := NewParser(ParserConfig{}).ParseMegolm(payload)
	if err != nil {
		t.Fatalf("ParseMegolm: %v", err)
	}
	if !event.RoomID.IsZero() {
		t.Errorf("RoomID = %q, want zero", event.RoomID)
	}
	if event.RoomID.String() != "" {
		t.Errorf("RoomID.String() = %q, want empty string", event.RoomID.String())
	}

	// The key request still carries room_id, as an empty string.
	data, err := json.Marshal(event.KeyRequest(ref.MustParseUserID("@me:x"), ref.MustParseDeviceID("DEV"), "").Content)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(data), `"room_id":""`) {
		t.Errorf("key request content = %s, want empty room_id", data)
	}
}

func TestParseMegolmRejects(t *testing.T) {
	mutations := []struct {
		name   string
		mutate func(payload map[string]any)
	}{
		{"missing event_id", func(p map[string]any) { delete(p, "event_id") }},
		{"missing sender", func(p map[string]any) { delete(p, "sender") }},
		{"missing origin_server_ts", func(p map[string]any) { delete(p, "origin_server_ts") }},
		{"missing ciphertext", func(p map[string]any) { delete(p["content"].(map[string]any), "ciphertext") }},
		{"missing sender_key", func(p map[string]any) { delete(p["content"].(map[string]any), "sender_key") }},
		{"missing session_id", func(p map[string]any) { delete(p["content"].(map[string]any), "session_id") }},
		{"missing device_id", func(p map[string]any) { delete(p["content"].(map[string]any), "device_id") }},
		{"olm algorithm", func(p map[string]any) { p["content"].(map[string]any)["algorithm"] = schema.AlgorithmOlm }},
		{"malformed room_id", func(p map[string]any) { p["room_id"] = "#alias:example.org" }},
		{"event_id without sigil", func(p map[string]any) { p["event_id"] = "143273582443PhrSn" }},
	}

	parser := NewParser(ParserConfig{})
	for _, mutation := range mutations {
		t.Run(mutation.name, func(t *testing.T) {
			payload := decodeJSON(t, megolmPayload)
			mutation.mutate(payload)
			_, err := parser.ParseMegolm(payload)
			if !eventschema.IsValidationError(err) {
				t.Fatalf("ParseMegolm error = %v, want validation error", err)
			}
		})
	}
}

func TestKeyRequest(t *testing.T) {
	event := parseMegolmFixture(t, megolmPayload)
	user := ref.MustParseUserID("@example:example.org")
	device := ref.MustParseDeviceID("JLAFKJWSCS")

	message := event.KeyRequest(user, device, "")

	if message.Type != schema.EventTypeRoomKeyRequest {
		t.Errorf("Type = %q, want %q", message.Type, schema.EventTypeRoomKeyRequest)
	}
	if message.Recipient != user {
		t.Errorf("Recipient = %q, want %q", message.Recipient, user)
	}
	if message.DeviceSelector != messaging.AllDevices {
		t.Errorf("DeviceSelector = %q, want %q", message.DeviceSelector, messaging.AllDevices)
	}

	data, err := json.Marshal(message.Content)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var content map[string]any
	if err := json.Unmarshal(data, &content); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	want := map[string]any{
		"action": "request",
		"body": map[string]any{
			"algorithm":  "m.megolm.v1.aes-sha2",
			"session_id": "X3lUlvLELLYxeTx4yOVu6UDpasGEVO0Jbu+QFnm0cKQ",
			"room_id":    "!jEsUZKDJdhlrceRyVU:example.org",
			"sender_key": "IlRMeOPX2e0MurIyfWEucYBRVOEEUMrOHqn/8mLqMjA",
		},
		"request_id":           "X3lUlvLELLYxeTx4yOVu6UDpasGEVO0Jbu+QFnm0cKQ",
		"requesting_device_id": "JLAFKJWSCS",
	}
	if !reflect.DeepEqual(content, want) {
		t.Errorf("content = %v\nwant %v", content, want)
	}
}

func TestKeyRequestID(t *testing.T) {
	payload := decodeJSON(t, megolmPayload)
	payload["content"].(map[string]any)["session_id"] = "S1"
	event, err := NewParser(ParserConfig{}).ParseMegolm(payload)
	if err != nil {
		t.Fatalf("ParseMegolm: %v", err)
	}

	user := ref.MustParseUserID("@a:x")
	device := ref.MustParseDeviceID("DEV")

	tests := []struct {
		name      string
		requestID string
		want      string
	}{
		{"defaults to session id", "", "S1"},
		{"explicit", "R1", "R1"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			content := event.KeyRequest(user, device, test.requestID).Content.(schema.RoomKeyRequestContent)
			if content.RequestID != test.want {
				t.Errorf("RequestID = %q, want %q", content.RequestID, test.want)
			}
			cancellation := event.KeyRequestCancellation(user, device, test.requestID).Content.(schema.RoomKeyRequestContent)
			if cancellation.RequestID != test.want {
				t.Errorf("cancellation RequestID = %q, want %q", cancellation.RequestID, test.want)
			}
		})
	}
}

func TestKeyRequestCancellation(t *testing.T) {
	event := parseMegolmFixture(t, megolmPayload)
	message := event.KeyRequestCancellation(ref.MustParseUserID("@a:x"), ref.MustParseDeviceID("DEV"), "R1")

	content := message.Content.(schema.RoomKeyRequestContent)
	if content.Action != schema.KeyRequestActionCancellation {
		t.Errorf("Action = %q, want %q", content.Action, schema.KeyRequestActionCancellation)
	}
	if content.Body != nil {
		t.Errorf("Body = %+v, want nil", content.Body)
	}
	if message.DeviceSelector != messaging.AllDevices {
		t.Errorf("DeviceSelector = %q, want %q", message.DeviceSelector, messaging.AllDevices)
	}
}

// An outbound key request is itself a valid inbound key request for the
// peer that receives it.
func TestKeyRequestParsesAsInbound(t *testing.T) {
	event := parseMegolmFixture(t, megolmPayload)
	message := event.KeyRequest(ref.MustParseUserID("@a:x"), ref.MustParseDeviceID("DEV"), "R7")

	data, err := json.Marshal(map[string]any{
		"sender":  "@a:x",
		"type":    message.Type,
		"content": message.Content,
	})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	inbound, err := NewParser(ParserConfig{}).ParseKeyRequest(decodeJSON(t, string(data)))
	if err != nil {
		t.Fatalf("ParseKeyRequest: %v", err)
	}
	request, ok := inbound.(*RoomKeyRequest)
	if !ok {
		t.Fatalf("inbound = %T, want *RoomKeyRequest", inbound)
	}
	if request.SessionID != event.SessionID || request.RoomID != event.RoomID || request.RequestID != "R7" {
		t.Errorf("inbound request = %+v", request)
	}
}
