// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import "github.com/bureau-foundation/cryptoevents/lib/ref"

// Event types for end-to-end encryption.
const (
	// EventTypeRoomEncrypted wraps an encrypted room or to-device
	// event. content.algorithm selects Olm or Megolm.
	EventTypeRoomEncrypted ref.EventType = "m.room.encrypted"

	// EventTypeRoomKey announces a Megolm session key. Sent by the
	// session creator as an Olm-encrypted to-device event.
	EventTypeRoomKey ref.EventType = "m.room_key"

	// EventTypeForwardedRoomKey carries a Megolm session key that a
	// device other than the session creator re-sent, usually in answer
	// to a key request.
	EventTypeForwardedRoomKey ref.EventType = "m.forwarded_room_key"

	// EventTypeRoomKeyRequest asks other devices for a Megolm session
	// key, or cancels an earlier request. Sent as a to-device event.
	EventTypeRoomKeyRequest ref.EventType = "m.room_key_request"
)

// Encryption algorithms, as they appear in content.algorithm.
const (
	// AlgorithmOlm is pairwise device-to-device encryption.
	AlgorithmOlm = "m.olm.v1.curve25519-aes-sha2"

	// AlgorithmMegolm is group encryption for room messages.
	AlgorithmMegolm = "m.megolm.v1.aes-sha2"
)

// Key request actions, as they appear in content.action of an
// m.room_key_request event.
const (
	KeyRequestActionRequest      = "request"
	KeyRequestActionCancellation = "request_cancellation"
)

// RoomKeyRequestContent is the content of an m.room_key_request
// to-device event. Body is present for requests and absent for
// cancellations.
type RoomKeyRequestContent struct {
	Action             string            `json:"action"`
	Body               *RequestedKeyInfo `json:"body,omitempty"`
	RequestID          string            `json:"request_id"`
	RequestingDeviceID ref.DeviceID      `json:"requesting_device_id"`
}

// RequestedKeyInfo identifies the Megolm session being requested.
// RoomID marshals as "" when the room is unknown.
type RequestedKeyInfo struct {
	Algorithm string     `json:"algorithm"`
	SessionID string     `json:"session_id"`
	RoomID    ref.RoomID `json:"room_id"`
	SenderKey string     `json:"sender_key"`
}
