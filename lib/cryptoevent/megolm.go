// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cryptoevent

import (
	"fmt"
	"time"

	"github.com/bureau-foundation/cryptoevents/lib/eventschema"
	"github.com/bureau-foundation/cryptoevents/lib/ref"
	"github.com/bureau-foundation/cryptoevents/lib/schema"
	"github.com/bureau-foundation/cryptoevents/messaging"
)

// MegolmEvent is a room event that could not be decrypted because the
// Megolm session key is missing.
//
// MegolmEvents can be kept for later. When a RoomKeyEvent with the same
// SessionID arrives, decryption can be retried; in the meantime
// KeyRequest builds a request for the key. A MegolmEvent never changes
// after construction, and a successful decryption produces a different
// event type rather than updating this one.
type MegolmEvent struct {
	EventID ref.EventID `json:"event_id"`
	Sender  ref.UserID  `json:"sender"`

	// ServerTimestamp is origin_server_ts: milliseconds since the Unix
	// epoch on the originating homeserver.
	ServerTimestamp int64 `json:"origin_server_ts"`

	// SenderKey is the curve25519 key of the device that created the
	// Megolm session.
	SenderKey string       `json:"sender_key"`
	DeviceID  ref.DeviceID `json:"device_id"`
	SessionID string       `json:"session_id"`

	Ciphertext string `json:"ciphertext"`
	Algorithm  string `json:"algorithm"`

	// RoomID is zero when the payload carried no room_id, as events
	// from some sync paths omit it. Its string form is then "".
	RoomID ref.RoomID `json:"room_id"`

	// TransactionID is set only when this device sent the event.
	TransactionID string `json:"transaction_id,omitempty"`
}

// Kind implements EncryptedEvent.
func (*MegolmEvent) Kind() Kind { return KindMegolm }

func (*MegolmEvent) isEncryptedEvent() {}

// Decrypted always returns false. A MegolmEvent is the undecrypted form.
func (*MegolmEvent) Decrypted() bool { return false }

// Verified always returns false. Verification needs the plaintext.
func (*MegolmEvent) Verified() bool { return false }

// Timestamp returns ServerTimestamp as a time.Time.
func (e *MegolmEvent) Timestamp() time.Time {
	return time.UnixMilli(e.ServerTimestamp)
}

// ParseMegolm validates payload against the Megolm schema and builds a
// MegolmEvent.
func (p *Parser) ParseMegolm(payload map[string]any) (*MegolmEvent, error) {
	const name = eventschema.RoomMegolmEncrypted
	if err := p.verify(name, payload); err != nil {
		return nil, fmt.Errorf("parsing megolm event: %w", err)
	}

	invalid := func(format string, args ...any) error {
		return fmt.Errorf("parsing megolm event: %w", eventschema.Invalid(name, format, args...))
	}

	eventID, err := ref.ParseEventID(stringField(payload, "event_id"))
	if err != nil {
		return nil, invalid("event_id: %v", err)
	}
	sender, err := ref.ParseUserID(stringField(payload, "sender"))
	if err != nil {
		return nil, invalid("sender: %v", err)
	}
	timestamp, err := integerField(payload, "origin_server_ts")
	if err != nil {
		return nil, invalid("%v", err)
	}

	var roomID ref.RoomID
	if raw := stringField(payload, "room_id"); raw != "" {
		roomID, err = ref.ParseRoomID(raw)
		if err != nil {
			return nil, invalid("room_id: %v", err)
		}
	}

	content := objectField(payload, "content")
	deviceID, err := ref.ParseDeviceID(stringField(content, "device_id"))
	if err != nil {
		return nil, invalid("content.device_id: %v", err)
	}

	return &MegolmEvent{
		EventID:         eventID,
		Sender:          sender,
		ServerTimestamp: timestamp,
		SenderKey:       stringField(content, "sender_key"),
		DeviceID:        deviceID,
		SessionID:       stringField(content, "session_id"),
		Ciphertext:      stringField(content, "ciphertext"),
		Algorithm:       stringField(content, "algorithm"),
		RoomID:          roomID,
		TransactionID:   transactionID(payload),
	}, nil
}

// KeyRequest builds an m.room_key_request to-device message asking all
// of userID's devices for this event's session key.
//
// requestID identifies the request for a later cancellation. When it is
// empty the session ID is used, so repeated requests for one session
// collapse into one at the receiving end.
func (e *MegolmEvent) KeyRequest(userID ref.UserID, requestingDevice ref.DeviceID, requestID string) messaging.ToDeviceMessage {
	return messaging.ToDeviceMessage{
		Type:           schema.EventTypeRoomKeyRequest,
		Recipient:      userID,
		DeviceSelector: messaging.AllDevices,
		Content: schema.RoomKeyRequestContent{
			Action:             schema.KeyRequestActionRequest,
			Body:               e.RequestedKeyInfo(),
			RequestID:          e.requestID(requestID),
			RequestingDeviceID: requestingDevice,
		},
	}
}

// KeyRequestCancellation builds the message that withdraws a request
// made by KeyRequest with the same arguments.
func (e *MegolmEvent) KeyRequestCancellation(userID ref.UserID, requestingDevice ref.DeviceID, requestID string) messaging.ToDeviceMessage {
	return messaging.ToDeviceMessage{
		Type:           schema.EventTypeRoomKeyRequest,
		Recipient:      userID,
		DeviceSelector: messaging.AllDevices,
		Content: schema.RoomKeyRequestContent{
			Action:             schema.KeyRequestActionCancellation,
			RequestID:          e.requestID(requestID),
			RequestingDeviceID: requestingDevice,
		},
	}
}

// RequestedKeyInfo describes the session this event needs.
func (e *MegolmEvent) RequestedKeyInfo() *schema.RequestedKeyInfo {
	return &schema.RequestedKeyInfo{
		Algorithm: e.Algorithm,
		SessionID: e.SessionID,
		RoomID:    e.RoomID,
		SenderKey: e.SenderKey,
	}
}

func (e *MegolmEvent) requestID(explicit string) string {
	if explicit != "" {
		return explicit
	}
	return e.SessionID
}
