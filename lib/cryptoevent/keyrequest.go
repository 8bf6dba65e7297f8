// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cryptoevent

import (
	"fmt"

	"github.com/bureau-foundation/cryptoevents/lib/digest"
	"github.com/bureau-foundation/cryptoevents/lib/eventschema"
	"github.com/bureau-foundation/cryptoevents/lib/ref"
	"github.com/bureau-foundation/cryptoevents/lib/schema"
)

// KeyRequestEvent is an inbound m.room_key_request to-device event: a
// *RoomKeyRequest or a *RoomKeyRequestCancellation.
type KeyRequestEvent interface {
	isKeyRequestEvent()
}

// RoomKeyRequest is another device asking for a Megolm session key.
type RoomKeyRequest struct {
	Sender             ref.UserID   `json:"sender"`
	RequestingDeviceID ref.DeviceID `json:"requesting_device_id"`
	RequestID          string       `json:"request_id"`

	Algorithm string `json:"algorithm"`
	// RoomID is zero when the requester did not know the room.
	RoomID    ref.RoomID `json:"room_id"`
	SessionID string     `json:"session_id"`
	SenderKey string     `json:"sender_key"`
}

// RoomKeyRequestCancellation withdraws an earlier RoomKeyRequest.
type RoomKeyRequestCancellation struct {
	Sender             ref.UserID   `json:"sender"`
	RequestingDeviceID ref.DeviceID `json:"requesting_device_id"`
	RequestID          string       `json:"request_id"`
}

func (*RoomKeyRequest) isKeyRequestEvent()             {}
func (*RoomKeyRequestCancellation) isKeyRequestEvent() {}

// Cancels reports whether c withdraws request r: same sender, same
// requesting device, same request ID.
func (c *RoomKeyRequestCancellation) Cancels(r *RoomKeyRequest) bool {
	return c.Sender == r.Sender &&
		c.RequestingDeviceID == r.RequestingDeviceID &&
		c.RequestID == r.RequestID
}

// keyRequestActions maps content.action to the schema for that action.
var keyRequestActions = map[string]eventschema.Name{
	schema.KeyRequestActionRequest:      eventschema.RoomKeyRequest,
	schema.KeyRequestActionCancellation: eventschema.RoomKeyRequestCancellation,
}

// ParseKeyRequest validates payload as an m.room_key_request event and
// dispatches on content.action. An unrecognised action returns
// (nil, nil), mirroring ParseEncrypted's handling of unknown algorithms.
func (p *Parser) ParseKeyRequest(payload map[string]any) (KeyRequestEvent, error) {
	if err := p.verify(eventschema.KeyRequestEnvelope, payload); err != nil {
		return nil, fmt.Errorf("parsing key request: %w", err)
	}

	content := objectField(payload, "content")
	action := stringField(content, "action")
	name, known := keyRequestActions[action]
	if !known {
		p.logger.Debug("skipping key request with unknown action",
			"action", action,
			"payload", digest.LogValue(payload),
		)
		return nil, nil
	}
	if err := p.verify(name, payload); err != nil {
		return nil, fmt.Errorf("parsing key request: %w", err)
	}

	invalid := func(format string, args ...any) error {
		return fmt.Errorf("parsing key request: %w", eventschema.Invalid(name, format, args...))
	}

	sender, err := ref.ParseUserID(stringField(payload, "sender"))
	if err != nil {
		return nil, invalid("sender: %v", err)
	}
	device, err := ref.ParseDeviceID(stringField(content, "requesting_device_id"))
	if err != nil {
		return nil, invalid("content.requesting_device_id: %v", err)
	}
	requestID := stringField(content, "request_id")

	if name == eventschema.RoomKeyRequestCancellation {
		return &RoomKeyRequestCancellation{
			Sender:             sender,
			RequestingDeviceID: device,
			RequestID:          requestID,
		}, nil
	}

	body := objectField(content, "body")
	var roomID ref.RoomID
	if raw := stringField(body, "room_id"); raw != "" {
		roomID, err = ref.ParseRoomID(raw)
		if err != nil {
			return nil, invalid("content.body.room_id: %v", err)
		}
	}

	return &RoomKeyRequest{
		Sender:             sender,
		RequestingDeviceID: device,
		RequestID:          requestID,
		Algorithm:          stringField(body, "algorithm"),
		RoomID:             roomID,
		SessionID:          stringField(body, "session_id"),
		SenderKey:          stringField(body, "sender_key"),
	}, nil
}
