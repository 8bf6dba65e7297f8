// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cryptoevent

import (
	"fmt"

	"github.com/bureau-foundation/cryptoevents/lib/eventschema"
	"github.com/bureau-foundation/cryptoevents/lib/ref"
)

// RoomKeyEvent announces a Megolm session key, sent to this device by
// the session's creator.
//
// Sender and SenderKey come from the authenticated Olm channel the event
// arrived on, not from the payload: content of a to-device message must
// not be trusted to say who sent it.
type RoomKeyEvent struct {
	// Source is a copy of the payload with the top-level "keys" object
	// and content.session_key removed.
	Source map[string]any `json:"source"`

	Sender    ref.UserID `json:"sender"`
	SenderKey string     `json:"sender_key"`

	RoomID    ref.RoomID `json:"room_id"`
	SessionID string     `json:"session_id"`
	Algorithm string     `json:"algorithm"`
}

// ForwardedRoomKeyEvent carries a Megolm session key re-sent by a device
// other than the session creator. It has the fields of RoomKeyEvent but
// is a separate type: a forwarded key is only as trustworthy as every
// device in ForwardingChain, and trust decisions must be able to tell
// the two apart.
type ForwardedRoomKeyEvent struct {
	RoomKeyEvent

	// OriginalSenderKey is content.sender_key: the curve25519 key of the
	// session creator, as claimed by the forwarder.
	OriginalSenderKey string `json:"original_sender_key"`

	// SenderClaimedEd25519Key is the creator's ed25519 key, as claimed
	// by the forwarder.
	SenderClaimedEd25519Key string `json:"sender_claimed_ed25519_key"`

	// ForwardingChain lists the curve25519 keys of every device the key
	// passed through before reaching the forwarder, oldest first.
	ForwardingChain []string `json:"forwarding_curve25519_key_chain"`
}

// ParseRoomKey validates payload as an m.room_key event and builds a
// RoomKeyEvent. sender and senderKey identify the Olm session the event
// was decrypted from. The caller's payload is not modified.
func (p *Parser) ParseRoomKey(payload map[string]any, sender ref.UserID, senderKey string) (*RoomKeyEvent, error) {
	event, err := p.parseRoomKey(eventschema.RoomKeyEvent, payload, sender, senderKey)
	if err != nil {
		return nil, fmt.Errorf("parsing room key event: %w", err)
	}
	return event, nil
}

// ParseForwardedRoomKey validates payload as an m.forwarded_room_key
// event and builds a ForwardedRoomKeyEvent. sender and senderKey identify
// the forwarding device, not the session creator.
func (p *Parser) ParseForwardedRoomKey(payload map[string]any, sender ref.UserID, senderKey string) (*ForwardedRoomKeyEvent, error) {
	base, err := p.parseRoomKey(eventschema.ForwardedRoomKeyEvent, payload, sender, senderKey)
	if err != nil {
		return nil, fmt.Errorf("parsing forwarded room key event: %w", err)
	}

	content := objectField(base.Source, "content")
	var chain []string
	if links, ok := content["forwarding_curve25519_key_chain"].([]any); ok {
		chain = make([]string, 0, len(links))
		for _, link := range links {
			key, _ := link.(string)
			chain = append(chain, key)
		}
	}

	return &ForwardedRoomKeyEvent{
		RoomKeyEvent:            *base,
		OriginalSenderKey:       stringField(content, "sender_key"),
		SenderClaimedEd25519Key: stringField(content, "sender_claimed_ed25519_key"),
		ForwardingChain:         chain,
	}, nil
}

// parseRoomKey is shared by both room key variants: validate, copy,
// redact, extract.
func (p *Parser) parseRoomKey(name eventschema.Name, payload map[string]any, sender ref.UserID, senderKey string) (*RoomKeyEvent, error) {
	if sender.IsZero() {
		return nil, fmt.Errorf("sender is required")
	}
	if senderKey == "" {
		return nil, fmt.Errorf("sender key is required")
	}
	if err := p.verify(name, payload); err != nil {
		return nil, err
	}

	source := redactRoomKey(payload)
	content := objectField(source, "content")

	roomID, err := ref.ParseRoomID(stringField(content, "room_id"))
	if err != nil {
		return nil, eventschema.Invalid(name, "content.room_id: %v", err)
	}

	return &RoomKeyEvent{
		Source:    source,
		Sender:    sender,
		SenderKey: senderKey,
		RoomID:    roomID,
		SessionID: stringField(content, "session_id"),
		Algorithm: stringField(content, "algorithm"),
	}, nil
}

// redactRoomKey returns a deep copy of payload without the top-level
// "keys" object and without content.session_key.
func redactRoomKey(payload map[string]any) map[string]any {
	source := deepCopyObject(payload)
	delete(source, "keys")
	if content, ok := source["content"].(map[string]any); ok {
		delete(content, "session_key")
	}
	return source
}
