// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cryptoevent

import (
	"fmt"

	"github.com/bureau-foundation/cryptoevents/lib/eventschema"
	"github.com/bureau-foundation/cryptoevents/lib/ref"
)

// OlmEvent is an undecrypted Olm event. Olm carries pairwise messages
// between two devices, mostly the room keys that set up Megolm sessions.
// Applications normally never see one: decrypting it yields an event of
// another type.
type OlmEvent struct {
	// Sender is the user who sent the event.
	Sender ref.UserID `json:"sender"`

	// SenderKey is the curve25519 identity key of the sending device.
	SenderKey string `json:"sender_key"`

	// Ciphertext is passed through uninterpreted: a string, or an
	// object keyed by recipient curve25519 key. It is a deep copy of the
	// payload's value.
	Ciphertext any `json:"ciphertext"`

	// TransactionID is set only when this device sent the event; it
	// comes from unsigned.transaction_id.
	TransactionID string `json:"transaction_id,omitempty"`
}

// Kind implements EncryptedEvent.
func (*OlmEvent) Kind() Kind { return KindOlm }

func (*OlmEvent) isEncryptedEvent() {}

// ParseOlm validates payload against the Olm schema and builds an
// OlmEvent. The schema pins content.algorithm to the Olm algorithm, so
// ParseOlm rejects Megolm payloads even when called directly.
func (p *Parser) ParseOlm(payload map[string]any) (*OlmEvent, error) {
	if err := p.verify(eventschema.RoomOlmEncrypted, payload); err != nil {
		return nil, fmt.Errorf("parsing olm event: %w", err)
	}

	sender, err := ref.ParseUserID(stringField(payload, "sender"))
	if err != nil {
		return nil, fmt.Errorf("parsing olm event: %w", eventschema.Invalid(eventschema.RoomOlmEncrypted, "sender: %v", err))
	}

	content := objectField(payload, "content")
	return &OlmEvent{
		Sender:        sender,
		SenderKey:     stringField(content, "sender_key"),
		Ciphertext:    deepCopy(content["ciphertext"]),
		TransactionID: transactionID(payload),
	}, nil
}
