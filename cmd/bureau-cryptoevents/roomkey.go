// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/cryptoevents/lib/cryptoevent"
	"github.com/bureau-foundation/cryptoevents/lib/ref"
)

// roomKeyParams identify the Olm session a decrypted room key arrived
// on. They never come from the payload.
type roomKeyParams struct {
	sender    string
	senderKey string
	forwarded bool
}

func (p *roomKeyParams) bind(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&p.sender, "sender", "", "user ID of the Olm session's sender (required)")
	flagSet.StringVar(&p.senderKey, "sender-key", "", "curve25519 key of the Olm session's sending device (required)")
	flagSet.BoolVar(&p.forwarded, "forwarded", false, "parse an m.forwarded_room_key event")
}

// parsedRoomKey holds either room key variant. Exactly one field is set.
type parsedRoomKey struct {
	plain     *cryptoevent.RoomKeyEvent
	forwarded *cryptoevent.ForwardedRoomKeyEvent
}

func (p parsedRoomKey) value() any {
	if p.forwarded != nil {
		return p.forwarded
	}
	return p.plain
}

func (a *app) parseRoomKey(params roomKeyParams, payload map[string]any) (parsedRoomKey, error) {
	if params.sender == "" || params.senderKey == "" {
		return parsedRoomKey{}, fmt.Errorf("--sender and --sender-key are required")
	}
	sender, err := ref.ParseUserID(params.sender)
	if err != nil {
		return parsedRoomKey{}, fmt.Errorf("--sender: %w", err)
	}

	if params.forwarded {
		event, err := a.parser.ParseForwardedRoomKey(payload, sender, params.senderKey)
		if err != nil {
			return parsedRoomKey{}, err
		}
		return parsedRoomKey{forwarded: event}, nil
	}
	event, err := a.parser.ParseRoomKey(payload, sender, params.senderKey)
	if err != nil {
		return parsedRoomKey{}, err
	}
	return parsedRoomKey{plain: event}, nil
}

func (a *app) roomKeyCommand() *command {
	var params roomKeyParams
	return &command{
		name:    "room-key",
		summary: "Parse a decrypted m.room_key or m.forwarded_room_key event",
		description: "Parse the plaintext of an Olm-decrypted room key event. The sender\n" +
			"and sender key identify the Olm session the event was decrypted from;\n" +
			"sender fields inside the payload are ignored. The printed source has\n" +
			"the session key and the top-level keys object removed.",
		usage: programName + " room-key --sender USER --sender-key KEY [--forwarded] [FILE]",
		flags: func() *pflag.FlagSet {
			params = roomKeyParams{}
			flagSet := pflag.NewFlagSet("room-key", pflag.ContinueOnError)
			params.bind(flagSet)
			return flagSet
		},
		run: func(_ context.Context, args []string) error {
			payload, err := a.readPayload(args)
			if err != nil {
				return err
			}
			parsed, err := a.parseRoomKey(params, payload)
			if err != nil {
				return err
			}
			return a.writeJSON(parsed.value())
		},
	}
}
