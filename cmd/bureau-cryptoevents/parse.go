// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/cryptoevents/lib/cryptoevent"
	"github.com/bureau-foundation/cryptoevents/lib/schema"
)

// parseResult is the output of the parse command. Event is omitted for
// unknown algorithms and actions.
type parseResult struct {
	Kind      string `json:"kind"`
	Algorithm string `json:"algorithm,omitempty"`
	Action    string `json:"action,omitempty"`
	Decrypted *bool  `json:"decrypted,omitempty"`
	Verified  *bool  `json:"verified,omitempty"`
	Event     any    `json:"event,omitempty"`
}

func (a *app) parseCommand() *command {
	return &command{
		name:    "parse",
		summary: "Parse an encrypted event or key request",
		description: "Parse an m.room.encrypted event (Olm or Megolm) or an inbound\n" +
			"m.room_key_request to-device event and print the typed result.\n\n" +
			"The event type is taken from the top-level \"type\" field; payloads\n" +
			"without one are treated as m.room.encrypted. An unknown algorithm or\n" +
			"action prints kind \"unknown\" and is not an error.",
		usage: programName + " parse [FILE]",
		examples: []example{
			{description: "Parse an event from a file", command: programName + " parse event.json"},
			{description: "Parse from stdin", command: "cat event.jsonc | " + programName + " parse"},
		},
		run: func(_ context.Context, args []string) error {
			payload, err := a.readPayload(args)
			if err != nil {
				return err
			}
			result, err := a.parse(payload)
			if err != nil {
				return err
			}
			return a.writeJSON(result)
		},
	}
}

func (a *app) parse(payload map[string]any) (*parseResult, error) {
	eventType, _ := payload["type"].(string)
	content, _ := payload["content"].(map[string]any)

	if eventType == schema.EventTypeRoomKeyRequest.String() {
		event, err := a.parser.ParseKeyRequest(payload)
		if err != nil {
			return nil, err
		}
		switch event := event.(type) {
		case *cryptoevent.RoomKeyRequest:
			return &parseResult{Kind: "key_request", Action: schema.KeyRequestActionRequest, Event: event}, nil
		case *cryptoevent.RoomKeyRequestCancellation:
			return &parseResult{Kind: "key_request_cancellation", Action: schema.KeyRequestActionCancellation, Event: event}, nil
		default:
			action, _ := content["action"].(string)
			return &parseResult{Kind: "unknown", Action: action}, nil
		}
	}

	event, err := a.parser.ParseEncrypted(payload)
	if err != nil {
		return nil, err
	}
	if event == nil {
		algorithm, _ := content["algorithm"].(string)
		return &parseResult{Kind: cryptoevent.KindUnknown.String(), Algorithm: algorithm}, nil
	}

	result := &parseResult{Kind: event.Kind().String(), Event: event}
	switch event := event.(type) {
	case *cryptoevent.OlmEvent:
		result.Algorithm = schema.AlgorithmOlm
	case *cryptoevent.MegolmEvent:
		result.Algorithm = event.Algorithm
		decrypted, verified := event.Decrypted(), event.Verified()
		result.Decrypted, result.Verified = &decrypted, &verified
	default:
		return nil, fmt.Errorf("unhandled event kind %s", event.Kind())
	}
	return result, nil
}
