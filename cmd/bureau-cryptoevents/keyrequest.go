// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/cryptoevents/lib/cryptoevent"
	"github.com/bureau-foundation/cryptoevents/lib/ref"
	"github.com/bureau-foundation/cryptoevents/messaging"
)

// sendToDevice is printed when --txn is given: everything needed to
// issue the request.
type sendToDevice struct {
	Method string                        `json:"method"`
	Path   string                        `json:"path"`
	Body   messaging.SendToDeviceRequest `json:"body"`
}

func (a *app) keyRequestCommand() *command {
	var (
		user          string
		device        string
		requestID     string
		transactionID string
		cancel        bool
	)
	return &command{
		name:    "key-request",
		summary: "Build an m.room_key_request for an undecryptable Megolm event",
		description: "Read an m.room.encrypted Megolm event and print the /sendToDevice\n" +
			"body asking every device of --user for its session key. The request\n" +
			"ID defaults to the event's session ID, so repeated requests for one\n" +
			"session share an ID and --cancel withdraws them all.\n\n" +
			"--user and --device default to identity.user_id and identity.device_id\n" +
			"from the config file.",
		usage: programName + " key-request [--user USER] [--device DEVICE] [--request-id ID] [--cancel] [--txn TXN] [FILE]",
		examples: []example{
			{
				description: "Request the key for an event",
				command:     programName + " key-request --user @alice:example.org --device JLAFKJWSCS event.json",
			},
			{
				description: "Print method, path, and body for a cancellation",
				command:     programName + " key-request --cancel --txn m1476648745605.20 event.json",
			},
		},
		flags: func() *pflag.FlagSet {
			user, device, requestID, transactionID, cancel = "", "", "", "", false
			flagSet := pflag.NewFlagSet("key-request", pflag.ContinueOnError)
			flagSet.StringVar(&user, "user", "", "account whose devices are asked (default: identity.user_id)")
			flagSet.StringVar(&device, "device", "", "requesting device ID (default: identity.device_id)")
			flagSet.StringVar(&requestID, "request-id", "", "request ID (default: the event's session ID)")
			flagSet.StringVar(&transactionID, "txn", "", "transaction ID; prints method and path along with the body")
			flagSet.BoolVar(&cancel, "cancel", false, "build a request_cancellation instead")
			return flagSet
		},
		run: func(_ context.Context, args []string) error {
			userID, deviceID, err := a.identity(user, device)
			if err != nil {
				return err
			}
			payload, err := a.readPayload(args)
			if err != nil {
				return err
			}
			event, err := a.parseMegolm(payload)
			if err != nil {
				return err
			}

			var message messaging.ToDeviceMessage
			if cancel {
				message = event.KeyRequestCancellation(userID, deviceID, requestID)
			} else {
				message = event.KeyRequest(userID, deviceID, requestID)
			}
			a.logger.Debug("key request built",
				"session_id", event.SessionID,
				"cancel", cancel,
			)

			if transactionID != "" {
				return a.writeJSON(sendToDevice{
					Method: "PUT",
					Path:   message.Path(transactionID),
					Body:   message.Request(),
				})
			}
			return a.writeJSON(message.Request())
		},
	}
}

// identity resolves the local user and device from flags, falling back
// to the config file.
func (a *app) identity(user, device string) (ref.UserID, ref.DeviceID, error) {
	if a.config != nil {
		if user == "" {
			user = a.config.Identity.UserID
		}
		if device == "" {
			device = a.config.Identity.DeviceID
		}
	}
	if user == "" || device == "" {
		return ref.UserID{}, ref.DeviceID{}, fmt.Errorf("--user and --device are required (or set identity in the config file)")
	}

	userID, err := ref.ParseUserID(user)
	if err != nil {
		return ref.UserID{}, ref.DeviceID{}, fmt.Errorf("user: %w", err)
	}
	deviceID, err := ref.ParseDeviceID(device)
	if err != nil {
		return ref.UserID{}, ref.DeviceID{}, fmt.Errorf("device: %w", err)
	}
	return userID, deviceID, nil
}

// parseMegolm parses payload as an encrypted event and requires the
// Megolm variant.
func (a *app) parseMegolm(payload map[string]any) (*cryptoevent.MegolmEvent, error) {
	event, err := a.parser.ParseEncrypted(payload)
	if err != nil {
		return nil, err
	}
	megolm, ok := event.(*cryptoevent.MegolmEvent)
	if !ok {
		kind := cryptoevent.KindUnknown
		if event != nil {
			kind = event.Kind()
		}
		return nil, fmt.Errorf("expected a megolm event, got %s", kind)
	}
	return megolm, nil
}
