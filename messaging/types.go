// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"fmt"
	"net/url"

	"github.com/bureau-foundation/cryptoevents/lib/ref"
)

// DeviceSelector picks which of a recipient's devices receive a
// to-device message: one device ID, or [AllDevices].
type DeviceSelector string

// AllDevices addresses every device of the recipient.
const AllDevices DeviceSelector = "*"

// Device selects a single device.
func Device(deviceID ref.DeviceID) DeviceSelector {
	return DeviceSelector(deviceID.String())
}

// ToDeviceMessage is an outbound to-device event. Content is any value
// that marshals to a JSON object.
type ToDeviceMessage struct {
	Type           ref.EventType
	Recipient      ref.UserID
	DeviceSelector DeviceSelector
	Content        any
}

// SendToDeviceRequest is the JSON body of
// PUT /_matrix/client/v3/sendToDevice/{eventType}/{txnId}.
// Messages maps user ID to device selector to content.
type SendToDeviceRequest struct {
	Messages map[string]map[string]any `json:"messages"`
}

// Request renders the message as a /sendToDevice body.
func (m ToDeviceMessage) Request() SendToDeviceRequest {
	return SendToDeviceRequest{
		Messages: map[string]map[string]any{
			m.Recipient.String(): {
				string(m.DeviceSelector): m.Content,
			},
		},
	}
}

// Path returns the /sendToDevice request path for this message's event
// type and the given transaction ID. Path segments are escaped
// individually; the path is built by concatenation so the escaping is
// not applied twice.
func (m ToDeviceMessage) Path(transactionID string) string {
	return "/_matrix/client/v3/sendToDevice/" + url.PathEscape(string(m.Type)) + "/" + url.PathEscape(transactionID)
}

// BatchRequest merges messages of the same event type into one
// /sendToDevice body. A message to the same user and selector as an
// earlier one replaces it, matching homeserver semantics for duplicate
// keys.
func BatchRequest(messages []ToDeviceMessage) (SendToDeviceRequest, error) {
	request := SendToDeviceRequest{Messages: make(map[string]map[string]any)}
	if len(messages) == 0 {
		return request, nil
	}

	eventType := messages[0].Type
	for _, message := range messages {
		if message.Type != eventType {
			return SendToDeviceRequest{}, fmt.Errorf("cannot batch %s with %s: one event type per request", message.Type, eventType)
		}
		if message.Recipient.IsZero() {
			return SendToDeviceRequest{}, fmt.Errorf("to-device %s message has no recipient", message.Type)
		}
		devices, ok := request.Messages[message.Recipient.String()]
		if !ok {
			devices = make(map[string]any)
			request.Messages[message.Recipient.String()] = devices
		}
		devices[string(message.DeviceSelector)] = message.Content
	}
	return request, nil
}
