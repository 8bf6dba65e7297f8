// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package messaging holds the transport-facing shapes that the
// encrypted-event parsers consume and produce, without performing any
// network I/O.
//
// Inbound, [DecodePayload] and [DecodePayloads] turn raw JSON (or JSONC,
// for hand-written fixtures) into the map[string]any payloads that
// lib/cryptoevent validates and parses. Numbers decode as json.Number so
// that large origin_server_ts values survive intact.
//
// Outbound, [ToDeviceMessage] is the generic envelope for a to-device
// event: an event type, a recipient user, a device selector, and
// content. [ToDeviceMessage.Request] renders the JSON body for the
// Matrix /sendToDevice endpoint, and [ToDeviceMessage.Path] the request
// path. Sending the request is the caller's job.
package messaging
