// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ref provides strongly typed, immutable references to the Matrix
// identifiers that appear in encrypted events: user IDs, room IDs, event
// IDs, device IDs, and event types.
//
// Payloads arrive as untyped JSON. Identifiers are parsed into these
// types at the boundary (lib/cryptoevent) so that downstream code cannot
// confuse a room ID with a session ID or a device ID with a sender key.
// All parse functions validate structure only; none of them contact a
// homeserver.
//
// Every type has a zero value that means "absent". IsZero reports it, and
// String on a zero value returns "". JSON and CBOR serialization use the
// raw identifier string via encoding.TextMarshaler.
package ref
