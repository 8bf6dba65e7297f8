// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ref

// EventType identifies a Matrix event type (m.room.encrypted,
// m.room_key, ...). Constants live in lib/schema.
//
// EventType is a named string type, not a struct wrapper: event types
// are opaque identifiers that need no parsing or validation.
type EventType string

// String returns the event type string (e.g., "m.room_key_request").
func (t EventType) String() string { return string(t) }
