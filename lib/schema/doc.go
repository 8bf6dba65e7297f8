// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package schema defines the Matrix event types, encryption algorithm
// names, and content structures used by end-to-end encrypted messaging.
// Event type constants (EventType*) are Matrix event type strings;
// Algorithm* constants are the values of content.algorithm; Go structs
// define the JSON content of outbound payloads.
//
// Key event types:
//
//   - [EventTypeRoomEncrypted] -- Olm and Megolm ciphertext events
//   - [EventTypeRoomKey], [EventTypeForwardedRoomKey] -- inbound Megolm
//     session keys, delivered as to-device events
//   - [EventTypeRoomKeyRequest] -- key requests and cancellations
//
// Structural validation of inbound payloads lives in lib/eventschema;
// this package only names things and shapes outbound content.
//
// This package depends only on lib/ref.
package schema
