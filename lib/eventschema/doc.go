// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package eventschema verifies decoded Matrix event payloads against
// named JSON Schemas.
//
// Each encrypted-event variant has its own schema: the generic
// [RoomEncrypted] envelope checked before dispatch, then
// [RoomOlmEncrypted] or [RoomMegolmEncrypted] for the concrete shape,
// and [RoomKeyEvent], [ForwardedRoomKeyEvent], [RoomKeyRequest], and
// [RoomKeyRequestCancellation] for to-device key traffic. The schemas
// are embedded in the binary and compiled once by [Default]. A
// deployment can replace them with [Load], which reads every schema
// from a directory; there is no per-file fallback to the embedded set.
//
// Parsers depend on the [Verifier] interface, not on [Registry], so
// tests can substitute a stub. Verification failures are returned as
// [*ValidationError]; [IsValidationError] tests for one.
package eventschema
