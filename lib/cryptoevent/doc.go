// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cryptoevent turns untrusted, decoded Matrix payloads into typed
// end-to-end encryption events, and builds key requests for Megolm
// sessions this device cannot decrypt.
//
// A [Parser] validates every payload against a named schema
// (lib/eventschema) before reading any field, then constructs one of:
//
//   - [*OlmEvent]: pairwise ciphertext, used to bootstrap sessions.
//   - [*MegolmEvent]: room ciphertext whose session key is missing.
//   - [*RoomKeyEvent] / [*ForwardedRoomKeyEvent]: an inbound session
//     key, with the key material stripped from the retained source.
//   - [*RoomKeyRequest] / [*RoomKeyRequestCancellation]: a peer asking
//     this device for a session key.
//
// [Parser.ParseEncrypted] is the entry point for m.room.encrypted
// events. It looks content.algorithm up in a fixed table
// ([ClassifyAlgorithm]) and returns an [EncryptedEvent], which is
// either an Olm or a Megolm event. An algorithm outside the table is not
// an error: ParseEncrypted returns a nil event and a nil error, and the
// caller decides whether to ignore the event or surface it as opaque.
//
// Nothing here decrypts. A MegolmEvent is by definition undecrypted and
// unverified; its Decrypted and Verified methods always return false.
// Once a [RoomKeyEvent] with the same SessionID arrives, the caller can
// retry decryption (lib/pending keeps the table for that) and, on
// success, produce a different event type entirely.
//
// Parsers never mutate the caller's payload. Room key events keep a deep
// copy with "keys" and "content.session_key" removed, so the retained
// source is safe to log or store.
package cryptoevent
