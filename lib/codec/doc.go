// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the module's CBOR encoding configuration.
//
// Matrix payloads are JSON on the wire and stay JSON at every external
// interface (CLI output, to-device request bodies). CBOR is used
// internally where a compact or canonical form is needed:
//
//   - rows in the pending-event store (lib/pending), and
//   - the canonical byte form that lib/digest hashes, so two payloads
//     with the same content but different key order produce the same
//     fingerprint.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items.
//
// Types with `json` struct tags serialize with the same field names in
// CBOR; fxamacker/cbor falls back to `json` tags when no `cbor` tag is
// present. Types that are only ever stored use `cbor` tags.
package codec
