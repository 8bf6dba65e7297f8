// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package pending keeps Megolm events that could not be decrypted until
// the session key for them arrives.
//
// A client that receives a MegolmEvent for an unknown session calls
// Store.Add, typically alongside sending the event's KeyRequest. When an
// m.room_key or m.forwarded_room_key event is later parsed, Resolve (or
// ResolveForwarded) removes and returns every stored event the new key
// can decrypt. What happens next (decryption, display, giving up) is
// the caller's business: the store holds no retry policy.
//
// Events are matched on session ID and the curve25519 key of the
// session creator. A session ID alone is chosen by the sender and is
// not a safe join key across devices.
//
// # Storage
//
// Rows live in a single SQLite table accessed through a
// zombiezen.com/go/sqlite connection pool in WAL mode. Each event is
// encoded with lib/codec (deterministic CBOR) and compressed with
// whichever of zstd or lz4 produces the smaller blob; tiny events are
// stored uncompressed. Session ID and sender key are kept in plain
// columns so lookups never decode a blob.
//
// Use ":memory:" as the path in tests. In-memory databases are
// per-connection, so Open forces a pool size of 1 for that path.
package pending
