// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Bureau-cryptoevents parses Matrix end-to-end encryption events from
// JSON (or JSONC) files and standard input.
//
// Subcommands:
//
//   - parse: classify an m.room.encrypted event as Olm or Megolm, or
//     parse an inbound m.room_key_request
//   - room-key: parse a decrypted m.room_key or m.forwarded_room_key,
//     printing it with the session key removed
//   - key-request: build the /sendToDevice body requesting (or
//     cancelling a request for) a Megolm event's session key
//   - pending: add, list, resolve, remove, prune, and count events in
//     the SQLite store of undecryptable events
//
// Output is JSON on stdout, indented when stdout is a terminal. Logs go
// to stderr through log/slog. Configuration is read from --config or
// $BUREAU_CRYPTOEVENTS_CONFIG; without either, every command that
// needs a value takes it from flags.
package main
