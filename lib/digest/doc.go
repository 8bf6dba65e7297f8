// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package digest fingerprints decoded event payloads.
//
// Encrypted events carry ciphertext and, for room keys, raw session key
// material. None of it belongs in logs. When a parser needs to report
// which payload it rejected or skipped, it logs the fingerprint
// instead: a BLAKE3 keyed hash over the payload's deterministic CBOR
// encoding (lib/codec). Two payloads with identical content produce the
// same fingerprint regardless of map key order or JSON whitespace, so
// log lines from different components can be correlated.
package digest
