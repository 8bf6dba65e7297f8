// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [UniqueID] generates monotonically increasing identifiers for test
// disambiguation: event IDs, session IDs, and request IDs that must not
// collide between subtests sharing one store.
//
// [DatabasePath] returns a fresh SQLite file path under t.TempDir(), for
// tests that need a real file (WAL mode, several pooled connections)
// rather than ":memory:".
//
// This package has no dependencies inside the module.
package testutil
