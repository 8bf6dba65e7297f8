// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
)

var uniqueCounter atomic.Uint64

// UniqueID returns a string of the form "prefix-N" where N is a
// monotonically increasing integer. Use this instead of time.Now() when
// tests need identifiers that cannot collide.
//
//	sessionID := testutil.UniqueID("session") // "session-1", "session-2", ...
//	eventID := "$" + testutil.UniqueID("event") + ":example.org"
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, uniqueCounter.Add(1))
}

// DatabasePath returns a path for a SQLite database file inside a
// temporary directory that is removed when the test completes. The
// file itself is not created.
func DatabasePath(t testing.TB) string {
	t.Helper()
	return filepath.Join(t.TempDir(), UniqueID("db")+".sqlite")
}
