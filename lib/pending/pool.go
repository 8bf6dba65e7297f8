// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pending

import (
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const memoryPath = ":memory:"

// tableSchema is applied on every connection. Statements are
// idempotent, so a connection opening an existing database is a no-op.
const tableSchema = `
CREATE TABLE IF NOT EXISTS pending_events (
	event_id     TEXT PRIMARY KEY,
	session_id   TEXT NOT NULL,
	sender_key   TEXT NOT NULL,
	room_id      TEXT NOT NULL,
	received_at  INTEGER NOT NULL,
	compression  INTEGER NOT NULL,
	size         INTEGER NOT NULL,
	body         BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS pending_events_session
	ON pending_events (session_id, sender_key);
CREATE INDEX IF NOT EXISTS pending_events_received
	ON pending_events (received_at);
`

// openPool opens a sqlitex pool whose connections carry the standard
// pragmas and the pending_events table.
func openPool(path string, poolSize int) (*sqlitex.Pool, error) {
	if path == memoryPath {
		poolSize = 1
	}
	return sqlitex.NewPool(path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareConnection,
	})
}

func prepareConnection(conn *sqlite.Conn) error {
	// WAL gives concurrent readers alongside the single writer. The
	// busy timeout covers writers from other processes (the CLI and a
	// long-running client can share one file).
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("pending: %s: %w", pragma, err)
		}
	}
	if err := sqlitex.ExecuteScript(conn, tableSchema, nil); err != nil {
		return fmt.Errorf("pending: creating schema: %w", err)
	}
	return nil
}
