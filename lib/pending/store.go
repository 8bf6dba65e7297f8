// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pending

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/cryptoevents/lib/clock"
	"github.com/bureau-foundation/cryptoevents/lib/codec"
	"github.com/bureau-foundation/cryptoevents/lib/cryptoevent"
)

// Config holds the parameters for opening a Store.
type Config struct {
	// Path is the SQLite database file. The parent directory must
	// exist. ":memory:" gives a private in-memory database.
	Path string

	// PoolSize is the number of pooled connections. Defaults to
	// max(runtime.NumCPU(), 4). Ignored for ":memory:".
	PoolSize int

	// Clock stamps each row's receive time for Prune. Defaults to
	// clock.Real().
	Clock clock.Clock

	// Logger receives operational messages. Event content is never
	// logged. Nil discards.
	Logger *slog.Logger
}

// Entry is a stored event with the time it was added.
type Entry struct {
	Event      *cryptoevent.MegolmEvent
	ReceivedAt time.Time
}

// Store is a persistent table of undecryptable Megolm events. It is
// safe for concurrent use; each call takes its own pooled connection.
type Store struct {
	pool   *sqlitex.Pool
	clock  clock.Clock
	logger *slog.Logger
	path   string
}

// Open opens or creates the store at cfg.Path. The caller must Close
// the store when done.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("pending: Path is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	wallClock := cfg.Clock
	if wallClock == nil {
		wallClock = clock.Real()
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = max(runtime.NumCPU(), 4)
	}

	pool, err := openPool(cfg.Path, poolSize)
	if err != nil {
		return nil, fmt.Errorf("pending: opening %s: %w", cfg.Path, err)
	}
	logger.Info("pending store opened", "path", cfg.Path)

	return &Store{
		pool:   pool,
		clock:  wallClock,
		logger: logger,
		path:   cfg.Path,
	}, nil
}

// Close closes every pooled connection, waiting for borrowed ones to
// be returned.
func (s *Store) Close() error {
	if err := s.pool.Close(); err != nil {
		return fmt.Errorf("pending: closing %s: %w", s.path, err)
	}
	s.logger.Info("pending store closed", "path", s.path)
	return nil
}

// Add stores event. Adding an event whose ID is already stored
// replaces the earlier row and refreshes its receive time.
func (s *Store) Add(ctx context.Context, event *cryptoevent.MegolmEvent) error {
	if event == nil {
		return fmt.Errorf("pending: add: nil event")
	}
	if event.EventID.IsZero() {
		return fmt.Errorf("pending: add: event has no event ID")
	}

	encoded, err := codec.Marshal(event)
	if err != nil {
		return fmt.Errorf("pending: encoding %s: %w", event.EventID, err)
	}
	body, tag := compress(encoded)

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("pending: add: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `
		INSERT OR REPLACE INTO pending_events
			(event_id, session_id, sender_key, room_id, received_at, compression, size, body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{
				event.EventID.String(),
				event.SessionID,
				event.SenderKey,
				event.RoomID.String(),
				s.clock.Now().UnixMilli(),
				int64(tag),
				len(encoded),
				body,
			},
		})
	if err != nil {
		return fmt.Errorf("pending: inserting %s: %w", event.EventID, err)
	}

	s.logger.Debug("pending event stored",
		"event_id", event.EventID,
		"session_id", event.SessionID,
		"compression", tag.String(),
		"size", len(encoded),
		"stored_size", len(body),
	)
	return nil
}

// ForSession returns the stored events for sessionID from any sender,
// oldest first. The events stay in the store.
func (s *Store) ForSession(ctx context.Context, sessionID string) ([]*cryptoevent.MegolmEvent, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("pending: for session: %w", err)
	}
	defer s.pool.Put(conn)

	entries, err := selectEntries(conn, `
		SELECT received_at, compression, size, body FROM pending_events
		WHERE session_id = ?
		ORDER BY received_at, event_id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("pending: for session %s: %w", sessionID, err)
	}
	return events(entries), nil
}

// List returns every stored entry, oldest first.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("pending: list: %w", err)
	}
	defer s.pool.Put(conn)

	entries, err := selectEntries(conn, `
		SELECT received_at, compression, size, body FROM pending_events
		ORDER BY received_at, event_id`)
	if err != nil {
		return nil, fmt.Errorf("pending: list: %w", err)
	}
	return entries, nil
}

// Resolve removes and returns the events that roomKey unlocks: those
// with its session ID whose sender key is the key of the Olm session
// the room key arrived on. Events for the same session ID from another
// sender stay stored.
func (s *Store) Resolve(ctx context.Context, roomKey *cryptoevent.RoomKeyEvent) ([]*cryptoevent.MegolmEvent, error) {
	if roomKey == nil {
		return nil, fmt.Errorf("pending: resolve: nil room key")
	}
	return s.resolve(ctx, roomKey.SessionID, roomKey.SenderKey)
}

// ResolveForwarded is Resolve for a forwarded key. The match is on the
// session creator's key as claimed by the forwarder, not on the
// forwarder's own key.
func (s *Store) ResolveForwarded(ctx context.Context, roomKey *cryptoevent.ForwardedRoomKeyEvent) ([]*cryptoevent.MegolmEvent, error) {
	if roomKey == nil {
		return nil, fmt.Errorf("pending: resolve: nil room key")
	}
	return s.resolve(ctx, roomKey.SessionID, roomKey.OriginalSenderKey)
}

func (s *Store) resolve(ctx context.Context, sessionID, senderKey string) (resolved []*cryptoevent.MegolmEvent, err error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("pending: resolve: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return nil, fmt.Errorf("pending: resolve: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	entries, err := selectEntries(conn, `
		SELECT received_at, compression, size, body FROM pending_events
		WHERE session_id = ? AND sender_key = ?
		ORDER BY received_at, event_id`, sessionID, senderKey)
	if err != nil {
		return nil, fmt.Errorf("pending: resolve %s: %w", sessionID, err)
	}

	err = sqlitex.Execute(conn,
		`DELETE FROM pending_events WHERE session_id = ? AND sender_key = ?`,
		&sqlitex.ExecOptions{Args: []any{sessionID, senderKey}})
	if err != nil {
		return nil, fmt.Errorf("pending: resolve %s: deleting: %w", sessionID, err)
	}

	if len(entries) > 0 {
		s.logger.Debug("pending events resolved",
			"session_id", sessionID,
			"count", len(entries),
		)
	}
	return events(entries), nil
}

// Remove deletes every stored event for sessionID, whatever its sender.
// It returns the number of rows removed.
func (s *Store) Remove(ctx context.Context, sessionID string) (int, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("pending: remove: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`DELETE FROM pending_events WHERE session_id = ?`,
		&sqlitex.ExecOptions{Args: []any{sessionID}})
	if err != nil {
		return 0, fmt.Errorf("pending: remove %s: %w", sessionID, err)
	}
	return conn.Changes(), nil
}

// Prune deletes events received more than maxAge ago and returns how
// many were removed.
func (s *Store) Prune(ctx context.Context, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, fmt.Errorf("pending: prune: max age must be positive, got %s", maxAge)
	}
	cutoff := s.clock.Now().Add(-maxAge).UnixMilli()

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("pending: prune: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`DELETE FROM pending_events WHERE received_at < ?`,
		&sqlitex.ExecOptions{Args: []any{cutoff}})
	if err != nil {
		return 0, fmt.Errorf("pending: prune: %w", err)
	}

	removed := conn.Changes()
	if removed > 0 {
		s.logger.Info("pending events pruned", "count", removed, "max_age", maxAge)
	}
	return removed, nil
}

// Count returns the number of stored events.
func (s *Store) Count(ctx context.Context) (int, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("pending: count: %w", err)
	}
	defer s.pool.Put(conn)

	var count int
	err = sqlitex.Execute(conn, `SELECT COUNT(*) FROM pending_events`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			count = stmt.ColumnInt(0)
			return nil
		},
	})
	if err != nil {
		return 0, fmt.Errorf("pending: count: %w", err)
	}
	return count, nil
}

// selectEntries runs query, which must select received_at, compression,
// size and body in that order, and decodes each row.
func selectEntries(conn *sqlite.Conn, query string, args ...any) ([]Entry, error) {
	var entries []Entry
	err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			body := make([]byte, stmt.ColumnLen(3))
			stmt.ColumnBytes(3, body)

			event, err := decodeEvent(body, compression(stmt.ColumnInt64(1)), stmt.ColumnInt(2))
			if err != nil {
				return err
			}
			entries = append(entries, Entry{
				Event:      event,
				ReceivedAt: time.UnixMilli(stmt.ColumnInt64(0)),
			})
			return nil
		},
	})
	return entries, err
}

func decodeEvent(body []byte, tag compression, size int) (*cryptoevent.MegolmEvent, error) {
	encoded, err := decompress(body, tag, size)
	if err != nil {
		return nil, err
	}
	var event cryptoevent.MegolmEvent
	if err := codec.Unmarshal(encoded, &event); err != nil {
		return nil, fmt.Errorf("decoding stored event: %w", err)
	}
	return &event, nil
}

func events(entries []Entry) []*cryptoevent.MegolmEvent {
	result := make([]*cryptoevent.MegolmEvent, len(entries))
	for i, entry := range entries {
		result[i] = entry.Event
	}
	return result
}
