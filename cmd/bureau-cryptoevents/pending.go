// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/cryptoevents/lib/cryptoevent"
	"github.com/bureau-foundation/cryptoevents/lib/pending"
)

// pendingEntry is one row of "pending list" output.
type pendingEntry struct {
	EventID    string    `json:"event_id"`
	SessionID  string    `json:"session_id"`
	SenderKey  string    `json:"sender_key"`
	RoomID     string    `json:"room_id"`
	Sender     string    `json:"sender"`
	ReceivedAt time.Time `json:"received_at"`
}

func (a *app) pendingCommand() *command {
	return &command{
		name:    "pending",
		summary: "Manage Megolm events waiting for their session key",
		description: "Store undecryptable Megolm events and release them when a room key\n" +
			"for their session arrives. The database defaults to pending.database\n" +
			"from the config file.",
		subcommands: []*command{
			a.pendingAddCommand(),
			a.pendingListCommand(),
			a.pendingResolveCommand(),
			a.pendingRemoveCommand(),
			a.pendingPruneCommand(),
			a.pendingCountCommand(),
		},
	}
}

// openStore opens the store at database, or at the configured path when
// database is empty. The caller closes it.
func (a *app) openStore(database string) (*pending.Store, error) {
	poolSize := 0
	if a.config != nil {
		if database == "" {
			database = a.config.Pending.Database
			if err := a.config.EnsurePaths(); err != nil {
				return nil, err
			}
		}
		poolSize = a.config.Pending.PoolSize
	}
	if database == "" {
		return nil, fmt.Errorf("--db is required (or set pending.database in the config file)")
	}
	return pending.Open(pending.Config{
		Path:     database,
		PoolSize: poolSize,
		Logger:   a.logger,
	})
}

// withStore opens the store, runs fn, and closes the store, reporting
// the first error.
func (a *app) withStore(database string, fn func(store *pending.Store) error) (err error) {
	store, err := a.openStore(database)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(); err == nil {
			err = closeErr
		}
	}()
	return fn(store)
}

func databaseFlag(flagSet *pflag.FlagSet, database *string) {
	flagSet.StringVar(database, "db", "", "pending database path (default: pending.database)")
}

func (a *app) pendingAddCommand() *command {
	var database string
	return &command{
		name:    "add",
		summary: "Store an undecryptable Megolm event",
		usage:   programName + " pending add [--db PATH] [FILE]",
		flags: func() *pflag.FlagSet {
			database = ""
			flagSet := pflag.NewFlagSet("add", pflag.ContinueOnError)
			databaseFlag(flagSet, &database)
			return flagSet
		},
		run: func(ctx context.Context, args []string) error {
			payload, err := a.readPayload(args)
			if err != nil {
				return err
			}
			event, err := a.parseMegolm(payload)
			if err != nil {
				return err
			}
			return a.withStore(database, func(store *pending.Store) error {
				if err := store.Add(ctx, event); err != nil {
					return err
				}
				return a.writeJSON(map[string]string{
					"event_id":   event.EventID.String(),
					"session_id": event.SessionID,
				})
			})
		},
	}
}

func (a *app) pendingListCommand() *command {
	var database, sessionID string
	return &command{
		name:    "list",
		summary: "List stored events, oldest first",
		usage:   programName + " pending list [--db PATH] [--session ID]",
		flags: func() *pflag.FlagSet {
			database, sessionID = "", ""
			flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
			databaseFlag(flagSet, &database)
			flagSet.StringVar(&sessionID, "session", "", "only events for this Megolm session ID")
			return flagSet
		},
		run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument %q", args[0])
			}
			return a.withStore(database, func(store *pending.Store) error {
				entries, err := store.List(ctx)
				if err != nil {
					return err
				}
				output := make([]pendingEntry, 0, len(entries))
				for _, entry := range entries {
					if sessionID != "" && entry.Event.SessionID != sessionID {
						continue
					}
					output = append(output, pendingEntry{
						EventID:    entry.Event.EventID.String(),
						SessionID:  entry.Event.SessionID,
						SenderKey:  entry.Event.SenderKey,
						RoomID:     entry.Event.RoomID.String(),
						Sender:     entry.Event.Sender.String(),
						ReceivedAt: entry.ReceivedAt.UTC(),
					})
				}
				return a.writeJSON(output)
			})
		},
	}
}

func (a *app) pendingResolveCommand() *command {
	var (
		database string
		params   roomKeyParams
	)
	return &command{
		name:    "resolve",
		summary: "Release the events a room key unlocks",
		description: "Parse a decrypted room key event (as for room-key) and remove and\n" +
			"print every stored Megolm event it can decrypt.",
		usage: programName + " pending resolve --sender USER --sender-key KEY [--forwarded] [--db PATH] [FILE]",
		flags: func() *pflag.FlagSet {
			database, params = "", roomKeyParams{}
			flagSet := pflag.NewFlagSet("resolve", pflag.ContinueOnError)
			databaseFlag(flagSet, &database)
			params.bind(flagSet)
			return flagSet
		},
		run: func(ctx context.Context, args []string) error {
			payload, err := a.readPayload(args)
			if err != nil {
				return err
			}
			parsed, err := a.parseRoomKey(params, payload)
			if err != nil {
				return err
			}
			return a.withStore(database, func(store *pending.Store) error {
				var resolved []*cryptoevent.MegolmEvent
				if parsed.forwarded != nil {
					resolved, err = store.ResolveForwarded(ctx, parsed.forwarded)
				} else {
					resolved, err = store.Resolve(ctx, parsed.plain)
				}
				if err != nil {
					return err
				}
				if resolved == nil {
					resolved = []*cryptoevent.MegolmEvent{}
				}
				return a.writeJSON(resolved)
			})
		},
	}
}

func (a *app) pendingRemoveCommand() *command {
	var database string
	return &command{
		name:    "remove",
		summary: "Drop every stored event for a session",
		usage:   programName + " pending remove [--db PATH] SESSION_ID",
		flags: func() *pflag.FlagSet {
			database = ""
			flagSet := pflag.NewFlagSet("remove", pflag.ContinueOnError)
			databaseFlag(flagSet, &database)
			return flagSet
		},
		run: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one session ID")
			}
			return a.withStore(database, func(store *pending.Store) error {
				removed, err := store.Remove(ctx, args[0])
				if err != nil {
					return err
				}
				return a.writeJSON(map[string]int{"removed": removed})
			})
		},
	}
}

func (a *app) pendingPruneCommand() *command {
	var (
		database string
		maxAge   time.Duration
	)
	return &command{
		name:    "prune",
		summary: "Drop events older than a maximum age",
		usage:   programName + " pending prune [--db PATH] [--max-age DURATION]",
		flags: func() *pflag.FlagSet {
			database, maxAge = "", 0
			flagSet := pflag.NewFlagSet("prune", pflag.ContinueOnError)
			databaseFlag(flagSet, &database)
			flagSet.DurationVar(&maxAge, "max-age", 0, "maximum age (default: pending.max_age, or 168h)")
			return flagSet
		},
		run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument %q", args[0])
			}
			if maxAge == 0 {
				maxAge = 168 * time.Hour
				if a.config != nil {
					configured, err := a.config.PendingMaxAge()
					if err != nil {
						return err
					}
					maxAge = configured
				}
			}
			return a.withStore(database, func(store *pending.Store) error {
				removed, err := store.Prune(ctx, maxAge)
				if err != nil {
					return err
				}
				return a.writeJSON(map[string]int{"removed": removed})
			})
		},
	}
}

func (a *app) pendingCountCommand() *command {
	var database string
	return &command{
		name:    "count",
		summary: "Print the number of stored events",
		usage:   programName + " pending count [--db PATH]",
		flags: func() *pflag.FlagSet {
			database = ""
			flagSet := pflag.NewFlagSet("count", pflag.ContinueOnError)
			databaseFlag(flagSet, &database)
			return flagSet
		},
		run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument %q", args[0])
			}
			return a.withStore(database, func(store *pending.Store) error {
				count, err := store.Count(ctx)
				if err != nil {
					return err
				}
				return a.writeJSON(map[string]int{"count": count})
			})
		},
	}
}
