// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable wall clock.
//
// Production code holds a Clock field set to Real(). Tests use Fake()
// and move time explicitly:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	store, _ := pending.Open(pending.Config{Path: ":memory:", Clock: c})
//	// ... add events ...
//	c.Advance(48 * time.Hour)
//	store.Prune(ctx, 24*time.Hour)
package clock
