// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pending

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/cryptoevents/lib/clock"
	"github.com/bureau-foundation/cryptoevents/lib/cryptoevent"
	"github.com/bureau-foundation/cryptoevents/lib/ref"
	"github.com/bureau-foundation/cryptoevents/lib/testutil"
)

const (
	creatorKey   = "IlRMeOPX2e0MurIyfWEucYBRVOEEUMrOHqn/8mLqMjA"
	impostorKey  = "hPQNcabIABgGnx3/ACv/jmMmiQHoeFfuLB17tzWp6Hw"
	forwarderKey = "RF3s+E7RkTQTGF2d8Deol0FkQvgII2aJDf3/Jp5mxVU"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func openTestStore(t *testing.T, path string) (*Store, *clock.FakeClock) {
	t.Helper()
	fakeClock := clock.Fake(epoch)
	store, err := Open(Config{Path: path, PoolSize: 4, Clock: fakeClock})
	if err != nil {
		t.Fatalf("Open(%q): %v", path, err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return store, fakeClock
}

func testEvent(sessionID, senderKey string) *cryptoevent.MegolmEvent {
	return &cryptoevent.MegolmEvent{
		EventID:         ref.MustParseEventID("$" + testutil.UniqueID("event") + ":example.org"),
		Sender:          ref.MustParseUserID("@example:example.org"),
		ServerTimestamp: 1432735824653,
		SenderKey:       senderKey,
		DeviceID:        ref.MustParseDeviceID("RJYKSTBOIE"),
		SessionID:       sessionID,
		Ciphertext:      "AwgAEnACgAkLmt6qF84IK++J7UDH2Za1YVchHyprqTqsg2yyOwAtHaZTwyNg37afzg8f3r9IsN9r4RNFg7Ma",
		Algorithm:       "m.megolm.v1.aes-sha2",
		RoomID:          ref.MustParseRoomID("!jEsUZKDJdhlrceRyVU:example.org"),
	}
}

func roomKey(sessionID, senderKey string) *cryptoevent.RoomKeyEvent {
	return &cryptoevent.RoomKeyEvent{
		Sender:    ref.MustParseUserID("@example:example.org"),
		SenderKey: senderKey,
		RoomID:    ref.MustParseRoomID("!jEsUZKDJdhlrceRyVU:example.org"),
		SessionID: sessionID,
		Algorithm: "m.megolm.v1.aes-sha2",
	}
}

func mustAdd(t *testing.T, store *Store, events ...*cryptoevent.MegolmEvent) {
	t.Helper()
	for _, event := range events {
		if err := store.Add(context.Background(), event); err != nil {
			t.Fatalf("Add(%s): %v", event.EventID, err)
		}
	}
}

func mustCount(t *testing.T, store *Store) int {
	t.Helper()
	count, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	return count
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(Config{}); err == nil {
		t.Error("Open accepted an empty path")
	}
}

func TestAddAndForSession(t *testing.T) {
	store, fakeClock := openTestStore(t, ":memory:")
	ctx := context.Background()
	session := testutil.UniqueID("session")

	first := testEvent(session, creatorKey)
	mustAdd(t, store, first)
	fakeClock.Advance(time.Second)
	second := testEvent(session, creatorKey)
	second.RoomID = ref.RoomID{}
	mustAdd(t, store, second, testEvent(testutil.UniqueID("session"), creatorKey))

	got, err := store.ForSession(ctx, session)
	if err != nil {
		t.Fatalf("ForSession: %v", err)
	}
	want := []*cryptoevent.MegolmEvent{first, second}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ForSession = %+v\nwant %+v", got, want)
	}
	if count := mustCount(t, store); count != 3 {
		t.Errorf("Count = %d, want 3 (ForSession must not remove)", count)
	}
}

func TestAddReplacesSameEventID(t *testing.T) {
	store, _ := openTestStore(t, ":memory:")
	event := testEvent(testutil.UniqueID("session"), creatorKey)
	mustAdd(t, store, event, event)

	if count := mustCount(t, store); count != 1 {
		t.Errorf("Count = %d, want 1", count)
	}
}

func TestAddRejectsIncompleteEvent(t *testing.T) {
	store, _ := openTestStore(t, ":memory:")
	if err := store.Add(context.Background(), nil); err == nil {
		t.Error("Add(nil) succeeded")
	}
	event := testEvent("S", creatorKey)
	event.EventID = ref.EventID{}
	if err := store.Add(context.Background(), event); err == nil {
		t.Error("Add accepted an event without an ID")
	}
}

func TestResolveMatchesSenderKey(t *testing.T) {
	store, _ := openTestStore(t, ":memory:")
	ctx := context.Background()
	session := testutil.UniqueID("session")

	genuine := testEvent(session, creatorKey)
	spoofed := testEvent(session, impostorKey)
	mustAdd(t, store, genuine, spoofed)

	resolved, err := store.Resolve(ctx, roomKey(session, creatorKey))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(resolved) != 1 || resolved[0].EventID != genuine.EventID {
		t.Fatalf("Resolve = %v, want only %s", resolved, genuine.EventID)
	}

	remaining, err := store.ForSession(ctx, session)
	if err != nil {
		t.Fatalf("ForSession: %v", err)
	}
	if len(remaining) != 1 || remaining[0].EventID != spoofed.EventID {
		t.Errorf("remaining = %v, want only %s", remaining, spoofed.EventID)
	}

	again, err := store.Resolve(ctx, roomKey(session, creatorKey))
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("second Resolve returned %d events, want 0", len(again))
	}
}

func TestResolveForwardedUsesOriginalSenderKey(t *testing.T) {
	store, _ := openTestStore(t, ":memory:")
	session := testutil.UniqueID("session")
	event := testEvent(session, creatorKey)
	mustAdd(t, store, event)

	forwarded := &cryptoevent.ForwardedRoomKeyEvent{
		RoomKeyEvent:      *roomKey(session, forwarderKey),
		OriginalSenderKey: creatorKey,
		ForwardingChain:   []string{},
	}
	resolved, err := store.ResolveForwarded(context.Background(), forwarded)
	if err != nil {
		t.Fatalf("ResolveForwarded: %v", err)
	}
	if len(resolved) != 1 || resolved[0].EventID != event.EventID {
		t.Errorf("ResolveForwarded = %v, want %s", resolved, event.EventID)
	}

	// Resolve with the forwarder's transport key must not match.
	mustAdd(t, store, testEvent(session, creatorKey))
	resolved, err = store.Resolve(context.Background(), &forwarded.RoomKeyEvent)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(resolved) != 0 {
		t.Errorf("Resolve with forwarder key returned %d events, want 0", len(resolved))
	}
}

func TestRemove(t *testing.T) {
	store, _ := openTestStore(t, ":memory:")
	session := testutil.UniqueID("session")
	mustAdd(t, store,
		testEvent(session, creatorKey),
		testEvent(session, impostorKey),
		testEvent(testutil.UniqueID("session"), creatorKey),
	)

	removed, err := store.Remove(context.Background(), session)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if removed != 2 {
		t.Errorf("Remove = %d, want 2", removed)
	}
	if count := mustCount(t, store); count != 1 {
		t.Errorf("Count = %d, want 1", count)
	}
}

func TestPrune(t *testing.T) {
	store, fakeClock := openTestStore(t, ":memory:")
	ctx := context.Background()

	old := testEvent(testutil.UniqueID("session"), creatorKey)
	mustAdd(t, store, old)
	fakeClock.Advance(36 * time.Hour)
	fresh := testEvent(testutil.UniqueID("session"), creatorKey)
	mustAdd(t, store, fresh)
	fakeClock.Advance(time.Hour)

	removed, err := store.Prune(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Errorf("Prune = %d, want 1", removed)
	}

	entries, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 || entries[0].Event.EventID != fresh.EventID {
		t.Fatalf("List = %v, want only %s", entries, fresh.EventID)
	}
	wantReceived := epoch.Add(36 * time.Hour)
	if !entries[0].ReceivedAt.Equal(wantReceived) {
		t.Errorf("ReceivedAt = %v, want %v", entries[0].ReceivedAt, wantReceived)
	}

	if _, err := store.Prune(ctx, 0); err == nil {
		t.Error("Prune(0) succeeded")
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := testutil.DatabasePath(t)
	event := testEvent(testutil.UniqueID("session"), creatorKey)

	first, err := Open(Config{Path: path})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	mustAdd(t, first, event)
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second, _ := openTestStore(t, path)
	got, err := second.ForSession(context.Background(), event.SessionID)
	if err != nil {
		t.Fatalf("ForSession: %v", err)
	}
	if len(got) != 1 || !reflect.DeepEqual(got[0], event) {
		t.Errorf("ForSession after reopen = %+v, want %+v", got, event)
	}
}

func TestConcurrentAddAndResolve(t *testing.T) {
	store, _ := openTestStore(t, testutil.DatabasePath(t))
	ctx := context.Background()

	const sessionCount = 8
	const eventsPerSession = 5
	sessions := make([]string, sessionCount)
	for i := range sessions {
		sessions[i] = testutil.UniqueID("session")
	}

	var waitGroup sync.WaitGroup
	errors := make(chan error, sessionCount*eventsPerSession)
	for _, session := range sessions {
		for range eventsPerSession {
			waitGroup.Add(1)
			go func() {
				defer waitGroup.Done()
				if err := store.Add(ctx, testEvent(session, creatorKey)); err != nil {
					errors <- err
				}
			}()
		}
	}
	waitGroup.Wait()

	results := make(chan int, sessionCount)
	for _, session := range sessions {
		waitGroup.Add(1)
		go func() {
			defer waitGroup.Done()
			resolved, err := store.Resolve(ctx, roomKey(session, creatorKey))
			if err != nil {
				errors <- err
				return
			}
			for _, event := range resolved {
				if event.SessionID != session {
					errors <- fmt.Errorf("resolving %s returned event for %s", session, event.SessionID)
				}
			}
			results <- len(resolved)
		}()
	}
	waitGroup.Wait()
	close(errors)
	close(results)

	for err := range errors {
		t.Error(err)
	}
	for got := range results {
		if got != eventsPerSession {
			t.Errorf("Resolve returned %d events, want %d", got, eventsPerSession)
		}
	}
	if count := mustCount(t, store); count != 0 {
		t.Errorf("Count = %d after resolving every session, want 0", count)
	}
}
