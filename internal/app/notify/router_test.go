/*
Package notify tests.

This file verifies audience expansion, cross-audience deduplication, and
graceful degradation when the relationship lookup fails.
*/
package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rktkdduq01/study-app-sub002/internal/app/realtime"
	"github.com/rktkdduq01/study-app-sub002/internal/app/store"
)

type fakeSender struct {
	mu      sync.Mutex
	sent    map[string]int
	offline map[string]bool
}

func newFakeSender() *fakeSender {
	return &fakeSender{sent: make(map[string]int), offline: make(map[string]bool)}
}

func (s *fakeSender) SendToUser(userID string, event realtime.Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.offline[userID] {
		return 0
	}
	s.sent[userID]++
	return 1
}

func (s *fakeSender) sentTo(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent[userID]
}

type fakeRelationships struct {
	byKind map[store.RelationshipKind][]string
	err    error
}

func (r *fakeRelationships) LookupRelationships(_ context.Context, _ string, kind store.RelationshipKind) ([]string, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.byKind[kind], nil
}

func TestRouteDeliversPrimaryAndDerived(t *testing.T) {
	t.Parallel()

	sender := newFakeSender()
	rel := &fakeRelationships{byKind: map[store.RelationshipKind][]string{
		store.RelParent: {"parent-1", "parent-2"},
	}}
	router := NewRouter(sender, rel)

	report := router.Route(context.Background(), Notification{
		Event:          realtime.NewEvent(realtime.EventSessionCompleted, nil),
		ActorID:        "child-1",
		PrimaryUserIDs: []string{"child-1"},
		Derived:        []store.RelationshipKind{store.RelParent},
	})

	if report.TotalDelivered != 3 {
		t.Fatalf("expected 3 delivered, got %d", report.TotalDelivered)
	}
	for _, userID := range []string{"child-1", "parent-1", "parent-2"} {
		if sender.sentTo(userID) != 1 {
			t.Fatalf("expected exactly one event for %s, got %d", userID, sender.sentTo(userID))
		}
	}
	if len(report.Deliveries) != 2 {
		t.Fatalf("expected 2 audience entries, got %d", len(report.Deliveries))
	}
	if report.Deliveries[0].Audience != "primary" || report.Deliveries[0].Delivered != 1 {
		t.Fatalf("unexpected primary delivery: %+v", report.Deliveries[0])
	}
	if report.Deliveries[1].Recipients != 2 {
		t.Fatalf("expected 2 derived recipients, got %d", report.Deliveries[1].Recipients)
	}
}

func TestRouteDeduplicatesAcrossAudiences(t *testing.T) {
	t.Parallel()

	sender := newFakeSender()
	rel := &fakeRelationships{byKind: map[store.RelationshipKind][]string{
		store.RelFriend: {"buddy-1", "overlap-1"},
		store.RelGuild:  {"overlap-1", "guildie-1"},
	}}
	router := NewRouter(sender, rel)

	report := router.Route(context.Background(), Notification{
		Event:          realtime.NewEvent(realtime.EventScoreUpdate, nil),
		ActorID:        "overlap-1",
		PrimaryUserIDs: []string{"overlap-1"},
		Derived:        []store.RelationshipKind{store.RelFriend, store.RelGuild},
	})

	if got := sender.sentTo("overlap-1"); got != 1 {
		t.Fatalf("expected duplicate recipient to receive exactly one event, got %d", got)
	}
	if report.TotalDelivered != 3 {
		t.Fatalf("expected 3 unique deliveries, got %d", report.TotalDelivered)
	}
}

func TestRouteLookupFailureDoesNotBlockPrimary(t *testing.T) {
	t.Parallel()

	sender := newFakeSender()
	rel := &fakeRelationships{err: errors.New("relationship service unavailable")}
	router := NewRouter(sender, rel)

	report := router.Route(context.Background(), Notification{
		Event:          realtime.NewEvent(realtime.EventSessionCompleted, nil),
		ActorID:        "player-1",
		PrimaryUserIDs: []string{"player-1"},
		Derived:        []store.RelationshipKind{store.RelParent},
	})

	if sender.sentTo("player-1") != 1 {
		t.Fatal("expected primary delivery despite lookup failure")
	}
	if len(report.Deliveries) != 2 || !report.Deliveries[1].LookupErr {
		t.Fatalf("expected lookup failure recorded in report, got %+v", report.Deliveries)
	}
	if report.TotalDelivered != 1 {
		t.Fatalf("expected only primary delivered, got %d", report.TotalDelivered)
	}
}

func TestRouteCountsOfflineRecipients(t *testing.T) {
	t.Parallel()

	sender := newFakeSender()
	sender.offline["offline-1"] = true
	router := NewRouter(sender, &fakeRelationships{})

	report := router.Route(context.Background(), Notification{
		Event:          realtime.NewEvent(realtime.EventScoreUpdate, nil),
		PrimaryUserIDs: []string{"online-1", "offline-1"},
	})

	primary := report.Deliveries[0]
	if primary.Recipients != 2 || primary.Delivered != 1 {
		t.Fatalf("expected 2 recipients with 1 delivered, got %+v", primary)
	}
}

func TestHandlePresenceNotifiesFriends(t *testing.T) {
	t.Parallel()

	sender := newFakeSender()
	rel := &fakeRelationships{byKind: map[store.RelationshipKind][]string{
		store.RelFriend: {"friend-1", "friend-2"},
	}}
	router := NewRouter(sender, rel)

	router.HandlePresence(realtime.PresenceEvent{
		UserID:   "player-1",
		Online:   true,
		LastSeen: time.Now(),
	})

	if sender.sentTo("friend-1") != 1 || sender.sentTo("friend-2") != 1 {
		t.Fatal("expected both friends to receive the presence event")
	}
	if sender.sentTo("player-1") != 0 {
		t.Fatal("expected the user not to receive their own presence event")
	}
}
