package realtime

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeTransport is an in-memory Transport recording everything written to it.
type fakeTransport struct {
	mu      sync.Mutex
	events  []Event
	failing bool
	closed  bool
	kicked  bool
}

func (t *fakeTransport) WriteEvent(event Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.failing {
		return fmt.Errorf("transport closed")
	}
	t.events = append(t.events, event)
	return nil
}

func (t *fakeTransport) Kick(code int, reason string) {
	t.mu.Lock()
	t.kicked = true
	t.mu.Unlock()
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	return nil
}

func (t *fakeTransport) fail() {
	t.mu.Lock()
	t.failing = true
	t.mu.Unlock()
}

func (t *fakeTransport) eventCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.events)
}

func (t *fakeTransport) lastEvent() (Event, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.events) == 0 {
		return Event{}, false
	}
	return t.events[len(t.events)-1], true
}

func newTestRegistry(maxConns int) (*Registry, *PresenceTracker) {
	presence := NewPresenceTracker()
	return NewRegistry(maxConns, presence), presence
}

func TestRegisterFlipsPresenceOnline(t *testing.T) {
	t.Parallel()

	reg, presence := newTestRegistry(0)

	if presence.IsOnline("user-1") {
		t.Fatal("expected user-1 offline before any connection")
	}

	connID, err := reg.Register("user-1", &fakeTransport{})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if connID == "" {
		t.Fatal("expected non-empty connection id")
	}

	if !presence.IsOnline("user-1") {
		t.Fatal("expected user-1 online immediately after register")
	}

	reg.Unregister(connID)

	if presence.IsOnline("user-1") {
		t.Fatal("expected user-1 offline after last connection unregistered")
	}
}

func TestMultiDevicePresenceSurvivesPartialDisconnect(t *testing.T) {
	t.Parallel()

	reg, presence := newTestRegistry(0)

	first, _ := reg.Register("user-1", &fakeTransport{})
	second, _ := reg.Register("user-1", &fakeTransport{})

	reg.Unregister(first)

	if !presence.IsOnline("user-1") {
		t.Fatal("expected user-1 online while second device connected")
	}

	reg.Unregister(second)

	if presence.IsOnline("user-1") {
		t.Fatal("expected user-1 offline after both devices disconnected")
	}
}

func TestUnregisterIsIdempotent(t *testing.T) {
	t.Parallel()

	reg, presence := newTestRegistry(0)

	var transitions []PresenceEvent
	var mu sync.Mutex
	presence.Subscribe(func(ev PresenceEvent) {
		mu.Lock()
		transitions = append(transitions, ev)
		mu.Unlock()
	})

	connID, _ := reg.Register("user-1", &fakeTransport{})

	reg.Unregister(connID)
	reg.Unregister(connID)
	reg.Unregister("no-such-conn")

	mu.Lock()
	defer mu.Unlock()
	if len(transitions) != 2 {
		t.Fatalf("expected exactly one online and one offline event, got %d", len(transitions))
	}
	if !transitions[0].Online || transitions[1].Online {
		t.Fatalf("expected online then offline, got %+v", transitions)
	}
}

func TestSendToUserFansOutToAllDevices(t *testing.T) {
	t.Parallel()

	reg, _ := newTestRegistry(0)

	phone := &fakeTransport{}
	laptop := &fakeTransport{}
	reg.Register("user-1", phone)
	reg.Register("user-1", laptop)

	delivered := reg.SendToUser("user-1", NewEvent(EventChatMessage, nil))
	if delivered != 2 {
		t.Fatalf("expected delivery to 2 connections, got %d", delivered)
	}

	if phone.eventCount() != 1 || laptop.eventCount() != 1 {
		t.Fatalf("expected one event per device, got %d and %d", phone.eventCount(), laptop.eventCount())
	}

	if got := reg.SendToUser("nobody", NewEvent(EventChatMessage, nil)); got != 0 {
		t.Fatalf("expected 0 deliveries for offline user, got %d", got)
	}
}

func TestSendFailureUnregistersConnection(t *testing.T) {
	t.Parallel()

	reg, presence := newTestRegistry(0)

	transport := &fakeTransport{}
	connID, _ := reg.Register("user-1", transport)

	transport.fail()

	if reg.Send(connID, NewEvent(EventChatMessage, nil)) {
		t.Fatal("expected send to a dead transport to report failure")
	}

	if reg.Connection(connID) != nil {
		t.Fatal("expected dead connection to be unregistered")
	}
	if presence.IsOnline("user-1") {
		t.Fatal("expected user offline after eviction of only connection")
	}
}

func TestRegisterRejectsAtCapacity(t *testing.T) {
	t.Parallel()

	reg, _ := newTestRegistry(2)

	reg.Register("user-1", &fakeTransport{})
	reg.Register("user-2", &fakeTransport{})

	if _, err := reg.Register("user-3", &fakeTransport{}); err == nil {
		t.Fatal("expected capacity error for third connection")
	}
}

func TestRegisterSameTransportReturnsExistingConnection(t *testing.T) {
	t.Parallel()

	reg, _ := newTestRegistry(0)

	transport := &fakeTransport{}
	first, err := reg.Register("user-1", transport)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	second, err := reg.Register("user-1", transport)
	if err != nil {
		t.Fatalf("re-register: %v", err)
	}

	if first != second {
		t.Fatalf("expected same connection ID, got %s and %s", first, second)
	}
	if reg.Count() != 1 {
		t.Fatalf("expected a single live connection, got %d", reg.Count())
	}

	// After unregistering, the transport may register afresh.
	reg.Unregister(first)
	third, err := reg.Register("user-1", transport)
	if err != nil {
		t.Fatalf("register after unregister: %v", err)
	}
	if third == first {
		t.Fatal("expected a new connection ID after unregister")
	}
}

func TestHeartbeatAdvancesLastSeen(t *testing.T) {
	t.Parallel()

	reg, presence := newTestRegistry(0)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	current := base
	reg.now = func() time.Time { return current }

	connID, _ := reg.Register("user-1", &fakeTransport{})

	current = base.Add(30 * time.Second)
	reg.Heartbeat(connID)

	conn := reg.Connection(connID)
	if got := conn.LastHeartbeat(); !got.Equal(current) {
		t.Fatalf("expected heartbeat at %v, got %v", current, got)
	}
	if got := presence.LastSeen("user-1"); !got.Equal(current) {
		t.Fatalf("expected last seen %v, got %v", current, got)
	}
}

func TestShutdownNotifiesAndDrains(t *testing.T) {
	t.Parallel()

	reg, _ := newTestRegistry(0)

	transport := &fakeTransport{}
	reg.Register("user-1", transport)

	reg.Shutdown(NewEvent(EventShutdown, nil))

	last, ok := transport.lastEvent()
	if !ok || last.Type != EventShutdown {
		t.Fatalf("expected shutdown notice as last event, got %+v", last)
	}
	if reg.Count() != 0 {
		t.Fatalf("expected empty registry after shutdown, got %d connections", reg.Count())
	}

	if _, err := reg.Register("user-2", &fakeTransport{}); err == nil {
		t.Fatal("expected registration rejected while draining")
	}
}
