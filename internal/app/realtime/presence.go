/*
Package realtime contains the core logic for live connections, presence, room
membership, and event fan-out.

This file defines the PresenceTracker, which derives online/offline status and
last-activity from Connection Registry events. Presence is not persisted; a
user is online exactly while they hold at least one live connection.
*/
package realtime

import (
	"sync"
	"time"
)

// PresenceEvent reports a user's online/offline transition to subscribers.
type PresenceEvent struct {
	UserID   string
	Online   bool
	LastSeen time.Time
}

// PresenceTracker derives per-user presence from connection lifecycle events.
// Subscribers (notification router, session engine) are invoked synchronously
// on every transition, so presence flips the instant the registry reports a
// change.
type PresenceTracker struct {
	mu       sync.RWMutex
	liveConn map[string]int
	lastSeen map[string]time.Time

	subMu sync.RWMutex
	subs  []func(PresenceEvent)
}

// NewPresenceTracker constructs an empty tracker.
func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{
		liveConn: make(map[string]int),
		lastSeen: make(map[string]time.Time),
	}
}

// Subscribe registers a callback invoked on every online/offline transition.
// Subscriptions must be installed during wiring, before traffic flows.
func (p *PresenceTracker) Subscribe(fn func(PresenceEvent)) {
	p.subMu.Lock()
	p.subs = append(p.subs, fn)
	p.subMu.Unlock()
}

// IsOnline reports whether the user holds at least one live connection.
func (p *PresenceTracker) IsOnline(userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.liveConn[userID] > 0
}

// LastSeen returns the user's most recent activity timestamp. The zero time
// means the user has never been seen by this process.
func (p *PresenceTracker) LastSeen(userID string) time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastSeen[userID]
}

// connected records a new live connection for the user, emitting an online
// event when this is their first.
func (p *PresenceTracker) connected(userID string, at time.Time) {
	p.mu.Lock()
	p.liveConn[userID]++
	first := p.liveConn[userID] == 1
	if at.After(p.lastSeen[userID]) {
		p.lastSeen[userID] = at
	}
	p.mu.Unlock()

	if first {
		p.emit(PresenceEvent{UserID: userID, Online: true, LastSeen: at})
	}
}

// disconnected records a closed connection, emitting an offline event when the
// user's last connection goes away.
func (p *PresenceTracker) disconnected(userID string, at time.Time) {
	p.mu.Lock()
	if p.liveConn[userID] > 0 {
		p.liveConn[userID]--
	}
	last := p.liveConn[userID] == 0
	if last {
		delete(p.liveConn, userID)
	}
	if at.After(p.lastSeen[userID]) {
		p.lastSeen[userID] = at
	}
	seen := p.lastSeen[userID]
	p.mu.Unlock()

	if last {
		p.emit(PresenceEvent{UserID: userID, Online: false, LastSeen: seen})
	}
}

// touch advances the user's last-seen timestamp on heartbeat.
func (p *PresenceTracker) touch(userID string, at time.Time) {
	p.mu.Lock()
	if at.After(p.lastSeen[userID]) {
		p.lastSeen[userID] = at
	}
	p.mu.Unlock()
}

func (p *PresenceTracker) emit(event PresenceEvent) {
	p.subMu.RLock()
	subs := make([]func(PresenceEvent), len(p.subs))
	copy(subs, p.subs)
	p.subMu.RUnlock()

	for _, fn := range subs {
		fn(event)
	}
}
