/*
Package realtime contains the core logic for live connections, presence, room
membership, and event fan-out.

This file defines the Conn record, representing one live transport channel
owned by the Registry, and the Transport interface it delivers through.
*/
package realtime

import (
	"sync"
	"time"
)

// Transport is the delivery side of one physical connection. The WebSocket
// client implements it in production; tests substitute in-memory fakes.
type Transport interface {
	// WriteEvent queues an event for delivery. An error means the transport is
	// dead or its queue is saturated; the registry reacts by unregistering.
	WriteEvent(event Event) error

	// Kick closes the transport with a close code and human-readable reason.
	Kick(code int, reason string)

	// Close releases the transport.
	Close() error
}

// Conn is one live transport channel and its registry bookkeeping. A user may
// own several Conns concurrently (multi-device). The Registry creates Conns on
// transport accept and destroys them on transport close or health-sweep
// eviction; no other component mutates them.
type Conn struct {
	// ID is the opaque identifier unique to this physical channel.
	ID string

	// UserID is the owning user.
	UserID string

	// CreatedAt is the registration timestamp.
	CreatedAt time.Time

	transport Transport

	// mu protects lastHeartbeat and rooms.
	mu            sync.Mutex
	lastHeartbeat time.Time
	rooms         map[string]struct{}
}

func newConn(id, userID string, transport Transport, now time.Time) *Conn {
	return &Conn{
		ID:            id,
		UserID:        userID,
		CreatedAt:     now,
		transport:     transport,
		lastHeartbeat: now,
		rooms:         make(map[string]struct{}),
	}
}

// heartbeat records transport liveness at the given instant.
func (c *Conn) heartbeat(at time.Time) {
	c.mu.Lock()
	c.lastHeartbeat = at
	c.mu.Unlock()
}

// LastHeartbeat returns the most recent liveness timestamp.
func (c *Conn) LastHeartbeat() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastHeartbeat
}

// trackRoom records that this connection joined a room.
func (c *Conn) trackRoom(roomID string) {
	c.mu.Lock()
	c.rooms[roomID] = struct{}{}
	c.mu.Unlock()
}

// untrackRoom removes a room from this connection's membership set.
func (c *Conn) untrackRoom(roomID string) {
	c.mu.Lock()
	delete(c.rooms, roomID)
	c.mu.Unlock()
}

// roomSnapshot returns the rooms this connection currently belongs to.
func (c *Conn) roomSnapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	rooms := make([]string, 0, len(c.rooms))
	for roomID := range c.rooms {
		rooms = append(rooms, roomID)
	}
	return rooms
}
