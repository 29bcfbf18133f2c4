/*
Package realtime contains the core logic for live connections, presence, room
membership, and event fan-out.

This file defines the Registry, the process-wide owner of the mapping from a
logical user identity to its live transport connections. All connection
creation, delivery, and destruction flows through it.
*/
package realtime

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rktkdduq01/study-app-sub002/internal/pkg/errs"
	"github.com/rktkdduq01/study-app-sub002/internal/pkg/logx"
	"github.com/rktkdduq01/study-app-sub002/internal/pkg/randx"
)

// membershipDropper is notified when an unregistered connection must be
// removed from the rooms it joined. The Directory implements it; the indirection
// exists only to keep construction order flexible.
type membershipDropper interface {
	dropConnection(roomID, userID, connID string)
}

// Registry owns all live Conns. It starts empty, holds no persisted state, and
// is safe for concurrent use by one goroutine per connection plus the health
// monitor.
type Registry struct {
	maxConns int
	presence *PresenceTracker
	logger   zerolog.Logger

	// now is the clock source; tests substitute a fixed clock.
	now func() time.Time

	mu          sync.RWMutex
	conns       map[string]*Conn
	byUser      map[string]map[string]*Conn
	byTransport map[Transport]string
	dropper     membershipDropper
	closed      bool
}

// NewRegistry constructs an empty Registry bounded at maxConns live
// connections.
func NewRegistry(maxConns int, presence *PresenceTracker) *Registry {
	return &Registry{
		maxConns:    maxConns,
		presence:    presence,
		logger:      logx.Component("registry"),
		now:         time.Now,
		conns:       make(map[string]*Conn),
		byUser:      make(map[string]map[string]*Conn),
		byTransport: make(map[Transport]string),
	}
}

func (r *Registry) bindDropper(d membershipDropper) {
	r.mu.Lock()
	r.dropper = d
	r.mu.Unlock()
}

// Register creates a Connection for the user's transport and returns its
// connection ID. Registering a transport that is already live returns its
// existing connection ID. It fails only when the registry is at capacity or
// draining.
func (r *Registry) Register(userID string, transport Transport) (string, *errs.CustomError) {
	now := r.now()
	conn := newConn(randx.ConnectionID(), userID, transport, now)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return "", errs.NewError(errs.ErrServerDraining)
	}
	if existing, ok := r.byTransport[transport]; ok {
		r.mu.Unlock()
		return existing, nil
	}
	if r.maxConns > 0 && len(r.conns) >= r.maxConns {
		r.mu.Unlock()
		r.logger.Warn().Str("user_id", userID).Int("max_connections", r.maxConns).
			Msg("Connection rejected: registry at capacity.")
		return "", errs.NewError(errs.ErrConnectionLimit)
	}

	r.conns[conn.ID] = conn
	r.byTransport[transport] = conn.ID
	userConns, ok := r.byUser[userID]
	if !ok {
		userConns = make(map[string]*Conn)
		r.byUser[userID] = userConns
	}
	userConns[conn.ID] = conn
	total := len(r.conns)
	r.mu.Unlock()

	r.presence.connected(userID, now)

	r.logger.Info().Str("conn_id", conn.ID).Str("user_id", userID).
		Int("total_connections", total).Msg("Connection registered.")

	return conn.ID, nil
}

// Unregister removes the Connection, drops its room memberships, and closes
// its transport. Calling it for an unknown or already-removed connection is a
// no-op.
func (r *Registry) Unregister(connID string) {
	r.mu.Lock()
	conn, ok := r.conns[connID]
	if !ok {
		r.mu.Unlock()
		return
	}

	delete(r.conns, connID)
	delete(r.byTransport, conn.transport)
	if userConns, ok := r.byUser[conn.UserID]; ok {
		delete(userConns, connID)
		if len(userConns) == 0 {
			delete(r.byUser, conn.UserID)
		}
	}
	dropper := r.dropper
	r.mu.Unlock()

	// Membership cleanup and transport close happen outside the registry lock
	// so a slow room or socket cannot stall Send for other connections.
	if dropper != nil {
		for _, roomID := range conn.roomSnapshot() {
			dropper.dropConnection(roomID, conn.UserID, connID)
		}
	}

	if err := conn.transport.Close(); err != nil {
		r.logger.Debug().Err(err).Str("conn_id", connID).Msg("Transport close reported error.")
	}

	r.presence.disconnected(conn.UserID, r.now())

	r.logger.Info().Str("conn_id", connID).Str("user_id", conn.UserID).
		Msg("Connection unregistered.")
}

// Send delivers an event to a single connection. A transport failure
// unregisters the connection automatically and reports false.
func (r *Registry) Send(connID string, event Event) bool {
	r.mu.RLock()
	conn, ok := r.conns[connID]
	r.mu.RUnlock()

	if !ok {
		return false
	}

	if err := conn.transport.WriteEvent(event); err != nil {
		r.logger.Warn().Err(err).Str("conn_id", connID).Str("user_id", conn.UserID).
			Str("event_type", string(event.Type)).Msg("Transport write failed, unregistering connection.")
		r.Unregister(connID)
		return false
	}

	return true
}

// SendToUser fans an event out to every live connection of a user and returns
// the number of connections delivered. Zero means the user is offline; the
// caller decides whether that matters.
func (r *Registry) SendToUser(userID string, event Event) int {
	r.mu.RLock()
	userConns := make([]*Conn, 0, len(r.byUser[userID]))
	for _, conn := range r.byUser[userID] {
		userConns = append(userConns, conn)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, conn := range userConns {
		if r.Send(conn.ID, event) {
			delivered++
		}
	}
	return delivered
}

// Heartbeat records transport liveness for the connection.
func (r *Registry) Heartbeat(connID string) {
	r.mu.RLock()
	conn, ok := r.conns[connID]
	r.mu.RUnlock()

	if !ok {
		return
	}

	now := r.now()
	conn.heartbeat(now)
	r.presence.touch(conn.UserID, now)
}

// Kick closes the connection with a close code and reason, then unregisters it.
func (r *Registry) Kick(connID string, code int, reason string) {
	r.mu.RLock()
	conn, ok := r.conns[connID]
	r.mu.RUnlock()

	if !ok {
		return
	}

	conn.transport.Kick(code, reason)
	r.Unregister(connID)
}

// Connection returns the Conn for an ID, or nil when unknown.
func (r *Registry) Connection(connID string) *Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conns[connID]
}

// UserConnections returns a snapshot of a user's live connections.
func (r *Registry) UserConnections(userID string) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*Conn, 0, len(r.byUser[userID]))
	for _, conn := range r.byUser[userID] {
		conns = append(conns, conn)
	}
	return conns
}

// Connections returns a snapshot of every live connection; the health monitor
// sweeps over this without holding the registry lock.
func (r *Registry) Connections() []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*Conn, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	return conns
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Shutdown drains the registry: new registrations are rejected, every live
// connection receives the shutdown notice, and all transports are closed.
func (r *Registry) Shutdown(notice Event) {
	r.mu.Lock()
	r.closed = true
	conns := make([]*Conn, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	r.mu.Unlock()

	r.logger.Info().Int("connections", len(conns)).Msg("Draining registry.")

	for _, conn := range conns {
		if err := conn.transport.WriteEvent(notice); err != nil {
			r.logger.Debug().Err(err).Str("conn_id", conn.ID).Msg("Shutdown notice delivery failed.")
		}
		r.Unregister(conn.ID)
	}

	r.logger.Info().Msg("Registry drained.")
}
