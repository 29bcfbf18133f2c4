/*
Package realtime contains the core logic for live connections, presence, room
membership, and event fan-out.

This file defines the Directory, the owner of room membership sets. Capacity
checks are atomic with membership mutation under a per-room lock, so two
simultaneous joins at the capacity boundary deterministically admit exactly one.
Broadcast resolves a member snapshot under the lock and sends outside it.
*/
package realtime

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/rktkdduq01/study-app-sub002/internal/pkg/errs"
	"github.com/rktkdduq01/study-app-sub002/internal/pkg/logx"
)

// RoomKind classifies a broadcast domain.
type RoomKind string

const (
	// RoomDirect is a small ephemeral room (one-on-one chat, study pair).
	RoomDirect RoomKind = "direct"

	// RoomGuild is a persistent guild channel that outlives emptiness.
	RoomGuild RoomKind = "guild"

	// RoomSession is the ephemeral lobby bound to one multiplayer session.
	RoomSession RoomKind = "session"

	// RoomBroadcast is a persistent announcement channel.
	RoomBroadcast RoomKind = "broadcast"
)

// Ephemeral reports whether rooms of this kind are destroyed when their last
// member leaves.
func (k RoomKind) Ephemeral() bool {
	return k == RoomDirect || k == RoomSession
}

// Valid reports whether k is a recognized room kind.
func (k RoomKind) Valid() bool {
	switch k {
	case RoomDirect, RoomGuild, RoomSession, RoomBroadcast:
		return true
	}
	return false
}

// Room is a named broadcast domain. Membership is tracked per user and per
// connection: a user occupies one capacity slot however many devices they
// join from, and leaves the room only when their last connection does.
type Room struct {
	ID       string
	Kind     RoomKind
	Capacity int // 0 means unbounded

	mu      sync.Mutex
	members map[string]map[string]struct{} // userID -> set of connIDs
}

func newRoom(id string, kind RoomKind, capacity int) *Room {
	return &Room{
		ID:       id,
		Kind:     kind,
		Capacity: capacity,
		members:  make(map[string]map[string]struct{}),
	}
}

// memberSnapshot returns the users currently in the room.
func (room *Room) memberSnapshot() []string {
	room.mu.Lock()
	defer room.mu.Unlock()

	users := make([]string, 0, len(room.members))
	for userID := range room.members {
		users = append(users, userID)
	}
	return users
}

// Directory owns the room table. It resolves member users to transports via
// the Registry, which in turn notifies the Directory when a dying connection
// must be dropped from its rooms.
type Directory struct {
	reg    *Registry
	logger zerolog.Logger

	mu    sync.RWMutex
	rooms map[string]*Room
}

// NewDirectory constructs an empty Directory wired to the registry.
func NewDirectory(reg *Registry) *Directory {
	d := &Directory{
		reg:    reg,
		logger: logx.Component("directory"),
		rooms:  make(map[string]*Room),
	}
	reg.bindDropper(d)
	return d
}

// CreateRoom registers a room. Creating an existing room is a no-op returning
// the existing instance, so callers may use it as ensure-exists.
func (d *Directory) CreateRoom(roomID string, kind RoomKind, capacity int) (*Room, *errs.CustomError) {
	if !kind.Valid() {
		return nil, errs.NewError(errs.ErrRoomKindInvalid)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if room, ok := d.rooms[roomID]; ok {
		return room, nil
	}

	room := newRoom(roomID, kind, capacity)
	d.rooms[roomID] = room

	d.logger.Info().Str("room_id", roomID).Str("kind", string(kind)).
		Int("capacity", capacity).Msg("Room created.")

	return room, nil
}

// Room returns the room for an ID, or nil when unknown.
func (d *Directory) Room(roomID string) *Room {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.rooms[roomID]
}

// Join adds the user's connection to the room. The capacity check and the add
// happen under the room lock, so concurrent joins cannot overshoot the bound.
func (d *Directory) Join(roomID, userID, connID string) *errs.CustomError {
	d.mu.RLock()
	room := d.rooms[roomID]
	d.mu.RUnlock()

	if room == nil {
		return errs.NewError(errs.ErrRoomNotFound)
	}

	conn := d.reg.Connection(connID)
	if conn == nil || conn.UserID != userID {
		return errs.NewError(errs.ErrNotAuthenticated)
	}

	room.mu.Lock()
	connSet, isMember := room.members[userID]
	if isMember {
		if _, ok := connSet[connID]; ok {
			room.mu.Unlock()
			return errs.NewError(errs.ErrAlreadyMember)
		}
	} else {
		if room.Capacity > 0 && len(room.members) >= room.Capacity {
			room.mu.Unlock()
			d.logger.Info().Str("room_id", roomID).Str("user_id", userID).
				Int("capacity", room.Capacity).Msg("Join rejected: room full.")
			return errs.NewError(errs.ErrRoomIsFull)
		}
		connSet = make(map[string]struct{})
		room.members[userID] = connSet
	}
	connSet[connID] = struct{}{}
	room.mu.Unlock()

	conn.trackRoom(roomID)

	if !isMember {
		d.Broadcast(roomID, NewEvent(EventRoomUserJoined, RoomMemberPayload{RoomID: roomID, UserID: userID}), userID)
	}

	return nil
}

// Leave removes the user's connection from the room. When the user's last
// connection leaves, the user leaves the room; when an ephemeral room empties,
// it is destroyed.
func (d *Directory) Leave(roomID, userID, connID string) *errs.CustomError {
	d.mu.RLock()
	room := d.rooms[roomID]
	d.mu.RUnlock()

	if room == nil {
		return errs.NewError(errs.ErrRoomNotFound)
	}

	userLeft := d.removeMembership(room, userID, connID)
	if !userLeft {
		return nil
	}

	d.Broadcast(roomID, NewEvent(EventRoomUserLeft, RoomMemberPayload{RoomID: roomID, UserID: userID}), userID)
	return nil
}

// dropConnection is the registry's cleanup path for dying connections. Unlike
// Leave it never errors and skips the departure broadcast when the user still
// has other live connections in the room.
func (d *Directory) dropConnection(roomID, userID, connID string) {
	d.mu.RLock()
	room := d.rooms[roomID]
	d.mu.RUnlock()

	if room == nil {
		return
	}

	if d.removeMembership(room, userID, connID) {
		d.Broadcast(roomID, NewEvent(EventRoomUserLeft, RoomMemberPayload{RoomID: roomID, UserID: userID}), userID)
	}
}

// removeMembership detaches one connection from the room and reports whether
// the user's room membership ended with it. Empty ephemeral rooms are removed
// from the table.
func (d *Directory) removeMembership(room *Room, userID, connID string) bool {
	if conn := d.reg.Connection(connID); conn != nil {
		conn.untrackRoom(room.ID)
	}

	room.mu.Lock()
	connSet, isMember := room.members[userID]
	if !isMember {
		room.mu.Unlock()
		return false
	}

	delete(connSet, connID)
	userLeft := len(connSet) == 0
	if userLeft {
		delete(room.members, userID)
	}
	empty := len(room.members) == 0
	room.mu.Unlock()

	if empty && room.Kind.Ephemeral() {
		d.destroyIfEmpty(room)
	}

	return userLeft
}

// destroyIfEmpty removes an ephemeral room from the table, rechecking
// emptiness under both locks so a concurrent join cannot be stranded.
func (d *Directory) destroyIfEmpty(room *Room) {
	d.mu.Lock()
	room.mu.Lock()
	if len(room.members) == 0 && d.rooms[room.ID] == room {
		delete(d.rooms, room.ID)
		d.logger.Info().Str("room_id", room.ID).Msg("Empty ephemeral room destroyed.")
	}
	room.mu.Unlock()
	d.mu.Unlock()
}

// DeleteRoom removes a room regardless of membership. Used for explicit
// deletion of persistent rooms and for session rooms on completion.
func (d *Directory) DeleteRoom(roomID string) {
	d.mu.Lock()
	room := d.rooms[roomID]
	delete(d.rooms, roomID)
	d.mu.Unlock()

	if room == nil {
		return
	}

	for _, userID := range room.memberSnapshot() {
		for _, conn := range d.reg.UserConnections(userID) {
			conn.untrackRoom(roomID)
		}
	}

	d.logger.Info().Str("room_id", roomID).Msg("Room deleted.")
}

// Members returns the users currently in the room.
func (d *Directory) Members(roomID string) []string {
	d.mu.RLock()
	room := d.rooms[roomID]
	d.mu.RUnlock()

	if room == nil {
		return nil
	}

	return room.memberSnapshot()
}

// IsMember reports whether the user currently belongs to the room.
func (d *Directory) IsMember(roomID, userID string) bool {
	d.mu.RLock()
	room := d.rooms[roomID]
	d.mu.RUnlock()

	if room == nil {
		return false
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	_, ok := room.members[userID]
	return ok
}

// Broadcast delivers an event to every member user of the room except the
// optional excluded sender, returning the number of connections delivered.
// The member list is a snapshot: a member leaving mid-broadcast may or may not
// receive this one event, but never one sent after their Leave completed.
func (d *Directory) Broadcast(roomID string, event Event, excludeUserID string) int {
	d.mu.RLock()
	room := d.rooms[roomID]
	d.mu.RUnlock()

	if room == nil {
		return 0
	}

	delivered := 0
	for _, userID := range room.memberSnapshot() {
		if userID == excludeUserID {
			continue
		}
		delivered += d.reg.SendToUser(userID, event)
	}
	return delivered
}
