/*
Package realtime contains the core logic for live connections, presence, room
membership, and event fan-out.

This file defines the wire protocol: outbound events delivered to clients and
inbound frames parsed from them. Inbound frames are a tagged union — the frame
type selects the payload struct — so the dispatch boundary handles every
recognized type exhaustively and rejects the rest.
*/
package realtime

import (
	"encoding/json"
	"time"
)

// EventType names an outbound event delivered to clients.
type EventType string

const (
	// EventAuthAck acknowledges a successful authenticate frame.
	EventAuthAck EventType = "auth_ack"

	// EventError carries a business error code and message to the client.
	EventError EventType = "error"

	// EventPong answers an inbound ping frame.
	EventPong EventType = "pong"

	// EventProbe is the heartbeat probe sent by the health monitor when a
	// connection has been silent past the warn threshold.
	EventProbe EventType = "probe"

	// EventPresenceChanged reports a user's online/offline transition.
	EventPresenceChanged EventType = "presence_changed"

	// EventRoomUserJoined and EventRoomUserLeft report room membership changes.
	EventRoomUserJoined EventType = "room_user_joined"
	EventRoomUserLeft   EventType = "room_user_left"

	// EventChatMessage is a chat message re-broadcast to a room.
	EventChatMessage EventType = "chat_message"

	// EventChatAck confirms a sender's chat message with its server-assigned ID.
	EventChatAck EventType = "chat_ack"

	// EventAttachmentsShared announces study material shared into a room.
	EventAttachmentsShared EventType = "attachments_shared"

	// Session lifecycle events broadcast to the session's room.
	EventSessionPlayerJoined EventType = "session_player_joined"
	EventSessionPlayerLeft   EventType = "session_player_left"
	EventSessionLeaderChange EventType = "session_leader_changed"
	EventSessionStarted      EventType = "session_started"
	EventScoreUpdate         EventType = "score_update"
	EventSessionCompleted    EventType = "session_completed"

	// EventShutdown is the drain notice broadcast before connections close.
	EventShutdown EventType = "server_shutdown"
)

// Event is the outbound message envelope written to a transport.
type Event struct {
	Type      EventType `json:"type"`
	Data      any       `json:"data,omitempty"`
	Timestamp int64     `json:"timestamp"`
}

// NewEvent constructs an Event stamped with the current wall clock in
// milliseconds.
func NewEvent(eventType EventType, data any) Event {
	return Event{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}
}

// PresencePayload is the data of an EventPresenceChanged event.
type PresencePayload struct {
	UserID   string `json:"userId"`
	Online   bool   `json:"online"`
	LastSeen int64  `json:"lastSeen"`
}

// AuthAckPayload is the data of an EventAuthAck event.
type AuthAckPayload struct {
	ConnID      string `json:"connId"`
	UserID      string `json:"userId"`
	SessionCode string `json:"sessionCode,omitempty"`
}

// MaxChatContentBytes bounds the size of one chat message body.
const MaxChatContentBytes = 2000

// ChatMessageEvent is the data of an EventChatMessage broadcast.
type ChatMessageEvent struct {
	MessageID string `json:"messageId"`
	RoomID    string `json:"roomId"`
	SenderID  string `json:"senderId"`
	Content   string `json:"content"`
}

// ChatAckPayload confirms a sender's message with its server-assigned ID.
type ChatAckPayload struct {
	TempID    string `json:"tempId,omitempty"`
	MessageID string `json:"messageId"`
	RoomID    string `json:"roomId"`
}

// AttachmentsSharedEvent is the data of an EventAttachmentsShared broadcast.
type AttachmentsSharedEvent struct {
	RoomID      string             `json:"roomId"`
	SenderID    string             `json:"senderId"`
	Description string             `json:"description,omitempty"`
	Attachments []SharedAttachment `json:"attachments"`
}

// RoomMemberPayload is the data of room membership events.
type RoomMemberPayload struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

// ErrorPayload is the data of an EventError event.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// FrameType names an inbound frame type.
type FrameType string

const (
	FrameAuthenticate     FrameType = "authenticate"
	FrameJoinRoom         FrameType = "join_room"
	FrameLeaveRoom        FrameType = "leave_room"
	FramePing             FrameType = "ping"
	FrameChatMessage      FrameType = "chat_message"
	FrameShareAttachments FrameType = "share_attachments"
	FrameJoinSession      FrameType = "join_session"
	FrameStartSession     FrameType = "start_session"
	FrameSubmitAnswer     FrameType = "submit_answer"
	FrameLeaveSession     FrameType = "leave_session"
)

// Frame is the inbound message envelope read from a transport.
type Frame struct {
	Type    FrameType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// AuthenticatePayload carries the identity token for the first frame of a
// connection. Replace requests that older connections of the same user in the
// same session room be kicked.
type AuthenticatePayload struct {
	Token   string `json:"token"`
	Replace bool   `json:"replace,omitempty"`
}

// JoinRoomPayload and LeaveRoomPayload carry explicit room membership requests.
type JoinRoomPayload struct {
	RoomID string `json:"roomId"`
}

type LeaveRoomPayload struct {
	RoomID string `json:"roomId"`
}

// ChatMessagePayload carries a chat message addressed to a room. TempID is the
// client's provisional identifier, echoed back in the EventChatAck.
type ChatMessagePayload struct {
	RoomID  string `json:"roomId"`
	Content string `json:"content"`
	TempID  string `json:"tempId,omitempty"`
}

// SharedAttachment describes one uploaded object shared into a room.
type SharedAttachment struct {
	Key      string `json:"fileKey"`
	Name     string `json:"fileName"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"fileSize"`
}

// ShareAttachmentsPayload carries study material references shared to a room.
type ShareAttachmentsPayload struct {
	RoomID      string             `json:"roomId"`
	Description string             `json:"description,omitempty"`
	Attachments []SharedAttachment `json:"attachments"`
}

// JoinSessionPayload carries a session join by code.
type JoinSessionPayload struct {
	Code string `json:"code"`
}

// StartSessionPayload asks the engine to start a waiting session.
type StartSessionPayload struct {
	SessionID string `json:"sessionId"`
}

// SubmitAnswerPayload carries one answer submission.
type SubmitAnswerPayload struct {
	SessionID   string `json:"sessionId"`
	Answer      string `json:"answer"`
	TimeTakenMs int64  `json:"timeTakenMs"`
}

// LeaveSessionPayload removes the sender from a session.
type LeaveSessionPayload struct {
	SessionID string `json:"sessionId"`
}
