/*
Package handler provides the WebSocket entry point and inbound frame dispatch.

This file contains HandleWebSocket, which rate-limits and upgrades the
connection, and the gateway that drives a connection's lifecycle: the first
frame must authenticate, after which frames are dispatched to the room
directory and the session engine. Every recognized frame type is handled
explicitly; anything else is rejected.
*/
package handler

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/rktkdduq01/study-app-sub002/internal/app/realtime"
	"github.com/rktkdduq01/study-app-sub002/internal/app/session"
	"github.com/rktkdduq01/study-app-sub002/internal/pkg/auth/jwt"
	"github.com/rktkdduq01/study-app-sub002/internal/pkg/errs"
	"github.com/rktkdduq01/study-app-sub002/internal/pkg/limiter"
	"github.com/rktkdduq01/study-app-sub002/internal/pkg/logx"
	"github.com/rktkdduq01/study-app-sub002/internal/pkg/randx"
	"github.com/rktkdduq01/study-app-sub002/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection
// requests. Identity is established by the first frame, not the URL, so a
// token never appears in access logs.
func HandleWebSocket(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := limiter.ClientIP(r)
		if !rateLimiter.GetLimiter(ip).Allow() {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		client := realtime.NewWSClient(conn)
		g := &wsGateway{
			deps:   deps,
			client: client,
			logger: logx.Component("ws_gateway"),
		}

		go client.WritePump()
		client.ReadPump(g.handleFrame, g.cleanup)
	}
}

// wsGateway holds per-connection dispatch state. connID stays empty until the
// authenticate frame succeeds.
type wsGateway struct {
	deps   *AppDeps
	client *realtime.WSClient
	logger zerolog.Logger

	mu          sync.Mutex
	connID      string
	userID      string
	sessionCode string
}

func (g *wsGateway) identity() (connID, userID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.connID, g.userID
}

func (g *wsGateway) sendError(customErr *errs.CustomError) {
	event := realtime.NewEvent(realtime.EventError, realtime.ErrorPayload{
		Code:    customErr.Code,
		Message: customErr.Message,
	})
	if err := g.client.WriteEvent(event); err != nil {
		g.logger.Debug().Err(err).Msg("Failed to deliver error event.")
	}
}

func (g *wsGateway) cleanup() {
	connID, _ := g.identity()
	if connID != "" {
		g.deps.Registry.Unregister(connID)
		return
	}
	g.client.Close()
}

func (g *wsGateway) handleFrame(frame realtime.Frame) {
	if frame.Type == realtime.FrameAuthenticate {
		g.handleAuthenticate(frame.Payload)
		return
	}

	connID, userID := g.identity()
	if connID == "" {
		g.sendError(errs.NewError(errs.ErrNotAuthenticated))
		return
	}

	switch frame.Type {
	case realtime.FramePing:
		g.deps.Registry.Heartbeat(connID)
		g.deps.Registry.Send(connID, realtime.NewEvent(realtime.EventPong, nil))

	case realtime.FrameJoinRoom:
		g.handleJoinRoom(frame.Payload, connID, userID)

	case realtime.FrameLeaveRoom:
		g.handleLeaveRoom(frame.Payload, connID, userID)

	case realtime.FrameChatMessage:
		g.handleChatMessage(frame.Payload, connID, userID)

	case realtime.FrameShareAttachments:
		g.handleShareAttachments(frame.Payload, userID)

	case realtime.FrameJoinSession:
		g.handleJoinSession(frame.Payload, connID, userID)

	case realtime.FrameStartSession:
		g.handleStartSession(frame.Payload, userID)

	case realtime.FrameSubmitAnswer:
		g.handleSubmitAnswer(frame.Payload, userID)

	case realtime.FrameLeaveSession:
		g.handleLeaveSession(frame.Payload, connID, userID)

	default:
		g.logger.Warn().Str("frame_type", string(frame.Type)).Msg("Unrecognized frame type.")
		g.sendError(errs.NewError(errs.ErrInvalidParams))
	}
}

func (g *wsGateway) handleAuthenticate(raw json.RawMessage) {
	var payload realtime.AuthenticatePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		g.sendError(errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	if connID, _ := g.identity(); connID != "" {
		g.sendError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	claims, err := jwt.ParseToken(payload.Token, g.deps.Config.JWTSecret)
	if err != nil {
		g.logger.Warn().Err(err).Msg("WebSocket authenticate rejected: invalid token.")
		g.sendError(errs.NewError(errs.ErrUnauthorized))
		g.client.Close()
		return
	}

	connID, regErr := g.deps.Registry.Register(claims.ID, g.client)
	if regErr != nil {
		g.sendError(regErr)
		g.client.Close()
		return
	}

	g.mu.Lock()
	g.connID = connID
	g.userID = claims.ID
	g.sessionCode = claims.SessionCode
	g.mu.Unlock()

	g.client.BindPong(func() {
		g.deps.Registry.Heartbeat(connID)
	})

	// An explicit replace kicks the user's older connections, the
	// connected-from-another-device flow.
	if payload.Replace {
		for _, other := range g.deps.Registry.UserConnections(claims.ID) {
			if other.ID != connID {
				g.deps.Registry.Kick(other.ID, realtime.WSCloseCodeKicked,
					errs.NewError(errs.ErrConnectionKicked).Message)
			}
		}
	}

	g.deps.Registry.Send(connID, realtime.NewEvent(realtime.EventAuthAck, realtime.AuthAckPayload{
		ConnID:      connID,
		UserID:      claims.ID,
		SessionCode: claims.SessionCode,
	}))
}

func (g *wsGateway) handleJoinRoom(raw json.RawMessage, connID, userID string) {
	var payload realtime.JoinRoomPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		g.sendError(errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	// Session rooms are managed through join_session only.
	if room := g.deps.Directory.Room(payload.RoomID); room != nil && room.Kind == realtime.RoomSession {
		g.sendError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	if joinErr := g.deps.Directory.Join(payload.RoomID, userID, connID); joinErr != nil {
		g.sendError(joinErr)
	}
}

func (g *wsGateway) handleLeaveRoom(raw json.RawMessage, connID, userID string) {
	var payload realtime.LeaveRoomPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		g.sendError(errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	if leaveErr := g.deps.Directory.Leave(payload.RoomID, userID, connID); leaveErr != nil {
		g.sendError(leaveErr)
	}
}

func (g *wsGateway) handleChatMessage(raw json.RawMessage, connID, userID string) {
	var payload realtime.ChatMessagePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		g.sendError(errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	if payload.RoomID == "" || payload.Content == "" {
		g.sendError(errs.NewError(errs.ErrInvalidParams))
		return
	}
	if len(payload.Content) > realtime.MaxChatContentBytes {
		g.sendError(errs.NewError(errs.ErrMessageContentTooLong))
		return
	}
	if !g.deps.Directory.IsMember(payload.RoomID, userID) {
		g.sendError(errs.NewError(errs.ErrNotMember))
		return
	}

	messageID := randx.MessageID()
	g.deps.Directory.Broadcast(payload.RoomID, realtime.NewEvent(realtime.EventChatMessage, realtime.ChatMessageEvent{
		MessageID: messageID,
		RoomID:    payload.RoomID,
		SenderID:  userID,
		Content:   payload.Content,
	}), userID)

	g.deps.Registry.Send(connID, realtime.NewEvent(realtime.EventChatAck, realtime.ChatAckPayload{
		TempID:    payload.TempID,
		MessageID: messageID,
		RoomID:    payload.RoomID,
	}))
}

func (g *wsGateway) handleShareAttachments(raw json.RawMessage, userID string) {
	var payload realtime.ShareAttachmentsPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		g.sendError(errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	if !g.deps.Directory.IsMember(payload.RoomID, userID) {
		g.sendError(errs.NewError(errs.ErrNotMember))
		return
	}
	if validateErr := realtime.ValidateAttachments(payload.RoomID, payload.Attachments); validateErr != nil {
		g.sendError(validateErr)
		return
	}

	g.deps.Directory.Broadcast(payload.RoomID, realtime.NewEvent(realtime.EventAttachmentsShared, realtime.AttachmentsSharedEvent{
		RoomID:      payload.RoomID,
		SenderID:    userID,
		Description: payload.Description,
		Attachments: payload.Attachments,
	}), "")
}

func (g *wsGateway) handleJoinSession(raw json.RawMessage, connID, userID string) {
	var payload realtime.JoinSessionPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		g.sendError(errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	// A session token minted by the HTTP create/join endpoints already
	// carries the join code, so the frame may omit it.
	code := payload.Code
	if code == "" {
		g.mu.Lock()
		code = g.sessionCode
		g.mu.Unlock()
	}
	if code == "" {
		g.sendError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	snap, joinErr := g.deps.Engine.JoinSession(code, userID)
	if joinErr != nil {
		// A seat reserved over HTTP (or held on another device) is fine;
		// this connection still binds to the session room below.
		if joinErr.Code != errs.ErrAlreadyJoined {
			g.sendError(joinErr)
			return
		}
		sessionID, ok := g.deps.Engine.SessionIDByCode(code)
		if !ok {
			g.sendError(errs.NewError(errs.ErrSessionNotFound))
			return
		}
		current, snapErr := g.deps.Engine.Snapshot(sessionID)
		if snapErr != nil {
			g.sendError(snapErr)
			return
		}
		snap = current
	}

	roomID := session.RoomID(snap.ID)
	if roomErr := g.deps.Directory.Join(roomID, userID, connID); roomErr != nil && roomErr.Code != errs.ErrAlreadyMember {
		g.sendError(roomErr)
		return
	}

	// The room broadcast fired before this connection was in the room, so
	// deliver the current view directly.
	g.deps.Registry.Send(connID, realtime.NewEvent(realtime.EventSessionPlayerJoined, session.PlayerEvent{
		SessionID: snap.ID,
		UserID:    userID,
		Session:   snap,
	}))
}

func (g *wsGateway) handleStartSession(raw json.RawMessage, userID string) {
	var payload realtime.StartSessionPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		g.sendError(errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	if startErr := g.deps.Engine.StartSession(payload.SessionID, userID); startErr != nil {
		g.sendError(startErr)
	}
}

func (g *wsGateway) handleSubmitAnswer(raw json.RawMessage, userID string) {
	var payload realtime.SubmitAnswerPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		g.sendError(errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	timeTaken := time.Duration(payload.TimeTakenMs) * time.Millisecond
	if _, submitErr := g.deps.Engine.SubmitAnswer(payload.SessionID, userID, payload.Answer, timeTaken); submitErr != nil {
		g.sendError(submitErr)
	}
}

func (g *wsGateway) handleLeaveSession(raw json.RawMessage, connID, userID string) {
	var payload realtime.LeaveSessionPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		g.sendError(errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	if leaveErr := g.deps.Engine.LeaveSession(payload.SessionID, userID); leaveErr != nil {
		g.sendError(leaveErr)
		return
	}
	g.deps.Directory.Leave(session.RoomID(payload.SessionID), userID, connID)
}
