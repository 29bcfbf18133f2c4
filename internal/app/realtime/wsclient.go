/*
Package realtime contains the core logic for live connections, presence, room
membership, and event fan-out.

This file defines WSClient, the gorilla/websocket-backed Transport. It manages
the read and write pumps, WebSocket-level ping/pong heartbeats, and graceful
close signaling. One goroutine per pump, one WSClient per physical connection.
*/
package realtime

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/rktkdduq01/study-app-sub002/internal/pkg/logx"
)

const (
	// writeWait is the timeout for writing a frame to the socket.
	writeWait = 10 * time.Second

	// pongWait is the maximum silence tolerated before the read side gives up.
	pongWait = 60 * time.Second

	// pingPeriod is how often the write pump sends WebSocket-level pings.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize caps inbound frame size in bytes.
	maxMessageSize = 8192

	// sendQueueSize is the per-connection outbound buffer. A client that
	// cannot drain it fast enough is treated as dead.
	sendQueueSize = 256

	// WSCloseCodeKicked signals that the connection was replaced by a newer
	// one for the same user (custom close code in the 4000-4999 range).
	WSCloseCodeKicked = 4001

	// WSCloseCodeShutdown signals a server drain.
	WSCloseCodeShutdown = 4002
)

// WSClient adapts a gorilla WebSocket connection to the Transport interface.
type WSClient struct {
	conn   *websocket.Conn
	send   chan []byte
	logger zerolog.Logger

	// mu guards closed; WriteEvent must never race a Close into sending on a
	// closed channel.
	mu     sync.Mutex
	closed bool

	// onPong is invoked on every WebSocket pong so the registry heartbeat
	// stays fresh even when the client sends no application frames.
	onPong func()
}

// NewWSClient wraps an upgraded connection. onPong may be nil until bound via
// BindPong after registration.
func NewWSClient(conn *websocket.Conn) *WSClient {
	return &WSClient{
		conn:   conn,
		send:   make(chan []byte, sendQueueSize),
		logger: logx.Component("ws_client"),
	}
}

// BindPong installs the heartbeat callback once the connection is registered.
func (c *WSClient) BindPong(fn func()) {
	c.onPong = fn
}

// WriteEvent marshals the event and queues it for the write pump. A full
// queue is reported as an error so the registry evicts the connection.
func (c *WSClient) WriteEvent(event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		c.logger.Error().Err(err).Str("event_type", string(event.Type)).Msg("Error marshaling event.")
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("ws client closed")
	}

	select {
	case c.send <- payload:
		return nil
	default:
		return fmt.Errorf("ws client send queue full")
	}
}

// Kick writes a close frame with the given code and reason, then closes the
// send queue so the write pump exits.
func (c *WSClient) Kick(code int, reason string) {
	c.logger.Warn().Int("close_code", code).Str("reason", reason).Msg("Kicking WebSocket connection.")

	closeMessage := websocket.FormatCloseMessage(code, reason)

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.CloseMessage, closeMessage); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to write close frame during kick.")
	}

	c.Close()
}

// Close shuts the underlying socket. Safe to call more than once.
func (c *WSClient) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()

	return c.conn.Close()
}

// ReadPump reads frames from the socket, invoking handle for each parsed
// Frame, and cleanup exactly once when the connection dies. It blocks until
// the socket closes; the caller runs it on the connection's goroutine.
func (c *WSClient) ReadPump(handle func(Frame), cleanup func()) {
	defer cleanup()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline.")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		if c.onPong != nil {
			c.onPong()
		}
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("WebSocket read ended unexpectedly.")
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.logger.Warn().Err(err).Msg("Client sent invalid JSON frame.")
			continue
		}

		handle(frame)
	}
}

// WritePump drains the send queue to the socket and keeps the WebSocket-level
// heartbeat alive. It exits when the send queue closes or a write fails.
func (c *WSClient) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error().Err(err).Msg("Failed to set write deadline.")
				return
			}

			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.logger.Warn().Err(err).Msg("Error writing message.")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error().Err(err).Msg("Failed to set write deadline on ping.")
				return
			}

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
