// Package server manages individual WebSocket clients, handling read/write
// pumps, rate limiting, and lifecycle control for each connection.
package server

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Tyrowin/gorelay/internal/relay"
)

const writeWait = 10 * time.Second

// Client represents a WebSocket client connection in the relay. It owns the
// outbound queue drained by writePump and the lifecycle that keeps the
// registry in step with the connection state.
type Client struct {
	id             string
	conn           *websocket.Conn
	send           chan relay.Message
	hub            *Hub
	addr           string
	mu             sync.Mutex
	closed         bool
	lifecycle      *relay.Lifecycle
	maxMessageSize int64
	pingInterval   time.Duration
	readTimeout    time.Duration
	rateLimiter    *rateLimiter
	rateLimit      RateLimitConfig
	logger         *slog.Logger
}

// NewClient creates a new Client for an upgraded connection. The client
// starts in the CONNECTING state; the hub opens it on registration.
func NewClient(conn *websocket.Conn, hub *Hub, addr string) *Client {
	cfg := hub.cfg
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	id := uuid.NewString()
	c := &Client{
		id:             id,
		conn:           conn,
		send:           make(chan relay.Message, cfg.SendBuffer),
		hub:            hub,
		addr:           addr,
		maxMessageSize: cfg.MaxMessageSize,
		pingInterval:   cfg.PingInterval,
		readTimeout:    cfg.ReadTimeout,
		rateLimiter:    newRateLimiter(cfg.RateLimitBurst, cfg.RateLimitWindow),
		rateLimit:      cfg.RateLimit(),
		logger:         hub.logger.With("conn_id", id, "remote_addr", addr),
	}
	c.lifecycle = relay.NewLifecycle(c, hub.relay.Registry())
	return c
}

// ID returns the connection identifier used in logs.
func (c *Client) ID() string {
	return c.id
}

// State returns the connection's lifecycle state.
func (c *Client) State() relay.State {
	return c.lifecycle.State()
}

// GetSendChan returns the client's send channel for reading outgoing messages.
func (c *Client) GetSendChan() <-chan relay.Message {
	return c.send
}

// Send queues msg for delivery without blocking. It fails when the client is
// closed or its queue is full; the message is then dropped for this client.
func (c *Client) Send(msg relay.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return relay.ErrConnClosed
	}

	select {
	case c.send <- msg:
		return nil
	default:
		return relay.ErrSendQueueFull
	}
}

// closeSend closes the outbound queue once, which tells writePump to say
// goodbye and stop.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// setupReadConnection arms the optional idle timeout. With a zero
// readTimeout the connection has no read deadline and stays open until the
// peer or the transport ends it.
func (c *Client) setupReadConnection() {
	if c.readTimeout <= 0 {
		return
	}
	c.extendReadDeadline()
	c.conn.SetPongHandler(func(string) error {
		c.extendReadDeadline()
		return nil
	})
}

func (c *Client) extendReadDeadline() {
	if c.readTimeout <= 0 {
		return
	}
	if err := c.conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
		c.logger.Warn("error setting read deadline", "error", err)
	}
}

// handleReadError logs why the read loop ended. Every read error is terminal
// for a gorilla connection, so the caller always stops reading.
func (c *Client) handleReadError(err error) {
	if errors.Is(err, websocket.ErrReadLimit) {
		c.logger.Warn("message exceeded maximum size", "max_bytes", c.maxMessageSize)
		return
	}

	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived) {
		c.logger.Info("client disconnected", "reason", err.Error())
		return
	}

	if errors.Is(err, io.EOF) || isExpectedCloseError(err) {
		c.logger.Info("client connection closed", "reason", err.Error())
		return
	}

	c.logger.Info("client error - disconnected", "error", err)
}

// checkRateLimit reports whether the next message may be relayed.
func (c *Client) checkRateLimit() bool {
	if c.rateLimiter.allow() {
		return true
	}
	c.logger.Debug("rate limit exceeded; discarding message",
		"burst", c.rateLimit.Burst, "interval", c.rateLimit.RefillInterval)
	c.hub.metrics.rateLimited()
	return false
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.closeConnection()
	}()

	c.setupReadConnection()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			return
		}
		c.extendReadDeadline()

		if !c.checkRateLimit() {
			continue
		}

		msg := relay.Message{Data: data, Binary: messageType == websocket.BinaryMessage}
		if !c.hub.Broadcast(c, msg) {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case message, ok := <-c.send:
		return c.handleMessage(message, ok)
	case <-ticker.C:
		return c.handlePing()
	}
}

// closeConnection closes the WebSocket connection, ignoring the errors a
// second close or a vanished peer produce.
func (c *Client) closeConnection() {
	if c.conn == nil {
		return
	}
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		c.logger.Warn("error closing connection", "error", err)
	}
}

// handleMessage processes outgoing messages and returns false if the connection should be closed
func (c *Client) handleMessage(message relay.Message, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Warn("error setting write deadline", "error", err)
		return false
	}

	if !ok {
		return c.writeCloseMessage()
	}

	return c.writeFrame(message)
}

// writeCloseMessage sends a close frame to the client
func (c *Client) writeCloseMessage() bool {
	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := c.conn.WriteMessage(websocket.CloseMessage, closeMsg); err != nil && !isExpectedCloseError(err) {
		c.logger.Debug("error writing close message", "error", err)
	}
	return false
}

// writeFrame writes one relayed message as its own frame, keeping the frame
// type it arrived with.
func (c *Client) writeFrame(message relay.Message) bool {
	frameType := websocket.TextMessage
	if message.Binary {
		frameType = websocket.BinaryMessage
	}

	if err := c.conn.WriteMessage(frameType, message.Data); err != nil {
		c.logger.Debug("error writing message", "error", err)
		return false
	}
	return true
}

// handlePing sends a ping message to keep the connection alive
func (c *Client) handlePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Warn("error setting write deadline for ping", "error", err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Debug("error writing ping message", "error", err)
		return false
	}
	return true
}
