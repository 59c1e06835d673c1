// Package server coordinates client registration, message broadcast, and
// connection cleanup for the relay via the Hub type.
package server

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Tyrowin/gorelay/internal/logging"
	"github.com/Tyrowin/gorelay/internal/relay"
)

// Hub owns the lifecycle of every client connection. Its Run loop is the
// single point where connections open and close and where inbound messages
// are handed to the relay, so all of them are accepted in one total order.
type Hub struct {
	relay      *relay.Relay
	cfg        Config
	metrics    *Metrics
	logger     *slog.Logger
	broadcast  chan inbound
	register   chan *Client
	unregister chan *Client
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
	running    atomic.Bool
}

// NewHub creates a Hub delivering through r. metrics may be nil.
func NewHub(r *relay.Relay, cfg Config, metrics *Metrics, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = logging.Discard()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		relay:      r,
		cfg:        sanitizeConfig(cfg),
		metrics:    metrics,
		logger:     logger,
		broadcast:  make(chan inbound),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Relay returns the relay the hub delivers through.
func (h *Hub) Relay() *relay.Relay {
	return h.relay
}

// ClientCount returns the number of open connections.
func (h *Hub) ClientCount() int {
	return h.relay.Registry().Len()
}

// Register hands a freshly upgraded client to the hub. It returns false if
// the hub is shutting down, in which case the caller still owns the
// connection.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.ctx.Done():
		return false
	}
}

// Unregister reports that client's connection closed or failed. Calling it
// more than once is harmless.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
		h.release(client)
	}
}

// Broadcast submits msg from source to the relay. It returns false once the
// hub is shutting down.
func (h *Hub) Broadcast(source *Client, msg relay.Message) bool {
	select {
	case h.broadcast <- inbound{source: source, msg: msg}:
		return true
	case <-h.ctx.Done():
		return false
	}
}

// Start runs the event loop in its own goroutine.
func (h *Hub) Start() {
	h.running.Store(true)
	go h.Run()
	h.logger.Info("hub started and ready to manage websocket connections")
}

// Run starts the hub's main event loop. It returns after Shutdown is called,
// once every open connection has been told to close.
func (h *Hub) Run() {
	h.running.Store(true)
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			h.open(client)

		case client := <-h.unregister:
			h.release(client)

		case in := <-h.broadcast:
			h.handleBroadcast(in)
		}
	}
}

// open moves client to OPEN, which adds it to the registry, and starts its pumps.
func (h *Hub) open(client *Client) {
	if client == nil {
		h.logger.Warn("received nil client registration; skipping")
		return
	}
	if !client.lifecycle.Open() {
		h.logger.Warn("client registered twice or after close; skipping", "conn_id", client.id)
		return
	}

	h.metrics.connectionOpened()
	client.logger.Info("new client connected", "clients", h.ClientCount())

	if client.conn == nil {
		return
	}
	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

// release moves client to CLOSED. Only the first call per client has any
// effect, and only a client that was opened is counted as closed.
func (h *Hub) release(client *Client) {
	if client == nil {
		return
	}
	prev := client.lifecycle.Close()
	if prev == relay.Closed {
		return
	}
	client.closeSend()
	if prev != relay.Open {
		return
	}
	h.metrics.connectionClosed()
	client.logger.Info("client unregistered", "clients", h.ClientCount())
}

// handleBroadcast passes one inbound message to the relay. Per-recipient
// failures are counted and otherwise dropped.
func (h *Hub) handleBroadcast(in inbound) {
	var source relay.Conn
	if in.source != nil {
		source = in.source
	}

	results := h.relay.OnMessage(source, in.msg)
	h.metrics.observeBroadcast(results)

	if failed := relay.Failed(results); failed > 0 {
		h.logger.Debug("broadcast delivered with failures", "recipients", len(results), "failed", failed)
	}
}

// shutdownClients closes the outbound queue of every open client. Each write
// pump then sends a close frame and drops its connection, which ends the read
// pump and the client's lifecycle.
func (h *Hub) shutdownClients() {
	h.logger.Info("shutting down all client connections")

	count := 0
	h.relay.Registry().ForEach(func(conn relay.Conn) {
		if client, ok := conn.(*Client); ok {
			client.closeSend()
			count++
		}
	})

	h.logger.Info("closed client connections", "count", count)
}

// Shutdown stops the hub and waits for every client goroutine to finish or
// for timeout to pass.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.logger.Info("initiating hub shutdown")

	h.cancel()
	if !h.running.Load() {
		return nil
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	select {
	case <-h.done:
	case <-deadline.C:
		h.logger.Warn("hub shutdown timeout reached before the event loop stopped")
		return context.DeadlineExceeded
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("hub shutdown completed successfully")
		return nil
	case <-deadline.C:
		h.logger.Warn("hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
