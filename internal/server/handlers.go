// Package server exposes HTTP handlers: the relay upgrade, the message log,
// static assets and a health check.
package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/Tyrowin/gorelay/internal/relay"
	"github.com/Tyrowin/gorelay/internal/static"
)

// Handlers serves the relay's HTTP surface.
type Handlers struct {
	relayPath    string
	messagesPath string
	hub          *Hub
	log          *relay.Log
	assets       *static.Resolver
	upgrader     websocket.Upgrader
	logger       *slog.Logger
}

// NewHandlers wires handlers to the hub, the message log and the static
// asset resolver.
func NewHandlers(cfg Config, hub *Hub, log *relay.Log, assets *static.Resolver, logger *slog.Logger) *Handlers {
	origins := newOriginPolicy(cfg.Origins(), logger)
	return &Handlers{
		relayPath:    cfg.RelayPath,
		messagesPath: cfg.MessagesPath,
		hub:          hub,
		log:          log,
		assets:       assets,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.checkOrigin,
		},
		logger: logger,
	}
}

// Route dispatches on raw path prefixes: a GET starting with the messages
// path gets the log, one starting with the relay path goes to WebSocket, and
// everything else is a static lookup. "/messages.json" and "/wsx" match too.
func (h *Handlers) Route(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		switch {
		case strings.HasPrefix(r.URL.Path, h.messagesPath):
			h.Messages(w, r)
			return
		case strings.HasPrefix(r.URL.Path, h.relayPath):
			h.WebSocket(w, r)
			return
		}
	}
	h.Static(w, r)
}

// WebSocket upgrades the request to a relay connection and hands the client
// to the hub, which starts its read and write pumps. A plain GET on the relay
// path is treated like any other static lookup.
func (h *Handlers) WebSocket(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		h.Static(w, r)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed",
			"remote_addr", r.RemoteAddr, "request_id", middleware.GetReqID(r.Context()), "error", err)
		return
	}

	client := NewClient(conn, h.hub, r.RemoteAddr)
	if !h.hub.Register(client) {
		client.closeConnection()
	}
}

// Messages returns the whole message log as a JSON array.
func (h *Handlers) Messages(w http.ResponseWriter, _ *http.Request) {
	body, err := json.Marshal(h.log.Snapshot())
	if err != nil {
		h.logger.Error("error encoding message log", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		h.logger.Debug("error writing message log response", "error", err)
	}
}

// Static serves files from the content root. Anything that is not a GET for
// an existing file is a 404 with an empty body.
func (h *Handlers) Static(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		notFound(w, r)
		return
	}

	asset, err := h.assets.Resolve(r.URL.Path)
	if err != nil {
		notFound(w, r)
		return
	}

	w.Header().Set("Content-Type", asset.ContentType)
	http.ServeContent(w, r, asset.Name, asset.ModTime, bytes.NewReader(asset.Data))
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNotFound)
}

// HealthHandler provides a simple health check endpoint that returns server status.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "relay server is running!")
}

// rejectStrayUpgrades terminates websocket upgrade requests aimed anywhere
// but a GET on the relay path. No handshake has happened, so the raw socket
// is simply closed.
func rejectStrayUpgrades(relayPath string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if websocket.IsWebSocketUpgrade(r) &&
				(r.Method != http.MethodGet || !strings.HasPrefix(r.URL.Path, relayPath)) {
				logger.Debug("rejecting upgrade request", "method", r.Method, "path", r.URL.Path)
				terminate(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// terminate drops the underlying connection without a response. Writers
// that cannot be hijacked get a bare 404.
func terminate(w http.ResponseWriter, r *http.Request) {
	conn, _, err := http.NewResponseController(w).Hijack()
	if err != nil {
		notFound(w, r)
		return
	}
	_ = conn.Close()
}
