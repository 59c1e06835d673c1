// Package testhelpers provides common utilities and helper functions for
// testing the relay server end to end.
//
// It starts a fully wired server on an httptest listener, dials relay
// connections and reads frames with deadlines so tests fail fast instead of
// hanging.
package testhelpers

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/gorelay/internal/logging"
	"github.com/Tyrowin/gorelay/internal/server"
)

// TestOrigin is the Origin header sent by ConnectWebSocket.
const TestOrigin = "http://localhost:8080"

// Relay is a running relay server backed by a temporary directory.
type Relay struct {
	App          *server.App
	Server       *httptest.Server
	MessagesFile string
	StaticDir    string
}

// StartRelay starts a relay whose log is persisted in messagesFile. An empty
// messagesFile places it in a fresh temporary directory. configure may adjust
// the configuration before the app is built.
func StartRelay(t *testing.T, messagesFile string, configure func(*server.Config)) *Relay {
	t.Helper()

	dir := t.TempDir()
	if messagesFile == "" {
		messagesFile = filepath.Join(dir, "messages.json")
	}
	staticDir := filepath.Join(dir, "client")
	require.NoError(t, os.MkdirAll(staticDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "index.html"), []byte("<!doctype html><p>relay</p>"), 0o600))

	cfg := server.NewConfig()
	cfg.MessagesFile = messagesFile
	cfg.StaticDir = staticDir
	cfg.ShutdownTimeout = 2 * time.Second
	if configure != nil {
		configure(cfg)
	}

	app, err := server.NewApp(*cfg, logging.Discard())
	require.NoError(t, err)
	app.StartHub()

	ts := httptest.NewServer(app.Handler())
	r := &Relay{App: app, Server: ts, MessagesFile: messagesFile, StaticDir: staticDir}
	t.Cleanup(func() { r.Stop(t) })
	return r
}

// Stop closes the listener and shuts the app down, flushing the log. It is
// safe to call more than once.
func (r *Relay) Stop(t *testing.T) {
	t.Helper()
	r.Server.CloseClientConnections()
	r.Server.Close()
	require.NoError(t, r.App.Shutdown())
}

// WebSocketURL returns the ws:// URL for path on the relay.
func (r *Relay) WebSocketURL(path string) string {
	return "ws" + strings.TrimPrefix(r.Server.URL, "http") + path
}

// Get performs a GET against the relay with a short timeout.
func (r *Relay) Get(t *testing.T, path string) *http.Response {
	t.Helper()
	return MakeRequest(t, http.MethodGet, r.Server.URL+path)
}

// MakeRequest creates and executes an HTTP request, returning the response.
func MakeRequest(t *testing.T, method, url string) *http.Response {
	t.Helper()

	client := &http.Client{Timeout: 5 * time.Second}

	req, err := http.NewRequest(method, url, http.NoBody)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}

// ConnectWebSocket creates a WebSocket connection to the specified URL.
func ConnectWebSocket(url string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}

	headers := http.Header{}
	headers.Set("Origin", TestOrigin)

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// MustConnect dials url and registers the connection for cleanup.
func MustConnect(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, err := ConnectWebSocket(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// WaitForClients blocks until the relay reports n open connections.
func WaitForClients(t *testing.T, r *Relay, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return r.App.Hub().ClientCount() == n
	}, 2*time.Second, 10*time.Millisecond, "expected %d open clients", n)
}

// SendText sends a text frame.
func SendText(conn *websocket.Conn, text string) error {
	return conn.WriteMessage(websocket.TextMessage, []byte(text))
}

// ReceiveRawMessage reads one frame, failing if none arrives within timeout.
func ReceiveRawMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) (int, []byte) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(timeout)))
	messageType, data, err := conn.ReadMessage()
	require.NoError(t, err)
	return messageType, data
}

// ReceiveText reads one frame and returns it as text.
func ReceiveText(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	_, data := ReceiveRawMessage(t, conn, 2*time.Second)
	return string(data)
}

// ExpectNoMessage fails if a frame arrives within wait.
func ExpectNoMessage(t *testing.T, conn *websocket.Conn, wait time.Duration) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(wait)))
	_, data, err := conn.ReadMessage()
	require.Error(t, err, "unexpected message %q", data)
}

// CloseWebSocket gracefully closes a WebSocket connection.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}
