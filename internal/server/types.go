// Package server defines shared helpers reused across client, hub and handler
// logic.
package server

import (
	"errors"
	"net"
	"strings"

	"github.com/Tyrowin/gorelay/internal/relay"
)

// inbound is a message read from a client on its way to the relay.
type inbound struct {
	source *Client
	msg    relay.Message
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, net.ErrClosed) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
