package relay

import (
	"errors"
	"sync"
)

var (
	// ErrConnClosed is returned by Conn implementations once the connection
	// has left the OPEN state.
	ErrConnClosed = errors.New("relay: connection closed")
	// ErrSendQueueFull is returned by Conn implementations whose outbound
	// queue cannot take another message without blocking.
	ErrSendQueueFull = errors.New("relay: send queue full")
)

// Message is an opaque payload received from a client. Binary records the
// frame type so the payload can be forwarded in the form it arrived.
type Message struct {
	Data   []byte
	Binary bool
}

// Text returns a Message carrying s as a text frame.
func Text(s string) Message {
	return Message{Data: []byte(s)}
}

// String returns the payload as stored in the log.
func (m Message) String() string {
	return string(m.Data)
}

// SendResult is the outcome of one delivery attempt.
type SendResult struct {
	Conn Conn
	Err  error
}

// OK reports whether the attempt succeeded.
func (r SendResult) OK() bool {
	return r.Err == nil
}

// Relay appends inbound messages to the Log and fans them out to every
// connection in the Registry.
type Relay struct {
	mu       sync.Mutex
	log      *Log
	registry *Registry
}

// New returns a Relay over the given log and registry.
func New(log *Log, registry *Registry) *Relay {
	return &Relay{log: log, registry: registry}
}

// Log returns the message log the relay appends to.
func (r *Relay) Log() *Log {
	return r.log
}

// Registry returns the live connection set the relay delivers to.
func (r *Relay) Registry() *Registry {
	return r.registry
}

// OnMessage records msg in the log and attempts delivery to every live
// connection, source included. A failed send never stops the loop and never
// reaches the source; the results are returned for accounting only.
//
// Append and fan-out happen under one lock, so every recipient sees messages
// in log order. Conn.Send must not block.
func (r *Relay) OnMessage(source Conn, msg Message) []SendResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.log.Append(msg.String())

	results := make([]SendResult, 0, r.registry.Len())
	r.registry.ForEach(func(conn Conn) {
		results = append(results, SendResult{Conn: conn, Err: send(conn, msg)})
	})
	return results
}

// send shields the fan-out loop from a misbehaving connection.
func send(conn Conn, msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrConnClosed
		}
	}()
	return conn.Send(msg)
}

// Failed counts the unsuccessful attempts in results.
func Failed(results []SendResult) int {
	n := 0
	for _, res := range results {
		if !res.OK() {
			n++
		}
	}
	return n
}
