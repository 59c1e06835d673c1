package relay

import (
	"errors"
	"sync"
)

var errBroken = errors.New("broken pipe")

type fakeConn struct {
	mu       sync.Mutex
	name     string
	fail     bool
	panics   bool
	received []Message
	attempts int
}

func newFakeConn(name string) *fakeConn {
	return &fakeConn{name: name}
}

func (c *fakeConn) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts++
	if c.panics {
		panic("send on closed channel")
	}
	if c.fail {
		return errBroken
	}
	c.received = append(c.received, msg)
	return nil
}

func (c *fakeConn) texts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.received))
	for _, m := range c.received {
		out = append(out, m.String())
	}
	return out
}

func (c *fakeConn) attemptCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}
