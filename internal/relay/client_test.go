package relay

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsqsh/maisHack25/internal/dto"
)

// fakeConn is an in-memory Conn. ReadMessage blocks until failRead supplies
// an error, the way a real socket blocks until the peer sends or disconnects.
type fakeConn struct {
	mu        sync.Mutex
	written   [][]byte
	types     []int
	closed    bool
	limit     int64
	pong      func(string) error
	readErrCh chan error
}

func newFakeConn() *fakeConn {
	return &fakeConn{readErrCh: make(chan error, 1)}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	err := <-c.readErrCh
	return 0, nil, err
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	c.types = append(c.types, messageType)
	c.written = append(c.written, cp)
	return nil
}

func (c *fakeConn) SetReadLimit(limit int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.limit = limit
}

func (c *fakeConn) SetReadDeadline(t time.Time) error  { return nil }
func (c *fakeConn) SetWriteDeadline(t time.Time) error { return nil }

func (c *fakeConn) SetPongHandler(h func(string) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pong = h
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) failRead(err error) { c.readErrCh <- err }

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) readArmed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.limit == maxMessageSize && c.pong != nil
}

func (c *fakeConn) messagesOfType(messageType int) [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out [][]byte
	for i, typ := range c.types {
		if typ == messageType {
			out = append(out, c.written[i])
		}
	}
	return out
}

func TestValidateRegistration(t *testing.T) {
	assert.NoError(t, ValidateRegistration("s1", RolePeer))
	assert.ErrorIs(t, ValidateRegistration("", RolePeer), ErrBadRegistration)
	assert.ErrorIs(t, ValidateRegistration("s1", "viewer"), ErrBadRegistration)
	assert.ErrorIs(t, ValidateRegistration("s1", ""), ErrBadRegistration)
}

func TestServeConnDeliversAndUnregistersOnDisconnect(t *testing.T) {
	h := newTestHub(time.Minute)
	conn := newFakeConn()

	done := make(chan struct{})
	go func() {
		ServeConn(h, conn, "s1", nopLogger{})
		close(done)
	}()

	require.Eventually(t, func() bool { return h.SessionSize("s1") == 1 }, time.Second, time.Millisecond)
	require.Eventually(t, conn.readArmed, time.Second, time.Millisecond,
		"read pump must arm its read limit and pong handler")

	delivered, throttled := h.Notify("s1", "found", map[string]interface{}{"target": "bottle"})
	require.Equal(t, 1, delivered)
	require.False(t, throttled)

	// The notification travels hub -> Send channel -> write pump -> socket.
	var msg dto.RelayMessage
	require.Eventually(t, func() bool {
		frames := conn.messagesOfType(textMessage)
		if len(frames) == 0 {
			return false
		}
		return json.Unmarshal(frames[0], &msg) == nil
	}, time.Second, time.Millisecond)
	assert.Equal(t, "found", msg.Type)
	assert.Equal(t, "bottle", msg.Payload["target"])

	conn.failRead(errors.New("peer gone"))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pumps did not exit after disconnect")
	}
	assert.Equal(t, 0, h.SessionSize("s1"))
	assert.True(t, conn.isClosed())
}

func TestWritePumpExitsWhenHubClosesChannel(t *testing.T) {
	conn := newFakeConn()
	c := &Client{
		Hub:     newTestHub(time.Minute),
		Conn:    conn,
		ID:      uuid.New(),
		Session: "s1",
		Send:    make(chan []byte, 1),
		logger:  nopLogger{},
	}

	done := make(chan struct{})
	go func() {
		c.writePump()
		close(done)
	}()

	c.Send <- []byte(`{"type":"found"}`)
	require.Eventually(t, func() bool {
		return len(conn.messagesOfType(textMessage)) == 1
	}, time.Second, time.Millisecond)

	close(c.Send)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("write pump did not exit")
	}
	assert.True(t, conn.isClosed())
}
