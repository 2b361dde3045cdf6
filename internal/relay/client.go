package relay

import (
	"time"

	"github.com/google/uuid"

	"github.com/hsqsh/maisHack25/internal/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512

	textMessage = 1
	pingMessage = 9
)

// Conn is the subset of a websocket connection the relay needs. The fiber
// websocket connection satisfies it; tests substitute an in-memory fake.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Client is a middleman between one websocket connection and the hub.
type Client struct {
	Hub *Hub

	Conn Conn

	// ID identifies this connection inside its session set.
	ID uuid.UUID

	// Session this peer registered under.
	Session string

	// Buffered channel of outbound messages.
	Send chan []byte

	logger logger.ILogger
}

// readPump pumps messages from the websocket connection to the hub.
// The relay protocol is one-directional; inbound frames are drained only to
// detect closure and keep pong handling alive.
func (c *Client) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			c.logger.Info("Relay", "Peer disconnected", map[string]interface{}{
				"session": c.Session,
				"client":  c.ID,
				"error":   err.Error(),
			})
			break
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				return
			}
			if err := c.Conn.WriteMessage(textMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(pingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeConn registers a connection under its session and runs both pumps.
// Blocks until the connection closes.
func ServeConn(hub *Hub, conn Conn, session string, log logger.ILogger) {
	client := &Client{
		Hub:     hub,
		Conn:    conn,
		ID:      uuid.New(),
		Session: session,
		Send:    make(chan []byte, 256),
		logger:  log,
	}
	hub.Register(client)

	go client.writePump()
	client.readPump() // runs in the handler goroutine
}
