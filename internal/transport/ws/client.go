package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	// sendBuffer absorbs snapshot bursts; a client that falls further
	// behind is dropped.
	sendBuffer = 256
)

// Client is one websocket connection. The read pump feeds the dispatcher;
// the write pump drains the send queue. The send channel is never closed,
// so broadcasts racing a teardown cannot panic; the write pump exits on
// done instead.
type Client struct {
	id       string
	identity Identity
	conn     *websocket.Conn
	hub      *Hub
	handler  Handler
	send     chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

// Handler consumes inbound frames and connection teardown.
type Handler interface {
	HandleMessage(c *Client, frame []byte)
	Disconnected(connID string)
}

func newClient(id string, identity Identity, conn *websocket.Conn, hub *Hub, handler Handler) *Client {
	return &Client{
		id:       id,
		identity: identity,
		conn:     conn,
		hub:      hub,
		handler:  handler,
		send:     make(chan []byte, sendBuffer),
		done:     make(chan struct{}),
	}
}

func (c *Client) ID() string { return c.id }

func (c *Client) Identity() Identity { return c.identity }

// enqueue hands a frame to the write pump without blocking. Frames for a
// torn-down client are dropped; a full queue closes the connection and the
// read pump then runs the disconnect path.
func (c *Client) enqueue(frame []byte) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- frame:
	default:
		c.hub.logger.Warn("client send queue full, dropping connection", "conn", c.id)
		c.close()
	}
}

// close signals the write pump and drops the connection. Idempotent.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

// run starts both pumps and blocks until the connection dies.
func (c *Client) run() {
	go c.writePump()
	c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c.id)
		c.close()
		c.handler.Disconnected(c.id)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("websocket read error", "conn", c.id, "err", err)
			}
			return
		}
		c.handler.HandleMessage(c, frame)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
