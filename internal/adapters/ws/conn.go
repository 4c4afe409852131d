// Package ws adapts gorilla/websocket connections to the session transport
// contract. The adapter owns the socket resources and closes them when the
// pumps exit.
package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talkiehq/talkie/internal/protocol"
)

var ErrBackpressure = errors.New("backpressure")

const (
	writeWait    = 5 * time.Second
	sendBufSize  = 256
	controlGrace = time.Second
)

// Conn wraps one websocket with a buffered outbound queue. TrySend never
// blocks the caller; a full queue means the client cannot keep up.
type Conn struct {
	conn *websocket.Conn
	send chan protocol.Frame
	done chan struct{}
	once sync.Once
}

func NewConn(conn *websocket.Conn) *Conn {
	return &Conn{
		conn: conn,
		send: make(chan protocol.Frame, sendBufSize),
		done: make(chan struct{}),
	}
}

func (c *Conn) TrySend(f protocol.Frame) error {
	select {
	case <-c.done:
		return errors.New("connection closed")
	default:
	}
	select {
	case c.send <- f:
		return nil
	default:
		return ErrBackpressure
	}
}

func deadline() time.Time { return time.Now().Add(controlGrace) }

func (c *Conn) Ping() error {
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(controlGrace))
}

// Close performs the closing handshake with the given code, then drops the
// socket. Safe to call from any goroutine, any number of times.
func (c *Conn) Close(code int, reason string) {
	c.shutdown(true, code, reason)
}

// Terminate drops the socket without a handshake, for dead peers.
func (c *Conn) Terminate() {
	c.shutdown(false, 0, "")
}

func (c *Conn) shutdown(handshake bool, code int, reason string) {
	c.once.Do(func() {
		if handshake {
			msg := websocket.FormatCloseMessage(code, reason)
			_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(controlGrace))
		}
		close(c.done)
		_ = c.conn.Close()
	})
}

// writePump is the only goroutine writing data frames to the socket.
func (c *Conn) writePump(ctx context.Context) {
	defer c.Terminate()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}
}
