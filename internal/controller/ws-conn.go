package controller

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sharetube/watchsync/internal/domain"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// wsConn queues outbound messages for a single writer goroutine. A client
// that cannot keep up is disconnected and has to rejoin.
type wsConn struct {
	conn *websocket.Conn
	send chan *domain.Output

	mu     sync.RWMutex
	closed bool
}

func newWSConn(conn *websocket.Conn, buffer int) *wsConn {
	return &wsConn{
		conn: conn,
		send: make(chan *domain.Output, buffer),
	}
}

func (c *wsConn) Send(out *domain.Output) error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrConnClosed
	}
	select {
	case c.send <- out:
		c.mu.RUnlock()
		return nil
	default:
	}
	c.mu.RUnlock()

	c.Close()
	return ErrBackpressure
}

// Close stops accepting messages. The write pump flushes what is queued,
// then closes the socket.
func (c *wsConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *wsConn) ReadJSON(v any) error {
	return c.conn.ReadJSON(v)
}

func (c *wsConn) writePump(pingPeriod, writeWait time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case out, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := c.conn.WriteJSON(out); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
