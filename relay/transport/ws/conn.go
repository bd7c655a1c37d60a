package ws

import (
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/ValentinKolb/kvRelay/relay/transport/base"
	"github.com/gorilla/websocket"
)

// wsConn adapts a websocket connection to base.IMessageConn
type wsConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	// maxSize bounds a single message (0 = unbounded)
	maxSize int

	stopPing  chan struct{}
	closeOnce sync.Once
}

func newWSConn(conn *websocket.Conn, writeTimeout time.Duration, maxSize int) *wsConn {
	return &wsConn{
		conn:         conn,
		writeTimeout: writeTimeout,
		maxSize:      maxSize,
		stopPing:     make(chan struct{}),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IMessageConn)
// --------------------------------------------------------------------------

func (c *wsConn) ReadMessage() ([]byte, error) {
	for {
		messageType, r, err := c.conn.NextReader()
		if err != nil {
			return nil, mapCloseErr(err)
		}
		// text and binary frames carry a message, everything else is control traffic
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}

		if c.maxSize <= 0 {
			data, err := io.ReadAll(r)
			if err != nil {
				return nil, mapCloseErr(err)
			}
			return data, nil
		}

		data, err := io.ReadAll(io.LimitReader(r, int64(c.maxSize)+1))
		if err != nil {
			return nil, mapCloseErr(err)
		}
		if len(data) > c.maxSize {
			// drain the rest of the message, the connection stays usable
			if _, err := io.Copy(io.Discard, r); err != nil {
				return nil, mapCloseErr(err)
			}
			return nil, base.ErrFrameTooLarge
		}
		return data, nil
	}
}

func (c *wsConn) WriteMessage(data []byte) error {
	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) SetDeadline(t time.Time) error {
	if err := c.conn.SetReadDeadline(t); err != nil {
		return err
	}
	return c.conn.SetWriteDeadline(t)
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.stopPing)
		err = c.conn.Close()
	})
	return err
}

func (c *wsConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// mapCloseErr turns a regular close by the peer into io.EOF
func mapCloseErr(err error) error {
	if err != nil && websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
		return io.EOF
	}
	return err
}

// --------------------------------------------------------------------------
// Keepalive
// --------------------------------------------------------------------------

// keepAlive pings the peer every interval. A peer that does not answer within
// two intervals fails the next read.
func (c *wsConn) keepAlive(interval time.Duration) {
	if interval <= 0 {
		return
	}

	extend := func() error {
		return c.conn.SetReadDeadline(time.Now().Add(2 * interval))
	}
	_ = extend()
	c.conn.SetPongHandler(func(string) error { return extend() })

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-c.stopPing:
				return
			case <-ticker.C:
				// WriteControl may be called concurrently with WriteMessage
				err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(interval))
				if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
					Logger.Debugf("Ping to %s failed: %v", c.conn.RemoteAddr(), err)
					return
				}
			}
		}
	}()
}
