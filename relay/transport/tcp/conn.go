package tcp

import (
	"bufio"
	"net"
	"time"

	"github.com/ValentinKolb/kvRelay/relay/transport/base"
)

// frameConn adapts a stream connection to base.IMessageConn using length prefixed frames
type frameConn struct {
	conn         net.Conn
	reader       *bufio.Reader
	maxSize      int
	writeTimeout time.Duration
}

func newFrameConn(conn net.Conn, maxSize int, writeTimeout time.Duration) *frameConn {
	return &frameConn{
		conn:         conn,
		reader:       bufio.NewReader(conn),
		maxSize:      maxSize,
		writeTimeout: writeTimeout,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IMessageConn)
// --------------------------------------------------------------------------

func (c *frameConn) ReadMessage() ([]byte, error) {
	return base.ReadFrame(c.reader, c.maxSize)
}

func (c *frameConn) WriteMessage(data []byte) error {
	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	return base.WriteFrame(c.conn, data)
}

func (c *frameConn) SetDeadline(t time.Time) error {
	return c.conn.SetDeadline(t)
}

func (c *frameConn) Close() error {
	return c.conn.Close()
}

func (c *frameConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}
