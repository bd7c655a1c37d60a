package base

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/kvRelay/relay/common"
	"github.com/ValentinKolb/kvRelay/relay/metrics"
	"github.com/ValentinKolb/kvRelay/relay/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("transport")

// IMessageConn is a message oriented client connection.
// ReadMessage is only called by one goroutine at a time, the same holds for WriteMessage.
// Close may be called concurrently with both.
type IMessageConn interface {
	// ReadMessage blocks until the next complete message arrived
	ReadMessage() ([]byte, error)
	// WriteMessage writes one complete message
	WriteMessage(data []byte) error
	// SetDeadline sets the read and write deadline of the connection (zero = none)
	SetDeadline(t time.Time) error
	// Close closes the connection, pending reads and writes fail
	Close() error
	// RemoteAddr returns the address of the peer
	RemoteAddr() net.Addr
}

// ErrFrameTooLarge is returned by ReadMessage when a message exceeds the size limit.
// The oversized message has been consumed, the connection can be read again.
var ErrFrameTooLarge = errors.New("frame exceeds the maximum message size")

// --------------------------------------------------------------------------
// Connection handler
// --------------------------------------------------------------------------

/*
	Note: Every message is handled in its own goroutine, so a slow store call does
	not delay the messages behind it. Replies are therefore written in completion
	order, not in arrival order. Writes are serialized with a mutex because no
	connection type supports concurrent writers.

	Once the read loop ends the connection counts as closed. Messages still in
	flight keep running (they use the server context), their replies are dropped.
*/

// ServeConn runs the read loop of one client connection until the client
// disconnects, a read fails or ctx is done. maxInflight bounds the number of
// concurrently handled messages (0 = unbounded); when the bound is reached the
// read loop waits for a free slot.
func ServeConn(ctx context.Context, conn IMessageConn, handler transport.ServerHandleFunc, maxInflight int) {
	metrics.ConnectionOpened()
	defer metrics.ConnectionClosed()

	remote := conn.RemoteAddr()
	log := common.WithFields(Logger, "remote", fmt.Sprint(remote))
	log.Debugf("Client connected")

	// Close the connection on server shutdown, this unblocks ReadMessage
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	var (
		closed  atomic.Bool
		writeMu sync.Mutex
		sem     chan struct{}
	)
	if maxInflight > 0 {
		sem = make(chan struct{}, maxInflight)
	}

	// handleMessage processes one message and writes the reply
	handleMessage := func(msg []byte) {
		if sem != nil {
			defer func() { <-sem }()
		}

		resp := handler(ctx, msg)
		if resp == nil || closed.Load() {
			return
		}

		writeMu.Lock()
		defer writeMu.Unlock()

		// the connection may have been closed while the handler was running
		if closed.Load() {
			return
		}
		if err := conn.WriteMessage(resp); err != nil {
			log.Debugf("Failed to write reply: %v", err)
		}
	}

	for {
		msg, err := conn.ReadMessage()
		if errors.Is(err, ErrFrameTooLarge) {
			log.Warningf("Dropping message: %v", err)
			metrics.CommandError(metrics.ErrorKindProtocol)
			continue
		}
		if err != nil {
			if isClosedErr(err) || ctx.Err() != nil {
				log.Debugf("Client disconnected")
			} else {
				log.Infof("Closing connection: %v", err)
			}
			break
		}

		if sem != nil {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				continue // ReadMessage fails next, the connection is being closed
			}
		}
		go handleMessage(msg)
	}

	closed.Store(true)
	_ = conn.Close()
}

// isClosedErr reports whether err is the regular end of a connection
func isClosedErr(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrUnexpectedEOF)
}
