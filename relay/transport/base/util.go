package base

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
)

// frameHeaderSize is the size of the length prefix of a frame
const frameHeaderSize = 4

// WriteFrame writes a frame with the format:
// - 4 bytes: data length (uint32, big endian)
// - N bytes: data payload
func WriteFrame(w io.Writer, data []byte) error {
	header := make([]byte, frameHeaderSize)
	binary.BigEndian.PutUint32(header, uint32(len(data)))

	// net.Buffers uses writev for net.Conn and falls back to sequential writes otherwise
	b := net.Buffers{header, data}
	_, err := b.WriteTo(w)
	return err
}

// ReadFrame reads one frame. maxSize limits the payload (0 = unlimited).
// A payload larger than maxSize is consumed and ErrFrameTooLarge returned,
// so the stream stays aligned on frame boundaries.
func ReadFrame(r io.Reader, maxSize int) ([]byte, error) {
	var header [frameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}

	contentLength := binary.BigEndian.Uint32(header[:])
	if maxSize > 0 && uint64(contentLength) > uint64(maxSize) {
		if _, err := io.CopyN(io.Discard, r, int64(contentLength)); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrFrameTooLarge, contentLength, maxSize)
	}

	// If no data, return empty slice
	if contentLength == 0 {
		return []byte{}, nil
	}

	data := make([]byte, contentLength)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return data, nil
}
