/*
FramedConn adds a length-prefixed framing protocol inside a stream-oriented connection.
Each frame is a 4-byte big-endian length header followed by the payload, so a receiver
can tell heartbeat messages apart instead of inferring boundaries from the byte stream.

Framing is opt-in: without the "framed" layer, heartbeats travel as an unframed byte stream.
*/

package heartbeat

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
)

func init() {
	Register("framed", func(params map[string]string, listener bool) (Wrapper, error) {
		var opts []FramedConnOption
		for key, value := range params {
			switch key {
			case "maxsize":
				size, err := strconv.ParseUint(value, 10, 31)
				if err != nil {
					return Wrapper{}, fmt.Errorf("uri: invalid framed maxsize parameter %q: %w", value, err)
				}
				opts = append(opts, WithMaxFrameSize(uint32(size)))
			default:
				return Wrapper{}, fmt.Errorf("uri: unknown framed parameter %q", key)
			}
		}
		return ConnWrapper("framed", params, listener, func(c net.Conn) (net.Conn, error) {
			return NewFramedConn(c, opts...), nil
		}), nil
	})
}

var ErrFrameTooLarge = errors.New("framedConn: frame too large")

type framedConn struct {
	net.Conn
	maxFrameSize int
	pending      []byte
	rmu, wmu     sync.Mutex
}

type FramedConnOption func(*framedConn)

func WithMaxFrameSize(size uint32) FramedConnOption {
	return func(c *framedConn) {
		c.maxFrameSize = int(size)
	}
}

// NewFramedConn wraps a net.Conn with a 4-byte big-endian length-prefixed framing protocol.
// Read returns ErrFrameTooLarge for frames above the max size (32KB by default).
func NewFramedConn(c net.Conn, opts ...FramedConnOption) net.Conn {
	fc := &framedConn{
		Conn:         c,
		maxFrameSize: 32 * 1024,
	}
	for _, opt := range opts {
		opt(fc)
	}
	return fc
}

func (c *framedConn) NetConn() net.Conn { return c.Conn }

// Read returns at most one frame's bytes; large frames are delivered across multiple Reads.
func (c *framedConn) Read(p []byte) (int, error) {
	c.rmu.Lock()
	defer c.rmu.Unlock()

	if len(c.pending) > 0 {
		n := copy(p, c.pending)
		c.pending = c.pending[n:]
		return n, nil
	}

	var hdr [4]byte
	if _, err := io.ReadFull(c.Conn, hdr[:]); err != nil {
		return 0, err
	}
	n := int(binary.BigEndian.Uint32(hdr[:]))
	if n > c.maxFrameSize {
		return 0, ErrFrameTooLarge
	}
	if n == 0 {
		return 0, nil
	}

	if len(p) >= n {
		_, err := io.ReadFull(c.Conn, p[:n])
		return n, err
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(c.Conn, buf); err != nil {
		return 0, err
	}
	w := copy(p, buf)
	c.pending = buf[w:]
	return w, nil
}

// Write sends p as a single frame. Header and payload go out in one write.
func (c *framedConn) Write(p []byte) (int, error) {
	if len(p) > c.maxFrameSize {
		return 0, ErrFrameTooLarge
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()

	frame := make([]byte, 4+len(p))
	binary.BigEndian.PutUint32(frame, uint32(len(p)))
	copy(frame[4:], p)
	if err := WriteAll(c.Conn, frame); err != nil {
		return 0, err
	}
	if fw, ok := c.Conn.(BufConn); ok {
		if err := fw.Flush(); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}
