package heartbeat

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"strconv"
)

func init() {
	Register("buffered", func(params map[string]string, listener bool) (Wrapper, error) {
		var opts []BufConnOption
		for key, value := range params {
			switch key {
			case "size":
				size, err := strconv.ParseUint(value, 10, 31)
				if err != nil || size == 0 {
					return Wrapper{}, fmt.Errorf("uri: invalid buffered size parameter %q", value)
				}
				opts = append(opts, WithBufSize(int(size)))
			default:
				return Wrapper{}, fmt.Errorf("uri: unknown buffered parameter %q", key)
			}
		}
		return ConnWrapper("buffered", params, listener, func(c net.Conn) (net.Conn, error) {
			return NewBufConn(c, opts...), nil
		}), nil
	})
}

// BufConn is a net.Conn whose writes are held until Flush.
type BufConn interface {
	net.Conn
	Flush() error
}

type bufConn struct {
	net.Conn
	br *bufio.Reader
	bw *bufio.Writer
}

type BufConnOption func(*bufConn)

func WithBufSize(size int) BufConnOption {
	return func(bc *bufConn) {
		bc.br = bufio.NewReaderSize(bc.Conn, size)
		bc.bw = bufio.NewWriterSize(bc.Conn, size)
	}
}

// NewBufConn wraps a net.Conn with buffered reader and writer. The default buffer size is 4KB.
// The emitter flushes after every message, so buffering only coalesces the layers below.
func NewBufConn(c net.Conn, opts ...BufConnOption) BufConn {
	bc := &bufConn{
		Conn: c,
		br:   bufio.NewReader(c),
		bw:   bufio.NewWriter(c),
	}
	for _, opt := range opts {
		opt(bc)
	}
	return bc
}

func (c *bufConn) Read(p []byte) (int, error)  { return c.br.Read(p) }
func (c *bufConn) Write(p []byte) (int, error) { return c.bw.Write(p) }
func (c *bufConn) Flush() error                { return c.bw.Flush() }
func (c *bufConn) NetConn() net.Conn           { return c.Conn }

// Close flushes pending writes and closes the underlying conn even if the flush fails.
func (c *bufConn) Close() error {
	return errors.Join(c.bw.Flush(), c.Conn.Close())
}
