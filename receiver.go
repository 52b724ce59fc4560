package heartbeat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultReceiveBufferSize is the read size of the Receiver.
const DefaultReceiveBufferSize = 128

// Receiver is the peer side of the emitter: it accepts connections and logs every chunk it reads.
// Since heartbeats are unframed, a chunk may hold part of a message or several messages,
// unless the "framed" layer is used on both sides.
type Receiver struct {
	Logger Logger
	// BufferSize is the maximum chunk size per read, defaults to DefaultReceiveBufferSize.
	BufferSize int
	// HandshakeTimeout bounds the security handshake of each connection. Zero means no limit.
	HandshakeTimeout time.Duration
	// Output receives every chunk followed by a newline.
	Output io.Writer

	closing atomic.Bool
	outMu   sync.Mutex

	mu            sync.Mutex
	listeners     map[net.Listener]struct{}
	listenerGroup sync.WaitGroup
	conns         map[net.Conn]struct{}
	connGroup     sync.WaitGroup
}

// Serve accepts connections on listener until Close or Shutdown is called,
// in which case it returns ErrReceiverClosed.
func (r *Receiver) Serve(ctx context.Context, listener net.Listener) error {
	if r.Logger == nil {
		r.Logger = slog.Default()
	}
	if r.BufferSize <= 0 {
		r.BufferSize = DefaultReceiveBufferSize
	}

	if !r.addListener(listener) {
		return ErrReceiverClosed
	}
	defer r.removeListener(listener)

	r.Logger.InfoContext(ctx, "receiver listening", "addr", listener.Addr().String())
	for {
		conn, err := listener.Accept()
		if err != nil {
			if r.closing.Load() {
				return ErrReceiverClosed
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			r.Logger.WarnContext(ctx, "error accepting connection", "error", err.Error())
			continue
		}
		if !r.trackConn(conn) {
			_ = conn.Close()
			return ErrReceiverClosed
		}
		go r.handle(ctx, conn)
	}
}

func (r *Receiver) handle(ctx context.Context, conn net.Conn) {
	defer r.connGroup.Done()
	defer r.untrackConn(conn)
	defer conn.Close()

	remote := conn.RemoteAddr().String()
	hsCtx := ctx
	if r.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		hsCtx, cancel = context.WithTimeout(ctx, r.HandshakeTimeout)
		defer cancel()
	}
	if err := Handshake(hsCtx, conn); err != nil {
		r.Logger.WarnContext(ctx, "handshake failed", "addr", remote, "error", err.Error())
		return
	}
	r.Logger.InfoContext(ctx, "connection accepted", "addr", remote)

	buf := make([]byte, r.BufferSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			r.Logger.InfoContext(ctx, "RX", "addr", remote, "data", string(buf[:n]))
			r.write(ctx, buf[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) || r.closing.Load() {
				r.Logger.InfoContext(ctx, "connection closed", "addr", remote)
			} else {
				r.Logger.ErrorContext(ctx, "receive error", "addr", remote, "error", err.Error())
			}
			return
		}
	}
}

func (r *Receiver) write(ctx context.Context, p []byte) {
	if r.Output == nil {
		return
	}
	r.outMu.Lock()
	defer r.outMu.Unlock()
	if _, err := fmt.Fprintf(r.Output, "%s\n", p); err != nil {
		r.Logger.WarnContext(ctx, "output write failed", "error", err.Error())
	}
}

func (r *Receiver) addListener(l net.Listener) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closing.Load() {
		return false
	}
	if r.listeners == nil {
		r.listeners = make(map[net.Listener]struct{})
	}
	r.listeners[l] = struct{}{}
	r.listenerGroup.Add(1)
	return true
}

func (r *Receiver) removeListener(l net.Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.listeners, l)
	r.listenerGroup.Done()
}

func (r *Receiver) trackConn(c net.Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closing.Load() {
		return false
	}
	if r.conns == nil {
		r.conns = make(map[net.Conn]struct{})
	}
	r.conns[c] = struct{}{}
	r.connGroup.Add(1)
	return true
}

func (r *Receiver) untrackConn(c net.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, c)
}

func (r *Receiver) closeListeners() error {
	r.mu.Lock()
	var err error
	for l := range r.listeners {
		if cErr := l.Close(); cErr != nil {
			err = errors.Join(err, cErr)
		}
	}
	r.mu.Unlock()
	r.listenerGroup.Wait()
	return err
}

func (r *Receiver) closeConns() {
	r.mu.Lock()
	for c := range r.conns {
		_ = c.Close()
	}
	r.mu.Unlock()
}

// Close stops accepting, closes every active connection and waits for their handlers.
func (r *Receiver) Close() error {
	if !r.closing.CompareAndSwap(false, true) {
		return nil
	}
	err := r.closeListeners()
	r.closeConns()
	r.connGroup.Wait()
	return err
}

// Shutdown stops accepting new connections and waits until active connections end
// or ctx is done. On ctx expiry the remaining connections are force-closed and the
// context error is returned joined with any listener close error.
func (r *Receiver) Shutdown(ctx context.Context) error {
	if !r.closing.CompareAndSwap(false, true) {
		return nil
	}
	err := r.closeListeners()

	done := make(chan struct{})
	go func() {
		r.connGroup.Wait()
		close(done)
	}()
	select {
	case <-done:
		return err
	case <-ctx.Done():
		r.closeConns()
		<-done
		return errors.Join(err, ctx.Err())
	}
}
