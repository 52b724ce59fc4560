package heartbeat

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"sync/atomic"
	"time"
)

const (
	DefaultPrefix   = "Good Work! "
	DefaultInterval = 2 * time.Second
)

// State is the lifecycle state of an Emitter.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateStreaming
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Emitter opens one connection and sends Prefix followed by a counter every Interval.
//
// The counter starts at 0 and grows by one after every successful send. Messages are
// written with no framing or delimiter. Every failure ends Run with a typed error
// (*ConnectionError, *HandshakeError or *TransmissionError) unless Reconnect is set,
// in which case connection and transmission failures are retried with Backoff.
// Handshake failures are never retried.
type Emitter struct {
	Logger Logger
	// Dial opens the connection. Required.
	Dial Dialer
	// Prefix defaults to DefaultPrefix.
	Prefix string
	// Interval between sends, defaults to DefaultInterval.
	Interval time.Duration
	// Count stops Run after that many messages. Zero sends forever.
	Count uint64
	// HandshakeTimeout bounds the security handshake. Zero means no limit.
	HandshakeTimeout time.Duration
	// WriteTimeout bounds every send so a dead peer cannot block forever. Zero means no limit.
	WriteTimeout time.Duration
	// Echo receives every sent message followed by a newline.
	Echo io.Writer
	// OnPeerCertificates is called with the peer chain after a successful secure handshake.
	OnPeerCertificates func(certs []*x509.Certificate)
	Reconnect          bool
	Backoff            Backoff
	// Sleep suspends between sends and reconnects. Defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error

	state atomic.Int32
	seq   atomic.Uint64
}

// Message returns the wire payload for counter n.
func Message(prefix string, n uint64) []byte {
	return strconv.AppendUint([]byte(prefix), n, 10)
}

// WriteAll writes every byte of p to w, retrying short writes until p is fully
// transmitted or w fails. A write that makes no progress fails with io.ErrShortWrite.
func WriteAll(w io.Writer, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		if n < 0 || n > len(p) {
			return fmt.Errorf("invalid write result %d for %d bytes", n, len(p))
		}
		p = p[n:]
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
	}
	return nil
}

func (e *Emitter) State() State { return State(e.state.Load()) }

// Sent returns the number of messages sent so far, which is also the next counter value.
func (e *Emitter) Sent() uint64 { return e.seq.Load() }

func (e *Emitter) setState(s State) { e.state.Store(int32(s)) }

// Run connects and streams heartbeats until Count is reached, ctx is done or a failure ends it.
// It returns nil when Count messages were sent and ctx.Err() on cancellation.
func (e *Emitter) Run(ctx context.Context) error {
	if e.Dial == nil {
		return ErrNoDialer
	}
	if e.Logger == nil {
		e.Logger = slog.Default()
	}
	if e.Prefix == "" {
		e.Prefix = DefaultPrefix
	}
	if e.Interval <= 0 {
		e.Interval = DefaultInterval
	}
	if e.Sleep == nil {
		e.Sleep = sleepContext
	}
	defer e.setState(StateStopped)

	for {
		err := e.session(ctx)
		if err == nil {
			e.Logger.InfoContext(ctx, "heartbeat finished", "sent", e.Sent())
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var hsErr *HandshakeError
		if !e.Reconnect || errors.As(err, &hsErr) {
			return err
		}
		delay := e.Backoff.Next()
		e.Logger.WarnContext(ctx, "heartbeat session failed, reconnecting", "error", err.Error(), "delay", delay, "next", e.Sent())
		if err := e.Sleep(ctx, delay); err != nil {
			return err
		}
	}
}

func (e *Emitter) session(ctx context.Context) error {
	e.setState(StateConnecting)
	e.Logger.DebugContext(ctx, "connecting")
	conn, err := e.Dial(ctx)
	if err != nil {
		return &ConnectionError{Err: err}
	}
	defer func() {
		if err := conn.Close(); err != nil {
			e.Logger.DebugContext(ctx, "error closing connection", "error", err.Error())
		}
	}()
	// Unblock a pending handshake or write when ctx is cancelled.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	hsCtx := ctx
	if e.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		hsCtx, cancel = context.WithTimeout(ctx, e.HandshakeTimeout)
		defer cancel()
	}
	if err := Handshake(hsCtx, conn); err != nil {
		return &HandshakeError{Err: err}
	}
	if certs := PeerCertificates(conn); len(certs) > 0 {
		e.Logger.InfoContext(ctx, "peer certificate", DescribeCertificate(certs[0]).LogArgs()...)
		if e.OnPeerCertificates != nil {
			e.OnPeerCertificates(certs)
		}
	}

	e.setState(StateStreaming)
	e.Logger.InfoContext(ctx, "streaming heartbeats", "remote", conn.RemoteAddr().String(), "interval", e.Interval, "next", e.Sent())

	for {
		n := e.seq.Load()
		if e.Count != 0 && n >= e.Count {
			return nil
		}
		if err := peerGone(conn); err != nil {
			return &TransmissionError{Seq: n, Err: err}
		}
		msg := Message(e.Prefix, n)
		if err := e.send(conn, msg); err != nil {
			return &TransmissionError{Seq: n, Err: err}
		}
		e.Logger.DebugContext(ctx, "sent heartbeat", "seq", n, "bytes", len(msg))
		if e.Echo != nil {
			if _, err := fmt.Fprintf(e.Echo, "%s\n", msg); err != nil {
				e.Logger.WarnContext(ctx, "echo write failed", "seq", n, "error", err.Error())
			}
		}
		e.seq.Add(1)
		e.Backoff.Reset()
		if e.Count != 0 && n+1 >= e.Count {
			return nil
		}
		if err := e.Sleep(ctx, e.Interval); err != nil {
			return err
		}
	}
}

func (e *Emitter) send(conn net.Conn, msg []byte) error {
	if e.WriteTimeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(e.WriteTimeout)); err != nil {
			return err
		}
	}
	if err := WriteAll(conn, msg); err != nil {
		return err
	}
	// Buffered layers anywhere in the stack are flushed, outermost first.
	for _, l := range layers(conn) {
		if f, ok := l.(interface{ Flush() error }); ok {
			if err := f.Flush(); err != nil {
				return err
			}
		}
	}
	return nil
}

// maxDrainReads bounds how many reads peerGone spends discarding inbound data.
const maxDrainReads = 64

// peerGone polls the read side of conn without blocking. A kernel accepts writes after the
// peer's FIN, so a closed or reset peer is only visible as EOF or an error on read.
// Data sent by the peer is discarded.
func peerGone(conn net.Conn) error {
	if err := conn.SetReadDeadline(time.Now()); err != nil {
		return nil
	}
	defer conn.SetReadDeadline(time.Time{})

	var buf [512]byte
	for range maxDrainReads {
		_, err := conn.Read(buf[:])
		if err == nil {
			continue
		}
		var ne net.Error
		if errors.Is(err, os.ErrDeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
			return nil
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("peer closed the connection: %w", err)
		}
		return err
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
