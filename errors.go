package heartbeat

import (
	"errors"
	"fmt"
)

var (
	ErrReceiverClosed = errors.New("receiver is shutting down")
	ErrNoDialer       = errors.New("emitter: no dialer configured")
)

// ConnectionError reports that the connection to the endpoint could not be established.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string { return "connect: " + e.Err.Error() }
func (e *ConnectionError) Unwrap() error { return e.Err }

// HandshakeError reports a failed security handshake, e.g. an untrusted peer certificate
// or a protocol version/cipher mismatch.
type HandshakeError struct {
	Err error
}

func (e *HandshakeError) Error() string { return "handshake: " + e.Err.Error() }
func (e *HandshakeError) Unwrap() error { return e.Err }

// TransmissionError reports that message Seq could not be written to an established connection.
type TransmissionError struct {
	Seq uint64
	Err error
}

func (e *TransmissionError) Error() string {
	return fmt.Sprintf("transmit message %d: %v", e.Seq, e.Err)
}
func (e *TransmissionError) Unwrap() error { return e.Err }
