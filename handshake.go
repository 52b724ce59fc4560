package heartbeat

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"net"
	"slices"
	"time"
)

type contextHandshaker interface {
	HandshakeContext(ctx context.Context) error
}

type handshaker interface {
	Handshake() error
}

type netConner interface {
	NetConn() net.Conn
}

type peerCertificater interface {
	PeerCertificates() []*x509.Certificate
}

type tlsStater interface {
	ConnectionState() tls.ConnectionState
}

// layers returns c and every conn it wraps, outermost first.
func layers(c net.Conn) []net.Conn {
	var out []net.Conn
	for c != nil && len(out) < 32 {
		out = append(out, c)
		u, ok := c.(netConner)
		if !ok {
			break
		}
		c = u.NetConn()
	}
	return out
}

// Handshake completes the handshake of every layer of c that has one, innermost first.
// Layers without a context-aware handshake are aborted by closing c when ctx is done.
func Handshake(ctx context.Context, c net.Conn) error {
	ls := layers(c)
	slices.Reverse(ls)
	for _, l := range ls {
		switch h := l.(type) {
		case contextHandshaker:
			if err := h.HandshakeContext(ctx); err != nil {
				return err
			}
		case handshaker:
			if err := handshakeWithContext(ctx, c, h); err != nil {
				return err
			}
		}
	}
	return nil
}

func handshakeWithContext(ctx context.Context, c net.Conn, h handshaker) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.SetDeadline(deadline)
		defer c.SetDeadline(time.Time{})
	}
	stop := context.AfterFunc(ctx, func() { _ = c.SetDeadline(time.Unix(1, 0)) })
	defer stop()
	if err := h.Handshake(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// PeerCertificates returns the certificates presented by the peer of the first secure
// layer of c, leaf first. It returns nil for plain connections.
func PeerCertificates(c net.Conn) []*x509.Certificate {
	for _, l := range layers(c) {
		switch s := l.(type) {
		case peerCertificater:
			return s.PeerCertificates()
		case tlsStater:
			return s.ConnectionState().PeerCertificates
		}
	}
	return nil
}

// PeerInfo is a printable summary of a peer certificate.
type PeerInfo struct {
	Subject      string    `json:"subject"`
	Issuer       string    `json:"issuer"`
	SerialNumber string    `json:"serialNumber"`
	NotBefore    time.Time `json:"notBefore"`
	NotAfter     time.Time `json:"notAfter"`
	DNSNames     []string  `json:"dnsNames,omitempty"`
	IPAddresses  []string  `json:"ipAddresses,omitempty"`
	Version      int       `json:"version"`
}

func DescribeCertificate(cert *x509.Certificate) PeerInfo {
	info := PeerInfo{
		Subject:      cert.Subject.String(),
		Issuer:       cert.Issuer.String(),
		SerialNumber: hex.EncodeToString(cert.SerialNumber.Bytes()),
		NotBefore:    cert.NotBefore.UTC(),
		NotAfter:     cert.NotAfter.UTC(),
		DNSNames:     cert.DNSNames,
		Version:      cert.Version,
	}
	for _, ip := range cert.IPAddresses {
		info.IPAddresses = append(info.IPAddresses, ip.String())
	}
	return info
}

// LogArgs returns the info as slog key/value pairs.
func (p PeerInfo) LogArgs() []any {
	return []any{
		"subject", p.Subject,
		"issuer", p.Issuer,
		"serial", p.SerialNumber,
		"notBefore", p.NotBefore,
		"notAfter", p.NotAfter,
		"dnsNames", p.DNSNames,
		"ipAddresses", p.IPAddresses,
	}
}
