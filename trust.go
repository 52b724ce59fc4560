package heartbeat

import (
	"bytes"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"
)

// LoadTrustAnchors reads a PEM bundle and returns a pool holding every certificate in it.
func LoadTrustAnchors(path string) (*x509.CertPool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trust anchors: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(data) {
		return nil, fmt.Errorf("no PEM certificate found in %s", path)
	}
	return pool, nil
}

// SPKIVerifier returns a VerifyPeerCertificate callback that accepts a peer only if one of
// its certificates carries the same SubjectPublicKeyInfo as the PEM certificate certPEM.
func SPKIVerifier(certPEM []byte) (func(rawCerts [][]byte, verifiedChains [][]*x509.Certificate) error, error) {
	block, _ := pem.Decode(certPEM)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, errors.New("invalid PEM certificate")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse x509 certificate: %w", err)
	}
	pin := sha256.Sum256(cert.RawSubjectPublicKeyInfo)
	return func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
		for _, rawCert := range rawCerts {
			c, err := x509.ParseCertificate(rawCert)
			if err != nil {
				return fmt.Errorf("parse peer cert: %w", err)
			}
			sum := sha256.Sum256(c.RawSubjectPublicKeyInfo)
			if bytes.Equal(sum[:], pin[:]) {
				return nil
			}
		}
		return errors.New("no matching SPKI found")
	}, nil
}

// ParseTLSVersion maps "1.2" and "1.3" to their protocol constants.
func ParseTLSVersion(s string) (uint16, error) {
	switch strings.TrimSpace(s) {
	case "1.2":
		return tls.VersionTLS12, nil
	case "1.3":
		return tls.VersionTLS13, nil
	default:
		return 0, fmt.Errorf("unsupported tls version %q, want 1.2 or 1.3", s)
	}
}

// ParseCipherSuites parses a ':'-separated list of cipher suite names as reported by
// tls.CipherSuiteName. "default" or an empty string selects the library defaults (nil).
func ParseCipherSuites(s string) ([]uint16, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "default") {
		return nil, nil
	}
	known := map[string]uint16{}
	for _, cs := range tls.CipherSuites() {
		known[cs.Name] = cs.ID
	}
	var ids []uint16
	for name := range strings.SplitSeq(s, ":") {
		id, ok := known[strings.ToUpper(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("unknown or insecure cipher suite %q", name)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
