// Package tls registers the "tls" layer.
//
// Client parameters:
//   - ca: path to a PEM bundle of trust anchors the server certificate must chain to
//   - cert: hex-encoded PEM certificate; the server must present the same public key (SPKI pinning)
//   - servername: name verified against the server certificate, defaults to the dialed IPv6 host
//   - minversion: 1.2 (default) or 1.3
//   - ciphers: "default" or ':'-separated cipher suite names (TLS 1.2 only)
//
// Server parameters: certfile and keyfile (paths), or cert and key (hex-encoded PEM), plus minversion and ciphers.
package tls

import (
	"crypto/tls"
	"encoding/hex"
	"fmt"
	"net"

	heartbeat "github.com/pedramktb/go-heartbeat"
)

func init() {
	heartbeat.Register("tls", setup)
}

func setup(params map[string]string, listener bool) (heartbeat.Wrapper, error) {
	var certKey, cert []byte
	var certFile, keyFile, caFile string
	cfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}
	for key, value := range params {
		var err error
		switch key {
		case "key":
			certKey, err = hex.DecodeString(value)
		case "cert":
			cert, err = hex.DecodeString(value)
		case "certfile":
			certFile = value
		case "keyfile":
			keyFile = value
		case "ca":
			caFile = value
		case "servername":
			cfg.ServerName = value
		case "minversion":
			cfg.MinVersion, err = heartbeat.ParseTLSVersion(value)
		case "ciphers":
			cfg.CipherSuites, err = heartbeat.ParseCipherSuites(value)
		default:
			return heartbeat.Wrapper{}, fmt.Errorf("uri: unknown tls parameter %q", key)
		}
		if err != nil {
			return heartbeat.Wrapper{}, fmt.Errorf("uri: invalid tls %s parameter: %w", key, err)
		}
	}

	if listener {
		var certificate tls.Certificate
		var err error
		switch {
		case certFile != "" && keyFile != "":
			certificate, err = tls.LoadX509KeyPair(certFile, keyFile)
		case cert != nil && certKey != nil:
			certificate, err = tls.X509KeyPair(cert, certKey)
		default:
			return heartbeat.Wrapper{}, fmt.Errorf("uri: tls server requires certfile and keyfile, or cert and key parameters")
		}
		if err != nil {
			return heartbeat.Wrapper{}, fmt.Errorf("uri: invalid tls certificate: %w", err)
		}
		cfg.Certificates = []tls.Certificate{certificate}
		return heartbeat.ConnWrapper("tls", params, listener, func(c net.Conn) (net.Conn, error) {
			return tls.Server(c, cfg), nil
		}), nil
	}

	if certKey != nil || keyFile != "" || certFile != "" {
		return heartbeat.Wrapper{}, fmt.Errorf("uri: tls client does not support key, keyfile or certfile parameters")
	}
	if caFile != "" {
		pool, err := heartbeat.LoadTrustAnchors(caFile)
		if err != nil {
			return heartbeat.Wrapper{}, fmt.Errorf("uri: invalid tls ca parameter: %w", err)
		}
		cfg.RootCAs = pool
	}
	if cert != nil {
		verify, err := heartbeat.SPKIVerifier(cert)
		if err != nil {
			return heartbeat.Wrapper{}, fmt.Errorf("uri: invalid tls cert parameter: %w", err)
		}
		if caFile == "" {
			// Pinning replaces chain validation unless trust anchors were given too.
			cfg.InsecureSkipVerify = true
		}
		cfg.VerifyPeerCertificate = verify
	}
	return heartbeat.ConnWrapper("tls", params, listener, func(c net.Conn) (net.Conn, error) {
		return tls.Client(c, clientConfig(cfg, c)), nil
	}), nil
}

// clientConfig fills in ServerName from the remote address when none was configured,
// so the server identity is checked against the host that was dialed.
func clientConfig(cfg *tls.Config, c net.Conn) *tls.Config {
	if cfg.ServerName != "" || cfg.InsecureSkipVerify {
		return cfg
	}
	host, _, err := net.SplitHostPort(c.RemoteAddr().String())
	if err != nil {
		return cfg
	}
	out := cfg.Clone()
	out.ServerName = host
	return out
}
