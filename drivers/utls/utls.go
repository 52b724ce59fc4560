// Package utls registers the "utls" layer: a TLS client that presents a browser-like
// ClientHello (github.com/refraction-networking/utls). It is client only.
//
// Parameters: ca, cert, servername and minversion as for the "tls" layer, and hello
// (chrome, firefox, ios, android, safari, edge, randomized, randomizednoalpn).
package utls

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"strings"

	heartbeat "github.com/pedramktb/go-heartbeat"
	utls "github.com/refraction-networking/utls"
)

func init() {
	heartbeat.Register("utls", setup)
}

func setup(params map[string]string, listener bool) (heartbeat.Wrapper, error) {
	if listener {
		return heartbeat.Wrapper{}, errors.New("uri: utls is exclusive to clients, use tls for servers instead")
	}
	var cert []byte
	cfg := &utls.Config{
		MinVersion: tls.VersionTLS12,
	}
	id := utls.HelloChrome_Auto
	for key, value := range params {
		var err error
		switch key {
		case "cert":
			cert, err = hex.DecodeString(value)
		case "ca":
			cfg.RootCAs, err = heartbeat.LoadTrustAnchors(value)
		case "servername":
			cfg.ServerName = value
		case "minversion":
			cfg.MinVersion, err = heartbeat.ParseTLSVersion(value)
		case "hello":
			id, err = helloID(value)
		default:
			return heartbeat.Wrapper{}, fmt.Errorf("uri: unknown utls parameter %q", key)
		}
		if err != nil {
			return heartbeat.Wrapper{}, fmt.Errorf("uri: invalid utls %s parameter: %w", key, err)
		}
	}
	if cert != nil {
		verify, err := heartbeat.SPKIVerifier(cert)
		if err != nil {
			return heartbeat.Wrapper{}, fmt.Errorf("uri: invalid utls cert parameter: %w", err)
		}
		if cfg.RootCAs == nil {
			cfg.InsecureSkipVerify = true
		}
		cfg.VerifyPeerCertificate = verify
	}
	return heartbeat.ConnWrapper("utls", params, listener, func(c net.Conn) (net.Conn, error) {
		return &conn{utls.UClient(c, clientConfig(cfg, c), id)}, nil
	}), nil
}

func helloID(value string) (utls.ClientHelloID, error) {
	switch strings.ToLower(value) {
	case "chrome":
		return utls.HelloChrome_Auto, nil
	case "firefox":
		return utls.HelloFirefox_Auto, nil
	case "ios":
		return utls.HelloIOS_Auto, nil
	case "android":
		return utls.HelloAndroid_11_OkHttp, nil
	case "safari":
		return utls.HelloSafari_Auto, nil
	case "edge":
		return utls.HelloEdge_Auto, nil
	case "randomized":
		return utls.HelloRandomizedALPN, nil
	case "randomizednoalpn":
		return utls.HelloRandomized, nil
	default:
		return utls.ClientHelloID{}, fmt.Errorf("unknown utls hello profile %q", value)
	}
}

func clientConfig(cfg *utls.Config, c net.Conn) *utls.Config {
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

// conn exposes the peer chain of a uTLS session to the emitter.
type conn struct {
	*utls.UConn
}

func (c *conn) PeerCertificates() []*x509.Certificate {
	return c.ConnectionState().PeerCertificates
}
