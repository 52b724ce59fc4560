package tls

import (
	"crypto/tls"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupErrors(t *testing.T) {
	tests := []struct {
		name     string
		params   map[string]string
		listener bool
	}{
		{name: "server without certificate", params: map[string]string{}, listener: true},
		{name: "server with missing files", params: map[string]string{"certfile": "/nonexistent/cert.pem", "keyfile": "/nonexistent/key.pem"}, listener: true},
		{name: "client with key", params: map[string]string{"key": "00"}},
		{name: "client with keyfile", params: map[string]string{"keyfile": "key.pem"}},
		{name: "unknown parameter", params: map[string]string{"foo": "bar"}},
		{name: "old tls version", params: map[string]string{"minversion": "1.1"}},
		{name: "unknown cipher", params: map[string]string{"ciphers": "TLS_NOPE"}},
		{name: "missing trust anchors", params: map[string]string{"ca": "/nonexistent/ca.pem"}},
		{name: "bad hex certificate", params: map[string]string{"cert": "zz"}},
		{name: "pin is not a certificate", params: map[string]string{"cert": "00"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := setup(tt.params, tt.listener)
			require.Error(t, err)
		})
	}
}

func TestSetupClient(t *testing.T) {
	w, err := setup(map[string]string{"servername": "echo.example", "minversion": "1.3"}, false)
	require.NoError(t, err)
	require.Equal(t, "tls", w.Name)
	require.Equal(t, "tls{minversion=1.3,servername=echo.example}", w.String())
	require.NotNil(t, w.ConnToConn)
	require.NotNil(t, w.DialerToDialer)
	require.False(t, w.Listener)

	client, server := net.Pipe()
	t.Cleanup(func() { _ = client.Close(); _ = server.Close() })
	c, err := w.ConnToConn(client)
	require.NoError(t, err)
	require.IsType(t, &tls.Conn{}, c)
}

type remoteConn struct {
	net.Conn
	remote net.Addr
}

func (c remoteConn) RemoteAddr() net.Addr { return c.remote }

func TestClientConfigServerName(t *testing.T) {
	c := remoteConn{remote: &net.TCPAddr{IP: net.ParseIP("2001:db8::1"), Port: 4242}}

	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	out := clientConfig(cfg, c)
	require.Equal(t, "2001:db8::1", out.ServerName)
	require.Empty(t, cfg.ServerName)

	named := &tls.Config{ServerName: "echo.example"}
	require.Same(t, named, clientConfig(named, c))

	pinned := &tls.Config{InsecureSkipVerify: true}
	require.Same(t, pinned, clientConfig(pinned, c))
}
