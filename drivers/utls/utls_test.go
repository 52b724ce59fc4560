package utls

import (
	"net"
	"testing"

	utls "github.com/refraction-networking/utls"
	"github.com/stretchr/testify/require"
)

func TestSetupRejectsListener(t *testing.T) {
	_, err := setup(map[string]string{}, true)
	require.Error(t, err)
}

func TestSetupErrors(t *testing.T) {
	for _, params := range []map[string]string{
		{"hello": "netscape"},
		{"minversion": "1.0"},
		{"ca": "/nonexistent/ca.pem"},
		{"key": "00"},
	} {
		_, err := setup(params, false)
		require.Error(t, err, "params %v", params)
	}
}

func TestHelloID(t *testing.T) {
	tests := map[string]utls.ClientHelloID{
		"chrome":           utls.HelloChrome_Auto,
		"Firefox":          utls.HelloFirefox_Auto,
		"ios":              utls.HelloIOS_Auto,
		"android":          utls.HelloAndroid_11_OkHttp,
		"safari":           utls.HelloSafari_Auto,
		"edge":             utls.HelloEdge_Auto,
		"randomized":       utls.HelloRandomizedALPN,
		"randomizednoalpn": utls.HelloRandomized,
	}
	for name, want := range tests {
		got, err := helloID(name)
		require.NoError(t, err)
		require.Equal(t, want, got, name)
	}
}

func TestSetupWrapsConn(t *testing.T) {
	w, err := setup(map[string]string{"hello": "firefox", "servername": "echo.example"}, false)
	require.NoError(t, err)
	require.Equal(t, "utls", w.Name)

	client, server := net.Pipe()
	t.Cleanup(func() { _ = client.Close(); _ = server.Close() })
	c, err := w.ConnToConn(client)
	require.NoError(t, err)
	require.Nil(t, c.(*conn).PeerCertificates())
}
