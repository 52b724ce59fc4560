package heartbeat

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strings"
)

// Network is the only network the emitter and receiver speak.
const Network = "tcp6"

// Endpoint is an immutable IPv6 address and port.
type Endpoint struct {
	addr netip.AddrPort
}

// ParseEndpoint parses "[ipv6]:port". The host must be an IPv6 literal; IPv4 and
// IPv4-mapped addresses are rejected. An unspecified address with port 0 is accepted for listeners.
func ParseEndpoint(s string) (Endpoint, error) {
	ap, err := netip.ParseAddrPort(strings.TrimSpace(s))
	if err != nil {
		return Endpoint{}, fmt.Errorf("uri: invalid endpoint %q: %w", s, err)
	}
	if !ap.Addr().Is6() || ap.Addr().Is4In6() {
		return Endpoint{}, fmt.Errorf("uri: endpoint %q is not an IPv6 address", s)
	}
	return Endpoint{addr: ap}, nil
}

func (e Endpoint) Addr() netip.Addr         { return e.addr.Addr() }
func (e Endpoint) Port() uint16             { return e.addr.Port() }
func (e Endpoint) Host() string             { return e.addr.Addr().String() }
func (e Endpoint) AddrPort() netip.AddrPort { return e.addr }
func (e Endpoint) IsValid() bool            { return e.addr.IsValid() }
func (e Endpoint) String() string           { return e.addr.String() }

// Transport is the base of a URI scheme: "tcp" or "tcp{hoplimit=64,tclass=46}".
type Transport struct {
	Base   string
	Params map[string]string
	opts   SocketOptions
}

func (t Transport) String() string {
	return formatParams(t.Base, t.Params)
}

func (t *Transport) UnmarshalText(text []byte) error {
	base, params, err := parseParams(string(text))
	if err != nil {
		return err
	}
	if base != "tcp" {
		return fmt.Errorf("uri: unsupported transport %q, want tcp", base)
	}
	opts, err := parseSocketOptions(params)
	if err != nil {
		return err
	}
	t.Base, t.Params, t.opts = base, params, opts
	return nil
}

// URI describes a heartbeat endpoint together with its transport and layers, e.g.
//
//	tcp+tls{ca=./echo-apps-cert.pem}://[2001:db8::1]:4242
type URI struct {
	Transport Transport
	Wrappers  Wrappers
	Endpoint  Endpoint
	Listener  bool
}

func (u URI) String() string {
	str := u.Transport.String()
	if len(u.Wrappers) > 0 {
		str += "+" + u.Wrappers.String()
	}
	return str + "://" + u.Endpoint.String()
}

func (u URI) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// UnmarshalText parses a URI. Layers are set up as listener or dialer according to u.Listener.
func (u *URI) UnmarshalText(text []byte) error {
	str := string(text)
	scheme, addr, ok := strings.Cut(str, "://")
	if !ok {
		return fmt.Errorf("uri: missing scheme delimiter in %q", str)
	}
	if strings.TrimSpace(addr) == "" {
		return fmt.Errorf("uri: empty address in %q", str)
	}
	ep, err := ParseEndpoint(addr)
	if err != nil {
		return err
	}
	base, layers, _ := strings.Cut(scheme, "+")
	var t Transport
	if err := t.UnmarshalText([]byte(base)); err != nil {
		return err
	}
	var ws Wrappers
	if layers != "" {
		if err := ws.UnmarshalText([]byte(layers), u.Listener); err != nil {
			return err
		}
	}
	u.Transport, u.Wrappers, u.Endpoint = t, ws, ep
	return nil
}

// Dialer returns the full dial pipeline for u: tcp6 dial, socket options, then every layer.
func (u URI) Dialer(opts ...DialOption) (Dialer, error) {
	if u.Listener {
		return nil, fmt.Errorf("uri: cannot dial on a listener URI")
	}
	addr := u.Endpoint.String()
	sockOpts := u.Transport.opts
	base := func(ctx context.Context) (net.Conn, error) {
		c, err := Dial(ctx, Network, addr, opts...)
		if err != nil {
			return nil, fmt.Errorf("error dialing %s: %w", addr, err)
		}
		if err := sockOpts.Apply(c); err != nil {
			c.Close()
			return nil, err
		}
		return c, nil
	}
	return u.Wrappers.WrapDialer(base)
}

// Dial connects to u. Layers that need a handshake are returned un-handshaken; see Handshake.
func (u URI) Dial(ctx context.Context, opts ...DialOption) (net.Conn, error) {
	d, err := u.Dialer(opts...)
	if err != nil {
		return nil, err
	}
	return d(ctx)
}

// Listen listens on u and wraps accepted connections with its layers.
func (u URI) Listen(ctx context.Context, opts ...ListenOption) (net.Listener, error) {
	if !u.Listener {
		return nil, fmt.Errorf("uri: cannot listen on a dialer URI")
	}
	ln, err := Listen(ctx, Network, u.Endpoint.String(), opts...)
	if err != nil {
		return nil, fmt.Errorf("error listening on %s: %w", u.Endpoint.String(), err)
	}
	if sockOpts := u.Transport.opts; !sockOpts.isZero() {
		ln, _ = ConnWrapListener(ln, func(c net.Conn) (net.Conn, error) {
			return c, sockOpts.Apply(c)
		})
	}
	if len(u.Wrappers) == 0 {
		return ln, nil
	}
	wrapped, err := u.Wrappers.WrapListener(ln)
	if err != nil {
		ln.Close()
		return nil, err
	}
	return wrapped, nil
}

// DialerURI is a URI whose layers are set up for dialing.
type DialerURI struct {
	URI
}

func (u *DialerURI) UnmarshalText(text []byte) error {
	u.Listener = false
	return u.URI.UnmarshalText(text)
}

// ListenerURI is a URI whose layers are set up for listening.
type ListenerURI struct {
	URI
}

func (u *ListenerURI) UnmarshalText(text []byte) error {
	u.Listener = true
	return u.URI.UnmarshalText(text)
}
