package heartbeat

import (
	"context"
	"net"
	"time"
)

type listenCfg struct {
	net.ListenConfig
}

type ListenOption func(*listenCfg)

func WithListenConfig(cfg net.ListenConfig) ListenOption {
	return func(lc *listenCfg) {
		lc.ListenConfig = cfg
	}
}

func Listen(ctx context.Context, network, addr string, opts ...ListenOption) (net.Listener, error) {
	cfg := &listenCfg{}
	for _, o := range opts {
		o(cfg)
	}
	return cfg.Listen(ctx, network, addr)
}

type dialCfg struct {
	net.Dialer
}

type DialOption func(*dialCfg)

func WithDialConfig(cfg net.Dialer) DialOption {
	return func(dc *dialCfg) {
		dc.Dialer = cfg
	}
}

// WithDialTimeout bounds connection establishment. Zero means no limit beyond ctx.
func WithDialTimeout(d time.Duration) DialOption {
	return func(dc *dialCfg) {
		dc.Timeout = d
	}
}

func Dial(ctx context.Context, network, addr string, opts ...DialOption) (net.Conn, error) {
	cfg := &dialCfg{}
	for _, o := range opts {
		o(cfg)
	}
	return cfg.DialContext(ctx, network, addr)
}
