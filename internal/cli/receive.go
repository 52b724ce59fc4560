package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	heartbeat "github.com/pedramktb/go-heartbeat"
	"github.com/pedramktb/go-heartbeat/internal/config"
	"github.com/spf13/cobra"
)

const receiveExample = `	heartbeat receive --from "tcp://[::]:4242"
	heartbeat receive \
		--from "tcp+tls{certfile=./echo-apps-cert.pem,keyfile=./echo-apps-key.pem}://[::]:4242"
`

func receive(cancel context.CancelFunc, conf *config.Config, cfgPath *string) *cobra.Command {
	if cancel == nil {
		cancel = func() {}
	}

	cmd := &cobra.Command{
		Use:           "receive",
		Short:         "Accept heartbeats on an IPv6 address and print every chunk received.",
		Long:          "receive listens on an IPv6 address, optionally through TLS, and logs every chunk read from each connection until stopped.",
		Example:       receiveExample,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if err := loadConfig(cmd, conf, *cfgPath); err != nil {
				return err
			}
			if err := conf.ValidateReceive(); err != nil {
				return usageError{fmt.Errorf("invalid config: %w", err)}
			}
			return runReceive(ctx, cancel, *conf, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&conf.From, "from", conf.From, "<uri>")
	f.IntVar(&conf.BufferSize, "buffer-size", conf.BufferSize, "maximum bytes per read")
	f.DurationVar(&conf.HandshakeTimeout, "handshake-timeout", conf.HandshakeTimeout, "security handshake timeout, 0 for none")
	f.BoolVar(&conf.Echo, "echo", conf.Echo, "print every received chunk to stdout")

	return cmd
}

func runReceive(ctx context.Context, cancel context.CancelFunc, conf config.Config, out io.Writer) error {
	var from heartbeat.ListenerURI
	if err := from.UnmarshalText([]byte(conf.From)); err != nil {
		return usageError{fmt.Errorf("parse --from: %w", err)}
	}

	ln, err := from.Listen(ctx)
	if err != nil {
		return err
	}
	defer ln.Close()

	r := &heartbeat.Receiver{
		Logger:           slog.Default(),
		BufferSize:       conf.BufferSize,
		HandshakeTimeout: conf.HandshakeTimeout,
	}
	if conf.Echo {
		r.Output = out
	}

	slog.Info("heartbeat receive started", "listen", ln.Addr().String(), "from", from.String())
	return serveUntilDone(ctx, cancel, r, ln)
}

// serveUntilDone runs r on ln until ctx is done or Serve fails, then shuts r down.
func serveUntilDone(ctx context.Context, cancel context.CancelFunc, r *heartbeat.Receiver, ln net.Listener) error {
	serveErr := make(chan error, 1)
	go func() {
		err := r.Serve(ctx, ln)
		if err != nil && !errors.Is(err, heartbeat.ErrReceiverClosed) {
			slog.Error("serve error", "err", err)
			cancel()
		}
		serveErr <- err
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		_ = r.Close()
		if errors.Is(err, heartbeat.ErrReceiverClosed) {
			return nil
		}
		return err
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 3*time.Second)
	defer stop()
	_ = r.Shutdown(shutdownCtx)

	if err := <-serveErr; err != nil && !errors.Is(err, heartbeat.ErrReceiverClosed) {
		return err
	}
	return nil
}
