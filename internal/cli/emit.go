package cli

import (
	"context"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	heartbeat "github.com/pedramktb/go-heartbeat"
	"github.com/pedramktb/go-heartbeat/internal/config"
	"github.com/spf13/cobra"
)

const emitExample = `	heartbeat emit --to "tcp+tls{ca=./echo-apps-cert.pem}://[2001:db8::1]:4242"
	heartbeat emit --to "tcp://[::1]:4242" --interval 500ms --count 10
	heartbeat emit --to "tcp+tlspsk{key=00112233445566778899aabbccddeeff,identity=node1}://[2001:db8::1]:4242" --reconnect
`

func emit(conf *config.Config, cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "emit",
		Short:         "Send a counter-stamped heartbeat to an IPv6 endpoint at a fixed interval.",
		Long:          "emit connects to an IPv6 endpoint, optionally through TLS, and sends \"Good Work! <n>\" every interval until stopped, the count is reached or the connection fails.",
		Example:       emitExample,
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
			if err := conf.ValidateEmit(); err != nil {
				return usageError{fmt.Errorf("invalid config: %w", err)}
			}
			return runEmit(ctx, *conf, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&conf.To, "to", conf.To, "<uri>")
	f.StringVar(&conf.Prefix, "prefix", conf.Prefix, "message prefix, the counter is appended")
	f.DurationVar(&conf.Interval, "interval", conf.Interval, "time between messages")
	f.IntVar(&conf.Count, "count", conf.Count, "stop after this many messages, 0 sends forever")
	f.DurationVar(&conf.DialTimeout, "dial-timeout", conf.DialTimeout, "connection timeout, 0 for none")
	f.DurationVar(&conf.HandshakeTimeout, "handshake-timeout", conf.HandshakeTimeout, "security handshake timeout, 0 for none")
	f.DurationVar(&conf.WriteTimeout, "write-timeout", conf.WriteTimeout, "per-message write timeout, 0 for none")
	f.BoolVar(&conf.Echo, "echo", conf.Echo, "print every sent message to stdout")
	f.BoolVar(&conf.PrintCert, "print-cert", conf.PrintCert, "print the peer certificate after the handshake")
	f.BoolVar(&conf.Reconnect, "reconnect", conf.Reconnect, "reconnect with backoff after connection and transmission failures")
	f.DurationVar(&conf.ReconnectBase, "reconnect-base", conf.ReconnectBase, "initial reconnect delay")
	f.DurationVar(&conf.ReconnectMax, "reconnect-max", conf.ReconnectMax, "maximum reconnect delay")

	return cmd
}

func runEmit(ctx context.Context, conf config.Config, out io.Writer) error {
	var to heartbeat.DialerURI
	if err := to.UnmarshalText([]byte(conf.To)); err != nil {
		return usageError{fmt.Errorf("parse --to: %w", err)}
	}
	dial, err := to.Dialer(heartbeat.WithDialTimeout(conf.DialTimeout))
	if err != nil {
		return usageError{err}
	}

	e := &heartbeat.Emitter{
		Logger:           slog.Default(),
		Dial:             dial,
		Prefix:           conf.Prefix,
		Interval:         conf.Interval,
		Count:            uint64(conf.Count),
		HandshakeTimeout: conf.HandshakeTimeout,
		WriteTimeout:     conf.WriteTimeout,
		Reconnect:        conf.Reconnect,
		Backoff:          heartbeat.Backoff{Base: conf.ReconnectBase, Max: conf.ReconnectMax},
	}
	if conf.Echo {
		e.Echo = out
	}
	if conf.PrintCert {
		e.OnPeerCertificates = func(certs []*x509.Certificate) {
			if err := printCertificates(out, certs); err != nil {
				slog.WarnContext(ctx, "print peer certificate", "err", err)
			}
		}
	}

	slog.InfoContext(ctx, "heartbeat emit started", "to", to.String(), "interval", conf.Interval, "count", conf.Count)

	err = e.Run(ctx)
	if errors.Is(err, context.Canceled) {
		slog.InfoContext(ctx, "heartbeat emit stopped", "sent", e.Sent())
		return nil
	}
	return err
}

func printCertificates(w io.Writer, certs []*x509.Certificate) error {
	infos := make([]heartbeat.PeerInfo, 0, len(certs))
	for _, c := range certs {
		infos = append(infos, heartbeat.DescribeCertificate(c))
	}
	b, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", b)
	return err
}
