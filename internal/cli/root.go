package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	heartbeat "github.com/pedramktb/go-heartbeat"
	"github.com/pedramktb/go-heartbeat/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Exit codes returned by Run.
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitUsage        = 2
	ExitConnection   = 3
	ExitHandshake    = 4
	ExitTransmission = 5
)

type cfg struct {
	args []string
	out  io.Writer
	err  io.Writer
}

type Option func(*cfg)

func WithArgs(args []string) Option {
	return func(c *cfg) {
		c.args = args
	}
}

func WithOut(w io.Writer) Option {
	return func(c *cfg) {
		c.out = w
	}
}

func WithErr(w io.Writer) Option {
	return func(c *cfg) {
		c.err = w
	}
}

// usageError marks configuration and argument errors.
type usageError struct {
	error
}

func (e usageError) Unwrap() error { return e.error }

// Run executes the heartbeat command line and returns the process exit code.
// cancel is called before Run returns.
func Run(ctx context.Context, cancel context.CancelFunc, opts ...Option) (exitCode int) {
	if cancel != nil {
		defer cancel()
	}
	cfg := cfg{
		args: os.Args[1:],
		out:  os.Stdout,
		err:  os.Stderr,
	}
	for _, o := range opts {
		o(&cfg)
	}

	var logLevel, cfgPath string
	conf := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:           "heartbeat [command]",
		Short:         "IPv6 connectivity smoke test",
		Long:          "heartbeat sends a counter-stamped greeting over a plain or TLS-secured IPv6 TCP connection at a fixed interval, and can act as the receiving peer.",
		Version:       "dev",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := parseLogLevel(logLevel)
			if err != nil {
				return usageError{err}
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cfg.err, &slog.HandlerOptions{Level: lvl})))
			return nil
		},
	}

	cmd.SetArgs(cfg.args)
	cmd.SetOut(cfg.out)
	cmd.SetErr(cfg.err)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	defaultHelp := cmd.HelpFunc()
	cmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		defaultHelp(cmd, args)
		fmt.Fprintln(cmd.OutOrStdout())
		fmt.Fprint(cmd.OutOrStdout(), uriFormat)
	})

	cmd.PersistentFlags().StringVar(&logLevel, "log", "info", "log level: debug|info|warn|error")
	cmd.PersistentFlags().StringVar(&cfgPath, "config", "", "TOML config file (default $HOME/.heartbeat/config.toml if present)")

	cmd.AddCommand(emit(&conf, &cfgPath), receive(cancel, &conf, &cfgPath))

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(cfg.err, err)
		return exitCodeFor(err)
	}
	return ExitOK
}

func exitCodeFor(err error) int {
	var (
		ue usageError
		ce *heartbeat.ConnectionError
		he *heartbeat.HandshakeError
		te *heartbeat.TransmissionError
	)
	switch {
	case errors.As(err, &ue):
		return ExitUsage
	case errors.As(err, &ce):
		return ExitConnection
	case errors.As(err, &he):
		return ExitHandshake
	case errors.As(err, &te):
		return ExitTransmission
	default:
		return ExitFailure
	}
}

// loadConfig layers the config file and HEARTBEAT_* variables under the flags set on cmd.
func loadConfig(cmd *cobra.Command, conf *config.Config, cfgPath string) error {
	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	path := cfgPath
	if path == "" {
		if p := config.DefaultConfigPath(); p != "" && config.FileExists(p) {
			path = p
		}
	}
	if path != "" {
		fc, err := config.LoadFileConfig(path)
		if err != nil {
			return usageError{fmt.Errorf("load config %s: %w", path, err)}
		}
		if err := config.ApplyFileConfig(conf, fc, changed); err != nil {
			return usageError{fmt.Errorf("apply config %s: %w", path, err)}
		}
		slog.Debug("loaded config file", "path", path)
	}
	if err := config.ApplyEnvConfig(conf, changed); err != nil {
		return usageError{fmt.Errorf("apply environment: %w", err)}
	}
	return nil
}

func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q", level)
	}
}
