package config

import (
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config with string durations to keep the TOML friendly.
type FileConfig struct {
	To               string `toml:"to"`
	From             string `toml:"from"`
	Prefix           string `toml:"prefix"`
	Interval         string `toml:"interval"`
	Count            int    `toml:"count"`
	DialTimeout      string `toml:"dial_timeout"`
	HandshakeTimeout string `toml:"handshake_timeout"`
	WriteTimeout     string `toml:"write_timeout"`
	Echo             *bool  `toml:"echo"`
	PrintCert        *bool  `toml:"print_cert"`
	Reconnect        *bool  `toml:"reconnect"`
	ReconnectBase    string `toml:"reconnect_base"`
	ReconnectMax     string `toml:"reconnect_max"`
	BufferSize       int    `toml:"buffer_size"`
}

// LoadFileConfig reads and parses a TOML config file.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.heartbeat/config.toml, or "" when the home directory is unknown.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".heartbeat", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies fc to cfg, skipping explicitly set flags.
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("to", fc.To, &cfg.To)
	s.setString("from", fc.From, &cfg.From)
	s.setString("prefix", fc.Prefix, &cfg.Prefix)

	durations := []struct {
		flag  string
		value string
		dst   *time.Duration
	}{
		{"interval", fc.Interval, &cfg.Interval},
		{"dial-timeout", fc.DialTimeout, &cfg.DialTimeout},
		{"handshake-timeout", fc.HandshakeTimeout, &cfg.HandshakeTimeout},
		{"write-timeout", fc.WriteTimeout, &cfg.WriteTimeout},
		{"reconnect-base", fc.ReconnectBase, &cfg.ReconnectBase},
		{"reconnect-max", fc.ReconnectMax, &cfg.ReconnectMax},
	}
	for _, d := range durations {
		if err := s.setDuration(d.flag, d.value, d.dst); err != nil {
			return err
		}
	}

	s.setInt("count", fc.Count, &cfg.Count)
	s.setInt("buffer-size", fc.BufferSize, &cfg.BufferSize)

	s.setBool("echo", fc.Echo, &cfg.Echo)
	s.setBool("print-cert", fc.PrintCert, &cfg.PrintCert)
	s.setBool("reconnect", fc.Reconnect, &cfg.Reconnect)

	return nil
}

// FileExists reports whether a file exists at p.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
