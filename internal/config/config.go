// Package config holds the heartbeat CLI configuration: defaults, a TOML file,
// HEARTBEAT_* environment variables and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	heartbeat "github.com/pedramktb/go-heartbeat"
)

const (
	DefaultTo   = "tcp+tls{ca=./echo-apps-cert.pem}://[2001:db8::1]:4242"
	DefaultFrom = "tcp://[::]:4242"
)

// Config holds CLI configuration for both the emit and receive commands.
type Config struct {
	To   string
	From string

	Prefix   string
	Interval time.Duration
	Count    int

	DialTimeout      time.Duration
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration

	Echo      bool
	PrintCert bool

	Reconnect     bool
	ReconnectBase time.Duration
	ReconnectMax  time.Duration

	BufferSize int
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		To:               DefaultTo,
		From:             DefaultFrom,
		Prefix:           heartbeat.DefaultPrefix,
		Interval:         heartbeat.DefaultInterval,
		DialTimeout:      10 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		Echo:             true,
		ReconnectBase:    time.Second,
		ReconnectMax:     30 * time.Second,
		BufferSize:       heartbeat.DefaultReceiveBufferSize,
	}
}

// ValidateEmit checks the settings used by the emit command.
func (c *Config) ValidateEmit() error {
	var errs []error
	if c.To == "" {
		errs = append(errs, errors.New("to is required"))
	}
	if c.Interval <= 0 {
		errs = append(errs, errors.New("interval must be positive"))
	}
	if c.Count < 0 {
		errs = append(errs, errors.New("count must not be negative"))
	}
	if c.DialTimeout < 0 || c.HandshakeTimeout < 0 || c.WriteTimeout < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	if c.Reconnect {
		if c.ReconnectBase <= 0 {
			errs = append(errs, errors.New("reconnect base must be positive"))
		}
		if c.ReconnectMax < c.ReconnectBase {
			errs = append(errs, errors.New("reconnect max must not be below reconnect base"))
		}
	}
	return errors.Join(errs...)
}

// ValidateReceive checks the settings used by the receive command.
func (c *Config) ValidateReceive() error {
	var errs []error
	if c.From == "" {
		errs = append(errs, errors.New("from is required"))
	}
	if c.BufferSize <= 0 {
		errs = append(errs, errors.New("buffer size must be positive"))
	}
	if c.HandshakeTimeout < 0 {
		errs = append(errs, errors.New("handshake timeout must not be negative"))
	}
	return errors.Join(errs...)
}

// configSetter applies values only for flags that were not set explicitly.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

func (s *configSetter) setBoolFromString(flag, value string, dst *bool) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = b
	return nil
}
