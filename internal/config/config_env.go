package config

import "os"

// EnvPrefix prefixes every environment variable read by ApplyEnvConfig.
const EnvPrefix = "HEARTBEAT_"

// ApplyEnvConfig applies HEARTBEAT_* environment variables to cfg, skipping explicitly set flags.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)
	env := func(name string) string { return os.Getenv(EnvPrefix + name) }

	s.setString("to", env("TO"), &cfg.To)
	s.setString("from", env("FROM"), &cfg.From)
	s.setString("prefix", env("PREFIX"), &cfg.Prefix)

	if err := s.setDuration("interval", env("INTERVAL"), &cfg.Interval); err != nil {
		return err
	}
	if err := s.setDuration("dial-timeout", env("DIAL_TIMEOUT"), &cfg.DialTimeout); err != nil {
		return err
	}
	if err := s.setDuration("handshake-timeout", env("HANDSHAKE_TIMEOUT"), &cfg.HandshakeTimeout); err != nil {
		return err
	}
	if err := s.setDuration("write-timeout", env("WRITE_TIMEOUT"), &cfg.WriteTimeout); err != nil {
		return err
	}
	if err := s.setDuration("reconnect-base", env("RECONNECT_BASE"), &cfg.ReconnectBase); err != nil {
		return err
	}
	if err := s.setDuration("reconnect-max", env("RECONNECT_MAX"), &cfg.ReconnectMax); err != nil {
		return err
	}

	if err := s.setIntFromString("count", env("COUNT"), &cfg.Count); err != nil {
		return err
	}
	if err := s.setIntFromString("buffer-size", env("BUFFER_SIZE"), &cfg.BufferSize); err != nil {
		return err
	}

	if err := s.setBoolFromString("echo", env("ECHO"), &cfg.Echo); err != nil {
		return err
	}
	if err := s.setBoolFromString("print-cert", env("PRINT_CERT"), &cfg.PrintCert); err != nil {
		return err
	}
	if err := s.setBoolFromString("reconnect", env("RECONNECT"), &cfg.Reconnect); err != nil {
		return err
	}

	return nil
}
