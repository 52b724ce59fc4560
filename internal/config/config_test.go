package config

import (
	"testing"
	"time"

	heartbeat "github.com/pedramktb/go-heartbeat"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Prefix != heartbeat.DefaultPrefix {
		t.Errorf("Prefix = %q, want %q", cfg.Prefix, heartbeat.DefaultPrefix)
	}
	if cfg.Interval != 2*time.Second {
		t.Errorf("Interval = %v, want 2s", cfg.Interval)
	}
	if cfg.To != DefaultTo {
		t.Errorf("To = %v, want %v", cfg.To, DefaultTo)
	}
	if cfg.Count != 0 {
		t.Errorf("Count = %v, want 0", cfg.Count)
	}
	if !cfg.Echo {
		t.Error("Echo = false, want true")
	}
	if cfg.BufferSize != 128 {
		t.Errorf("BufferSize = %v, want 128", cfg.BufferSize)
	}
}

func TestConfig_ValidateEmit(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "missing endpoint",
			mutate:  func(c *Config) { c.To = "" },
			wantErr: true,
		},
		{
			name:    "zero interval",
			mutate:  func(c *Config) { c.Interval = 0 },
			wantErr: true,
		},
		{
			name:    "negative count",
			mutate:  func(c *Config) { c.Count = -1 },
			wantErr: true,
		},
		{
			name:    "negative write timeout",
			mutate:  func(c *Config) { c.WriteTimeout = -time.Second },
			wantErr: true,
		},
		{
			name: "reconnect max below base",
			mutate: func(c *Config) {
				c.Reconnect = true
				c.ReconnectBase = 5 * time.Second
				c.ReconnectMax = time.Second
			},
			wantErr: true,
		},
		{
			name: "reconnect bounds ignored when disabled",
			mutate: func(c *Config) {
				c.ReconnectBase = 0
				c.ReconnectMax = 0
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.ValidateEmit()
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEmit() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateReceive(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "missing listen address",
			mutate:  func(c *Config) { c.From = "" },
			wantErr: true,
		},
		{
			name:    "zero buffer",
			mutate:  func(c *Config) { c.BufferSize = 0 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.ValidateReceive()
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateReceive() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
