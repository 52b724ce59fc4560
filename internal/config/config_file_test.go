package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestApplyFileConfig(t *testing.T) {
	trueVal := true
	falseVal := false

	tests := []struct {
		name       string
		fileConfig FileConfig
		changed    map[string]bool
		initial    Config
		expected   Config
		wantErr    bool
	}{
		{
			name: "applies all valid config values",
			fileConfig: FileConfig{
				To:            "tcp+tls{ca=./ca.pem}://[2001:db8::2]:4242",
				Prefix:        "Hello ",
				Interval:      "500ms",
				Count:         3,
				WriteTimeout:  "1s",
				Echo:          &falseVal,
				Reconnect:     &trueVal,
				ReconnectBase: "2s",
				ReconnectMax:  "1m",
				BufferSize:    256,
			},
			changed: map[string]bool{},
			initial: Config{Echo: true},
			expected: Config{
				To:            "tcp+tls{ca=./ca.pem}://[2001:db8::2]:4242",
				Prefix:        "Hello ",
				Interval:      500 * time.Millisecond,
				Count:         3,
				WriteTimeout:  time.Second,
				Echo:          false,
				Reconnect:     true,
				ReconnectBase: 2 * time.Second,
				ReconnectMax:  time.Minute,
				BufferSize:    256,
			},
		},
		{
			name: "respects changed flags",
			fileConfig: FileConfig{
				To:       "tcp://[2001:db8::2]:4242",
				Interval: "5s",
			},
			changed: map[string]bool{"to": true},
			initial: Config{
				To:       "tcp://[::1]:4242",
				Interval: 2 * time.Second,
			},
			expected: Config{
				To:       "tcp://[::1]:4242", // unchanged because flag was set
				Interval: 5 * time.Second,
			},
		},
		{
			name:       "empty values keep initial",
			fileConfig: FileConfig{},
			changed:    map[string]bool{},
			initial: Config{
				From:       "tcp://[::]:4242",
				BufferSize: 128,
				Echo:       true,
			},
			expected: Config{
				From:       "tcp://[::]:4242",
				BufferSize: 128,
				Echo:       true,
			},
		},
		{
			name: "returns error for invalid duration",
			fileConfig: FileConfig{
				HandshakeTimeout: "soon",
			},
			changed: map[string]bool{},
			initial: Config{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.initial
			err := ApplyFileConfig(&cfg, tt.fileConfig, tt.changed)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ApplyFileConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if cfg != tt.expected {
				t.Errorf("ApplyFileConfig() = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

func TestLoadFileConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
to = "tcp+tls{ca=./echo-apps-cert.pem}://[2001:db8::1]:4242"
interval = "2s"
count = 10
print_cert = true
buffer_size = 64
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	fc, err := LoadFileConfig(path)
	if err != nil {
		t.Fatalf("LoadFileConfig() error = %v", err)
	}
	if fc.To != "tcp+tls{ca=./echo-apps-cert.pem}://[2001:db8::1]:4242" {
		t.Errorf("To = %q", fc.To)
	}
	if fc.Interval != "2s" {
		t.Errorf("Interval = %q, want 2s", fc.Interval)
	}
	if fc.Count != 10 {
		t.Errorf("Count = %d, want 10", fc.Count)
	}
	if fc.PrintCert == nil || !*fc.PrintCert {
		t.Errorf("PrintCert = %v, want true", fc.PrintCert)
	}
	if fc.Echo != nil {
		t.Errorf("Echo = %v, want unset", *fc.Echo)
	}
	if fc.BufferSize != 64 {
		t.Errorf("BufferSize = %d, want 64", fc.BufferSize)
	}
}

func TestLoadFileConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadFileConfig(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(bad, []byte("to = [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFileConfig(bad); err == nil {
		t.Error("expected error for invalid TOML")
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if FileExists(path) {
		t.Error("FileExists() = true before creation")
	}
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if !FileExists(path) {
		t.Error("FileExists() = false after creation")
	}
}
