/*
 * MIT License
 *
 * Copyright (c) 2026 Nguyen Thanh Phuong
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseCommaSeparated(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "Empty string",
			input:    "",
			expected: nil,
		},
		{
			name:     "Single value",
			input:    "Ethernet",
			expected: []string{"Ethernet"},
		},
		{
			name:     "Multiple values",
			input:    "Ethernet,Wi-Fi",
			expected: []string{"Ethernet", "Wi-Fi"},
		},
		{
			name:     "Whitespace handling",
			input:    " Ethernet , Wi-Fi ",
			expected: []string{"Ethernet", "Wi-Fi"},
		},
		{
			name:     "Empty parts",
			input:    "Ethernet,,Wi-Fi",
			expected: []string{"Ethernet", "Wi-Fi"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseCommaSeparated(tt.input)
			if len(got) != len(tt.expected) {
				t.Errorf("ParseCommaSeparated() length = %v, want %v", len(got), len(tt.expected))
				return
			}
			for i, v := range got {
				if v != tt.expected[i] {
					t.Errorf("ParseCommaSeparated()[%d] = %v, want %v", i, v, tt.expected[i])
				}
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return *Default()
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "Valid Config", mutate: func(c *Config) {}, wantErr: false},
		{name: "Invalid Poll Interval (Too small)", mutate: func(c *Config) { c.PollInterval = 100 * time.Millisecond }, wantErr: true},
		{name: "Invalid Poll Interval (Too large)", mutate: func(c *Config) { c.PollInterval = 2 * time.Hour }, wantErr: true},
		{name: "Zero Fetch Timeout", mutate: func(c *Config) { c.FetchTimeout = 0 }, wantErr: true},
		{name: "Negative Retry Delay", mutate: func(c *Config) { c.RetryDelay = -time.Second }, wantErr: true},
		{name: "Zero Retries", mutate: func(c *Config) { c.MaxRetries = 0 }, wantErr: false},
		{name: "Too Many Retries", mutate: func(c *Config) { c.MaxRetries = 11 }, wantErr: true},
		{name: "Invalid Threads", mutate: func(c *Config) { c.ThreadsPerProcessor = 0 }, wantErr: true},
		{name: "Empty System Volume", mutate: func(c *Config) { c.SystemVolume = " " }, wantErr: true},
		{name: "Empty Devices File", mutate: func(c *Config) { c.DevicesFile = "" }, wantErr: true},
		{name: "Invalid Log Level", mutate: func(c *Config) { c.LogLevel = "invalid" }, wantErr: true},
		{name: "Valid Timezone", mutate: func(c *Config) { c.Timezone = "UTC" }, wantErr: false},
		{name: "Invalid Timezone", mutate: func(c *Config) { c.Timezone = "Invalid/Timezone" }, wantErr: true},
		{name: "Invalid Port", mutate: func(c *Config) { c.Port = 70000 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetDefaultDevicesPath(t *testing.T) {
	path := GetDefaultDevicesPath()
	if path == "" {
		t.Error("GetDefaultDevicesPath() returned empty string")
	}
	if !strings.HasSuffix(path, "devices.yaml") {
		t.Errorf("GetDefaultDevicesPath() = %v, expected devices.yaml suffix", path)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.PollInterval != DefaultPollInterval {
		t.Errorf("PollInterval = %v, want %v", cfg.PollInterval, DefaultPollInterval)
	}
	if cfg.FetchTimeout != DefaultFetchTimeout {
		t.Errorf("FetchTimeout = %v, want %v", cfg.FetchTimeout, DefaultFetchTimeout)
	}
	if cfg.RetryDelay != DefaultRetryDelay {
		t.Errorf("RetryDelay = %v, want %v", cfg.RetryDelay, DefaultRetryDelay)
	}
	if cfg.MaxRetries != DefaultMaxRetries {
		t.Errorf("MaxRetries = %v, want %v", cfg.MaxRetries, DefaultMaxRetries)
	}
	if cfg.SystemVolume != "C:" {
		t.Errorf("SystemVolume = %v, want C:", cfg.SystemVolume)
	}
}

func TestLoad_File(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "unoprobe.yaml")
	content := `poll_interval: 5s
fetch_timeout: 3s
max_retries: 1
threads_per_processor: 1
system_volume: "D:"
include_networks:
  - Ethernet
log_level: debug
port: 9090
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.PollInterval != 5*time.Second {
		t.Errorf("PollInterval = %v, want 5s", cfg.PollInterval)
	}
	if cfg.FetchTimeout != 3*time.Second {
		t.Errorf("FetchTimeout = %v, want 3s", cfg.FetchTimeout)
	}
	if cfg.MaxRetries != 1 {
		t.Errorf("MaxRetries = %v, want 1", cfg.MaxRetries)
	}
	if cfg.RetryDelay != DefaultRetryDelay {
		t.Errorf("RetryDelay = %v, want default %v", cfg.RetryDelay, DefaultRetryDelay)
	}
	if cfg.SystemVolume != "D:" {
		t.Errorf("SystemVolume = %v, want D:", cfg.SystemVolume)
	}
	if len(cfg.IncludeNetworks) != 1 || cfg.IncludeNetworks[0] != "Ethernet" {
		t.Errorf("IncludeNetworks = %v, want [Ethernet]", cfg.IncludeNetworks)
	}
	if cfg.Address() != "127.0.0.1:9090" {
		t.Errorf("Address() = %v, want 127.0.0.1:9090", cfg.Address())
	}

	opts := cfg.DeviceOptions()
	if opts.ThreadsPerProcessor != 1 || opts.SystemVolume != "D:" {
		t.Errorf("DeviceOptions() = %+v", opts)
	}
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("UNOPROBE_POLL_INTERVAL", "7s")
	t.Setenv("UNOPROBE_LOG_LEVEL", "warn")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.PollInterval != 7*time.Second {
		t.Errorf("PollInterval = %v, want 7s", cfg.PollInterval)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %v, want warn", cfg.LogLevel)
	}
}

func TestLoad_Errors(t *testing.T) {
	tempDir := t.TempDir()

	invalid := filepath.Join(tempDir, "invalid.yaml")
	if err := os.WriteFile(invalid, []byte("poll_interval: 10ms\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
	}{
		{name: "Missing file", path: filepath.Join(tempDir, "missing.yaml")},
		{name: "Validation failure", path: invalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(tt.path); err == nil {
				t.Error("Load() expected error, got nil")
			}
		})
	}
}

func TestConfig_Location(t *testing.T) {
	cfg := Default()
	if cfg.Location() != time.Local {
		t.Error("empty timezone should resolve to time.Local")
	}

	cfg.Timezone = "UTC"
	if cfg.Location().String() != "UTC" {
		t.Errorf("Location() = %v, want UTC", cfg.Location())
	}
}

func TestConfig_String(t *testing.T) {
	cfg := Default()
	cfg.Timezone = "UTC"
	s := cfg.String()

	if !strings.HasPrefix(s, "Config{") || !strings.HasSuffix(s, ", Timezone=UTC}") {
		t.Errorf("String() = %q, want all fields inside Config{...}", s)
	}
	if strings.Count(s, "{") != 1 || strings.Count(s, "}") != 1 {
		t.Errorf("String() = %q, want a single pair of braces", s)
	}
}
