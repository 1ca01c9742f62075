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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/phuonguno98/unoprobe/internal/collector"
)

// Config represents application configuration.
type Config struct {
	// Polling
	PollInterval time.Duration `mapstructure:"poll_interval"` // Delay between successful cycles
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"` // Per-request timeout
	RetryDelay   time.Duration `mapstructure:"retry_delay"`   // Delay before re-attempting a failed fetch
	MaxRetries   int           `mapstructure:"max_retries"`   // Retries before a cycle counts as failed

	// Derivation
	ThreadsPerProcessor int    `mapstructure:"threads_per_processor"` // Logical threads per processor in core labels
	SystemVolume        string `mapstructure:"system_volume"`         // Volume reported as disk usage

	// Filters
	IncludeNetworks []string `mapstructure:"include_networks"` // Network interfaces to monitor (empty = all)
	ExcludeNetworks []string `mapstructure:"exclude_networks"` // Network interfaces to exclude

	// Devices
	DevicesFile string `mapstructure:"devices_file"` // YAML device list

	// Logging
	LogLevel string `mapstructure:"log_level"` // Log level: debug, info, warn, error
	LogFile  string `mapstructure:"log_file"`  // Log file path (empty = stdout)

	// Timezone
	Timezone string `mapstructure:"timezone"` // Timezone location (e.g., "Asia/Ho_Chi_Minh", "Local")

	// API server
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Default configuration values.
const (
	DefaultPollInterval        = 2 * time.Second
	DefaultFetchTimeout        = 10 * time.Second
	DefaultRetryDelay          = 2 * time.Second
	DefaultMaxRetries          = 3
	DefaultThreadsPerProcessor = collector.DefaultThreadsPerProcessor
	DefaultSystemVolume        = collector.DefaultSystemVolume
	DefaultLogLevel            = "info"
	DefaultHost                = "127.0.0.1"
	DefaultPort                = 8080

	// EnvPrefix prefixes environment overrides, e.g. UNOPROBE_POLL_INTERVAL.
	EnvPrefix = "UNOPROBE"
)

// GetDefaultDevicesPath returns <user config dir>/unoprobe/devices.yaml.
func GetDefaultDevicesPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		// Fallback to current directory
		return "devices.yaml"
	}
	return filepath.Join(dir, "unoprobe", "devices.yaml")
}

// Default returns a configuration populated with default values.
func Default() *Config {
	return &Config{
		PollInterval:        DefaultPollInterval,
		FetchTimeout:        DefaultFetchTimeout,
		RetryDelay:          DefaultRetryDelay,
		MaxRetries:          DefaultMaxRetries,
		ThreadsPerProcessor: DefaultThreadsPerProcessor,
		SystemVolume:        DefaultSystemVolume,
		DevicesFile:         GetDefaultDevicesPath(),
		LogLevel:            DefaultLogLevel,
		Host:                DefaultHost,
		Port:                DefaultPort,
	}
}

// Load reads configuration from defaults, the optional file at path and
// UNOPROBE_* environment variables, in increasing order of precedence.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("invalid config format: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults registers every key so environment overrides are picked up by Unmarshal.
func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("poll_interval", d.PollInterval)
	v.SetDefault("fetch_timeout", d.FetchTimeout)
	v.SetDefault("retry_delay", d.RetryDelay)
	v.SetDefault("max_retries", d.MaxRetries)
	v.SetDefault("threads_per_processor", d.ThreadsPerProcessor)
	v.SetDefault("system_volume", d.SystemVolume)
	v.SetDefault("include_networks", []string{})
	v.SetDefault("exclude_networks", []string{})
	v.SetDefault("devices_file", d.DevicesFile)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_file", "")
	v.SetDefault("timezone", "")
	v.SetDefault("host", d.Host)
	v.SetDefault("port", d.Port)
}

// parseCommaSeparated parses a comma-separated string into a slice of trimmed strings.
func parseCommaSeparated(s string) []string {
	if s == "" {
		return nil
	}

	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))

	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// ParseCommaSeparated is the exported version of parseCommaSeparated.
func ParseCommaSeparated(s string) []string {
	return parseCommaSeparated(s)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.PollInterval < 500*time.Millisecond {
		return errors.New("poll interval must be at least 500ms")
	}

	if c.PollInterval > 1*time.Hour {
		return errors.New("poll interval must not exceed 1 hour")
	}

	if c.FetchTimeout <= 0 {
		return errors.New("fetch timeout must be positive")
	}

	if c.FetchTimeout > 5*time.Minute {
		return errors.New("fetch timeout must not exceed 5 minutes")
	}

	if c.RetryDelay < 0 {
		return errors.New("retry delay cannot be negative")
	}

	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return errors.New("max retries must be between 0 and 10")
	}

	if c.ThreadsPerProcessor < 1 {
		return errors.New("threads per processor must be at least 1")
	}

	if strings.TrimSpace(c.SystemVolume) == "" {
		return errors.New("system volume cannot be empty")
	}

	if c.DevicesFile == "" {
		return errors.New("devices file cannot be empty")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	// Validate Timezone
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("invalid timezone: %s (%w)", c.Timezone, err)
		}
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	return nil
}

// DeviceOptions returns the per-device derivation settings.
func (c *Config) DeviceOptions() collector.Options {
	return collector.Options{
		ThreadsPerProcessor: c.ThreadsPerProcessor,
		SystemVolume:        c.SystemVolume,
		IncludeNetworks:     c.IncludeNetworks,
		ExcludeNetworks:     c.ExcludeNetworks,
	}
}

// Location resolves Timezone, falling back to the local zone.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Address returns the host:port the API server listens on.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// String returns a human-readable representation of the configuration.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Poll=%v, FetchTimeout=%v, RetryDelay=%v, MaxRetries=%d, Threads=%d, SystemVolume=%s, Timezone=%s}",
		c.PollInterval, c.FetchTimeout, c.RetryDelay, c.MaxRetries, c.ThreadsPerProcessor, c.SystemVolume, c.Timezone)
}
