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

package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/phuonguno98/unoprobe/internal/config"
	"github.com/phuonguno98/unoprobe/internal/fetch"
	"github.com/phuonguno98/unoprobe/pkg/version"
)

var (
	// Global persistent flags (shared by subcommands)
	configFile string
	logLevel   string
	logFile    string
	timezone   string
)

const osWindows = "windows"

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "unoprobe",
	Short: "UnoProbe - Live metrics for Windows hosts running windows_exporter",
	Long: `UnoProbe polls the Prometheus endpoint of windows_exporter on one or more
hosts and derives live CPU (per core and aggregate), frequency, network
throughput, memory and system disk usage from the raw counters.

Use 'unoprobe watch <url>' to stream a single host to the console, or
'unoprobe serve' to manage devices through the JSON API.`,
	SilenceUsage: true,
	// No RunE field, so it prints help by default
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"Config file (YAML); UNOPROBE_* environment variables override it")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel,
		"Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "",
		"Log file path (empty = console)")
	rootCmd.PersistentFlags().StringVar(&timezone, "timezone", "",
		"Timezone for timestamps (e.g., 'Asia/Ho_Chi_Minh', 'Local')")
}

// loadConfig reads the config file and environment, then applies the global
// flags the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("log-file") {
		cfg.LogFile = logFile
	}
	if flags.Changed("timezone") {
		cfg.Timezone = timezone
	}
	return cfg, nil
}

// InitLogger initializes and returns a slog.Logger based on the provided settings.
// It is shared by all commands to ensure consistent logging format.
func InitLogger(levelStr, fileStr string, console io.Writer) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if fileStr != "" {
		f, err := os.OpenFile(fileStr, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			os.Exit(1)
		}
		handler = slog.NewJSONHandler(f, opts)
	} else {
		handler = slog.NewTextHandler(console, opts)
	}

	return slog.New(handler)
}

// newFetcher builds the scheme router used by every polling command.
func newFetcher(cfg *config.Config) *fetch.Router {
	return &fetch.Router{
		HTTP:  fetch.NewHTTPFetcher(cfg.FetchTimeout, "unoprobe/"+version.Version),
		Local: fetch.NewLocalFetcher(cfg.ThreadsPerProcessor, cfg.SystemVolume),
	}
}

// checkPlatformCapabilities logs platform-specific capability notes.
func checkPlatformCapabilities(logger *slog.Logger) {
	if runtime.GOOS != osWindows {
		logger.Info("local:// devices on this platform report no frequency counters", "os", runtime.GOOS)
	}
}
