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
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/phuonguno98/unoprobe/internal/config"
	"github.com/phuonguno98/unoprobe/internal/devices"
	"github.com/phuonguno98/unoprobe/internal/exporter"
	"github.com/phuonguno98/unoprobe/internal/scheduler"
	"github.com/phuonguno98/unoprobe/pkg/version"
)

var (
	// Watch command specific flags
	pollInterval    time.Duration
	maxRetries      int
	systemVolume    string
	includeNetworks string
	excludeNetworks string
)

var watchCmd = &cobra.Command{
	Use:   "watch <url>",
	Short: "Poll one endpoint and stream snapshots as CSV",
	Long: `Poll a single windows_exporter endpoint and write one CSV row per cycle
to standard output. Logs go to standard error.

Examples:
  # Watch a remote host
  unoprobe watch http://10.0.0.5:9182/metrics

  # Watch the local host with a faster interval
  unoprobe watch local:// --interval 1s --exclude-networks "isatap"`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().DurationVar(&pollInterval, "interval", config.DefaultPollInterval,
		"Delay between successful polls (e.g., 1s, 2s)")
	watchCmd.Flags().IntVar(&maxRetries, "retries", config.DefaultMaxRetries,
		"Retries before a cycle is reported as failed")
	watchCmd.Flags().StringVar(&systemVolume, "system-volume", config.DefaultSystemVolume,
		"Volume reported as disk usage")

	// Filter flags
	watchCmd.Flags().StringVar(&includeNetworks, "include-networks", "",
		"Comma-separated list of network interfaces to monitor (empty = all)")
	watchCmd.Flags().StringVar(&excludeNetworks, "exclude-networks", "",
		"Comma-separated list of network interfaces to exclude")
}

// buildWatchConfig applies the watch flags the user set on top of the loaded config.
func buildWatchConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("interval") {
		cfg.PollInterval = pollInterval
	}
	if flags.Changed("retries") {
		cfg.MaxRetries = maxRetries
	}
	if flags.Changed("system-volume") {
		cfg.SystemVolume = systemVolume
	}
	if flags.Changed("include-networks") {
		cfg.IncludeNetworks = config.ParseCommaSeparated(includeNetworks)
	}
	if flags.Changed("exclude-networks") {
		cfg.ExcludeNetworks = config.ParseCommaSeparated(excludeNetworks)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// runWatch is the console streaming entry point.
func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := buildWatchConfig(cmd)
	if err != nil {
		return err
	}

	dev := devices.Device{ID: "watch", Name: args[0], URL: args[0]}
	if err := dev.Validate(); err != nil {
		return err
	}

	logger := InitLogger(cfg.LogLevel, cfg.LogFile, os.Stderr)
	logger.Info("Starting UnoProbe",
		"version", version.Info(),
		"os", runtime.GOOS,
		"arch", runtime.GOARCH,
	)
	logger.Info("Configuration loaded", "config", cfg.String())
	if strings.HasPrefix(dev.URL, devices.SchemeLocal+":") {
		checkPlatformCapabilities(logger)
	}

	// Buffered so a slow console does not drop snapshots
	updates := make(chan scheduler.Update, 10)

	sched := scheduler.New(cfg, newFetcher(cfg), logger, scheduler.WithUpdates(updates))
	csvExporter := exporter.NewCSVExporter(os.Stdout, updates, cfg.Location(), logger)

	// Setup context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := csvExporter.Start(ctx); err != nil {
			logger.Error("Exporter stopped with error", "error", err)
		}
	}()

	if err := sched.Start(dev); err != nil {
		return fmt.Errorf("failed to start polling: %w", err)
	}
	logger.Info("UnoProbe is watching", "url", dev.URL, "interval", cfg.PollInterval)

	// Blocks until a signal arrives
	if err := sched.Run(ctx); err != nil {
		logger.Error("Scheduler stopped with error", "error", err)
	}

	logger.Info("Shutting down...")
	wg.Wait()
	logger.Info("Shutdown complete", "rows", csvExporter.Records())

	return nil
}
