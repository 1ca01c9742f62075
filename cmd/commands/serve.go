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
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/phuonguno98/unoprobe/internal/config"
	"github.com/phuonguno98/unoprobe/internal/devices"
	"github.com/phuonguno98/unoprobe/internal/scheduler"
	"github.com/phuonguno98/unoprobe/internal/server"
	"github.com/phuonguno98/unoprobe/pkg/version"
)

var (
	// Serve command specific flags
	serveHost   string
	servePort   int
	devicesFile string
	selectID    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the JSON API for devices and live snapshots",
	Long: `Start the HTTP API that manages the device list and serves live snapshots
of the selected device.

Endpoints:
  GET    /api/version
  GET    /api/devices
  POST   /api/devices
  PUT    /api/devices/{id}
  DELETE /api/devices/{id}
  POST   /api/devices/{id}/select
  GET    /api/devices/{id}/snapshot
  GET    /api/selected

Examples:
  # Start on the default address
  unoprobe serve

  # Listen on all interfaces and poll a device right away
  unoprobe serve --host 0.0.0.0 --port 3000 --select 5f1c...`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveHost, "host", config.DefaultHost, "HTTP server listen address")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", config.DefaultPort, "HTTP server port")
	serveCmd.Flags().StringVarP(&devicesFile, "devices-file", "d", "", "Device list file (default: <user config dir>/unoprobe/devices.yaml)")
	serveCmd.Flags().StringVar(&selectID, "select", "", "ID of a device to poll on startup")
}

// createServerInstance encapsulates server creation logic for testing.
func createServerInstance(cfg *config.Config, logger *slog.Logger) (*server.Server, *scheduler.Scheduler, error) {
	registry, err := devices.Load(cfg.DevicesFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load devices: %w", err)
	}

	sched := scheduler.New(cfg, newFetcher(cfg), logger,
		scheduler.WithStateObserver(func(id string, st scheduler.Status) {
			logger.Debug("Poll state changed", "device", id, "status", st.String())
		}),
	)

	if selectID != "" {
		dev, err := registry.Get(selectID)
		if err != nil {
			return nil, nil, err
		}
		if err := sched.Select(dev); err != nil {
			return nil, nil, err
		}
	}

	return server.NewServer(registry, sched, logger), sched, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host = serveHost
	}
	if flags.Changed("port") {
		cfg.Port = servePort
	}
	if flags.Changed("devices-file") {
		cfg.DevicesFile = devicesFile
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := InitLogger(cfg.LogLevel, cfg.LogFile, os.Stdout)
	logger.Info("Starting UnoProbe API",
		"version", version.Info(),
		"os", runtime.GOOS,
		"address", cfg.Address(),
		"devices", cfg.DevicesFile,
	)
	checkPlatformCapabilities(logger)

	srv, sched, err := createServerInstance(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		logger.Info("Received signal, initiating shutdown")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	}()

	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		if err := sched.Run(ctx); err != nil {
			logger.Error("Scheduler stopped with error", "error", err)
		}
	}()

	fmt.Printf("\nUnoProbe API is running!\n")
	fmt.Printf("URL: http://%s\n", cfg.Address())
	fmt.Printf("Devices: %s\n\n", cfg.DevicesFile)

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		stop()
		<-schedDone
		return fmt.Errorf("server error: %w", err)
	}

	<-schedDone
	logger.Info("Server stopped")
	return nil
}
