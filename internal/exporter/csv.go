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

package exporter

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/phuonguno98/unoprobe/internal/scheduler"
)

const naString = "N/A"

var header = []string{
	"Timestamp",
	"Device",
	"CPU Usage (%)",
	"CPU Frequency (GHz)",
	"CPU Cores",
	"Network Received (Mbps)",
	"Network Sent (Mbps)",
	"Memory Used (GB)",
	"Memory Total (GB)",
	"Disk Used (GB)",
	"Disk Total (GB)",
	"Error",
}

// CSVExporter streams published snapshots as CSV rows.
type CSVExporter struct {
	csvWriter     *csv.Writer
	bufWriter     *bufio.Writer
	updates       <-chan scheduler.Update
	logger        *slog.Logger
	location      *time.Location // Timezone location for timestamps
	headerWritten bool
	recordCount   int
}

// NewCSVExporter creates an exporter writing to w. A nil location means UTC.
func NewCSVExporter(w io.Writer, updates <-chan scheduler.Update, loc *time.Location, logger *slog.Logger) *CSVExporter {
	if loc == nil {
		loc = time.UTC
	}
	bufWriter := bufio.NewWriter(w)
	return &CSVExporter{
		csvWriter: csv.NewWriter(bufWriter),
		bufWriter: bufWriter,
		updates:   updates,
		logger:    logger,
		location:  loc,
	}
}

// Start writes one row per update until ctx is done or the channel closes.
func (e *CSVExporter) Start(ctx context.Context) error {
	e.logger.Info("Starting CSV exporter", "timezone", e.location.String())

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("CSV exporter stopping...")
			return e.flush()

		case u, ok := <-e.updates:
			if !ok {
				e.logger.Info("Updates channel closed, flushing remaining data...")
				return e.flush()
			}

			if err := e.WriteUpdate(u); err != nil {
				e.logger.Error("Failed to write snapshot", "error", err)
			}
		}
	}
}

// WriteUpdate writes a single row, preceded by the header on first use.
func (e *CSVExporter) WriteUpdate(u scheduler.Update) error {
	if !e.headerWritten {
		if err := e.csvWriter.Write(header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		e.headerWritten = true
	}

	if err := e.csvWriter.Write(e.buildRow(u)); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	e.recordCount++

	// Rows go to a console, so every row is flushed.
	return e.flush()
}

// buildRow builds a CSV row from an update. Fields zeroed by a failed cycle
// are written as N/A.
func (e *CSVExporter) buildRow(u scheduler.Update) []string {
	s := u.Snapshot
	ts := s.Timestamp.In(e.location)

	row := []string{
		ts.Format("2006-01-02 15:04:05"),
		u.DeviceID,
		fmt.Sprintf("%.2f", s.CPUUsagePercent),
		formatFrequency(s.CPUFrequencyGHz),
		fmt.Sprintf("%d", s.CPUCoreCount),
	}

	if u.Err != nil {
		row = append(row, naString, naString, naString, naString, naString, naString, u.Err.Error())
		return row
	}

	return append(row,
		fmt.Sprintf("%.2f", s.NetReceivedSpeedMbps),
		fmt.Sprintf("%.2f", s.NetSentSpeedMbps),
		fmt.Sprintf("%.2f", s.MemoryUsedGB),
		fmt.Sprintf("%.2f", s.MemoryTotalGB),
		fmt.Sprintf("%.2f", s.DiskUsedGB),
		fmt.Sprintf("%.2f", s.DiskTotalGB),
		"",
	)
}

// formatFrequency formats the frequency, handling the unreported case.
func formatFrequency(ghz float64) string {
	if ghz <= 0 {
		return naString
	}
	return fmt.Sprintf("%.2f", ghz)
}

// flush flushes buffered rows to the underlying writer.
func (e *CSVExporter) flush() error {
	e.csvWriter.Flush()
	if err := e.csvWriter.Error(); err != nil {
		return fmt.Errorf("CSV writer error: %w", err)
	}

	if err := e.bufWriter.Flush(); err != nil {
		return fmt.Errorf("buffer writer error: %w", err)
	}
	return nil
}

// Records returns the number of rows written.
func (e *CSVExporter) Records() int {
	return e.recordCount
}
