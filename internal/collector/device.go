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

package collector

import (
	"errors"
	"log/slog"
	"time"

	"github.com/phuonguno98/unoprobe/internal/exposition"
	"github.com/phuonguno98/unoprobe/pkg/metrics"
)

// ErrNoSamples is returned when a response body contains no recognized metric.
var ErrNoSamples = errors.New("no recognized metrics in response")

// Options configures the derived statistics of a device.
type Options struct {
	ThreadsPerProcessor int
	SystemVolume        string
	IncludeNetworks     []string
	ExcludeNetworks     []string
}

// Device owns the counter state and collectors of one monitored device and
// turns exposition bodies into snapshots. It is not safe for concurrent use;
// the scheduler serializes access per device.
type Device struct {
	id       string
	counters *CounterTracker
	cpu      *CPUCollector
	network  *NetworkCollector
	memory   *MemoryCollector
	disk     *DiskCollector
	snapshot metrics.DeviceSnapshot
	logger   *slog.Logger
}

// NewDevice creates the engine state for one device.
func NewDevice(id string, opts Options, logger *slog.Logger) *Device {
	counters := NewCounterTracker()
	return &Device{
		id:       id,
		counters: counters,
		cpu:      NewCPUCollector(counters, NewCoreIndexer(opts.ThreadsPerProcessor)),
		network:  NewNetworkCollector(counters, opts.IncludeNetworks, opts.ExcludeNetworks),
		memory:   NewMemoryCollector(),
		disk:     NewDiskCollector(opts.SystemVolume),
		snapshot: metrics.DeviceSnapshot{DeviceID: id},
		logger:   logger.With("device", id),
	}
}

// Ingest parses body, updates counter state and replaces the snapshot.
// If body holds no recognized sample the snapshot is left untouched and
// ErrNoSamples is returned.
func (d *Device) Ingest(body string, now time.Time) (metrics.DeviceSnapshot, error) {
	recognized := 0
	for s := range exposition.Parse(body) {
		recognized++
		switch s.Family {
		case exposition.FamilyCPUTime, exposition.FamilyCPUPerformance, exposition.FamilyCPUMPerf,
			exposition.FamilyCPUFrequency, exposition.FamilyLogicalProcessors:
			d.cpu.Observe(s, now)
		case exposition.FamilyNetReceived, exposition.FamilyNetSent:
			d.network.Observe(s, now)
		case exposition.FamilyMemoryVisible, exposition.FamilyMemoryAvailable:
			d.memory.Observe(s)
		case exposition.FamilyDiskSize, exposition.FamilyDiskFree:
			d.disk.Observe(s)
		}
	}

	if recognized == 0 {
		return d.snapshot.Clone(), ErrNoSamples
	}

	prev := d.snapshot
	cpu := d.cpu.Collect()
	network := d.network.Collect()
	memory := d.memory.Collect()
	disk := d.disk.Collect()

	next := metrics.DeviceSnapshot{
		DeviceID:        d.id,
		Timestamp:       now,
		CPUUsagePercent: cpu.UsagePercent,
		CPUCoreCount:    cpu.CoreCount,
		CPUFrequencyGHz: cpu.FrequencyGHz,
		CPUCores:        cpu.Cores,
		MemoryTotalGB:   memory.TotalGB,
		MemoryUsedGB:    memory.UsedGB,
		MemoryFreeGB:    memory.FreeGB,
		DiskTotalGB:     disk.TotalGB,
		DiskUsedGB:      disk.UsedGB,
		DiskFreeGB:      disk.FreeGB,
	}

	// A direction without a usable delta keeps its last value.
	next.NetReceivedSpeedMbps = prev.NetReceivedSpeedMbps
	if network.ReceivedOK {
		next.NetReceivedSpeedMbps = network.ReceivedMbps
	}
	next.NetSentSpeedMbps = prev.NetSentSpeedMbps
	if network.SentOK {
		next.NetSentSpeedMbps = network.SentMbps
	}

	d.snapshot = next
	d.logger.Debug("Snapshot updated",
		"samples", recognized,
		"cpu", next.CPUUsagePercent,
		"cores", len(next.CPUCores),
		"rx_mbps", next.NetReceivedSpeedMbps,
		"tx_mbps", next.NetSentSpeedMbps,
	)

	return d.snapshot.Clone(), nil
}

// Fail applies the failure policy to the snapshot.
func (d *Device) Fail(err *metrics.FetchError, now time.Time) metrics.DeviceSnapshot {
	d.snapshot = metrics.ApplyFailure(d.snapshot, err)
	d.snapshot.Timestamp = now
	d.logger.Warn("Snapshot marked failed", "error", err)
	return d.snapshot.Clone()
}

// Snapshot returns a copy of the latest snapshot.
func (d *Device) Snapshot() metrics.DeviceSnapshot {
	return d.snapshot.Clone()
}

// ID returns the device identifier.
func (d *Device) ID() string {
	return d.id
}

// Reset discards all counter state and the snapshot.
func (d *Device) Reset() {
	d.counters.Reset()
	d.snapshot = metrics.DeviceSnapshot{DeviceID: d.id}
}
