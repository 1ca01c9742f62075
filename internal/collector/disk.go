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
	"github.com/phuonguno98/unoprobe/internal/exposition"
)

// DefaultSystemVolume is the volume label of the Windows system drive.
const DefaultSystemVolume = "C:"

// DiskCollector reads size and free gauges of the system volume.
type DiskCollector struct {
	volume string
	total  float64
	free   float64
}

// NewDiskCollector creates a new disk collector instance for an exact volume label.
func NewDiskCollector(volume string) *DiskCollector {
	if volume == "" {
		volume = DefaultSystemVolume
	}
	return &DiskCollector{volume: volume}
}

// Observe feeds one logical disk gauge into the collector.
func (d *DiskCollector) Observe(s exposition.MetricSample) {
	if !d.shouldMonitor(s.Label(exposition.LabelVolume)) {
		return
	}

	switch s.Family {
	case exposition.FamilyDiskSize:
		d.total = s.Value
	case exposition.FamilyDiskFree:
		d.free = s.Value
	}
}

// Collect returns the disk usage of the current cycle and starts a new one.
func (d *DiskCollector) Collect() UsageStats {
	stats := newUsageStats(d.total, d.free)
	d.total, d.free = 0, 0
	return stats
}

// shouldMonitor reports whether the volume is the configured system volume.
func (d *DiskCollector) shouldMonitor(volume string) bool {
	return volume == d.volume
}

// Name returns the collector name for logging purposes.
func (d *DiskCollector) Name() string {
	return "Disk"
}
