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

package fetch

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
	"google.golang.org/protobuf/proto"

	"github.com/phuonguno98/unoprobe/internal/devices"
	"github.com/phuonguno98/unoprobe/pkg/metrics"
)

// Dependency injection points for testing
var (
	cpuTimes      = cpu.Times
	cpuInfo       = cpu.Info
	cpuCounts     = cpu.Counts
	netIOCounters = net.IOCounters
	virtualMemory = mem.VirtualMemory
	diskUsage     = disk.Usage
)

// LocalFetcher renders the host it runs on in the exporter's text format, so
// that "local://" devices go through the same parsing and rate pipeline as
// remote ones.
type LocalFetcher struct {
	threadsPerProcessor int
	volume              string
	diskPath            string
}

// NewLocalFetcher creates a local fetcher. volume is the label reported for the
// system disk.
func NewLocalFetcher(threadsPerProcessor int, volume string) *LocalFetcher {
	if threadsPerProcessor <= 0 {
		threadsPerProcessor = 2
	}
	diskPath := "/"
	if runtime.GOOS == "windows" {
		diskPath = volume + `\`
	}
	return &LocalFetcher{
		threadsPerProcessor: threadsPerProcessor,
		volume:              volume,
		diskPath:            diskPath,
	}
}

// Fetch implements Fetcher.
func (f *LocalFetcher) Fetch(ctx context.Context, _ devices.Device) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", Classify(err)
	}

	times, err := cpuTimes(true)
	if err != nil {
		return "", metrics.NewFetchError(metrics.ErrorUnknown, fmt.Errorf("failed to get CPU times: %w", err))
	}

	var baseMHz float64
	if info, err := cpuInfo(); err == nil && len(info) > 0 {
		baseMHz = info[0].Mhz
	}

	cpuTime := newFamily("windows_cpu_time_total", "Time that processor spent in different modes", dto.MetricType_COUNTER)
	freq := newFamily("windows_cpu_core_frequency_mhz", "Core frequency in megahertz", dto.MetricType_GAUGE)
	for i := range times {
		t := &times[i]
		core := fmt.Sprintf("%d,%d", i/f.threadsPerProcessor, i%f.threadsPerProcessor)
		cpuTime.add(t.Idle, "core", core, "mode", "idle")
		cpuTime.add(t.User+t.Nice, "core", core, "mode", "user")
		cpuTime.add(t.System, "core", core, "mode", "privileged")
		cpuTime.add(t.Irq, "core", core, "mode", "interrupt")
		cpuTime.add(t.Softirq, "core", core, "mode", "dpc")
		if baseMHz > 0 {
			freq.add(baseMHz, "core", core)
		}
	}
	families := []*family{cpuTime, freq}

	if n, err := cpuCounts(true); err == nil && n > 0 {
		lp := newFamily("windows_cs_logical_processors", "Number of logical processors", dto.MetricType_GAUGE)
		lp.add(float64(n))
		families = append(families, lp)
	}

	if counters, err := netIOCounters(true); err == nil {
		rx := newFamily("windows_net_bytes_received_total", "Bytes received by interface", dto.MetricType_COUNTER)
		tx := newFamily("windows_net_bytes_sent_total", "Bytes sent by interface", dto.MetricType_COUNTER)
		for _, c := range counters {
			rx.add(float64(c.BytesRecv), "nic", c.Name)
			tx.add(float64(c.BytesSent), "nic", c.Name)
		}
		families = append(families, rx, tx)
	}

	if vm, err := virtualMemory(); err == nil {
		visible := newFamily("windows_os_visible_memory_bytes", "Visible physical memory", dto.MetricType_GAUGE)
		visible.add(float64(vm.Total))
		available := newFamily("windows_memory_available_bytes", "Available physical memory", dto.MetricType_GAUGE)
		available.add(float64(vm.Available))
		families = append(families, visible, available)
	}

	if usage, err := diskUsage(f.diskPath); err == nil {
		size := newFamily("windows_logical_disk_size_bytes", "Total volume size", dto.MetricType_GAUGE)
		size.add(float64(usage.Total), "volume", f.volume)
		free := newFamily("windows_logical_disk_free_bytes", "Free volume space", dto.MetricType_GAUGE)
		free.add(float64(usage.Free), "volume", f.volume)
		families = append(families, size, free)
	}

	var sb strings.Builder
	for _, fam := range families {
		if len(fam.Metric) == 0 {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(&sb, fam.MetricFamily); err != nil {
			return "", metrics.NewFetchError(metrics.ErrorUnknown, fmt.Errorf("failed to encode %s: %w", fam.GetName(), err))
		}
	}
	return sb.String(), nil
}

// family wraps a MetricFamily being assembled for one fetch.
type family struct {
	*dto.MetricFamily
}

func newFamily(name, help string, typ dto.MetricType) *family {
	return &family{&dto.MetricFamily{
		Name: proto.String(name),
		Help: proto.String(help),
		Type: typ.Enum(),
	}}
}

// add appends one sample. labels are key/value pairs.
func (f *family) add(value float64, labels ...string) {
	m := &dto.Metric{}
	for i := 0; i+1 < len(labels); i += 2 {
		m.Label = append(m.Label, &dto.LabelPair{
			Name:  proto.String(labels[i]),
			Value: proto.String(labels[i+1]),
		})
	}
	if f.GetType() == dto.MetricType_COUNTER {
		m.Counter = &dto.Counter{Value: proto.Float64(value)}
	} else {
		m.Gauge = &dto.Gauge{Value: proto.Float64(value)}
	}
	f.Metric = append(f.Metric, m)
}
