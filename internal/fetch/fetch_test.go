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
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phuonguno98/unoprobe/internal/devices"
	"github.com/phuonguno98/unoprobe/internal/exposition"
	"github.com/phuonguno98/unoprobe/pkg/metrics"
)

const exporterBody = "windows_cs_logical_processors 8\n"

func TestHTTPFetcher_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Accept"), "text/plain")
		assert.Equal(t, "unoprobe-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		fmt.Fprint(w, exporterBody)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(time.Second, "unoprobe-test")
	body, err := f.Fetch(context.Background(), devices.Device{URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, exporterBody, body)
}

func TestHTTPFetcher_Failures(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantKind   metrics.ErrorKind
		wantStatus int
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "boom", http.StatusServiceUnavailable)
			},
			wantKind:   metrics.ErrorServer,
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			},
			wantKind:   metrics.ErrorServer,
			wantStatus: http.StatusNotFound,
		},
		{
			name: "json body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, `{"cpu": 1}`)
			},
			wantKind: metrics.ErrorUnexpectedFormat,
		},
		{
			name: "binary body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/plain")
				_, _ = w.Write([]byte{0xff, 0xfe, 0x00, 0x81})
			},
			wantKind: metrics.ErrorUnexpectedFormat,
		},
		{
			name: "slow server",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-time.After(2 * time.Second):
				case <-r.Context().Done():
				}
			},
			wantKind: metrics.ErrorTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			f := NewHTTPFetcher(100*time.Millisecond, "")
			_, err := f.Fetch(context.Background(), devices.Device{URL: srv.URL})
			require.Error(t, err)

			fe := Classify(err)
			assert.Equal(t, tt.wantKind, fe.Kind, "error: %v", err)
			if tt.wantStatus != 0 {
				assert.Equal(t, tt.wantStatus, fe.Status)
			}
		})
	}
}

func TestHTTPFetcher_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	f := NewHTTPFetcher(time.Second, "")
	_, err := f.Fetch(context.Background(), devices.Device{URL: url})
	require.Error(t, err)
	assert.Equal(t, metrics.ErrorNetworkUnreachable, Classify(err).Kind)
}

func TestHTTPFetcher_ContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	f := NewHTTPFetcher(10*time.Second, "")
	_, err := f.Fetch(ctx, devices.Device{URL: srv.URL})
	require.Error(t, err)
	assert.Equal(t, metrics.ErrorTimeout, Classify(err).Kind)
}

func TestClassify(t *testing.T) {
	assert.Nil(t, Classify(nil))

	fe := metrics.NewServerError(500)
	assert.Same(t, fe, Classify(fmt.Errorf("wrapped: %w", fe)))

	assert.Equal(t, metrics.ErrorTimeout, Classify(context.DeadlineExceeded).Kind)
	assert.Equal(t, metrics.ErrorUnknown, Classify(errors.New("weird")).Kind)
	assert.Equal(t, "weird", Classify(errors.New("weird")).Message)
}

type stubFetcher string

func (s stubFetcher) Fetch(context.Context, devices.Device) (string, error) {
	return string(s), nil
}

func TestRouter(t *testing.T) {
	r := &Router{HTTP: stubFetcher("http"), Local: stubFetcher("local")}

	body, err := r.Fetch(context.Background(), devices.Device{URL: "https://host/metrics"})
	require.NoError(t, err)
	assert.Equal(t, "http", body)

	body, err = r.Fetch(context.Background(), devices.Device{URL: "local://"})
	require.NoError(t, err)
	assert.Equal(t, "local", body)

	_, err = r.Fetch(context.Background(), devices.Device{URL: "ftp://host"})
	require.Error(t, err)
	assert.Equal(t, metrics.ErrorUnknown, Classify(err).Kind)
}

func TestLocalFetcher(t *testing.T) {
	origTimes, origInfo, origCounts := cpuTimes, cpuInfo, cpuCounts
	origNet, origMem, origDisk := netIOCounters, virtualMemory, diskUsage
	defer func() {
		cpuTimes, cpuInfo, cpuCounts = origTimes, origInfo, origCounts
		netIOCounters, virtualMemory, diskUsage = origNet, origMem, origDisk
	}()

	cpuTimes = func(bool) ([]cpu.TimesStat, error) {
		return []cpu.TimesStat{
			{CPU: "cpu0", User: 10, System: 5, Idle: 100},
			{CPU: "cpu1", User: 20, System: 5, Idle: 90},
			{CPU: "cpu2", User: 1, Idle: 1},
		}, nil
	}
	cpuInfo = func() ([]cpu.InfoStat, error) {
		return []cpu.InfoStat{{Mhz: 3400}}, nil
	}
	cpuCounts = func(bool) (int, error) { return 3, nil }
	netIOCounters = func(bool) ([]net.IOCountersStat, error) {
		return []net.IOCountersStat{{Name: `eth "0"`, BytesRecv: 1000, BytesSent: 500}}, nil
	}
	virtualMemory = func() (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{Total: 8 << 30, Available: 2 << 30}, nil
	}
	diskUsage = func(string) (*disk.UsageStat, error) {
		return &disk.UsageStat{Total: 100 << 30, Free: 40 << 30}, nil
	}

	f := NewLocalFetcher(2, "C:")
	body, err := f.Fetch(context.Background(), devices.Device{URL: "local://"})
	require.NoError(t, err)

	families := map[exposition.Family]int{}
	var cores []string
	for s := range exposition.Parse(body) {
		families[s.Family]++
		if s.Family == exposition.FamilyCPUTime && s.Label(exposition.LabelMode) == exposition.ModeIdle {
			cores = append(cores, s.Label(exposition.LabelCore))
		}
		if s.Family == exposition.FamilyNetReceived {
			assert.Equal(t, `eth "0"`, s.Label(exposition.LabelNIC))
		}
	}

	assert.Equal(t, 15, families[exposition.FamilyCPUTime])
	assert.Equal(t, 3, families[exposition.FamilyCPUFrequency])
	assert.Equal(t, 1, families[exposition.FamilyLogicalProcessors])
	assert.Equal(t, 1, families[exposition.FamilyNetReceived])
	assert.Equal(t, 1, families[exposition.FamilyNetSent])
	assert.Equal(t, 1, families[exposition.FamilyMemoryVisible])
	assert.Equal(t, 1, families[exposition.FamilyMemoryAvailable])
	assert.Equal(t, 1, families[exposition.FamilyDiskSize])
	assert.Equal(t, 1, families[exposition.FamilyDiskFree])
	assert.Equal(t, []string{"0,0", "0,1", "1,0"}, cores)
}

func TestLocalFetcher_EncodesTextFormat(t *testing.T) {
	origTimes, origInfo, origCounts := cpuTimes, cpuInfo, cpuCounts
	origNet, origMem, origDisk := netIOCounters, virtualMemory, diskUsage
	defer func() {
		cpuTimes, cpuInfo, cpuCounts = origTimes, origInfo, origCounts
		netIOCounters, virtualMemory, diskUsage = origNet, origMem, origDisk
	}()

	cpuTimes = func(bool) ([]cpu.TimesStat, error) {
		return []cpu.TimesStat{{CPU: "cpu0", User: 1, Idle: 1}}, nil
	}
	cpuInfo = func() ([]cpu.InfoStat, error) { return nil, errors.New("no cpuinfo") }
	cpuCounts = func(bool) (int, error) { return 0, errors.New("no count") }
	nic := "Intel(R) \\Net\\ \"Wi-Fi\"\nAdapter"
	netIOCounters = func(bool) ([]net.IOCountersStat, error) {
		return []net.IOCountersStat{{Name: nic, BytesRecv: 7, BytesSent: 3}}, nil
	}
	virtualMemory = func() (*mem.VirtualMemoryStat, error) { return nil, errors.New("no meminfo") }
	diskUsage = func(string) (*disk.UsageStat, error) { return nil, errors.New("no disk") }

	body, err := NewLocalFetcher(2, `C:\`).Fetch(context.Background(), devices.Device{URL: "local://"})
	require.NoError(t, err)

	assert.Contains(t, body, "# TYPE windows_cpu_time_total counter")
	assert.Contains(t, body, "# TYPE windows_net_bytes_received_total counter")
	assert.NotContains(t, body, "windows_cpu_core_frequency_mhz")
	assert.NotContains(t, body, "windows_os_visible_memory_bytes")

	var rx, tx int
	for s := range exposition.Parse(body) {
		switch s.Family {
		case exposition.FamilyNetReceived:
			rx++
			assert.Equal(t, nic, s.Label(exposition.LabelNIC))
			assert.InDelta(t, 7.0, s.Value, 1e-9)
		case exposition.FamilyNetSent:
			tx++
			assert.Equal(t, nic, s.Label(exposition.LabelNIC))
		}
	}
	assert.Equal(t, 1, rx)
	assert.Equal(t, 1, tx)
}

func TestLocalFetcher_CPUError(t *testing.T) {
	origTimes := cpuTimes
	defer func() { cpuTimes = origTimes }()

	cpuTimes = func(bool) ([]cpu.TimesStat, error) {
		return nil, errors.New("no procfs")
	}

	_, err := NewLocalFetcher(2, "C:").Fetch(context.Background(), devices.Device{})
	require.Error(t, err)
	assert.Equal(t, metrics.ErrorUnknown, Classify(err).Kind)
}

func TestLocalFetcher_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLocalFetcher(2, "C:").Fetch(ctx, devices.Device{})
	require.Error(t, err)
}
