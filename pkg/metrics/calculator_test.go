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

package metrics

import (
	"errors"
	"math"
	"testing"
)

func TestCalculateCoreUsage(t *testing.T) {
	tests := []struct {
		name     string
		acc      CoreTimeAccumulator
		expected float64
	}{
		{
			name: "Normal usage",
			// NonIdle = 1 + 0.5 + 0.25 + 0.25 = 2, Idle = 2 -> 50%
			acc:      CoreTimeAccumulator{Idle: 2, User: 1, Privileged: 0.5, Interrupt: 0.25, DPC: 0.25},
			expected: 50.0,
		},
		{
			name:     "Fully idle",
			acc:      CoreTimeAccumulator{Idle: 2},
			expected: 0.0,
		},
		{
			name:     "Fully busy",
			acc:      CoreTimeAccumulator{User: 1.5, Privileged: 0.5},
			expected: 100.0,
		},
		{
			name:     "Zero denominator (first sample)",
			acc:      CoreTimeAccumulator{},
			expected: 0.0,
		},
		{
			name:     "Negative input clamped",
			acc:      CoreTimeAccumulator{Idle: -5, User: 1},
			expected: 100.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateCoreUsage(tt.acc)
			if math.Abs(got-tt.expected) > 0.00001 {
				t.Errorf("CalculateCoreUsage() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCalculateCoreUsage_Bound(t *testing.T) {
	values := []float64{0, 0.001, 0.5, 1, 3, 17, 1e6}
	for _, idle := range values {
		for _, user := range values {
			for _, priv := range values {
				acc := CoreTimeAccumulator{Idle: idle, User: user, Privileged: priv, Interrupt: user / 3, DPC: priv / 7}
				got := CalculateCoreUsage(acc)
				if got < 0 || got > 100 || math.IsNaN(got) {
					t.Fatalf("CalculateCoreUsage(%+v) = %v, want [0, 100]", acc, got)
				}
			}
		}
	}
}

func TestCalculateCoreUsage_RoundingStaysWithinBound(t *testing.T) {
	acc := CoreTimeAccumulator{Idle: 0, User: 1, Privileged: 17, Interrupt: 1.0 / 3, DPC: 17.0 / 7}
	if got := CalculateCoreUsage(acc); got > 100 || math.Abs(got-100) > 1e-9 {
		t.Errorf("CalculateCoreUsage(%+v) = %v, want 100 without overshoot", acc, got)
	}

	cores := []CoreUsage{{UsagePercent: 100}, {UsagePercent: 100}, {UsagePercent: 100}}
	if got := CalculateAggregateCPUUsage(cores); got > 100 {
		t.Errorf("CalculateAggregateCPUUsage() = %v, want <= 100", got)
	}
}

func TestCalculators_NonFiniteInputs(t *testing.T) {
	nan, inf := math.NaN(), math.Inf(1)
	checks := []struct {
		name string
		got  float64
	}{
		{"core usage NaN idle", CalculateCoreUsage(CoreTimeAccumulator{Idle: nan, User: 1})},
		{"core usage Inf user", CalculateCoreUsage(CoreTimeAccumulator{Idle: 1, User: inf})},
		{"aggregate NaN core", CalculateAggregateCPUUsage([]CoreUsage{{UsagePercent: nan}})},
		{"throughput Inf delta", CalculateThroughputMbps(inf, 1)},
		{"used NaN free", CalculateUsed(16, nan)},
		{"used Inf total", CalculateUsed(inf, 4)},
		{"frequency NaN base", CalculateFrequencyGHz(nan, 1, 1)},
		{"bytes NaN", BytesToGB(nan)},
	}
	for _, c := range checks {
		if math.IsNaN(c.got) || math.IsInf(c.got, 0) {
			t.Errorf("%s: got %v, want a finite value", c.name, c.got)
		}
	}
}

func TestCalculateAggregateCPUUsage(t *testing.T) {
	cores := []CoreUsage{{UsagePercent: 10}, {UsagePercent: 20}, {UsagePercent: 60}}
	if got := CalculateAggregateCPUUsage(cores); math.Abs(got-30.0) > 0.00001 {
		t.Errorf("CalculateAggregateCPUUsage() = %v, want 30", got)
	}

	if got := CalculateAggregateCPUUsage(nil); got != 0.0 {
		t.Errorf("CalculateAggregateCPUUsage(nil) = %v, want 0", got)
	}
}

func TestCalculateThroughputMbps(t *testing.T) {
	tests := []struct {
		name     string
		delta    float64
		elapsed  float64
		expected float64
	}{
		{
			name: "Received 31.25 MB over 2.5s",
			// 31,250,000 / 2.5 = 12,500,000 B/s -> / 1048576 * 8
			delta:    1_031_250_000 - 1_000_000_000,
			elapsed:  2.5,
			expected: 95.367431640625,
		},
		{
			name:     "1 MiB per second",
			delta:    1024 * 1024,
			elapsed:  1,
			expected: 8.0,
		},
		{
			name:     "Zero elapsed",
			delta:    1000,
			elapsed:  0,
			expected: 0.0,
		},
		{
			name:     "Negative delta",
			delta:    -1000,
			elapsed:  1,
			expected: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateThroughputMbps(tt.delta, tt.elapsed)
			if math.Abs(got-tt.expected) > 0.01 {
				t.Errorf("CalculateThroughputMbps() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCalculateUsed(t *testing.T) {
	if got := CalculateUsed(16, 4); got != 12 {
		t.Errorf("CalculateUsed(16, 4) = %v, want 12", got)
	}
	// Free larger than total on a transient inconsistent export
	if got := CalculateUsed(16, 20); got != 0 {
		t.Errorf("CalculateUsed(16, 20) = %v, want 0", got)
	}
}

func TestCalculateFrequencyGHz(t *testing.T) {
	tests := []struct {
		name     string
		base     float64
		perf     float64
		mperf    float64
		expected float64
	}{
		{"Nominal only", 3000, 0, 0, 3.0},
		{"MHz exporter value", 3401, 0, 0, 3.401},
		{"Boosted 120%", 3000, 120_000, 1000, 3.6},
		{"Throttled 50%", 2000, 50_000, 1000, 1.0},
		{"Missing base", 0, 100, 100, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateFrequencyGHz(tt.base, tt.perf, tt.mperf)
			if math.Abs(got-tt.expected) > 0.00001 {
				t.Errorf("CalculateFrequencyGHz() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCalculateAverageFrequency(t *testing.T) {
	cores := []CoreUsage{{FrequencyGHz: 3}, {FrequencyGHz: 0}, {FrequencyGHz: 4}}
	if got := CalculateAverageFrequency(cores); got != 3.5 {
		t.Errorf("CalculateAverageFrequency() = %v, want 3.5", got)
	}
	if got := CalculateAverageFrequency(nil); got != 0 {
		t.Errorf("CalculateAverageFrequency(nil) = %v, want 0", got)
	}
}

func TestBytesToGB(t *testing.T) {
	if got := BytesToGB(16 * 1024 * 1024 * 1024); got != 16 {
		t.Errorf("BytesToGB() = %v, want 16", got)
	}
}

func TestSortCores(t *testing.T) {
	cores := []CoreUsage{
		{CoreID: "bogus", LinearIndex: -1},
		{CoreID: "1,0", LinearIndex: 2},
		{CoreID: "0,1", LinearIndex: 1},
		{CoreID: "0,0", LinearIndex: 0},
	}
	SortCores(cores)

	want := []string{"0,0", "0,1", "1,0", "bogus"}
	for i, id := range want {
		if cores[i].CoreID != id {
			t.Errorf("cores[%d] = %q, want %q", i, cores[i].CoreID, id)
		}
	}
}

func TestApplyFailure(t *testing.T) {
	prev := DeviceSnapshot{
		DeviceID:             "dev",
		CPUUsagePercent:      42,
		CPUCoreCount:         4,
		CPUFrequencyGHz:      3.2,
		CPUCores:             []CoreUsage{{CoreID: "0,0", UsagePercent: 42}},
		NetReceivedSpeedMbps: 10,
		NetSentSpeedMbps:     5,
		MemoryTotalGB:        16,
		MemoryUsedGB:         8,
		MemoryFreeGB:         8,
		DiskTotalGB:          500,
		DiskUsedGB:           100,
		DiskFreeGB:           400,
	}
	fetchErr := NewFetchError(ErrorNetworkUnreachable, errors.New("connection refused"))

	got := ApplyFailure(prev, fetchErr)

	if got.CPUUsagePercent != 42 || got.CPUCoreCount != 4 || got.CPUFrequencyGHz != 3.2 || len(got.CPUCores) != 1 {
		t.Errorf("CPU fields changed on failure: %+v", got)
	}
	if got.NetReceivedSpeedMbps != 0 || got.NetSentSpeedMbps != 0 {
		t.Errorf("network speeds not zeroed: %v / %v", got.NetReceivedSpeedMbps, got.NetSentSpeedMbps)
	}
	if got.MemoryTotalGB != 0 || got.MemoryUsedGB != 0 || got.MemoryFreeGB != 0 {
		t.Errorf("memory not zeroed: %+v", got)
	}
	if got.DiskTotalGB != 0 || got.DiskUsedGB != 0 || got.DiskFreeGB != 0 {
		t.Errorf("disk not zeroed: %+v", got)
	}
	if got.LastError == nil || got.LastError.Kind != ErrorNetworkUnreachable {
		t.Errorf("LastError = %v, want network_unreachable", got.LastError)
	}

	// The previous snapshot must not be mutated
	if prev.MemoryTotalGB != 16 || prev.LastError != nil {
		t.Errorf("ApplyFailure mutated its input: %+v", prev)
	}
}

func TestFetchError_Error(t *testing.T) {
	tests := []struct {
		err  *FetchError
		want string
	}{
		{&FetchError{Kind: ErrorTimeout}, "request timed out"},
		{NewServerError(503), "server error (HTTP 503)"},
		{&FetchError{Kind: ErrorUnexpectedFormat, Message: "binary body"}, "unexpected response format: binary body"},
		{&FetchError{Kind: ErrorUnknown, Message: "boom"}, "unknown error: boom"},
	}

	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}

	cause := errors.New("dial tcp: refused")
	wrapped := NewFetchError(ErrorNetworkUnreachable, cause)
	if !errors.Is(wrapped, cause) {
		t.Error("errors.Is(wrapped, cause) = false, want true")
	}
}
