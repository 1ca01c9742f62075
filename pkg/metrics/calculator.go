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
	"math"
	"sort"
)

const (
	bytesPerMiB = 1024 * 1024
	bytesPerGiB = 1024 * 1024 * 1024
)

// nonNegative maps negative and non-finite inputs to 0.
func nonNegative(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// clampPercent bounds v to [0, 100]; rounding can push a ratio just past 100.
func clampPercent(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(100, math.Max(0, v))
}

// CalculateCoreUsage calculates core utilization percentage from one cycle of mode deltas.
// Formula: 100 * NonIdle / (NonIdle + Idle)
func CalculateCoreUsage(acc CoreTimeAccumulator) float64 {
	acc.Idle = nonNegative(acc.Idle)
	acc.User = nonNegative(acc.User)
	acc.Privileged = nonNegative(acc.Privileged)
	acc.Interrupt = nonNegative(acc.Interrupt)
	acc.DPC = nonNegative(acc.DPC)

	nonIdle := acc.TotalNonIdle()
	total := nonIdle + acc.Idle
	if total <= 0 {
		return 0.0
	}

	return clampPercent(100.0 * nonIdle / total)
}

// CalculateAggregateCPUUsage returns the arithmetic mean of all per-core usages.
func CalculateAggregateCPUUsage(cores []CoreUsage) float64 {
	if len(cores) == 0 {
		return 0.0
	}

	sum := 0.0
	for _, c := range cores {
		sum += c.UsagePercent
	}

	return clampPercent(sum / float64(len(cores)))
}

// CalculateThroughputMbps converts a byte counter delta into megabits per second.
// Formula: (ΔBytes / Δt) / 1024² × 8
func CalculateThroughputMbps(byteDelta, elapsedSeconds float64) float64 {
	byteDelta = nonNegative(byteDelta)
	if elapsedSeconds <= 0 || byteDelta == 0 {
		return 0.0
	}
	return (byteDelta / elapsedSeconds) / bytesPerMiB * 8
}

// CalculateUsed returns total - free, clamped at zero for inconsistent exports.
func CalculateUsed(total, free float64) float64 {
	return math.Max(0, nonNegative(total)-nonNegative(free))
}

// CalculateFrequencyGHz converts the nominal core frequency to GHz, scaled by the
// performance/mperf counter ratio when both deltas are available.
// baseMHz is windows_cpu_core_frequency_mhz, which the exporter reports in MHz.
// Formula: BaseMHz / 1000 × ΔPerformance / ΔMPerf / 100
func CalculateFrequencyGHz(baseMHz, perfDelta, mperfDelta float64) float64 {
	baseMHz = nonNegative(baseMHz)
	perfDelta = nonNegative(perfDelta)
	mperfDelta = nonNegative(mperfDelta)
	if baseMHz == 0 {
		return 0.0
	}

	ghz := baseMHz / 1000
	if perfDelta > 0 && mperfDelta > 0 {
		ghz *= perfDelta / mperfDelta / 100
	}
	return ghz
}

// CalculateAverageFrequency returns the mean of the non-zero core frequencies.
func CalculateAverageFrequency(cores []CoreUsage) float64 {
	sum, n := 0.0, 0
	for _, c := range cores {
		if c.FrequencyGHz > 0 {
			sum += c.FrequencyGHz
			n++
		}
	}
	if n == 0 {
		return 0.0
	}
	return sum / float64(n)
}

// BytesToGB converts bytes to binary gigabytes.
func BytesToGB(bytes float64) float64 {
	return nonNegative(bytes) / bytesPerGiB
}

// SortCores orders cores by LinearIndex ascending. Cores with an unknown
// index (-1) are placed last; ties are broken by CoreID.
func SortCores(cores []CoreUsage) {
	sort.SliceStable(cores, func(i, j int) bool {
		a, b := cores[i], cores[j]
		if (a.LinearIndex < 0) != (b.LinearIndex < 0) {
			return b.LinearIndex < 0
		}
		if a.LinearIndex != b.LinearIndex {
			return a.LinearIndex < b.LinearIndex
		}
		return a.CoreID < b.CoreID
	})
}

// ApplyFailure returns a copy of prev with the failure policy applied:
// network, memory and disk fields are zeroed and LastError is set.
// CPU fields keep their last good values.
func ApplyFailure(prev DeviceSnapshot, err *FetchError) DeviceSnapshot {
	out := prev.Clone()

	out.NetReceivedSpeedMbps = 0
	out.NetSentSpeedMbps = 0
	out.MemoryTotalGB = 0
	out.MemoryUsedGB = 0
	out.MemoryFreeGB = 0
	out.DiskTotalGB = 0
	out.DiskUsedGB = 0
	out.DiskFreeGB = 0
	out.LastError = err

	return out
}
