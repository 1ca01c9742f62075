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
	"github.com/phuonguno98/unoprobe/pkg/metrics"
)

// UsageStats is a total/used/free triple in GB.
type UsageStats struct {
	TotalGB float64
	UsedGB  float64
	FreeGB  float64
}

func newUsageStats(totalBytes, freeBytes float64) UsageStats {
	return UsageStats{
		TotalGB: metrics.BytesToGB(totalBytes),
		UsedGB:  metrics.BytesToGB(metrics.CalculateUsed(totalBytes, freeBytes)),
		FreeGB:  metrics.BytesToGB(freeBytes),
	}
}

// MemoryCollector reads the visible and available memory gauges.
type MemoryCollector struct {
	total float64
	free  float64
}

// NewMemoryCollector creates a new memory collector instance.
func NewMemoryCollector() *MemoryCollector {
	return &MemoryCollector{}
}

// Observe feeds one memory gauge into the collector.
func (m *MemoryCollector) Observe(s exposition.MetricSample) {
	switch s.Family {
	case exposition.FamilyMemoryVisible:
		m.total = s.Value
	case exposition.FamilyMemoryAvailable:
		m.free = s.Value
	}
}

// Collect returns the memory usage of the current cycle and starts a new one.
func (m *MemoryCollector) Collect() UsageStats {
	stats := newUsageStats(m.total, m.free)
	m.total, m.free = 0, 0
	return stats
}

// Name returns the collector name for logging purposes.
func (m *MemoryCollector) Name() string {
	return "Memory"
}
