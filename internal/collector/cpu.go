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
	"time"

	"github.com/phuonguno98/unoprobe/internal/exposition"
	"github.com/phuonguno98/unoprobe/pkg/metrics"
)

// CPUStats is the CPU part of a derived snapshot.
type CPUStats struct {
	UsagePercent float64
	CoreCount    int
	FrequencyGHz float64
	Cores        []metrics.CoreUsage
}

// coreObservation collects the counter identities seen for one core in the current cycle.
type coreObservation struct {
	modes    map[string]CounterID
	perf     *CounterID
	mperf    *CounterID
	baseMHz  float64
	hasTimes bool
}

// CPUCollector derives per-core utilization and frequency from CPU time and
// performance counters.
type CPUCollector struct {
	counters *CounterTracker
	indexer  CoreIndexer

	cores             map[string]*coreObservation
	logicalProcessors float64
	hasLogical        bool
}

// NewCPUCollector creates a new CPU collector backed by the device's counter tracker.
func NewCPUCollector(counters *CounterTracker, indexer CoreIndexer) *CPUCollector {
	return &CPUCollector{
		counters: counters,
		indexer:  indexer,
		cores:    make(map[string]*coreObservation),
	}
}

// Observe feeds one sample of a CPU family into the collector.
func (c *CPUCollector) Observe(s exposition.MetricSample, now time.Time) {
	if s.Family == exposition.FamilyLogicalProcessors {
		c.logicalProcessors = s.Value
		c.hasLogical = true
		return
	}

	coreID := s.Label(exposition.LabelCore)
	if coreID == "" {
		return
	}

	obs := c.core(coreID)
	switch s.Family {
	case exposition.FamilyCPUTime:
		mode := s.Label(exposition.LabelMode)
		if !knownMode(mode) {
			return
		}
		id := NewCounterID(s.Name, s.Labels)
		c.counters.Observe(id, s.Value, now)
		obs.modes[mode] = id
		obs.hasTimes = true

	case exposition.FamilyCPUPerformance:
		id := NewCounterID(s.Name, s.Labels)
		c.counters.Observe(id, s.Value, now)
		obs.perf = &id

	case exposition.FamilyCPUMPerf:
		id := NewCounterID(s.Name, s.Labels)
		c.counters.Observe(id, s.Value, now)
		obs.mperf = &id

	case exposition.FamilyCPUFrequency:
		obs.baseMHz = s.Value
	}
}

// Collect computes the CPU statistics of the current cycle and starts a new one.
func (c *CPUCollector) Collect() CPUStats {
	cores := make([]metrics.CoreUsage, 0, len(c.cores))

	for coreID, obs := range c.cores {
		if !obs.hasTimes {
			continue
		}

		acc := metrics.CoreTimeAccumulator{
			Idle:       c.modeDelta(obs, exposition.ModeIdle),
			User:       c.modeDelta(obs, exposition.ModeUser),
			Privileged: c.modeDelta(obs, exposition.ModePrivileged),
			Interrupt:  c.modeDelta(obs, exposition.ModeInterrupt),
			DPC:        c.modeDelta(obs, exposition.ModeDPC),
		}

		var perfDelta, mperfDelta float64
		if obs.perf != nil && obs.mperf != nil {
			perfDelta = c.counters.Delta(*obs.perf)
			mperfDelta = c.counters.Delta(*obs.mperf)
		}

		cores = append(cores, metrics.CoreUsage{
			CoreID:       coreID,
			UsagePercent: metrics.CalculateCoreUsage(acc),
			FrequencyGHz: metrics.CalculateFrequencyGHz(obs.baseMHz, perfDelta, mperfDelta),
			LinearIndex:  c.indexer.Index(coreID),
		})
	}

	metrics.SortCores(cores)

	stats := CPUStats{
		UsagePercent: metrics.CalculateAggregateCPUUsage(cores),
		CoreCount:    len(cores),
		FrequencyGHz: metrics.CalculateAverageFrequency(cores),
		Cores:        cores,
	}
	if c.hasLogical && c.logicalProcessors > 0 {
		stats.CoreCount = int(c.logicalProcessors)
	}

	c.cores = make(map[string]*coreObservation)
	c.hasLogical = false
	c.logicalProcessors = 0

	return stats
}

func (c *CPUCollector) core(coreID string) *coreObservation {
	obs, ok := c.cores[coreID]
	if !ok {
		obs = &coreObservation{modes: make(map[string]CounterID)}
		c.cores[coreID] = obs
	}
	return obs
}

func (c *CPUCollector) modeDelta(obs *coreObservation, mode string) float64 {
	id, ok := obs.modes[mode]
	if !ok {
		return 0
	}
	return c.counters.Delta(id)
}

func knownMode(mode string) bool {
	switch mode {
	case exposition.ModeIdle, exposition.ModeUser, exposition.ModePrivileged,
		exposition.ModeInterrupt, exposition.ModeDPC:
		return true
	}
	return false
}

// Name returns the collector name for logging purposes.
func (c *CPUCollector) Name() string {
	return "CPU"
}
