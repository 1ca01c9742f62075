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
	"strings"
	"time"

	"github.com/phuonguno98/unoprobe/internal/exposition"
	"github.com/phuonguno98/unoprobe/pkg/metrics"
)

// NetworkStats is the network part of a derived snapshot.
// ReceivedOK/SentOK are false when no interface had two observations yet.
type NetworkStats struct {
	ReceivedMbps float64
	SentMbps     float64
	ReceivedOK   bool
	SentOK       bool
}

// NetworkCollector derives receive/send throughput from per-NIC byte counters.
type NetworkCollector struct {
	counters          *CounterTracker
	includeInterfaces []string // Interfaces to monitor (empty = all)
	excludeInterfaces []string // Interfaces to exclude

	received []CounterID
	sent     []CounterID
}

// NewNetworkCollector creates a new network collector instance.
// includeInterfaces: list of NIC names to monitor (empty = all available)
// excludeInterfaces: list of NIC names to exclude
func NewNetworkCollector(counters *CounterTracker, includeInterfaces, excludeInterfaces []string) *NetworkCollector {
	return &NetworkCollector{
		counters:          counters,
		includeInterfaces: includeInterfaces,
		excludeInterfaces: excludeInterfaces,
	}
}

// Observe feeds one byte counter sample into the collector.
func (n *NetworkCollector) Observe(s exposition.MetricSample, now time.Time) {
	nic := s.Label(exposition.LabelNIC)
	if n.isLoopback(nic) || !n.shouldMonitor(nic) {
		return
	}

	id := NewCounterID(s.Name, s.Labels)
	n.counters.Observe(id, s.Value, now)

	switch s.Family {
	case exposition.FamilyNetReceived:
		n.received = append(n.received, id)
	case exposition.FamilyNetSent:
		n.sent = append(n.sent, id)
	}
}

// Collect computes the throughput of the current cycle and starts a new one.
func (n *NetworkCollector) Collect() NetworkStats {
	var stats NetworkStats
	stats.ReceivedMbps, stats.ReceivedOK = n.rate(n.received)
	stats.SentMbps, stats.SentOK = n.rate(n.sent)

	n.received = n.received[:0]
	n.sent = n.sent[:0]

	return stats
}

// rate sums the per-NIC throughput of every identity with a usable delta.
func (n *NetworkCollector) rate(ids []CounterID) (float64, bool) {
	total, ok := 0.0, false
	for _, id := range ids {
		if !n.counters.Ready(id) {
			continue
		}
		elapsed := n.counters.Elapsed(id)
		if elapsed <= 0 {
			continue
		}
		total += metrics.CalculateThroughputMbps(n.counters.Delta(id), elapsed)
		ok = true
	}
	return total, ok
}

// isLoopback checks if a NIC is a loopback interface.
func (n *NetworkCollector) isLoopback(interfaceName string) bool {
	// Common loopback interface names
	loopbacks := []string{"lo", "lo0", "Loopback"}
	for _, lo := range loopbacks {
		if interfaceName == lo {
			return true
		}
	}
	return strings.HasPrefix(interfaceName, "Loopback Pseudo-Interface")
}

// shouldMonitor checks if a NIC should be monitored based on include/exclude filters.
func (n *NetworkCollector) shouldMonitor(interfaceName string) bool {
	// Check exclude list first
	for _, excluded := range n.excludeInterfaces {
		if excluded == interfaceName {
			return false
		}
	}

	// If include list is empty, monitor all (except excluded)
	if len(n.includeInterfaces) == 0 {
		return true
	}

	for _, included := range n.includeInterfaces {
		if included == interfaceName {
			return true
		}
	}

	return false
}

// Name returns the collector name for logging purposes.
func (n *NetworkCollector) Name() string {
	return "Network"
}
