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

// Package exposition tokenizes the Prometheus text exposition format and keeps
// only the metric families the probe knows how to derive statistics from.
package exposition

import "strings"

// Family identifies a recognized metric family.
type Family int

// Recognized metric families.
const (
	FamilyUnknown Family = iota
	FamilyCPUTime
	FamilyCPUPerformance
	FamilyCPUMPerf
	FamilyCPUFrequency
	FamilyLogicalProcessors
	FamilyNetReceived
	FamilyNetSent
	FamilyMemoryVisible
	FamilyMemoryAvailable
	FamilyDiskSize
	FamilyDiskFree
)

// Label names used by the recognized families.
const (
	LabelCore   = "core"
	LabelMode   = "mode"
	LabelNIC    = "nic"
	LabelVolume = "volume"
)

// CPU time modes exported for windows_cpu_time_total.
const (
	ModeIdle       = "idle"
	ModeUser       = "user"
	ModePrivileged = "privileged"
	ModeInterrupt  = "interrupt"
	ModeDPC        = "dpc"
)

type familyName struct {
	family    Family
	substring string
}

// knownFamilies is matched by name containment, in order.
var knownFamilies = []familyName{
	{FamilyCPUTime, "windows_cpu_time_total"},
	{FamilyCPUPerformance, "windows_cpu_processor_performance_total"},
	{FamilyCPUMPerf, "windows_cpu_processor_mperf_total"},
	{FamilyCPUFrequency, "windows_cpu_core_frequency_mhz"},
	{FamilyLogicalProcessors, "windows_cs_logical_processors"},
	{FamilyNetReceived, "windows_net_bytes_received_total"},
	{FamilyNetSent, "windows_net_bytes_sent_total"},
	{FamilyMemoryVisible, "windows_os_visible_memory_bytes"},
	{FamilyMemoryAvailable, "windows_memory_available_bytes"},
	{FamilyDiskSize, "windows_logical_disk_size_bytes"},
	{FamilyDiskFree, "windows_logical_disk_free_bytes"},
}

// MatchFamily returns the family whose name is contained in metricName.
func MatchFamily(metricName string) (Family, bool) {
	for _, f := range knownFamilies {
		if strings.Contains(metricName, f.substring) {
			return f.family, true
		}
	}
	return FamilyUnknown, false
}

// MetricName returns the canonical metric name of a family.
func (f Family) MetricName() string {
	for _, k := range knownFamilies {
		if k.family == f {
			return k.substring
		}
	}
	return ""
}

// String implements fmt.Stringer.
func (f Family) String() string {
	if name := f.MetricName(); name != "" {
		return name
	}
	return "unknown"
}
