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
	"fmt"
	"time"
)

// DeviceSnapshot is the latest set of derived statistics for one monitored device.
// It is replaced wholesale on every successful poll cycle and handed out as a copy.
type DeviceSnapshot struct {
	DeviceID  string    `json:"device_id"`
	Timestamp time.Time `json:"timestamp"`

	CPUUsagePercent float64     `json:"cpu_usage_percent"`
	CPUCoreCount    int         `json:"cpu_core_count"`
	CPUFrequencyGHz float64     `json:"cpu_frequency_ghz"`
	CPUCores        []CoreUsage `json:"cpu_cores"` // Ordered by LinearIndex

	NetReceivedSpeedMbps float64 `json:"net_received_speed_mbps"`
	NetSentSpeedMbps     float64 `json:"net_sent_speed_mbps"`

	MemoryTotalGB float64 `json:"memory_total_gb"`
	MemoryUsedGB  float64 `json:"memory_used_gb"`
	MemoryFreeGB  float64 `json:"memory_free_gb"`

	DiskTotalGB float64 `json:"disk_total_gb"`
	DiskUsedGB  float64 `json:"disk_used_gb"`
	DiskFreeGB  float64 `json:"disk_free_gb"`

	LastError *FetchError `json:"last_error,omitempty"`
}

// Clone returns a deep copy safe to hand to the presentation layer.
func (s DeviceSnapshot) Clone() DeviceSnapshot {
	out := s
	if s.CPUCores != nil {
		out.CPUCores = make([]CoreUsage, len(s.CPUCores))
		copy(out.CPUCores, s.CPUCores)
	}
	if s.LastError != nil {
		e := *s.LastError
		out.LastError = &e
	}
	return out
}

// CoreUsage represents utilization of a single logical core.
type CoreUsage struct {
	CoreID       string  `json:"core_id"`       // Exporter label, "processor,thread"
	UsagePercent float64 `json:"usage_percent"` // [0, 100]
	FrequencyGHz float64 `json:"frequency_ghz"`
	LinearIndex  int     `json:"linear_index"` // -1 when the label could not be parsed
}

// CoreTimeAccumulator holds the per-cycle time deltas of one core, split by mode.
type CoreTimeAccumulator struct {
	Idle       float64
	User       float64
	Privileged float64
	Interrupt  float64
	DPC        float64
}

// TotalNonIdle returns user + privileged + interrupt + dpc time.
func (a CoreTimeAccumulator) TotalNonIdle() float64 {
	return a.User + a.Privileged + a.Interrupt + a.DPC
}

// ErrorKind classifies a failed fetch.
type ErrorKind string

// Fetch error kinds.
const (
	ErrorTimeout            ErrorKind = "timeout"
	ErrorServer             ErrorKind = "server_error"
	ErrorNetworkUnreachable ErrorKind = "network_unreachable"
	ErrorUnexpectedFormat   ErrorKind = "unexpected_format"
	ErrorUnknown            ErrorKind = "unknown"
)

// FetchError is a classified transport or format failure.
type FetchError struct {
	Kind    ErrorKind `json:"kind"`
	Status  int       `json:"status,omitempty"` // HTTP status for ErrorServer
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

// Error returns a human-readable classification.
func (e *FetchError) Error() string {
	switch e.Kind {
	case ErrorTimeout:
		return "request timed out"
	case ErrorServer:
		return fmt.Sprintf("server error (HTTP %d)", e.Status)
	case ErrorNetworkUnreachable:
		return "network unreachable: " + e.Message
	case ErrorUnexpectedFormat:
		return "unexpected response format: " + e.Message
	default:
		return "unknown error: " + e.Message
	}
}

// Unwrap returns the underlying cause.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError creates a FetchError of the given kind wrapping err.
func NewFetchError(kind ErrorKind, err error) *FetchError {
	fe := &FetchError{Kind: kind, Err: err}
	if err != nil {
		fe.Message = err.Error()
	}
	return fe
}

// NewServerError creates a FetchError for a non-success HTTP status.
func NewServerError(status int) *FetchError {
	return &FetchError{
		Kind:    ErrorServer,
		Status:  status,
		Message: fmt.Sprintf("HTTP %d", status),
	}
}
