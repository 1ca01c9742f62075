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

	promModel "github.com/prometheus/common/model"
)

// CounterID identifies a tracked counter by metric name and label signature.
type CounterID = promModel.Fingerprint

// NewCounterID builds the identity of a counter from its name and labels.
func NewCounterID(name string, labels promModel.LabelSet) CounterID {
	ls := make(promModel.LabelSet, len(labels)+1)
	for k, v := range labels {
		ls[k] = v
	}
	ls[promModel.MetricNameLabel] = promModel.LabelValue(name)
	return ls.Fingerprint()
}

// CounterState holds the last two observations of one counter.
type CounterState struct {
	Previous         float64
	HasPrevious      bool
	Current          float64
	LastTimestamp    time.Time
	CurrentTimestamp time.Time
}

// CounterTracker converts successive counter observations into safe deltas.
// It is owned by a single device and is not safe for concurrent use.
type CounterTracker struct {
	states map[CounterID]*CounterState
}

// NewCounterTracker creates an empty tracker.
func NewCounterTracker() *CounterTracker {
	return &CounterTracker{
		states: make(map[CounterID]*CounterState),
	}
}

// Observe records a new value for id. The first observation only stores a
// baseline; no delta is available until a second one arrives.
func (t *CounterTracker) Observe(id CounterID, value float64, ts time.Time) {
	st, ok := t.states[id]
	if !ok {
		t.states[id] = &CounterState{
			Current:          value,
			CurrentTimestamp: ts,
		}
		return
	}

	st.Previous = st.Current
	st.HasPrevious = true
	st.LastTimestamp = st.CurrentTimestamp
	st.Current = value
	st.CurrentTimestamp = ts
}

// Ready reports whether id has both a previous and a current value.
func (t *CounterTracker) Ready(id CounterID) bool {
	st, ok := t.states[id]
	return ok && st.HasPrevious
}

// Delta returns current - previous. It is 0 before the second observation and
// when the counter went backwards (exporter restart).
func (t *CounterTracker) Delta(id CounterID) float64 {
	st, ok := t.states[id]
	if !ok || !st.HasPrevious || st.Current < st.Previous {
		return 0
	}
	return st.Current - st.Previous
}

// Elapsed returns the seconds between the last two observations of id.
func (t *CounterTracker) Elapsed(id CounterID) float64 {
	st, ok := t.states[id]
	if !ok || !st.HasPrevious {
		return 0
	}
	return st.CurrentTimestamp.Sub(st.LastTimestamp).Seconds()
}

// State returns a copy of the state of id.
func (t *CounterTracker) State(id CounterID) (CounterState, bool) {
	st, ok := t.states[id]
	if !ok {
		return CounterState{}, false
	}
	return *st, true
}

// Len returns the number of tracked identities.
func (t *CounterTracker) Len() int {
	return len(t.states)
}

// Reset discards every tracked counter.
func (t *CounterTracker) Reset() {
	t.states = make(map[CounterID]*CounterState)
}
