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

// Package scheduler drives the fetch, retry and derive cycle of monitored devices.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/phuonguno98/unoprobe/internal/collector"
	"github.com/phuonguno98/unoprobe/internal/config"
	"github.com/phuonguno98/unoprobe/internal/devices"
	"github.com/phuonguno98/unoprobe/internal/fetch"
	"github.com/phuonguno98/unoprobe/pkg/metrics"
)

// ErrClosed is returned when starting a device on a closed scheduler.
var ErrClosed = errors.New("scheduler closed")

// Status is the polling state of one device.
type Status int

const (
	StatusIdle Status = iota
	StatusFetching
	StatusRetryWaiting
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusFetching:
		return "fetching"
	case StatusRetryWaiting:
		return "retry_waiting"
	default:
		return "unknown"
	}
}

// State is a point-in-time view of a device's poll state.
type State struct {
	Status     Status
	RetryCount int
}

// Update is published after every completed cycle.
type Update struct {
	DeviceID string
	Snapshot metrics.DeviceSnapshot
	Err      *metrics.FetchError
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithUpdates publishes every completed cycle on ch. Sends never block;
// updates are dropped when ch is full.
func WithUpdates(ch chan<- Update) Option {
	return func(s *Scheduler) { s.updates = ch }
}

// WithStateObserver registers fn for every status transition. It runs with
// the scheduler lock held and must not call back into the Scheduler.
func WithStateObserver(fn func(deviceID string, status Status)) Option {
	return func(s *Scheduler) { s.observer = fn }
}

type poller struct {
	dev        devices.Device
	engine     *collector.Device
	status     Status
	retryCount int
	timer      Timer
	cancel     context.CancelFunc
	stopped    bool
}

// Scheduler polls devices. Each device has at most one fetch in flight, and
// results of a stopped device are discarded.
type Scheduler struct {
	config   *config.Config
	fetcher  fetch.Fetcher
	clock    Clock
	updates  chan<- Update
	observer func(string, Status)
	logger   *slog.Logger

	mu      sync.Mutex
	pollers map[string]*poller
	closed  bool
}

// New creates a scheduler. Polling starts with Start or Select.
func New(cfg *config.Config, fetcher fetch.Fetcher, logger *slog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		config:  cfg,
		fetcher: fetcher,
		clock:   realClock{},
		logger:  logger,
		pollers: make(map[string]*poller),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins polling dev with a fresh counter state. A device that is
// already polled is restarted.
func (s *Scheduler) Start(dev devices.Device) error {
	if err := validate(dev); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if p, ok := s.pollers[dev.ID]; ok {
		s.stopLocked(p)
	}
	s.startLocked(dev)
	return nil
}

// Select makes dev the only polled device. Other devices are stopped first.
// Selecting the device that is already active with an unchanged address is a no-op.
func (s *Scheduler) Select(dev devices.Device) error {
	if err := validate(dev); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	for id, p := range s.pollers {
		if id == dev.ID && p.dev == dev {
			continue
		}
		s.stopLocked(p)
	}
	if _, ok := s.pollers[dev.ID]; ok {
		return nil
	}
	s.startLocked(dev)
	return nil
}

// Stop cancels polling of a device and discards its counter state.
// It reports whether the device was being polled.
func (s *Scheduler) Stop(deviceID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pollers[deviceID]
	if !ok {
		return false
	}
	s.stopLocked(p)
	return true
}

// Close stops every device. Later Start and Select calls fail with ErrClosed.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.pollers {
		s.stopLocked(p)
	}
	s.closed = true
	s.logger.Info("Scheduler stopped")
}

// Run blocks until ctx is done, then closes the scheduler.
func (s *Scheduler) Run(ctx context.Context) error {
	<-ctx.Done()
	s.Close()
	return nil
}

// Snapshot returns the latest snapshot of a polled device.
func (s *Scheduler) Snapshot(deviceID string) (metrics.DeviceSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pollers[deviceID]
	if !ok {
		return metrics.DeviceSnapshot{}, false
	}
	return p.engine.Snapshot(), true
}

// State returns the poll state of a device.
func (s *Scheduler) State(deviceID string) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pollers[deviceID]
	if !ok {
		return State{}, false
	}
	return State{Status: p.status, RetryCount: p.retryCount}, true
}

// Fetching reports whether a cycle of the device is in progress, including
// the wait before a retry.
func (s *Scheduler) Fetching(deviceID string) bool {
	st, ok := s.State(deviceID)
	return ok && st.Status != StatusIdle
}

// Active returns the IDs of all polled devices, sorted.
func (s *Scheduler) Active() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.pollers))
	for id := range s.pollers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func validate(dev devices.Device) error {
	if dev.ID == "" {
		return errors.New("device ID cannot be empty")
	}
	return dev.Validate()
}

func (s *Scheduler) startLocked(dev devices.Device) {
	p := &poller{
		dev:    dev,
		engine: collector.NewDevice(dev.ID, s.config.DeviceOptions(), s.logger),
	}
	s.pollers[dev.ID] = p
	s.logger.Info("Polling started", "device", dev.ID, "url", dev.URL)
	s.fetchLocked(p)
}

func (s *Scheduler) stopLocked(p *poller) {
	p.stopped = true
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.engine.Reset()
	if s.pollers[p.dev.ID] == p {
		delete(s.pollers, p.dev.ID)
	}
	s.logger.Info("Polling stopped", "device", p.dev.ID)
}

// fetchLocked launches one fetch for p.
func (s *Scheduler) fetchLocked(p *poller) {
	p.timer = nil
	ctx, cancel := context.WithTimeout(context.Background(), s.config.FetchTimeout)
	p.cancel = cancel
	s.setStatusLocked(p, StatusFetching)

	dev := p.dev
	go func() {
		body, err := s.fetcher.Fetch(ctx, dev)
		s.complete(p, body, err)
	}()
}

// tick fires when a poll or retry timer expires.
func (s *Scheduler) tick(p *poller) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.stopped {
		return
	}
	s.fetchLocked(p)
}

// complete handles the outcome of a fetch. Timers are armed before the
// status changes so observers never see a state without its timer.
func (s *Scheduler) complete(p *poller, body string, fetchErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	if p.stopped {
		s.logger.Debug("Discarding stale result", "device", p.dev.ID)
		return
	}

	now := s.clock.Now()
	if fetchErr == nil {
		snapshot, err := p.engine.Ingest(body, now)
		if err == nil {
			p.retryCount = 0
			p.timer = s.clock.AfterFunc(s.config.PollInterval, func() { s.tick(p) })
			s.setStatusLocked(p, StatusIdle)
			s.publishLocked(Update{DeviceID: p.dev.ID, Snapshot: snapshot})
			return
		}
		fetchErr = metrics.NewFetchError(metrics.ErrorUnexpectedFormat, err)
	}

	fe := fetch.Classify(fetchErr)
	if p.retryCount < s.config.MaxRetries {
		p.retryCount++
		s.logger.Warn("Fetch failed, retrying",
			"device", p.dev.ID,
			"attempt", p.retryCount,
			"max_retries", s.config.MaxRetries,
			"error", fe,
		)
		p.timer = s.clock.AfterFunc(s.config.RetryDelay, func() { s.tick(p) })
		s.setStatusLocked(p, StatusRetryWaiting)
		return
	}

	snapshot := p.engine.Fail(fe, now)
	p.retryCount = 0
	p.timer = s.clock.AfterFunc(s.config.PollInterval, func() { s.tick(p) })
	s.setStatusLocked(p, StatusIdle)
	s.publishLocked(Update{DeviceID: p.dev.ID, Snapshot: snapshot, Err: fe})
}

func (s *Scheduler) setStatusLocked(p *poller, status Status) {
	p.status = status
	if s.observer != nil {
		s.observer(p.dev.ID, status)
	}
}

// publishLocked sends u without blocking.
func (s *Scheduler) publishLocked(u Update) {
	if s.updates == nil {
		return
	}
	select {
	case s.updates <- u:
		s.logger.Debug("Snapshot sent", "device", u.DeviceID, "failed", u.Err != nil)
	default:
		s.logger.Warn("Updates channel full, dropping snapshot", "device", u.DeviceID)
	}
}
