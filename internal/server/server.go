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

package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/phuonguno98/unoprobe/internal/devices"
	"github.com/phuonguno98/unoprobe/internal/scheduler"
	"github.com/phuonguno98/unoprobe/pkg/metrics"
	"github.com/phuonguno98/unoprobe/pkg/version"
)

// MaxRequestSize limits JSON request bodies (64KB).
const MaxRequestSize = 64 * 1024

// DeviceStore persists the list of monitored devices.
type DeviceStore interface {
	List() []devices.Device
	Get(id string) (devices.Device, error)
	Add(name, rawURL string) (devices.Device, error)
	Update(id, name, rawURL string) (devices.Device, error)
	Remove(id string) error
}

// Monitor polls selected devices.
type Monitor interface {
	Select(dev devices.Device) error
	Stop(deviceID string) bool
	Snapshot(deviceID string) (metrics.DeviceSnapshot, bool)
	State(deviceID string) (scheduler.State, bool)
	Active() []string
}

// Server exposes devices and their live snapshots over a JSON API.
type Server struct {
	store   DeviceStore
	monitor Monitor
	logger  *slog.Logger
	router  *mux.Router
}

// deviceView is a device together with its polling state.
type deviceView struct {
	devices.Device
	Active bool   `json:"active"`
	Status string `json:"status,omitempty"`
}

// snapshotView is the payload of the snapshot endpoints.
type snapshotView struct {
	Snapshot   metrics.DeviceSnapshot `json:"snapshot"`
	Status     string                 `json:"status"`
	Fetching   bool                   `json:"fetching"`
	RetryCount int                    `json:"retry_count"`
}

type deviceRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// NewServer creates a new API server.
func NewServer(store DeviceStore, monitor Monitor, logger *slog.Logger) *Server {
	s := &Server{
		store:   store,
		monitor: monitor,
		logger:  logger,
		router:  mux.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Add CORS middleware
	s.router.Use(corsMiddleware)
	// Add logging middleware
	s.router.Use(s.loggingMiddleware)

	s.router.HandleFunc("/api/version", s.handleGetVersion).Methods("GET")
	s.router.HandleFunc("/api/devices", s.handleListDevices).Methods("GET")
	s.router.HandleFunc("/api/devices", s.handleAddDevice).Methods("POST")
	s.router.HandleFunc("/api/devices/{id}", s.handleUpdateDevice).Methods("PUT")
	s.router.HandleFunc("/api/devices/{id}", s.handleDeleteDevice).Methods("DELETE")
	s.router.HandleFunc("/api/devices/{id}/select", s.handleSelectDevice).Methods("POST")
	s.router.HandleFunc("/api/devices/{id}/snapshot", s.handleGetSnapshot).Methods("GET")
	s.router.HandleFunc("/api/selected", s.handleGetSelected).Methods("GET")

	// Preflight requests only need the CORS headers.
	s.router.PathPrefix("/api/").Methods("OPTIONS").HandlerFunc(func(http.ResponseWriter, *http.Request) {})
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// handleGetVersion returns version information from the version package.
func (s *Server) handleGetVersion(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, version.Info())
}

// handleListDevices returns all devices with their polling state.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	list := s.store.List()
	views := make([]deviceView, 0, len(list))
	for _, d := range list {
		view := deviceView{Device: d}
		if st, ok := s.monitor.State(d.ID); ok {
			view.Active = true
			view.Status = st.Status.String()
		}
		views = append(views, view)
	}
	s.writeJSON(w, views)
}

func (s *Server) handleAddDevice(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeDevice(w, r)
	if !ok {
		return
	}

	dev, err := s.store.Add(req.Name, req.URL)
	if err != nil {
		s.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.logger.Info("Device added", "id", dev.ID, "name", dev.Name)
	w.Header().Set("Location", "/api/devices/"+dev.ID)
	s.writeJSONStatus(w, dev, http.StatusCreated)
}

// handleUpdateDevice edits a device. A polled device restarts against the new address.
func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	req, ok := s.decodeDevice(w, r)
	if !ok {
		return
	}

	dev, err := s.store.Update(id, req.Name, req.URL)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	if _, active := s.monitor.State(id); active {
		if err := s.monitor.Select(dev); err != nil {
			s.logger.Warn("Failed to restart polling", "id", id, "error", err)
		}
	}

	s.logger.Info("Device updated", "id", dev.ID)
	s.writeJSON(w, dev)
}

// handleDeleteDevice stops polling and removes the device.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.monitor.Stop(id)
	if err := s.store.Remove(id); err != nil {
		s.writeStoreError(w, err)
		return
	}

	s.logger.Info("Device deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// handleSelectDevice makes the device the one being polled.
func (s *Server) handleSelectDevice(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	dev, err := s.store.Get(id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	if err := s.monitor.Select(dev); err != nil {
		s.logger.Error("Failed to select device", "id", id, "error", err)
		s.writeError(w, err.Error(), http.StatusConflict)
		return
	}

	s.logger.Info("Device selected", "id", id, "url", dev.URL)
	s.writeJSONStatus(w, s.snapshotView(id), http.StatusAccepted)
}

func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if _, ok := s.monitor.State(id); !ok {
		s.writeError(w, "device is not being polled", http.StatusNotFound)
		return
	}
	s.writeJSON(w, s.snapshotView(id))
}

// handleGetSelected returns the snapshot of the first polled device.
func (s *Server) handleGetSelected(w http.ResponseWriter, _ *http.Request) {
	active := s.monitor.Active()
	if len(active) == 0 {
		s.writeError(w, "no device selected", http.StatusNotFound)
		return
	}
	s.writeJSON(w, s.snapshotView(active[0]))
}

func (s *Server) snapshotView(id string) snapshotView {
	snap, _ := s.monitor.Snapshot(id)
	st, _ := s.monitor.State(id)
	return snapshotView{
		Snapshot:   snap,
		Status:     st.Status.String(),
		Fetching:   st.Status != scheduler.StatusIdle,
		RetryCount: st.RetryCount,
	}
}

func (s *Server) decodeDevice(w http.ResponseWriter, r *http.Request) (deviceRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestSize)

	var req deviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "invalid request body", http.StatusBadRequest)
		return req, false
	}
	return req, true
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, devices.ErrNotFound) {
		s.writeError(w, err.Error(), http.StatusNotFound)
		return
	}
	s.writeError(w, err.Error(), http.StatusBadRequest)
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	s.writeJSONStatus(w, data, http.StatusOK)
}

func (s *Server) writeJSONStatus(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to write JSON response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	}); err != nil {
		s.logger.Error("Failed to write error response", "error", err)
	}
}
