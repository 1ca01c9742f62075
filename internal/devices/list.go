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

package devices

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when a device ID is unknown.
var ErrNotFound = errors.New("device not found")

// Schemes accepted for device URLs.
const (
	SchemeHTTP  = "http"
	SchemeHTTPS = "https"
	SchemeLocal = "local"
)

// Device is a monitored host exporting metrics at URL.
type Device struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url" json:"url"`
}

// Validate checks that the device has a name and a supported URL.
func (d Device) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return errors.New("device name cannot be empty")
	}
	u, err := url.Parse(d.URL)
	if err != nil {
		return fmt.Errorf("invalid device URL %q: %w", d.URL, err)
	}
	switch u.Scheme {
	case SchemeHTTP, SchemeHTTPS:
		if u.Host == "" {
			return fmt.Errorf("device URL %q has no host", d.URL)
		}
	case SchemeLocal:
	default:
		return fmt.Errorf("unsupported URL scheme %q (must be http, https or local)", u.Scheme)
	}
	return nil
}

// deviceFile is the on-disk layout of the device list.
type deviceFile struct {
	Devices []Device `yaml:"devices"`
}

// Registry is the device list, optionally persisted to a YAML file.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]Device
	path    string
}

// NewRegistry creates an empty registry persisted to path (empty = memory only).
func NewRegistry(path string) *Registry {
	return &Registry{
		devices: make(map[string]Device),
		path:    path,
	}
}

// Load creates a registry from the YAML file at path. A missing file yields an
// empty registry.
func Load(path string) (*Registry, error) {
	r := NewRegistry(path)
	if path == "" {
		return r, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("failed to read device list: %w", err)
	}

	var f deviceFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse device list %s: %w", path, err)
	}

	for _, d := range f.Devices {
		if d.ID == "" {
			d.ID = uuid.NewString()
		}
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("device %q: %w", d.Name, err)
		}
		r.devices[d.ID] = d
	}

	return r, nil
}

// List returns all devices sorted by name.
func (r *Registry) List() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Get returns the device with the given ID.
func (r *Registry) Get(id string) (Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[id]
	if !ok {
		return Device{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return d, nil
}

// Add registers a new device and persists the list.
func (r *Registry) Add(name, rawURL string) (Device, error) {
	d := Device{
		ID:   uuid.NewString(),
		Name: strings.TrimSpace(name),
		URL:  strings.TrimSpace(rawURL),
	}
	if err := d.Validate(); err != nil {
		return Device{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.devices[d.ID] = d
	if err := r.saveLocked(); err != nil {
		delete(r.devices, d.ID)
		return Device{}, err
	}
	return d, nil
}

// Update changes the name and URL of an existing device.
func (r *Registry) Update(id, name, rawURL string) (Device, error) {
	d := Device{
		ID:   id,
		Name: strings.TrimSpace(name),
		URL:  strings.TrimSpace(rawURL),
	}
	if err := d.Validate(); err != nil {
		return Device{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.devices[id]
	if !ok {
		return Device{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	r.devices[id] = d
	if err := r.saveLocked(); err != nil {
		r.devices[id] = old
		return Device{}, err
	}
	return d, nil
}

// Remove deletes a device and persists the list.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.devices[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(r.devices, id)
	if err := r.saveLocked(); err != nil {
		r.devices[id] = old
		return err
	}
	return nil
}

// saveLocked writes the list to disk atomically. Callers hold r.mu.
func (r *Registry) saveLocked() error {
	if r.path == "" {
		return nil
	}

	f := deviceFile{Devices: make([]Device, 0, len(r.devices))}
	for _, d := range r.devices {
		f.Devices = append(f.Devices, d)
	}
	sort.Slice(f.Devices, func(i, j int) bool { return f.Devices[i].ID < f.Devices[j].ID })

	data, err := yaml.Marshal(&f)
	if err != nil {
		return fmt.Errorf("failed to encode device list: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("failed to create device list directory: %w", err)
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write device list: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("failed to replace device list: %w", err)
	}
	return nil
}

// FormatDevicesTable formats the device list as a table.
func FormatDevicesTable(devices []Device) string {
	var sb strings.Builder

	sb.WriteString("\nMonitored Devices:\n")
	sb.WriteString(strings.Repeat("=", 80))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("%-36s  %-20s %s\n", "ID", "NAME", "URL"))
	sb.WriteString(strings.Repeat("-", 80))
	sb.WriteString("\n")

	for _, d := range devices {
		sb.WriteString(fmt.Sprintf("%-36s  %-20s %s\n",
			d.ID,
			truncate(d.Name, 20),
			d.URL,
		))
	}

	sb.WriteString(strings.Repeat("=", 80))
	sb.WriteString("\n")

	return sb.String()
}

// truncate truncates a string to maxLen characters.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
