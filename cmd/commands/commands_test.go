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

package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/phuonguno98/unoprobe/internal/devices"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestDevicesCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.yaml")

	out, err := execute(t, "devices", "list", "--devices-file", path)
	if err != nil {
		t.Fatalf("devices list error = %v", err)
	}
	if !strings.Contains(out, "No devices configured.") {
		t.Errorf("empty list output = %q", out)
	}

	out, err = execute(t, "devices", "add", "web-01", "http://10.0.0.5:9182/metrics", "--devices-file", path)
	if err != nil {
		t.Fatalf("devices add error = %v", err)
	}
	if !strings.HasPrefix(out, "Added web-01 (") {
		t.Errorf("add output = %q", out)
	}

	out, err = execute(t, "devices", "list", "--devices-file", path)
	if err != nil {
		t.Fatalf("devices list error = %v", err)
	}
	if !strings.Contains(out, "web-01") || !strings.Contains(out, "http://10.0.0.5:9182/metrics") {
		t.Errorf("list output = %q", out)
	}

	registry, err := devices.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	id := registry.List()[0].ID

	if _, err := execute(t, "devices", "remove", id, "--devices-file", path); err != nil {
		t.Fatalf("devices remove error = %v", err)
	}
	if _, err := execute(t, "devices", "remove", id, "--devices-file", path); err == nil {
		t.Error("removing a missing device should fail")
	}
}

func TestDevicesAdd_InvalidURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.yaml")
	if _, err := execute(t, "devices", "add", "bad", "ftp://host", "--devices-file", path); err == nil {
		t.Error("expected error for unsupported scheme")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.HasPrefix(out, "unoprobe dev") {
		t.Errorf("version output = %q", out)
	}
}

func TestInitLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := InitLogger("warn", "", &buf)

	logger.Info("hidden")
	logger.Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Error("info message logged at warn level")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Error("warn message missing")
	}
}

func TestInitLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unoprobe.log")
	logger := InitLogger("debug", path, nil)
	logger.Debug("to file", "device", "web-01")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"msg":"to file"`) {
		t.Errorf("log file = %q, expected JSON record", data)
	}
}
