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

// Package fetch retrieves exposition bodies for devices and classifies
// transport failures.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"syscall"

	"github.com/phuonguno98/unoprobe/internal/devices"
	"github.com/phuonguno98/unoprobe/pkg/metrics"
)

// Fetcher retrieves the raw exposition text of a device.
type Fetcher interface {
	Fetch(ctx context.Context, dev devices.Device) (string, error)
}

// Router dispatches to a fetcher by URL scheme.
type Router struct {
	HTTP  Fetcher
	Local Fetcher
}

// Fetch implements Fetcher.
func (r *Router) Fetch(ctx context.Context, dev devices.Device) (string, error) {
	u, err := url.Parse(dev.URL)
	if err != nil {
		return "", metrics.NewFetchError(metrics.ErrorUnknown, err)
	}

	switch u.Scheme {
	case devices.SchemeHTTP, devices.SchemeHTTPS:
		if r.HTTP != nil {
			return r.HTTP.Fetch(ctx, dev)
		}
	case devices.SchemeLocal:
		if r.Local != nil {
			return r.Local.Fetch(ctx, dev)
		}
	}
	return "", metrics.NewFetchError(metrics.ErrorUnknown, fmt.Errorf("no fetcher for scheme %q", u.Scheme))
}

// Classify maps an error returned by a fetch into a FetchError.
func Classify(err error) *metrics.FetchError {
	if err == nil {
		return nil
	}

	var fe *metrics.FetchError
	if errors.As(err, &fe) {
		return fe
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return metrics.NewFetchError(metrics.ErrorTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return metrics.NewFetchError(metrics.ErrorTimeout, err)
	}

	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) ||
		errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return metrics.NewFetchError(metrics.ErrorNetworkUnreachable, err)
	}

	return metrics.NewFetchError(metrics.ErrorUnknown, err)
}
