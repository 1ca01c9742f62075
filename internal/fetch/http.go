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

package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/phuonguno98/unoprobe/internal/devices"
	"github.com/phuonguno98/unoprobe/pkg/metrics"
)

const (
	// DefaultMaxBodySize limits the size of one exposition response (16MB).
	DefaultMaxBodySize = 16 * 1024 * 1024

	acceptHeader = "text/plain;version=0.0.4;q=1,*/*;q=0.1"
)

// HTTPFetcher scrapes a device's metrics endpoint over HTTP.
type HTTPFetcher struct {
	client      *http.Client
	maxBodySize int64
	userAgent   string
}

// NewHTTPFetcher creates a fetcher whose requests are bounded by timeout.
func NewHTTPFetcher(timeout time.Duration, userAgent string) *HTTPFetcher {
	return &HTTPFetcher{
		client:      &http.Client{Timeout: timeout},
		maxBodySize: DefaultMaxBodySize,
		userAgent:   userAgent,
	}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, dev devices.Device) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, dev.URL, http.NoBody)
	if err != nil {
		return "", metrics.NewFetchError(metrics.ErrorUnknown, err)
	}
	req.Header.Set("Accept", acceptHeader)
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", Classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", metrics.NewServerError(resp.StatusCode)
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err == nil && !strings.HasPrefix(mediaType, "text/") {
			return "", metrics.NewFetchError(metrics.ErrorUnexpectedFormat,
				fmt.Errorf("content type %s is not text", mediaType))
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return "", Classify(err)
	}
	if int64(len(body)) > f.maxBodySize {
		return "", metrics.NewFetchError(metrics.ErrorUnexpectedFormat,
			fmt.Errorf("body exceeds %d bytes", f.maxBodySize))
	}
	if !utf8.Valid(body) {
		return "", metrics.NewFetchError(metrics.ErrorUnexpectedFormat,
			errors.New("body is not valid UTF-8 text"))
	}

	return string(body), nil
}
