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
	"strconv"
	"strings"
)

// DefaultThreadsPerProcessor matches the exporter's two-hyperthread topology.
const DefaultThreadsPerProcessor = 2

// CoreIndexer maps "processor,thread" core labels to a linear display index.
// Hosts whose topology differs from ThreadsPerProcessor are misordered.
type CoreIndexer struct {
	threadsPerProcessor int
}

// NewCoreIndexer creates an indexer. Non-positive values fall back to the default.
func NewCoreIndexer(threadsPerProcessor int) CoreIndexer {
	if threadsPerProcessor <= 0 {
		threadsPerProcessor = DefaultThreadsPerProcessor
	}
	return CoreIndexer{threadsPerProcessor: threadsPerProcessor}
}

// Index returns thread + processor * threadsPerProcessor, or -1 if the label
// is not of the form "processor,thread".
func (c CoreIndexer) Index(coreLabel string) int {
	processor, thread, ok := parseCoreLabel(coreLabel)
	if !ok {
		return -1
	}
	return thread + processor*c.threadsPerProcessor
}

func parseCoreLabel(label string) (processor, thread int, ok bool) {
	p, t, found := strings.Cut(label, ",")
	if !found {
		return 0, 0, false
	}

	processor, err := strconv.Atoi(strings.TrimSpace(p))
	if err != nil || processor < 0 {
		return 0, 0, false
	}
	thread, err = strconv.Atoi(strings.TrimSpace(t))
	if err != nil || thread < 0 {
		return 0, 0, false
	}
	return processor, thread, true
}
