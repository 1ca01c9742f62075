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

package exposition

import (
	"iter"
	"math"
	"strconv"
	"strings"

	promModel "github.com/prometheus/common/model"
)

// MetricSample is one recognized line of an exposition body.
type MetricSample struct {
	Name   string
	Family Family
	Labels promModel.LabelSet
	Value  float64
}

// Label returns the value of a label, or "" if it is absent.
func (s MetricSample) Label(name string) string {
	return string(s.Labels[promModel.LabelName(name)])
}

// Parse returns the recognized samples of body in line order.
// Comments, blank lines, unknown families and malformed lines are skipped.
// A recognized line whose value cannot be parsed yields a value of 0.
func Parse(body string) iter.Seq[MetricSample] {
	return func(yield func(MetricSample) bool) {
		rest := body
		for len(rest) > 0 {
			var line string
			if i := strings.IndexByte(rest, '\n'); i >= 0 {
				line, rest = rest[:i], rest[i+1:]
			} else {
				line, rest = rest, ""
			}

			sample, ok := ParseLine(line)
			if !ok {
				continue
			}
			if !yield(sample) {
				return
			}
		}
	}
}

// ParseAll collects every recognized sample of body.
func ParseAll(body string) []MetricSample {
	var out []MetricSample
	for s := range Parse(body) {
		out = append(out, s)
	}
	return out
}

// ParseLine parses a single exposition line.
// The boolean is false for comments, unknown families and malformed lines.
func ParseLine(line string) (MetricSample, bool) {
	line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
	if line == "" || line[0] == '#' {
		return MetricSample{}, false
	}

	nameEnd := strings.IndexAny(line, "{ \t")
	if nameEnd < 0 {
		nameEnd = len(line)
	}
	name := line[:nameEnd]
	if !validMetricName(name) {
		return MetricSample{}, false
	}

	family, ok := MatchFamily(name)
	if !ok {
		return MetricSample{}, false
	}

	rest := line[nameEnd:]
	labels := promModel.LabelSet{}
	if strings.HasPrefix(rest, "{") {
		var consumed int
		labels, consumed, ok = parseLabels(rest[1:])
		if !ok {
			return MetricSample{}, false
		}
		rest = rest[1+consumed:]
	}

	return MetricSample{
		Name:   name,
		Family: family,
		Labels: labels,
		Value:  parseValue(rest),
	}, true
}

// parseLabels parses `k="v",...}` and returns the labels and the number of
// bytes consumed including the closing brace.
func parseLabels(s string) (promModel.LabelSet, int, bool) {
	labels := promModel.LabelSet{}
	i := 0
	for {
		for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == ',') {
			i++
		}
		if i >= len(s) {
			return nil, 0, false
		}
		if s[i] == '}' {
			return labels, i + 1, true
		}

		eq := strings.IndexByte(s[i:], '=')
		if eq < 0 {
			return nil, 0, false
		}
		key := strings.TrimSpace(s[i : i+eq])
		if !promModel.LabelName(key).IsValid() {
			return nil, 0, false
		}
		i += eq + 1
		for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
			i++
		}
		if i >= len(s) || s[i] != '"' {
			return nil, 0, false
		}
		i++

		var value strings.Builder
		closed := false
		for i < len(s) {
			c := s[i]
			if c == '\\' && i+1 < len(s) {
				switch s[i+1] {
				case 'n':
					value.WriteByte('\n')
				default:
					value.WriteByte(s[i+1])
				}
				i += 2
				continue
			}
			if c == '"' {
				closed = true
				i++
				break
			}
			value.WriteByte(c)
			i++
		}
		if !closed {
			return nil, 0, false
		}

		labels[promModel.LabelName(key)] = promModel.LabelValue(value.String())
	}
}

// parseValue parses the first field after the labels. Trailing timestamps are
// ignored; unparsable values degrade to 0.
func parseValue(s string) float64 {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func validMetricName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || r == ':':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
