// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Default sizes for Buffer.
const (
	DefaultBufferSize   = 500
	DefaultSnapshotSize = 200
)

// Buffer is a bounded, concurrency-safe ring of formatted log lines. When
// full, the oldest line is dropped.
type Buffer struct {
	mu    sync.Mutex
	lines []string
	start int
	count int
}

// NewBuffer creates a Buffer holding at most size lines. A size <= 0 uses
// DefaultBufferSize.
func NewBuffer(size int) *Buffer {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Buffer{lines: make([]string, size)}
}

// Add appends a line, evicting the oldest one when the buffer is full.
func (b *Buffer) Add(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count < len(b.lines) {
		b.lines[(b.start+b.count)%len(b.lines)] = line
		b.count++
		return
	}
	b.lines[b.start] = line
	b.start = (b.start + 1) % len(b.lines)
}

// Snapshot returns up to lastN of the most recent lines, oldest first.
// A lastN <= 0 uses DefaultSnapshotSize.
func (b *Buffer) Snapshot(lastN int) []string {
	if lastN <= 0 {
		lastN = DefaultSnapshotSize
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	n := min(lastN, b.count)
	out := make([]string, n)
	first := b.start + b.count - n
	for i := 0; i < n; i++ {
		out[i] = b.lines[(first+i)%len(b.lines)]
	}
	return out
}

// Len returns the number of buffered lines.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// BufferHandler is an slog.Handler that formats records as
// "[LEVEL] [correlation] message" and appends them to a Buffer. Records
// without a correlation id use "-".
type BufferHandler struct {
	buf   *Buffer
	level slog.Leveler
	attrs []slog.Attr
}

// NewBufferHandler creates a handler writing to buf at or above level.
func NewBufferHandler(buf *Buffer, level slog.Leveler) *BufferHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &BufferHandler{buf: buf, level: level}
}

// Enabled implements slog.Handler.
func (h *BufferHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *BufferHandler) Handle(_ context.Context, r slog.Record) error {
	correlation := "-"
	for _, a := range h.attrs {
		if a.Key == CorrelationIDKey {
			correlation = a.Value.String()
		}
	}
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == CorrelationIDKey {
			correlation = a.Value.String()
			return false
		}
		return true
	})

	h.buf.Add(fmt.Sprintf("[%s] [%s] %s", levelLabel(r.Level), correlation, r.Message))
	return nil
}

// WithAttrs implements slog.Handler.
func (h *BufferHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &BufferHandler{buf: h.buf, level: h.level, attrs: merged}
}

// WithGroup implements slog.Handler. Groups do not affect the line format.
func (h *BufferHandler) WithGroup(string) slog.Handler {
	return h
}

func levelLabel(level slog.Level) string {
	if level <= LevelTrace {
		return "TRACE"
	}
	return strings.ToUpper(level.String())
}
