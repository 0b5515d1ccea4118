// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"context"
	"log/slog"
	"sync"
)

// LogRecord is one captured log call.
type LogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// LogCapture collects records from a logger returned by CaptureLogs.
// Safe for concurrent use.
type LogCapture struct {
	mu      sync.Mutex
	records []LogRecord
}

// CaptureLogs returns a debug-level logger that records every call
// into the returned LogCapture.
func CaptureLogs() (*slog.Logger, *LogCapture) {
	capture := &LogCapture{}
	return slog.New(&captureHandler{capture: capture}), capture
}

// Records returns a copy of everything logged so far.
func (c *LogCapture) Records() []LogRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]LogRecord(nil), c.records...)
}

// AtLevel returns the records logged at exactly level.
func (c *LogCapture) AtLevel(level slog.Level) []LogRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	var matched []LogRecord
	for _, record := range c.records {
		if record.Level == level {
			matched = append(matched, record)
		}
	}
	return matched
}

// Count returns how many records were logged at exactly level.
func (c *LogCapture) Count(level slog.Level) int {
	return len(c.AtLevel(level))
}

// Reset discards everything captured so far.
func (c *LogCapture) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = nil
}

type captureHandler struct {
	capture *LogCapture
	attrs   []slog.Attr
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, record slog.Record) error {
	attrs := make(map[string]any, len(h.attrs)+record.NumAttrs())
	for _, attr := range h.attrs {
		attrs[attr.Key] = attr.Value.Resolve().Any()
	}
	record.Attrs(func(attr slog.Attr) bool {
		attrs[attr.Key] = attr.Value.Resolve().Any()
		return true
	})

	h.capture.mu.Lock()
	defer h.capture.mu.Unlock()
	h.capture.records = append(h.capture.records, LogRecord{
		Level:   record.Level,
		Message: record.Message,
		Attrs:   attrs,
	})
	return nil
}

func (h *captureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	combined := append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &captureHandler{capture: h.capture, attrs: combined}
}

// Groups are flattened; tests match on keys only.
func (h *captureHandler) WithGroup(string) slog.Handler { return h }
