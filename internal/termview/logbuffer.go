package termview

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// LogEntry is a single captured log record with just enough metadata
// to render a line in the log pane.
type LogEntry struct {
	Time    time.Time
	Level   slog.Level
	Message string
}

// LogBuffer is a thread-safe fixed-capacity ring buffer of LogEntry,
// fed by a slog.Handler and drained by the view's render loop.
type LogBuffer struct {
	entries []LogEntry
	size    int
	index   int
	count   int
	mu      sync.RWMutex
}

// NewLogBuffer returns a buffer holding up to size entries.
func NewLogBuffer(size int) *LogBuffer {
	return &LogBuffer{entries: make([]LogEntry, size), size: size}
}

func (b *LogBuffer) add(e LogEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[b.index] = e
	b.index = (b.index + 1) % b.size
	if b.count < b.size {
		b.count++
	}
}

// GetRecent returns up to maxCount entries, most recent first.
func (b *LogBuffer) GetRecent(maxCount int) []LogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.count == 0 {
		return nil
	}
	count := b.count
	if maxCount > 0 && maxCount < count {
		count = maxCount
	}
	out := make([]LogEntry, count)
	for i := 0; i < count; i++ {
		idx := (b.index - 1 - i + b.size) % b.size
		out[i] = b.entries[idx]
	}
	return out
}

// bufferHandler is a slog.Handler that appends every record to a
// LogBuffer instead of (or in addition to) writing it out — the debug
// view's log pane is the only consumer of handled records.
type bufferHandler struct {
	buffer *LogBuffer
	level  slog.Level
}

// NewHandler returns a slog.Handler that feeds buffer.
func NewHandler(buffer *LogBuffer, level slog.Level) slog.Handler {
	return &bufferHandler{buffer: buffer, level: level}
}

func (h *bufferHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *bufferHandler) Handle(_ context.Context, record slog.Record) error {
	msg := record.Message
	record.Attrs(func(a slog.Attr) bool {
		msg += fmt.Sprintf(" %s=%v", a.Key, a.Value)
		return true
	})
	h.buffer.add(LogEntry{Time: record.Time, Level: record.Level, Message: msg})
	return nil
}

func (h *bufferHandler) WithAttrs(attrs []slog.Attr) slog.Handler { return h }
func (h *bufferHandler) WithGroup(name string) slog.Handler       { return h }

// formatEntry renders a LogEntry as a single display line.
func formatEntry(e LogEntry) string {
	level := "???"
	switch e.Level {
	case slog.LevelDebug:
		level = "DBG"
	case slog.LevelInfo:
		level = "INF"
	case slog.LevelWarn:
		level = "WRN"
	case slog.LevelError:
		level = "ERR"
	}
	return fmt.Sprintf("%s [%s] %s", e.Time.Format("15:04:05"), level, e.Message)
}
