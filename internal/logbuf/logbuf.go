// Package logbuf implements the supplemental ring-buffer log capture from
// SPEC_FULL.md §12, grounded in original_source/server.py's
// _RingBufferHandler: a bounded-size, bounded-line-count tail of recent log
// lines exposed at GET /logs/download.
package logbuf

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
)

// Buffer is an slog.Handler wrapper that also appends formatted lines to a
// fixed-capacity ring buffer.
type Buffer struct {
	next slog.Handler

	mu       sync.Mutex
	lines    [][]byte
	byteSize int
	maxBytes int
	maxLines int
}

func New(next slog.Handler, maxBytes, maxLines int) *Buffer {
	if maxBytes <= 0 {
		maxBytes = 1 << 20
	}
	if maxLines <= 0 {
		maxLines = 10000
	}
	return &Buffer{next: next, maxBytes: maxBytes, maxLines: maxLines}
}

func (b *Buffer) Enabled(ctx context.Context, level slog.Level) bool {
	return b.next.Enabled(ctx, level)
}

func (b *Buffer) Handle(ctx context.Context, r slog.Record) error {
	line := formatRecord(r)
	b.append(line)
	return b.next.Handle(ctx, r)
}

func (b *Buffer) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Buffer{next: b.next.WithAttrs(attrs), maxBytes: b.maxBytes, maxLines: b.maxLines}
}

func (b *Buffer) WithGroup(name string) slog.Handler {
	return &Buffer{next: b.next.WithGroup(name), maxBytes: b.maxBytes, maxLines: b.maxLines}
}

func formatRecord(r slog.Record) []byte {
	var buf bytes.Buffer
	buf.WriteByte('[')
	buf.WriteString(r.Time.Format("2006-01-02T15:04:05"))
	buf.WriteString("] ")
	buf.WriteString(r.Level.String())
	buf.WriteByte(' ')
	buf.WriteString(r.Message)
	r.Attrs(func(a slog.Attr) bool {
		buf.WriteByte(' ')
		buf.WriteString(a.Key)
		buf.WriteByte('=')
		buf.WriteString(a.Value.String())
		return true
	})
	buf.WriteByte('\n')
	return buf.Bytes()
}

func (b *Buffer) append(line []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = append(b.lines, line)
	b.byteSize += len(line)
	for (b.byteSize > b.maxBytes || len(b.lines) > b.maxLines) && len(b.lines) > 0 {
		b.byteSize -= len(b.lines[0])
		b.lines = b.lines[1:]
	}
}

// Dump returns the last n lines, or everything if n <= 0.
func (b *Buffer) Dump(n int) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	lines := b.lines
	if n > 0 && n < len(lines) {
		lines = lines[len(lines)-n:]
	}
	var out bytes.Buffer
	for _, l := range lines {
		out.Write(l)
	}
	if out.Len() == 0 {
		return []byte("No logs captured yet.\n")
	}
	return out.Bytes()
}
