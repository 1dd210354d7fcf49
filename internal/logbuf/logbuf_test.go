package logbuf

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDumpEmptyBufferReturnsPlaceholder(t *testing.T) {
	b := New(slog.NewTextHandler(discardWriter{}, nil), 0, 0)
	out := b.Dump(0)
	assert.Equal(t, "No logs captured yet.\n", string(out))
}

func TestHandleAppendsAndDumpRespectsN(t *testing.T) {
	b := New(slog.NewTextHandler(discardWriter{}, nil), 0, 0)
	logger := slog.New(b)

	logger.Info("first")
	logger.Info("second")
	logger.Info("third")

	full := string(b.Dump(0))
	assert.Contains(t, full, "first")
	assert.Contains(t, full, "third")

	tail := string(b.Dump(1))
	assert.NotContains(t, tail, "first")
	assert.Contains(t, tail, "third")
}

func TestAppendEvictsOldestWhenOverCapacity(t *testing.T) {
	b := New(slog.NewTextHandler(discardWriter{}, nil), 1<<20, 2)
	logger := slog.New(b)

	logger.Info("one")
	logger.Info("two")
	logger.Info("three")

	out := string(b.Dump(0))
	assert.NotContains(t, out, "one")
	assert.Contains(t, out, "two")
	assert.Contains(t, out, "three")
}

func TestHandleDelegatesToNextHandler(t *testing.T) {
	next := &countingHandler{}
	b := New(next, 0, 0)
	require.NoError(t, b.Handle(context.Background(), slog.Record{Message: "x"}))
	assert.Equal(t, 1, next.calls)
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

type countingHandler struct {
	calls int
}

func (c *countingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (c *countingHandler) Handle(context.Context, slog.Record) error {
	c.calls++
	return nil
}
func (c *countingHandler) WithAttrs([]slog.Attr) slog.Handler { return c }
func (c *countingHandler) WithGroup(string) slog.Handler      { return c }
