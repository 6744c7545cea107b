package loggerxtest

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"

	"github.com/clinia/flagx/loggerx"
)

func NewTestLogger(t testing.TB) *loggerx.Logger {
	t.Helper()
	return &loggerx.Logger{Logger: slog.New(slog.DiscardHandler)}
}

func NewTestLoggerWithJSONBuffer(t testing.TB) (*loggerx.Logger, *bytes.Buffer) {
	t.Helper()
	buf := new(bytes.Buffer)
	return &loggerx.Logger{Logger: slog.New(slog.NewJSONHandler(buf, nil))}, buf
}

// Buffer collects log output written from several goroutines, such as a
// provider's background loops.
type Buffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// NewTestLoggerWithBuffer returns a debug JSON logger writing to a Buffer
// that is safe to read while the logger is in use.
func NewTestLoggerWithBuffer(t testing.TB) (*loggerx.Logger, *Buffer) {
	t.Helper()
	buf := &Buffer{}
	h := slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return &loggerx.Logger{Logger: slog.New(h)}, buf
}
