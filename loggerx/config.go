package loggerx

import (
	"io"
	"log/slog"
	"strings"

	"github.com/clinia/flagx/stringsx"
	slogctx "github.com/veqryn/slog-context"
)

const (
	FormatJSON = "json"
	FormatText = "text"
)

type Config struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// New builds a Logger writing to w. Attributes stored in the context with
// slogctx.Prepend or slogctx.Append are added to every record.
func New(c Config, w io.Writer) (*Logger, error) {
	var level slog.Level
	if c.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToUpper(c.Level))); err != nil {
			return nil, err
		}
	}

	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch f := stringsx.SwitchExact(c.Format); {
	case f.AddCase(FormatJSON), f.AddCase(""):
		h = slog.NewJSONHandler(w, opts)
	case f.AddCase(FormatText):
		h = slog.NewTextHandler(w, opts)
	default:
		return nil, f.ToUnknownCaseErr()
	}

	return &Logger{slog.New(slogctx.NewHandler(h, nil))}, nil
}

// NewDefault is the logger used before the configuration is loaded.
func NewDefault(w io.Writer) *Logger {
	l, _ := New(Config{}, w)
	return l
}
