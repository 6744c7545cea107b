package loggerx

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// PrintLogger exposes a Logger through the Println/Printf interface expected
// by third-party clients. Every line is logged at a fixed level.
type PrintLogger struct {
	l     *Logger
	level slog.Level
}

func (l *Logger) AtLevel(level slog.Level) *PrintLogger {
	return &PrintLogger{l: l, level: level}
}

func (p *PrintLogger) Println(values ...interface{}) {
	p.l.Logger.Log(context.Background(), p.level, strings.TrimSuffix(fmt.Sprintln(values...), "\n"))
}

func (p *PrintLogger) Printf(format string, values ...interface{}) {
	p.l.Logger.Log(context.Background(), p.level, fmt.Sprintf(format, values...))
}
