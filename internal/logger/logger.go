// Package logger is the process-wide logging facade. It keeps one slog text
// logger behind printf-style wrappers so call sites stay terse, and lets main
// redirect all output (stdout plus log file) with a single SetOutput call.
// Trigger events additionally go to their own stream, see trigger.go.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"log/slog"
)

var (
	level slog.LevelVar
	base  atomic.Pointer[slog.Logger]
)

func init() {
	base.Store(build(os.Stdout))
}

func build(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: &level}))
}

// SetOutput replaces the destination for all subsequent log lines.
func SetOutput(w io.Writer) {
	base.Store(build(w))
}

// SetLevel sets the threshold by name: debug, info, warn, error. Unknown
// names fall back to info.
func SetLevel(name string) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		level.Set(slog.LevelDebug)
	case "warn", "warning":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	default:
		level.Set(slog.LevelInfo)
	}
}

func Debugf(format string, v ...any) {
	base.Load().Debug(fmt.Sprintf(format, v...))
}

func Infof(format string, v ...any) {
	base.Load().Info(fmt.Sprintf(format, v...))
}

func Warnf(format string, v ...any) {
	base.Load().Warn(fmt.Sprintf(format, v...))
}

func Errorf(format string, v ...any) {
	base.Load().Error(fmt.Sprintf(format, v...))
}
