package logger

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Trigger logging is a side channel for --log-triggers: every scheduler fire is
// appended to a dedicated writer in addition to the normal log stream.

var (
	triggerMu      sync.Mutex
	triggerWriter  io.Writer
	triggerEnabled bool
)

func SetTriggerWriter(w io.Writer) {
	triggerMu.Lock()
	triggerWriter = w
	triggerMu.Unlock()
}

func EnableTriggerLog(on bool) {
	triggerMu.Lock()
	triggerEnabled = on
	triggerMu.Unlock()
}

// Triggerf records one scheduler trigger event. No-op unless enabled.
func Triggerf(format string, v ...any) {
	triggerMu.Lock()
	enabled := triggerEnabled
	w := triggerWriter
	triggerMu.Unlock()
	if !enabled {
		return
	}
	line := fmt.Sprintf(format, v...)
	Infof("[trigger] %s", line)
	if w == nil {
		return
	}
	triggerMu.Lock()
	fmt.Fprintf(w, "%s %s\n", time.Now().UTC().Format(time.RFC3339Nano), line)
	triggerMu.Unlock()
}
