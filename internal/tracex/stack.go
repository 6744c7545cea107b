package internaltracex

import (
	"fmt"
	"runtime"
	"strings"
)

const (
	maxFrames     = 16
	maxStackBytes = 2048
)

// GetStackTrace formats the goroutine stack, skipping the first skip frames
// (runtime.Callers counts as frame 0, GetStackTrace as frame 1). Runtime
// frames are left out and the output is capped at maxStackBytes.
func GetStackTrace(skip int) string {
	pc := make([]uintptr, maxFrames)
	n := runtime.Callers(skip, pc)
	frames := runtime.CallersFrames(pc[:n])

	var b strings.Builder
	for {
		frame, more := frames.Next()
		if !strings.HasPrefix(frame.Function, "runtime.") {
			fmt.Fprintf(&b, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		}
		if !more || b.Len() > maxStackBytes {
			break
		}
	}
	return b.String()
}
