package logger

import (
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

// callerHook rewrites the caller recorded by logrus so log lines point at
// the frame that actually emitted them instead of this wrapper package.
type callerHook struct{}

func (h *callerHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire walks the stack past runtime.Callers, logrus internals and the
// bricsflow logger wrappers, and pins the first remaining frame.
func (h *callerHook) Fire(entry *logrus.Entry) error {
	pcs := make([]uintptr, 16)
	n := runtime.Callers(6, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !more {
			break
		}
		if isLoggingFrame(frame.Function) {
			continue
		}
		entry.Caller = &frame
		break
	}
	return nil
}

func isLoggingFrame(fn string) bool {
	return strings.Contains(fn, "sirupsen/logrus") || strings.Contains(fn, "bricsflow/logger")
}
