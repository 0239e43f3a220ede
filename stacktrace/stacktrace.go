// Package stacktrace turns the frames of one debugger thread into a Sentry
// stack trace.
package stacktrace

import (
	"github.com/getsentry/sentry-go"
	"github.com/yext/glog"

	"github.com/yext/sentry-coredump/debugger"
)

// Build walks from newest to the outermost caller and describes every frame.
// Frames of the selected thread are read, so the thread owning newest must
// have focus in s.
func Build(s debugger.Session, newest debugger.Frame, includeVars bool) *sentry.Stacktrace {
	var frames []sentry.Frame
	for f := newest; f != nil; f = f.Older() {
		frame := DescribeFrame(s, f, includeVars)
		if glog.V(2) {
			glog.Infof("frame %d: %s at %s:%d", len(frames), frame.Function, frame.Filename, frame.Lineno)
		}
		frames = append(frames, frame)
	}
	// Reverse the stack trace to fit with Sentry's expectations.
	for i, j := 0, len(frames)-1; i < j; i, j = i+1, j-1 {
		frames[i], frames[j] = frames[j], frames[i]
	}

	return &sentry.Stacktrace{Frames: frames}
}
