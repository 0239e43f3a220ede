package stacktrace

import (
	"fmt"

	"github.com/getsentry/sentry-go"
)

// SourceFromStack describes the innermost frame of s as
// "function (file:line)", or "function (file)" when the line is unknown.
func SourceFromStack(s *sentry.Stacktrace) string {
	if s == nil || len(s.Frames) == 0 {
		return ""
	}

	f := s.Frames[len(s.Frames)-1]
	if f.Lineno > 0 {
		return fmt.Sprintf("%s (%s:%d)", f.Function, f.Filename, f.Lineno)
	}
	return fmt.Sprintf("%s (%s)", f.Function, f.Filename)
}
