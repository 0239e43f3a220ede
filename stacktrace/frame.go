package stacktrace

import (
	"fmt"

	"github.com/getsentry/sentry-go"

	"github.com/yext/sentry-coredump/debugger"
)

// Unknown stands in for a source file or function name the debugger could
// not resolve.
const Unknown = "unknown"

// DescribeFrame converts a debugger frame into a Sentry frame. It never
// fails: missing symbolic information is reported with Unknown or by
// leaving the optional fields empty.
func DescribeFrame(s debugger.Session, f debugger.Frame, includeVars bool) sentry.Frame {
	pc := f.PC()
	frame := sentry.Frame{
		Filename:        Unknown,
		Function:        functionName(f),
		Package:         s.SolibName(pc),
		InstructionAddr: FormatAddress(pc),
	}

	if sal, ok := f.SAL(); ok && sal.Filename != "" {
		frame.Filename = sal.Filename
		if sal.Line > 0 {
			frame.Lineno = sal.Line
		}
	}

	if includeVars {
		if vars := Variables(f); len(vars) > 0 {
			frame.Vars = make(map[string]interface{}, len(vars))
			for k, v := range vars {
				frame.Vars[k] = v
			}
		}
	}
	return frame
}

// FormatAddress renders pc the way Sentry expects instruction addresses.
func FormatAddress(pc uint64) string {
	return fmt.Sprintf("0x%016x", pc)
}

func functionName(f debugger.Frame) string {
	if fn := f.Function(); fn != nil && fn.Name() != "" {
		return fn.Name()
	}
	if name := f.Name(); name != "" {
		return name
	}
	return Unknown
}
