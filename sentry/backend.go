// The Sentry package builds a Sentry event out of a core dump loaded in a
// debugger. Every thread of the crashed process is walked and converted
// to a Sentry thread with its stack trace; the thread that caused the crash
// is flagged and its stack is also used as the event's top-level stack
// trace. Registers and the terminating signal are attached as extra data.
package sentry

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/yext/glog"
	"golang.org/x/xerrors"

	"github.com/yext/sentry-coredump/debugger"
)

// Options control how FromCore builds an event.
type Options struct {
	// Executable is the path of the crashed program.
	Executable string

	// IncludeVariables adds the locals and arguments of every frame.
	IncludeVariables bool
}

// FromCore builds an event from the core image loaded in s.
//
// The thread selected when FromCore is called must be the one that crashed,
// which is the debugger's state right after loading a core. Signal details
// and registers are read while that thread has focus, before the other
// threads are visited.
func FromCore(s debugger.Session, opts Options) (*Event, error) {
	crashing, err := s.SelectedThread()
	if err != nil {
		return nil, xerrors.Errorf("finding crashed thread: %w", err)
	}
	if err := s.SelectThread(crashing); err != nil {
		return nil, xerrors.Errorf("selecting crashed thread: %w", err)
	}

	exitSignal, hasSignal, err := s.ExitSignal()
	if err != nil {
		return nil, xerrors.Errorf("reading exit signal: %w", err)
	}
	var signalInfo interface{}
	if hasSignal {
		if info, err := s.SignalInfo(); err != nil {
			glog.Warningf("no signal info for %s: %v", exitSignal, err)
		} else {
			signalInfo = info
		}
	}

	registers, err := s.Registers()
	if err != nil {
		return nil, xerrors.Errorf("reading registers: %w", err)
	}

	threads, err := s.Threads()
	if err != nil {
		return nil, xerrors.Errorf("listing threads: %w", err)
	}
	collected, err := CollectThreads(s, threads, crashing, opts.IncludeVariables)
	if err != nil {
		return nil, err
	}

	e := &Event{
		EventID:    newEventID(),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Message:    buildMessage(filepath.Base(opts.Executable), exitSignal, hasSignal),
		Platform:   Platform,
		Sdk:        sentry.SdkInfo{Name: SdkName, Version: SdkVersion},
		Level:      sentry.LevelFatal,
		ServerName: hostname,
		Contexts:   map[string]interface{}{"os": HostOS()},
		Extra:      map[string]interface{}{"registers": registers},
		Threads:    Threads{Values: collected},
	}
	if hasSignal {
		e.Extra["exitsignal"] = exitSignal
		e.Extra["signalinfo"] = signalInfo
	}

	crashed := e.Crashed()
	if crashed == nil {
		return nil, xerrors.Errorf("crashed thread %d is not among the %d threads", crashing.Num(), len(threads))
	}
	// Duplicated on purpose, see Event.Stacktrace.
	e.Stacktrace = crashed.Stacktrace

	return e, nil
}

func buildMessage(executable, signal string, hasSignal bool) string {
	if hasSignal {
		return fmt.Sprintf("Signal %s in %s", signal, executable)
	}
	return "Core from " + executable
}

func newEventID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}
