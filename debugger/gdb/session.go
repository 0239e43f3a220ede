// Package gdb implements debugger.Session on top of gdb's machine interface.
//
// A gdb child process is started per Session, the executable and core image
// are loaded into it, and every query is a GDB/MI command.
package gdb

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"syscall"

	"github.com/yext/glog"
	"golang.org/x/sys/unix"
	"golang.org/x/xerrors"

	"github.com/yext/sentry-coredump/debugger"
)

type Options struct {
	// GDB is the gdb binary to run; "gdb" when empty.
	GDB        string
	Executable string
	Core       string

	// OpaqueTypeResolutionOff disables "set opaque-type-resolution", which
	// can take minutes on large programs.
	OpaqueTypeResolutionOff bool
}

// Session is a gdb process with a core image loaded.
type Session struct {
	mi     commander
	solibs []solib

	// solibsLoaded is set after the first shared library listing, even if it failed.
	solibsLoaded bool
}

var _ debugger.Session = (*Session)(nil)

// Open starts gdb and loads the executable and core image.
func Open(opts Options) (*Session, error) {
	path := opts.GDB
	if path == "" {
		path = "gdb"
	}
	p, err := startProcess(path)
	if err != nil {
		return nil, err
	}
	s := &Session{mi: p}
	if err := s.load(opts); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Session) load(opts Options) error {
	if opts.OpaqueTypeResolutionOff {
		if _, err := s.mi.command("-gdb-set", "opaque-type-resolution", "off"); err != nil {
			return err
		}
	}
	if _, err := s.mi.command("-file-exec-and-symbols", opts.Executable); err != nil {
		return xerrors.Errorf("loading %s: %w", opts.Executable, err)
	}
	if _, err := s.mi.command("-target-select", "core", opts.Core); err != nil {
		return xerrors.Errorf("loading core %s: %w", opts.Core, err)
	}
	glog.V(1).Infof("loaded %s with core %s", opts.Executable, opts.Core)
	return nil
}

func (s *Session) Close() error {
	return s.mi.close()
}

type thread struct {
	num  int
	lwp  int
	name string
}

func (t *thread) Num() int     { return t.num }
func (t *thread) ID() int      { return t.lwp }
func (t *thread) Name() string { return t.name }

var lwpRe = regexp.MustCompile(`(?:LWP|process) (\d+)`)

func (s *Session) threadInfo() ([]*thread, string, error) {
	res, err := s.mi.command("-thread-info")
	if err != nil {
		return nil, "", err
	}
	var threads []*thread
	for _, t := range tuples(list(res, "threads")) {
		num, err := strconv.Atoi(str(t, "id"))
		if err != nil {
			return nil, "", xerrors.Errorf("thread id %q: %w", str(t, "id"), err)
		}
		th := &thread{num: num, lwp: num, name: str(t, "name")}
		if m := lwpRe.FindStringSubmatch(str(t, "target-id")); m != nil {
			th.lwp, _ = strconv.Atoi(m[1])
		}
		threads = append(threads, th)
	}
	return threads, str(res, "current-thread-id"), nil
}

func (s *Session) Threads() ([]debugger.Thread, error) {
	threads, _, err := s.threadInfo()
	if err != nil {
		return nil, err
	}
	r := make([]debugger.Thread, len(threads))
	for i, t := range threads {
		r[i] = t
	}
	return r, nil
}

func (s *Session) SelectedThread() (debugger.Thread, error) {
	threads, current, err := s.threadInfo()
	if err != nil {
		return nil, err
	}
	for _, t := range threads {
		if strconv.Itoa(t.num) == current {
			return t, nil
		}
	}
	return nil, xerrors.Errorf("no selected thread among %d threads", len(threads))
}

func (s *Session) SelectThread(t debugger.Thread) error {
	_, err := s.mi.command("-thread-select", strconv.Itoa(t.Num()))
	return err
}

func (s *Session) NewestFrame() (debugger.Frame, error) {
	res, err := s.mi.command("-stack-list-frames")
	if err != nil {
		return nil, err
	}
	threads, current, err := s.threadInfo()
	if err != nil {
		return nil, err
	}
	threadNum := 0
	for _, t := range threads {
		if strconv.Itoa(t.num) == current {
			threadNum = t.num
		}
	}

	var newest, prev *frame
	for _, t := range tuples(list(res, "stack")) {
		f := newFrame(s, threadNum, t)
		if prev == nil {
			newest = f
		} else {
			prev.older = f
		}
		prev = f
	}
	if newest == nil {
		return nil, xerrors.Errorf("thread %s has no frames", current)
	}
	return newest, nil
}

type solib struct {
	name     string
	from, to uint64
}

func (s *Session) SolibName(pc uint64) string {
	if !s.solibsLoaded {
		s.solibsLoaded = true
		libs, err := s.sharedLibraries()
		if err != nil {
			glog.Warningf("listing shared libraries: %v", err)
		}
		s.solibs = libs
	}
	for _, l := range s.solibs {
		if pc >= l.from && pc < l.to {
			return l.name
		}
	}
	return ""
}

func (s *Session) sharedLibraries() ([]solib, error) {
	res, err := s.mi.command("-file-list-shared-libraries")
	if err != nil {
		return nil, err
	}
	var libs []solib
	for _, l := range tuples(list(res, "shared-libraries")) {
		name := str(l, "host-name")
		if name == "" {
			name = str(l, "target-name")
		}
		ranges := tuples(list(l, "ranges"))
		// gdb before 10 reports a single range inline.
		if len(ranges) == 0 {
			ranges = []map[string]interface{}{l}
		}
		for _, r := range ranges {
			from, err1 := parseAddr(str(r, "from"))
			to, err2 := parseAddr(str(r, "to"))
			if err1 != nil || err2 != nil {
				continue
			}
			libs = append(libs, solib{name: name, from: from, to: to})
		}
	}
	return libs, nil
}

func (s *Session) ExitSignal() (string, bool, error) {
	res, err := s.mi.command("-data-evaluate-expression", "$_exitsignal")
	if err != nil {
		return "", false, err
	}
	return signalName(str(res, "value"))
}

// signalName turns the value of $_exitsignal into a signal name. gdb leaves
// the variable void when no signal was recorded.
func signalName(value string) (string, bool, error) {
	if value == "" || value == "void" {
		return "", false, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return "", false, xerrors.Errorf("unexpected $_exitsignal %q", value)
	}
	if name := unix.SignalName(syscall.Signal(n)); name != "" {
		return name, true, nil
	}
	return strconv.Itoa(n), true, nil
}

func (s *Session) SignalInfo() (string, error) {
	res, err := s.mi.command("-data-evaluate-expression", "$_siginfo")
	if err != nil {
		return "", err
	}
	return str(res, "value"), nil
}

func (s *Session) Registers() (string, error) {
	names, err := s.mi.command("-data-list-register-names")
	if err != nil {
		return "", err
	}
	values, err := s.mi.command("-data-list-register-values", "--skip-unavailable", "x")
	if err != nil {
		return "", err
	}
	return formatRegisters(list(names, "register-names"), tuples(list(values, "register-values"))), nil
}

// formatRegisters lays registers out like "info registers" does.
func formatRegisters(names []interface{}, values []map[string]interface{}) string {
	var b strings.Builder
	for _, v := range values {
		n, err := strconv.Atoi(str(v, "number"))
		if err != nil || n < 0 || n >= len(names) {
			continue
		}
		name, _ := names[n].(string)
		if name == "" {
			continue
		}
		fmt.Fprintf(&b, "%-15s %s\n", name, str(v, "value"))
	}
	return b.String()
}

func parseAddr(s string) (uint64, error) {
	return strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 64)
}
