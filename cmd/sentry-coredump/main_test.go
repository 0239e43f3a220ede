package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"github.com/yext/sentry-coredump/config"
	"github.com/yext/sentry-coredump/debugger"
	"github.com/yext/sentry-coredump/debugger/debuggertest"
	"github.com/yext/sentry-coredump/hook"
	"github.com/yext/sentry-coredump/sentry"
)

func TestParseArgs(t *testing.T) {
	c, err := parseArgs([]string{"!usr!bin!myapp", "12", "3412", "13", "3413"})
	require.NoError(t, err)
	assert.Equal(t, crash{executable: "/usr/bin/myapp", pid: 12, globalPID: 3412, tid: 13, globalTID: 3413}, c)

	_, err = parseArgs([]string{"!usr!bin!myapp", "12"})
	assert.Error(t, err)

	_, err = parseArgs([]string{"!usr!bin!myapp", "12", "x", "13", "3413"})
	assert.Error(t, err)
}

func TestSpoolCore(t *testing.T) {
	dir := t.TempDir()
	path, err := spoolCore(strings.NewReader("\x7fELF core image"), dir)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "\x7fELF core image", string(b))
}

func TestSpoolCoreReadError(t *testing.T) {
	dir := t.TempDir()
	_, err := spoolCore(iotest.ErrReader(xerrors.New("pipe closed")), dir)
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "partial core is removed")
}

type recorder struct {
	events []*sentry.Event
	err    error
}

func (r *recorder) Capture(_ context.Context, ev *sentry.Event) error {
	r.events = append(r.events, ev)
	return r.err
}

func coreSession() *debuggertest.Session {
	crashed := &debuggertest.Thread{Number: 1, LWP: 100}
	idle := &debuggertest.Thread{Number: 2, LWP: 101}
	return &debuggertest.Session{
		ThreadList: []*debuggertest.Thread{crashed, idle},
		Selected:   crashed,
		Frames: map[int][]*debuggertest.Frame{
			1: {
				{Addr: 0x401136, Func: debuggertest.Func("crash"), Source: &debugger.SAL{Filename: "main.c", Line: 4}},
				{Addr: 0x401150, Func: debuggertest.Func("main"), Source: &debugger.SAL{Filename: "main.c", Line: 9}},
			},
			2: {{Addr: 0x7f00000010a0}},
		},
		Regs: "rip 0x401136\n",
	}
}

func myapp() crash {
	return crash{executable: "/usr/bin/myapp", pid: 7, globalPID: 4007, tid: 100, globalTID: 4100}
}

func TestReport(t *testing.T) {
	var (
		out bytes.Buffer
		dst recorder
	)
	extension := hook.Func(func(ev *sentry.Event, executable, core string) {
		ev.Extra["core"] = core
		ev.Extra["executable"] = executable
	})

	err := report(context.Background(), coreSession(), myapp(), "/tmp/core-1", &config.Config{}, extension, &dst, &out)
	require.NoError(t, err)
	require.Len(t, dst.events, 1)

	ev := dst.events[0]
	assert.Equal(t, "Core from myapp", ev.Message)
	assert.Equal(t, "/tmp/core-1", ev.Extra["core"])
	assert.Equal(t, "/usr/bin/myapp", ev.Extra["executable"])

	var printed map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &printed), "the event is printed before sending")
	assert.Equal(t, ev.EventID, printed["event_id"])
	assert.Equal(t, "/tmp/core-1", printed["extra"].(map[string]interface{})["core"])
}

func TestReportDryRun(t *testing.T) {
	var out bytes.Buffer
	err := report(context.Background(), coreSession(), myapp(), "/tmp/core-1", &config.Config{}, nil, nil, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), `"message": "Core from myapp"`)
}

func TestReportDeliveryFailure(t *testing.T) {
	var out bytes.Buffer
	dst := recorder{err: xerrors.New("sentry responded 500 Internal Server Error")}

	err := report(context.Background(), coreSession(), myapp(), "/tmp/core-1", &config.Config{}, nil, &dst, &out)
	assert.Error(t, err)
	assert.Contains(t, out.String(), `"event_id"`, "the event is printed even if sending fails")
	assert.Len(t, dst.events, 1, "no retries")
}

func TestReportExtensionPanics(t *testing.T) {
	var (
		out bytes.Buffer
		dst recorder
	)
	extension := hook.Func(func(*sentry.Event, string, string) { panic("broken extension") })

	assert.Panics(t, func() {
		report(context.Background(), coreSession(), myapp(), "/tmp/core-1", &config.Config{}, extension, &dst, &out)
	})
	assert.Empty(t, dst.events)
}

func TestReportIncludeVariables(t *testing.T) {
	s := coreSession()
	s.Frames[1][0].Scope = &debuggertest.Block{
		IsFunction: true,
		Syms:       []debugger.Symbol{debuggertest.Var("buf", "0x0")},
	}
	var (
		out bytes.Buffer
		dst recorder
	)
	err := report(context.Background(), s, myapp(), "/tmp/core-1", &config.Config{IncludeVariables: true}, nil, &dst, &out)
	require.NoError(t, err)
	frames := dst.events[0].Stacktrace.Frames
	assert.Equal(t, map[string]interface{}{"buf": "0x0"}, frames[len(frames)-1].Vars)
}

func TestCheckCrashedThread(t *testing.T) {
	ev := &sentry.Event{Threads: sentry.Threads{Values: []sentry.Thread{{ID: 100, Crashed: true}}}}
	assert.True(t, checkCrashedThread(ev, crash{tid: 100, globalTID: 4100}))
	assert.True(t, checkCrashedThread(ev, crash{tid: 1, globalTID: 100}))
	assert.False(t, checkCrashedThread(ev, crash{tid: 1, globalTID: 2}))
	assert.False(t, checkCrashedThread(&sentry.Event{}, crash{}))
}
