// Command sentry-coredump reports a crashed process to Sentry. It is meant
// to be installed as the kernel's core dump handler:
//
//	kernel.core_pattern = |/usr/local/bin/sentry-coredump %E %p %P %i %I
//
// The core image is read from standard input, loaded into gdb together
// with the executable, and every thread's stack is sent to Sentry as one
// fatal event.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/kr/pretty"
	"github.com/yext/glog"
	"golang.org/x/xerrors"

	"github.com/yext/sentry-coredump/config"
	"github.com/yext/sentry-coredump/debugger"
	"github.com/yext/sentry-coredump/debugger/gdb"
	"github.com/yext/sentry-coredump/hook"
	"github.com/yext/sentry-coredump/raven"
	"github.com/yext/sentry-coredump/sentry"
	"github.com/yext/sentry-coredump/stacktrace"
)

var (
	configPath = flag.String("config", config.DefaultPath,
		"path of the YAML configuration file")
	corePath = flag.String("core", "",
		"read the core image from this file instead of standard input")
	gdbPath = flag.String("gdb", "gdb",
		"gdb binary used to load the core image")
	tmpDir = flag.String("tmpDir", "",
		"directory for the spooled core image (default: the system temp directory)")
	dryRun = flag.Bool("dryRun", false,
		"build and print the event without sending it to Sentry")
)

const usage = `usage: %s [flags] <executable> <pid> <global pid> <tid> <global tid>

Arguments match the core_pattern specifiers %%E %%p %%P %%i %%I.

`

// crash identifies the crashed process as reported by the kernel.
type crash struct {
	executable string
	pid        int
	globalPID  int
	tid        int
	globalTID  int
}

func parseArgs(args []string) (crash, error) {
	if len(args) != 5 {
		return crash{}, xerrors.Errorf("expected 5 arguments, got %d", len(args))
	}
	// %E escapes slashes in the path as '!'.
	c := crash{executable: strings.ReplaceAll(args[0], "!", "/")}
	for i, dst := range []*int{&c.pid, &c.globalPID, &c.tid, &c.globalTID} {
		n, err := strconv.Atoi(args[i+1])
		if err != nil {
			return crash{}, xerrors.Errorf("argument %d: %w", i+2, err)
		}
		*dst = n
	}
	return c, nil
}

type sender interface {
	Capture(ctx context.Context, ev *sentry.Event) error
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), usage, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	defer glog.Flush()

	if err := run(context.Background(), flag.Args(), os.Stdin, os.Stdout); err != nil {
		glog.Exitf("sentry-coredump: %v", err)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	c, err := parseArgs(args)
	if err != nil {
		flag.Usage()
		return err
	}
	glog.Infof("handling core of %s (pid %d/%d, tid %d/%d)",
		c.executable, c.pid, c.globalPID, c.tid, c.globalTID)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	pretty.Fprintf(stdout, "%# v\n", cfg.Redacted())

	extension, err := hook.Load(cfg.ExtensionScript)
	if err != nil {
		return err
	}
	client, err := raven.NewClient(cfg.Dsn)
	if err != nil {
		return err
	}

	core := *corePath
	if core == "" {
		if core, err = spoolCore(stdin, *tmpDir); err != nil {
			return err
		}
		defer os.Remove(core)
	}

	sess, err := gdb.Open(gdb.Options{
		GDB:                     *gdbPath,
		Executable:              c.executable,
		Core:                    core,
		OpaqueTypeResolutionOff: cfg.OpaqueTypeResolutionOff,
	})
	if err != nil {
		return xerrors.Errorf("opening core: %w", err)
	}
	defer sess.Close()

	var dst sender = client
	if *dryRun {
		dst = nil
	}
	return report(ctx, sess, c, core, cfg, extension, dst, stdout)
}

// report builds the event from sess, lets the extension amend it, prints it
// and hands it to dst. A nil dst only prints.
func report(ctx context.Context, sess debugger.Session, c crash, core string, cfg *config.Config,
	extension hook.Func, dst sender, stdout io.Writer) error {
	ev, err := sentry.FromCore(sess, sentry.Options{
		Executable:       c.executable,
		IncludeVariables: cfg.IncludeVariables,
	})
	if err != nil {
		return err
	}
	if checkCrashedThread(ev, c) {
		glog.V(1).Infof("crashed thread %d matches the kernel's tid", ev.Crashed().ID)
	}
	glog.Infof("%s, crashed in %s", ev.Message, stacktrace.SourceFromStack(ev.Stacktrace))

	extension.Apply(ev, c.executable, core)

	b, err := json.MarshalIndent(ev, "", "  ")
	if err != nil {
		return xerrors.Errorf("encoding event: %w", err)
	}
	fmt.Fprintf(stdout, "%s\n", b)

	if dst == nil {
		glog.Infof("dry run, event %s not sent", ev.EventID)
		return nil
	}
	if err := dst.Capture(ctx, ev); err != nil {
		return err
	}
	glog.Infof("sent event %s: %s", ev.EventID, ev.Message)
	return nil
}

// checkCrashedThread reports whether the thread gdb flagged as crashed is
// the one the kernel named, and warns when it is not.
func checkCrashedThread(ev *sentry.Event, c crash) bool {
	crashed := ev.Crashed()
	if crashed == nil {
		return false
	}
	if crashed.ID != c.tid && crashed.ID != c.globalTID {
		glog.Warningf("crashed thread %d does not match kernel tid %d/%d", crashed.ID, c.tid, c.globalTID)
		return false
	}
	return true
}
