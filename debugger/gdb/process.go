package gdb

import (
	"bufio"
	"io"
	"os/exec"
	"strings"

	"github.com/yext/glog"
	"github.com/yext/yerrors"
	"golang.org/x/xerrors"
)

// commander runs one MI command and returns its results.
type commander interface {
	command(op string, args ...string) (map[string]interface{}, error)
	close() error
}

// CommandError is a "^error" response from gdb.
type CommandError struct {
	Command string
	Msg     string
}

func (e *CommandError) Error() string {
	return e.Command + ": " + e.Msg
}

// process is a gdb child speaking GDB/MI on its standard streams.
type process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
}

func startProcess(path string) (*process, error) {
	cmd := exec.Command(path, "--interpreter=mi2", "--nx", "--quiet")
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, yerrors.Wrap(err)
	}
	p := &process{cmd: cmd, stdin: stdin, stdout: bufio.NewReader(stdout)}

	// Drain the banner notifications up to the first prompt.
	if _, _, err := p.read(); err != nil {
		p.kill()
		return nil, xerrors.Errorf("starting %s: %w", path, err)
	}
	return p, nil
}

func (p *process) command(op string, args ...string) (map[string]interface{}, error) {
	line := op
	for _, a := range args {
		line += " " + quote(a)
	}
	glog.V(2).Infof("gdb <- %s", line)
	if _, err := io.WriteString(p.stdin, line+"\n"); err != nil {
		return nil, yerrors.Wrap(err)
	}

	result, console, err := p.read()
	if err != nil {
		return nil, xerrors.Errorf("%s: %w", op, err)
	}
	if result == nil {
		return nil, yerrors.New(op + ": no result record")
	}
	if result.class == "error" {
		msg := str(result.results, "msg")
		if msg == "" {
			msg = strings.TrimSpace(console)
		}
		return nil, &CommandError{Command: op, Msg: msg}
	}
	return result.results, nil
}

// read consumes records up to the next prompt, returning the result record
// and any console output seen on the way.
func (p *process) read() (*record, string, error) {
	var (
		result  *record
		console strings.Builder
	)
	for {
		line, err := p.stdout.ReadString('\n')
		if err != nil {
			return nil, "", yerrors.Wrap(err)
		}
		if isPrompt(line) {
			return result, console.String(), nil
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		r, err := parseRecord(line)
		if err != nil {
			glog.Warningf("ignoring gdb output: %v", err)
			continue
		}
		switch r.kind {
		case resultRecord:
			result = r
		case consoleStream:
			console.WriteString(r.text)
		case logStream:
			glog.V(2).Infof("gdb: %s", strings.TrimSpace(r.text))
		default:
			glog.V(2).Infof("gdb %c%s", r.kind, r.class)
		}
	}
}

func (p *process) close() error {
	if _, err := io.WriteString(p.stdin, "-gdb-exit\n"); err != nil {
		p.kill()
		return nil
	}
	p.stdin.Close()
	io.Copy(io.Discard, p.stdout)
	return p.cmd.Wait()
}

func (p *process) kill() {
	if p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}
	p.cmd.Wait()
}
