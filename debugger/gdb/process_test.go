package gdb

import (
	"bufio"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"
)

type written struct {
	bytes.Buffer
}

func (w *written) Close() error { return nil }

// transcript is gdb's standard output for the commands sent in
// TestProcessCommand, starting with the start-up banner.
const transcript = `=thread-group-added,id="i1"
~"Reading symbols from myapp...\n"
(gdb)
warning: core file may not match specified executable file.
^done,value="42"
(gdb)
~"No symbol \"y\" in current context.\n"
^error
(gdb)
=breakpoint-modified,bkpt={number="1"}
(gdb)
`

func pipedProcess(t *testing.T, output string) (*process, *written) {
	r, w := io.Pipe()
	go func() {
		io.WriteString(w, output)
		w.Close()
	}()
	t.Cleanup(func() { r.Close() })

	stdin := &written{}
	return &process{stdin: stdin, stdout: bufio.NewReader(r)}, stdin
}

func TestProcessCommand(t *testing.T) {
	p, stdin := pipedProcess(t, transcript)

	result, console, err := p.read()
	require.NoError(t, err, "banner")
	assert.Nil(t, result)
	assert.Equal(t, "Reading symbols from myapp...\n", console)

	res, err := p.command("-data-evaluate-expression", "x")
	require.NoError(t, err)
	assert.Equal(t, "42", str(res, "value"), "unparsable lines are skipped")

	_, err = p.command("-data-evaluate-expression", "y")
	var cmdErr *CommandError
	require.True(t, xerrors.As(err, &cmdErr), "%v", err)
	assert.Equal(t, "-data-evaluate-expression", cmdErr.Command)
	assert.Equal(t, `No symbol "y" in current context.`, cmdErr.Msg)

	_, err = p.command("-break-info")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no result record")

	_, err = p.command("-thread-info")
	assert.Error(t, err, "gdb went away")

	assert.Equal(t, "-data-evaluate-expression x\n"+
		"-data-evaluate-expression y\n"+
		"-break-info\n"+
		"-thread-info\n", stdin.String())
}

func TestProcessCommandErrorMessage(t *testing.T) {
	p, _ := pipedProcess(t, "^error,msg=\"No executable file specified.\"\n(gdb)\n")

	_, err := p.command("-exec-run")
	var cmdErr *CommandError
	require.True(t, xerrors.As(err, &cmdErr), "%v", err)
	assert.Equal(t, "No executable file specified.", cmdErr.Msg)
	assert.Equal(t, "-exec-run: No executable file specified.", err.Error())
}
