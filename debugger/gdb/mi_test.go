package gdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResultRecord(t *testing.T) {
	r, err := parseRecord(`^done,stack=[frame={level="0",addr="0x0000000000401136",func="crash",file="main.c",fullname="/src/myapp/main.c",line="4",arch="i386:x86-64"},frame={level="1",addr="0x00007f0012345678",func="??",from="/lib/x86_64-linux-gnu/libc.so.6"}]`)
	require.NoError(t, err)
	assert.Equal(t, byte(resultRecord), r.kind)
	assert.Equal(t, "done", r.class)

	frames := tuples(list(r.results, "stack"))
	require.Len(t, frames, 2)
	assert.Equal(t, "crash", str(frames[0], "func"))
	assert.Equal(t, "/src/myapp/main.c", str(frames[0], "fullname"))
	assert.Equal(t, "/lib/x86_64-linux-gnu/libc.so.6", str(frames[1], "from"))
}

func TestParseValueLists(t *testing.T) {
	r, err := parseRecord(`^done,register-names=["rax","rbx","",""],empty=[],tuple={}`)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"rax", "rbx", "", ""}, list(r.results, "register-names"))
	assert.Equal(t, []interface{}{}, list(r.results, "empty"))
	assert.Equal(t, map[string]interface{}{}, r.results["tuple"])
}

func TestParseTokenAndError(t *testing.T) {
	r, err := parseRecord(`12^error,msg="No symbol table is loaded.  Use the \"file\" command."`)
	require.NoError(t, err)
	assert.Equal(t, "error", r.class)
	assert.Equal(t, `No symbol table is loaded.  Use the "file" command.`, str(r.results, "msg"))
}

func TestParseStreams(t *testing.T) {
	r, err := parseRecord("~\"Core was generated by `./myapp'.\\n\"")
	require.NoError(t, err)
	assert.Equal(t, byte(consoleStream), r.kind)
	assert.Equal(t, "Core was generated by `./myapp'.\n", r.text)

	r, err = parseRecord(`&"\tbad\303\251\n"`)
	require.NoError(t, err)
	assert.Equal(t, "\tbadé\n", r.text)
}

func TestParseAsyncRecord(t *testing.T) {
	r, err := parseRecord(`=thread-group-added,id="i1"`)
	require.NoError(t, err)
	assert.Equal(t, byte(notifyRecord), r.kind)
	assert.Equal(t, "thread-group-added", r.class)
	assert.Equal(t, "i1", str(r.results, "id"))
}

func TestParseMalformed(t *testing.T) {
	for _, line := range []string{
		`^done,stack=[frame={level="0"`,
		`^done,value="unterminated`,
		`?what`,
		``,
	} {
		_, err := parseRecord(line)
		assert.Error(t, err, line)
	}
}

func TestIsPrompt(t *testing.T) {
	assert.True(t, isPrompt("(gdb) \n"))
	assert.False(t, isPrompt("^done\n"))
}

func TestQuote(t *testing.T) {
	assert.Equal(t, "/usr/bin/myapp", quote("/usr/bin/myapp"))
	assert.Equal(t, `"/tmp/my core"`, quote("/tmp/my core"))
	assert.Equal(t, `"a\"b\\c"`, quote(`a"b\c`))
	assert.Equal(t, `""`, quote(""))
}
