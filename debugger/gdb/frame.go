package gdb

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/xerrors"

	"github.com/yext/sentry-coredump/debugger"
)

type frame struct {
	s      *Session
	thread int
	level  string
	pc     uint64
	fn     string
	file   string
	line   int
	older  *frame
}

func newFrame(s *Session, thread int, t map[string]interface{}) *frame {
	f := &frame{s: s, thread: thread, level: str(t, "level"), fn: str(t, "func")}
	f.pc, _ = parseAddr(str(t, "addr"))
	f.file = str(t, "fullname")
	if f.file == "" {
		f.file = str(t, "file")
	}
	f.line, _ = strconv.Atoi(str(t, "line"))
	return f
}

func (f *frame) PC() uint64 { return f.pc }

func (f *frame) Older() debugger.Frame {
	if f.older == nil {
		return nil
	}
	return f.older
}

// Function returns a symbol only for frames gdb could map to source, which
// is when it has debug information for the function.
func (f *frame) Function() debugger.Symbol {
	if f.file == "" || f.Name() == "" {
		return nil
	}
	return &symbol{name: f.fn}
}

func (f *frame) Name() string {
	if f.fn == "??" {
		return ""
	}
	return f.fn
}

func (f *frame) SAL() (debugger.SAL, bool) {
	if f.file == "" {
		return debugger.SAL{}, false
	}
	return debugger.SAL{Filename: f.file, Line: f.line}, true
}

// Block lists the frame's variables. gdb reports locals innermost block
// first, then arguments; locals form the inner block and arguments the
// function block.
func (f *frame) Block() (debugger.Block, error) {
	res, err := f.s.mi.command("-stack-list-variables",
		"--thread", strconv.Itoa(f.thread), "--frame", f.level, "--all-values")
	if err != nil {
		return nil, err
	}
	return buildBlocks(tuples(list(res, "variables"))), nil
}

func buildBlocks(vars []map[string]interface{}) debugger.Block {
	locals := &block{}
	args := &block{function: true}
	locals.super = args
	for _, v := range vars {
		sym := &symbol{name: str(v, "name"), value: str(v, "value")}
		if str(v, "arg") == "1" {
			sym.argument = true
			args.symbols = append(args.symbols, sym)
		} else {
			sym.variable = true
			locals.symbols = append(locals.symbols, sym)
		}
	}
	return locals
}

type block struct {
	symbols  []debugger.Symbol
	function bool
	super    *block
}

func (b *block) Symbols() []debugger.Symbol { return b.symbols }
func (b *block) Function() bool             { return b.function }

func (b *block) Superblock() debugger.Block {
	if b.super == nil {
		return nil
	}
	return b.super
}

type symbol struct {
	name     string
	value    string
	variable bool
	argument bool
}

func (s *symbol) Name() string     { return s.name }
func (s *symbol) IsVariable() bool { return s.variable }
func (s *symbol) IsArgument() bool { return s.argument }

var memoryErrorRe = regexp.MustCompile(`Cannot access memory at address (0x[0-9a-fA-F]+)`)

// Value returns the rendered value, turning gdb's "<error: ...>" markers
// into errors.
func (s *symbol) Value() (string, error) {
	if !strings.HasPrefix(s.value, "<error: ") || !strings.HasSuffix(s.value, ">") {
		return s.value, nil
	}
	msg := strings.TrimSuffix(strings.TrimPrefix(s.value, "<error: "), ">")
	if m := memoryErrorRe.FindStringSubmatch(msg); m != nil {
		addr, _ := parseAddr(m[1])
		return "", &debugger.MemoryError{Addr: addr, Message: msg}
	}
	return "", xerrors.New(msg)
}
