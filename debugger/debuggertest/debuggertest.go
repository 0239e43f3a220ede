// Package debuggertest provides an in-memory debugger.Session for tests.
package debuggertest

import (
	"golang.org/x/xerrors"

	"github.com/yext/sentry-coredump/debugger"
)

// Session is a scripted debugger.Session. Frames are keyed by thread number
// and listed innermost first.
type Session struct {
	ThreadList []*Thread
	Selected   *Thread
	Frames     map[int][]*Frame
	Solibs     map[uint64]string
	Signal     string
	SigInfo    string
	SigInfoErr error
	Regs       string

	// Selections records every SelectThread call, in order.
	Selections []int
	Closed     bool
}

func (s *Session) Threads() ([]debugger.Thread, error) {
	r := make([]debugger.Thread, len(s.ThreadList))
	for i, t := range s.ThreadList {
		r[i] = t
	}
	return r, nil
}

func (s *Session) SelectedThread() (debugger.Thread, error) {
	if s.Selected == nil {
		return nil, xerrors.New("no thread selected")
	}
	return s.Selected, nil
}

func (s *Session) SelectThread(t debugger.Thread) error {
	for _, candidate := range s.ThreadList {
		if candidate.Num() == t.Num() {
			s.Selected = candidate
			s.Selections = append(s.Selections, t.Num())
			return nil
		}
	}
	return xerrors.Errorf("unknown thread %d", t.Num())
}

func (s *Session) NewestFrame() (debugger.Frame, error) {
	if s.Selected == nil {
		return nil, xerrors.New("no thread selected")
	}
	frames := s.Frames[s.Selected.Number]
	if len(frames) == 0 {
		return nil, xerrors.Errorf("thread %d has no frames", s.Selected.Number)
	}
	for i := 0; i < len(frames)-1; i++ {
		frames[i].older = frames[i+1]
	}
	frames[len(frames)-1].older = nil
	return frames[0], nil
}

func (s *Session) SolibName(pc uint64) string {
	return s.Solibs[pc]
}

func (s *Session) ExitSignal() (string, bool, error) {
	return s.Signal, s.Signal != "", nil
}

func (s *Session) SignalInfo() (string, error) {
	if s.SigInfoErr != nil {
		return "", s.SigInfoErr
	}
	return s.SigInfo, nil
}

func (s *Session) Registers() (string, error) {
	return s.Regs, nil
}

func (s *Session) Close() error {
	s.Closed = true
	return nil
}

type Thread struct {
	Number     int
	LWP        int
	ThreadName string
}

func (t *Thread) Num() int     { return t.Number }
func (t *Thread) ID() int      { return t.LWP }
func (t *Thread) Name() string { return t.ThreadName }

// Frame is a scripted frame. A nil Func, empty FuncName or nil Source
// simulate missing debug information.
type Frame struct {
	Addr     uint64
	Func     debugger.Symbol
	FuncName string
	Source   *debugger.SAL
	Scope    *Block

	older *Frame
}

func (f *Frame) PC() uint64 { return f.Addr }

func (f *Frame) Older() debugger.Frame {
	if f.older == nil {
		return nil
	}
	return f.older
}

func (f *Frame) Function() debugger.Symbol { return f.Func }
func (f *Frame) Name() string              { return f.FuncName }

func (f *Frame) SAL() (debugger.SAL, bool) {
	if f.Source == nil {
		return debugger.SAL{}, false
	}
	return *f.Source, true
}

func (f *Frame) Block() (debugger.Block, error) {
	if f.Scope == nil {
		return nil, xerrors.New("no symbol table info available")
	}
	return f.Scope, nil
}

type Block struct {
	Syms       []debugger.Symbol
	IsFunction bool
	Parent     *Block
}

func (b *Block) Symbols() []debugger.Symbol { return b.Syms }
func (b *Block) Function() bool             { return b.IsFunction }

func (b *Block) Superblock() debugger.Block {
	if b.Parent == nil {
		return nil
	}
	return b.Parent
}

// Symbol is a scripted symbol; Err, when set, is returned by Value.
type Symbol struct {
	SymName  string
	Variable bool
	Argument bool
	Val      string
	Err      error
}

// Var is a local variable holding val.
func Var(name, val string) *Symbol {
	return &Symbol{SymName: name, Variable: true, Val: val}
}

// Arg is a function argument holding val.
func Arg(name, val string) *Symbol {
	return &Symbol{SymName: name, Argument: true, Val: val}
}

// Func is a function symbol.
func Func(name string) *Symbol {
	return &Symbol{SymName: name}
}

func (s *Symbol) Name() string     { return s.SymName }
func (s *Symbol) IsVariable() bool { return s.Variable }
func (s *Symbol) IsArgument() bool { return s.Argument }

func (s *Symbol) Value() (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	return s.Val, nil
}
