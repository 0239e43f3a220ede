// Package debugger describes the slice of a debugger engine that the crash
// reporter needs: threads of an inferior reconstructed from a core image,
// their frames, and the lexical blocks and symbols visible in each frame.
//
// Frame and variable queries are relative to the thread currently selected
// in a Session. A Session is not safe for concurrent use; callers switch
// focus and query one thread at a time.
package debugger

import "fmt"

// Session is a debugger attached to an executable and its core image.
type Session interface {
	// Threads lists the inferior's threads in the debugger's order.
	Threads() ([]Thread, error)
	// SelectedThread returns the thread that currently has focus. Right after
	// the core is loaded this is the thread that caused the crash.
	SelectedThread() (Thread, error)
	// SelectThread moves focus to t.
	SelectThread(t Thread) error
	// NewestFrame returns the innermost frame of the selected thread.
	NewestFrame() (Frame, error)
	// SolibName returns the shared object containing pc, or "" when pc
	// belongs to the main executable or no object covers it.
	SolibName(pc uint64) string
	// ExitSignal returns the name of the terminating signal of the selected
	// thread, or ok == false when no signal was recorded.
	ExitSignal() (name string, ok bool, err error)
	// SignalInfo renders the extended signal information of the selected thread.
	SignalInfo() (string, error)
	// Registers renders the register file of the selected thread.
	Registers() (string, error)
	Close() error
}

type Thread interface {
	// Num is the debugger's own identifier for the thread.
	Num() int
	// ID is the operating system thread id (LWP).
	ID() int
	Name() string
}

// SameThread reports whether a and b denote the same inferior thread.
func SameThread(a, b Thread) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Num() == b.Num()
}

type Frame interface {
	PC() uint64
	// Older returns the caller of this frame, or nil for the outermost frame.
	Older() Frame
	// Function returns the function symbol covering PC, or nil when there is
	// no debug information for it.
	Function() Symbol
	// Name is the debugger's best guess for the function name, "" if none.
	Name() string
	// SAL returns the source location of PC.
	SAL() (SAL, bool)
	// Block returns the innermost lexical block at PC. It fails when the
	// frame has no debug information.
	Block() (Block, error)
}

// SAL is a symtab-and-line pair.
type SAL struct {
	Filename string
	Line     int
}

type Block interface {
	Symbols() []Symbol
	// Function reports whether this block is the outermost block of a function.
	Function() bool
	// Superblock returns the enclosing block, or nil.
	Superblock() Block
}

type Symbol interface {
	Name() string
	IsVariable() bool
	IsArgument() bool
	// Value renders the symbol's value in the frame it was found in.
	Value() (string, error)
}

// MemoryError is returned when a value lives in memory that the core image
// does not contain.
type MemoryError struct {
	Addr    uint64
	Message string
}

func (e *MemoryError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("Cannot access memory at address 0x%x", e.Addr)
}
