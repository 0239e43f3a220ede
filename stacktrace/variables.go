package stacktrace

import (
	"github.com/yext/glog"
	"golang.org/x/xerrors"

	"github.com/yext/sentry-coredump/debugger"
)

// shadowSuffix is appended to a variable name once per binding that is
// hidden by a more local one of the same name.
const shadowSuffix = "'"

// Variables renders the locals and arguments visible in f, walking from the
// innermost block outward and stopping at the function's own block. When a
// name is shadowed, the innermost binding keeps the plain name and each
// outer binding gets one more shadowSuffix.
//
// Variables returns nil if f has no lexical scope, for example when the
// code has no debug information. Values that cannot be read are recorded as
// the error text.
func Variables(f debugger.Frame) map[string]string {
	block, err := f.Block()
	if err != nil || block == nil {
		return nil
	}

	vars := map[string]string{}
	for ; block != nil; block = block.Superblock() {
		for _, sym := range block.Symbols() {
			if !sym.IsVariable() && !sym.IsArgument() {
				continue
			}
			name := sym.Name()
			for {
				if _, taken := vars[name]; !taken {
					break
				}
				name += shadowSuffix
			}
			vars[name] = readValue(sym)
		}
		if block.Function() {
			break
		}
	}
	return vars
}

func readValue(sym debugger.Symbol) string {
	v, err := sym.Value()
	if err == nil {
		return v
	}
	var memErr *debugger.MemoryError
	if !xerrors.As(err, &memErr) {
		glog.V(1).Infof("reading %s: %v", sym.Name(), err)
	}
	return err.Error()
}
