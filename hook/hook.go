// Package hook loads the optional extension that may alter an event before
// it is sent.
//
// An extension is a Go plugin (go build -buildmode=plugin) exporting
//
//	func ProcessCore(event *sentry.Event, executable, coreFile string)
//
// The function may modify event in place. A panic inside it is not
// recovered and aborts the handler before the event is sent.
package hook

import (
	"plugin"

	"golang.org/x/xerrors"

	"github.com/yext/sentry-coredump/sentry"
)

// Symbol is the name of the function looked up in the plugin.
const Symbol = "ProcessCore"

// Func is the signature of an extension.
type Func func(event *sentry.Event, executable, coreFile string)

// Load opens the plugin at path. An empty path means no extension and
// yields a nil Func.
func Load(path string) (Func, error) {
	if path == "" {
		return nil, nil
	}
	p, err := plugin.Open(path)
	if err != nil {
		return nil, xerrors.Errorf("loading extension %s: %w", path, err)
	}
	sym, err := p.Lookup(Symbol)
	if err != nil {
		return nil, xerrors.Errorf("extension %s: %w", path, err)
	}
	return asFunc(sym)
}

func asFunc(sym plugin.Symbol) (Func, error) {
	switch f := sym.(type) {
	case func(*sentry.Event, string, string):
		return f, nil
	case *func(*sentry.Event, string, string):
		if f != nil && *f != nil {
			return *f, nil
		}
	}
	return nil, xerrors.Errorf("%s has type %T, want func(*sentry.Event, string, string)", Symbol, sym)
}

// Apply calls f if an extension is loaded.
func (f Func) Apply(event *sentry.Event, executable, coreFile string) {
	if f != nil {
		f(event, executable, coreFile)
	}
}
