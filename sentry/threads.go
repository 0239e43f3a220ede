package sentry

import (
	"github.com/yext/glog"
	"golang.org/x/xerrors"

	"github.com/yext/sentry-coredump/debugger"
	"github.com/yext/sentry-coredump/stacktrace"
)

// CollectThreads builds a Thread for each of threads, in the given order,
// marking the one that is crashing. Each thread is selected in s before its
// frames are read, so focus is left on the last thread when it returns.
func CollectThreads(s debugger.Session, threads []debugger.Thread, crashing debugger.Thread, includeVars bool) ([]Thread, error) {
	r := make([]Thread, 0, len(threads))
	for _, t := range threads {
		if err := s.SelectThread(t); err != nil {
			return nil, xerrors.Errorf("selecting thread %d: %w", t.Num(), err)
		}
		newest, err := s.NewestFrame()
		if err != nil {
			return nil, xerrors.Errorf("reading frames of thread %d: %w", t.Num(), err)
		}

		thread := Thread{
			ID:         t.ID(),
			Name:       t.Name(),
			Crashed:    debugger.SameThread(t, crashing),
			Stacktrace: stacktrace.Build(s, newest, includeVars),
		}
		glog.V(1).Infof("thread %d (%s): %d frames, crashed=%t",
			thread.ID, thread.Name, len(thread.Stacktrace.Frames), thread.Crashed)
		r = append(r, thread)
	}
	return r, nil
}
