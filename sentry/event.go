package sentry

import (
	"github.com/getsentry/sentry-go"
)

const (
	// SdkName and SdkVersion identify this handler to Sentry.
	SdkName    = "sentry.coredump"
	SdkVersion = "0.1.0"

	// Platform tells Sentry to treat frames as native code.
	Platform = "c"
)

// Event is a Sentry store-endpoint payload for one core dump.
//
// sentry.Event from sentry-go has no top-level stacktrace and renders threads
// as a bare list, so the native event shape is declared here. Frames and
// stack traces reuse the sentry-go types.
type Event struct {
	EventID    string                 `json:"event_id"`
	Timestamp  string                 `json:"timestamp"`
	Message    string                 `json:"message"`
	Platform   string                 `json:"platform"`
	Sdk        sentry.SdkInfo         `json:"sdk"`
	Level      sentry.Level           `json:"level"`
	ServerName string                 `json:"server_name"`
	Contexts   map[string]interface{} `json:"contexts"`
	Extra      map[string]interface{} `json:"extra"`

	// Stacktrace is a copy of the crashed thread's stack. Sentry only groups
	// native events by the top-level stack trace, not by thread stacks.
	Stacktrace *sentry.Stacktrace `json:"stacktrace"`
	Threads    Threads            `json:"threads"`
}

type Threads struct {
	Values []Thread `json:"values"`
}

type Thread struct {
	ID         int                `json:"id"`
	Name       string             `json:"name,omitempty"`
	Crashed    bool               `json:"crashed"`
	Stacktrace *sentry.Stacktrace `json:"stacktrace"`
}

// OSContext is stored under contexts.os.
type OSContext struct {
	Name          string `json:"name"`
	Version       string `json:"version"`
	KernelVersion string `json:"kernel_version"`
}

// Crashed returns the thread marked as crashed, or nil.
func (e *Event) Crashed() *Thread {
	for i := range e.Threads.Values {
		if e.Threads.Values[i].Crashed {
			return &e.Threads.Values[i]
		}
	}
	return nil
}
