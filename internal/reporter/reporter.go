// Package reporter defines the Reporter capability and the implementations
// shipped with tapkit: TAP, the default machine-readable format, and Console
// for people. Process runs a reporter installed as an external package.
package reporter

import (
	"context"
	"io"

	"github.com/tapkit-labs/tapkit/internal/event"
)

// Reporter renders a run's events. Attach subscribes it to bus; rendered
// output goes to out.
type Reporter interface {
	Attach(ctx context.Context, bus *event.Bus, out io.Writer) error
}

// Built-in reporters. Callers compare them by identity.
var (
	TAP     = &TAPReporter{name: "tap"}
	Console = &ConsoleReporter{name: "console"}
)
