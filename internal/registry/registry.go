package registry

import (
	"sort"

	"github.com/tapkit-labs/tapkit/internal/reporter"
)

// Default names the reporter used when no name is given.
const Default = "tap"

// builtin maps each short name to its reporter. It is never written after
// package initialization.
var builtin = map[string]reporter.Reporter{
	"console": reporter.Console,
	"tap":     reporter.TAP,
}

// Lookup returns the built-in reporter registered under name.
func Lookup(name string) (reporter.Reporter, bool) {
	r, ok := builtin[name]
	return r, ok
}

// DefaultReporter returns the reporter registered under Default.
func DefaultReporter() (reporter.Reporter, bool) {
	return Lookup(Default)
}

// Names returns every built-in name in lexicographic order.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
