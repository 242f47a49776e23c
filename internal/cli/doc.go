// Package cli defines the Cobra command tree for the tapkit CLI. Each file
// in this package builds one top-level command (run, report, reporters,
// config, version). Commands delegate to internal packages for resolution,
// execution and rendering, and only handle flags, I/O and exit codes.
package cli
