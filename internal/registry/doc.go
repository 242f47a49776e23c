// Package registry holds the fixed set of reporters built into tapkit, keyed
// by the short names accepted on the command line.
package registry
