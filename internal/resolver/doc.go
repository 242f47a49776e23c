// Package resolver turns the reporter name a user typed into a Reporter.
//
// Resolution tries, in order: the default reporter when no name was given,
// the built-in registry, then each external Source. A source either finds
// the reporter, reports loader.ErrNotFound so the next source is tried, or
// fails; failures stop resolution. When every source misses, the resolver
// builds a Diagnostic listing the built-in names and any declared project
// dependency that advertises itself as a reporter.
package resolver
