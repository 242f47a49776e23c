// Package event defines the test-run event stream reporters attach to. A run
// is a sequence of runStart, suiteStart/suiteEnd pairs wrapping
// testStart/testEnd pairs, and a final runEnd carrying the counts. Bus fans
// events out to the subscribed sinks; Encoder writes them as JSON lines for
// reporters running in another process.
package event
