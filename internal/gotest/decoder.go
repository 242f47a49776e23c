// Package gotest turns the output of "go test -json" into run events.
package gotest

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/tapkit-labs/tapkit/internal/event"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const maxLine = 4 << 20

// Record is one line of test2json output.
type Record struct {
	Time    time.Time `json:"Time"`
	Action  string    `json:"Action"`
	Package string    `json:"Package"`
	Test    string    `json:"Test"`
	Elapsed float64   `json:"Elapsed"`
	Output  string    `json:"Output"`
}

// framing lines that test2json repeats as output of the test they describe.
var framing = []string{"=== RUN", "=== PAUSE", "=== CONT", "=== NAME", "--- PASS:", "--- FAIL:", "--- SKIP:"}

type testState struct {
	output []string
}

type suiteState struct {
	counts event.Counts
	output []string
	tests  map[string]*testState
	order  []string
	ended  bool
}

// Decoder converts records into events on a bus. Records of several
// packages may interleave. A Decoder is not safe for concurrent use.
type Decoder struct {
	bus   *event.Bus
	runID string
	now   func() time.Time

	started  bool
	finished bool
	failed   bool
	counts   event.Counts
	suites   map[string]*suiteState
	order    []string
}

// NewDecoder returns a Decoder emitting onto bus. An empty runID gets a
// fresh one.
func NewDecoder(bus *event.Bus, runID string) *Decoder {
	if runID == "" {
		runID = event.NewRunID()
	}
	return &Decoder{
		bus:    bus,
		runID:  runID,
		now:    time.Now,
		suites: make(map[string]*suiteState),
	}
}

// RunID returns the identifier stamped on every event.
func (d *Decoder) RunID() string { return d.runID }

// Counts returns the test outcomes seen so far.
func (d *Decoder) Counts() event.Counts { return d.counts }

// Failed reports whether any test or package failed.
func (d *Decoder) Failed() bool { return d.failed || d.counts.Failed > 0 }

// Start emits runStart. Later calls do nothing.
func (d *Decoder) Start() error {
	if d.started {
		return nil
	}
	d.started = true
	return d.emit(event.Event{Type: event.RunStart, Time: d.now()})
}

// Decode reads test2json lines from r until EOF. Lines that are not JSON
// objects, such as build output go prints around the stream, are skipped.
func (d *Decoder) Decode(r io.Reader) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 || line[0] != '{' {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("decoding test2json record: %w", err)
		}
		if err := d.Handle(rec); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading test2json stream: %w", err)
	}
	return nil
}

// Handle applies one record.
func (d *Decoder) Handle(rec Record) error {
	if rec.Package == "" {
		return nil
	}
	if err := d.Start(); err != nil {
		return err
	}
	if rec.Time.IsZero() {
		rec.Time = d.now()
	}

	s, err := d.suite(rec.Package, rec.Time)
	if err != nil {
		return err
	}

	switch rec.Action {
	case "run":
		if rec.Test == "" {
			return nil
		}
		if _, ok := s.tests[rec.Test]; !ok {
			s.tests[rec.Test] = &testState{}
			s.order = append(s.order, rec.Test)
		}
		return d.emit(event.Event{Type: event.TestStart, Time: rec.Time, Suite: rec.Package, Test: rec.Test})

	case "output":
		line, ok := outputLine(rec.Output)
		if !ok {
			return nil
		}
		if rec.Test == "" {
			s.output = append(s.output, line)
			return nil
		}
		if ts, ok := s.tests[rec.Test]; ok {
			ts.output = append(ts.output, line)
		}
		return nil

	case "pass", "fail", "skip":
		status := statusOf(rec.Action)
		elapsed := time.Duration(rec.Elapsed * float64(time.Second))
		if rec.Test != "" {
			return d.endTest(s, rec.Package, rec.Test, status, elapsed, rec.Time)
		}
		return d.endSuite(s, rec.Package, status, elapsed, rec.Time)
	}
	return nil
}

// Finish ends tests and packages left open, then emits runEnd with the run's
// counts. Open tests count as failed. Later calls do nothing.
func (d *Decoder) Finish() error {
	if d.finished {
		return nil
	}
	if err := d.Start(); err != nil {
		return err
	}
	d.finished = true

	now := d.now()
	for _, pkg := range d.order {
		s := d.suites[pkg]
		if s.ended {
			continue
		}
		open := append([]string(nil), s.order...)
		for _, name := range open {
			if err := d.endTest(s, pkg, name, event.Failed, 0, now); err != nil {
				return err
			}
		}
		if err := d.endSuite(s, pkg, event.Failed, 0, now); err != nil {
			return err
		}
	}

	counts := d.counts
	status := counts.Status()
	if d.failed {
		status = event.Failed
	}
	return d.emit(event.Event{Type: event.RunEnd, Time: now, Status: status, Counts: &counts})
}

func (d *Decoder) suite(pkg string, at time.Time) (*suiteState, error) {
	if s, ok := d.suites[pkg]; ok {
		return s, nil
	}
	s := &suiteState{tests: make(map[string]*testState)}
	d.suites[pkg] = s
	d.order = append(d.order, pkg)
	return s, d.emit(event.Event{Type: event.SuiteStart, Time: at, Suite: pkg})
}

func (d *Decoder) endTest(s *suiteState, pkg, name string, status event.Status, elapsed time.Duration, at time.Time) error {
	ts, ok := s.tests[name]
	if !ok {
		ts = &testState{}
	}
	delete(s.tests, name)
	s.order = remove(s.order, name)

	s.counts.Add(status)
	d.counts.Add(status)

	ev := event.Event{Type: event.TestEnd, Time: at, Suite: pkg, Test: name, Status: status, Elapsed: elapsed}
	if status != event.Passed {
		ev.Output = ts.output
	}
	return d.emit(ev)
}

func (d *Decoder) endSuite(s *suiteState, pkg string, status event.Status, elapsed time.Duration, at time.Time) error {
	if s.ended {
		return nil
	}
	s.ended = true
	if status == event.Failed {
		d.failed = true
	}

	counts := s.counts
	ev := event.Event{Type: event.SuiteEnd, Time: at, Suite: pkg, Status: status, Elapsed: elapsed, Counts: &counts}
	if status == event.Failed {
		ev.Output = s.output
	}
	return d.emit(ev)
}

func (d *Decoder) emit(e event.Event) error {
	e.RunID = d.runID
	return d.bus.Emit(e)
}

func statusOf(action string) event.Status {
	switch action {
	case "pass":
		return event.Passed
	case "skip":
		return event.Skipped
	default:
		return event.Failed
	}
}

// outputLine strips line endings and drops blank and framing lines.
func outputLine(out string) (string, bool) {
	line := strings.TrimRight(out, "\r\n")
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return "", false
	}
	for _, prefix := range framing {
		if strings.HasPrefix(trimmed, prefix) {
			return "", false
		}
	}
	return trimmed, true
}

func remove(names []string, name string) []string {
	for i, n := range names {
		if n == name {
			return append(names[:i], names[i+1:]...)
		}
	}
	return names
}
