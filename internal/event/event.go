package event

import (
	"time"

	"github.com/google/uuid"
)

// Type identifies the kind of an event.
type Type string

const (
	RunStart   Type = "runStart"
	SuiteStart Type = "suiteStart"
	TestStart  Type = "testStart"
	TestEnd    Type = "testEnd"
	SuiteEnd   Type = "suiteEnd"
	RunEnd     Type = "runEnd"
)

// Status is the outcome of a test, suite or run.
type Status string

const (
	Passed  Status = "passed"
	Failed  Status = "failed"
	Skipped Status = "skipped"
)

// Counts tallies test outcomes for a run.
type Counts struct {
	Passed  int `json:"passed" yaml:"passed"`
	Failed  int `json:"failed" yaml:"failed"`
	Skipped int `json:"skipped" yaml:"skipped"`
	Total   int `json:"total" yaml:"total"`
}

// Add records one test outcome.
func (c *Counts) Add(s Status) {
	switch s {
	case Passed:
		c.Passed++
	case Failed:
		c.Failed++
	case Skipped:
		c.Skipped++
	}
	c.Total++
}

// Status is failed when any test failed, skipped when every test was
// skipped, passed otherwise.
func (c Counts) Status() Status {
	switch {
	case c.Failed > 0:
		return Failed
	case c.Total > 0 && c.Skipped == c.Total:
		return Skipped
	default:
		return Passed
	}
}

// Event is one step of a test run.
type Event struct {
	Type    Type          `json:"type"`
	Time    time.Time     `json:"time"`
	RunID   string        `json:"runId,omitempty"`
	Suite   string        `json:"suite,omitempty"`
	Test    string        `json:"test,omitempty"`
	Status  Status        `json:"status,omitempty"`
	Elapsed time.Duration `json:"elapsed,omitempty"`
	Output  []string      `json:"output,omitempty"`
	Counts  *Counts       `json:"counts,omitempty"`
}

// FullName joins suite and test as "suite > test".
func (e Event) FullName() string {
	if e.Suite == "" {
		return e.Test
	}
	if e.Test == "" {
		return e.Suite
	}
	return e.Suite + " > " + e.Test
}

// NewRunID returns a fresh identifier for a run.
func NewRunID() string {
	return uuid.NewString()
}
