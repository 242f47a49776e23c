package reporter

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/tapkit-labs/tapkit/internal/event"
)

// TAPReporter writes TAP version 13.
type TAPReporter struct {
	name string
}

// Attach subscribes a TAP writer to bus.
func (r *TAPReporter) Attach(_ context.Context, bus *event.Bus, out io.Writer) error {
	bus.Subscribe(&tapSink{w: bufio.NewWriter(out)})
	return nil
}

type tapSink struct {
	w      *bufio.Writer
	n      int
	counts event.Counts
}

// tapDiagnostic is the YAML block that follows a failing test line.
type tapDiagnostic struct {
	Message  string `yaml:"message"`
	Severity string `yaml:"severity"`
	Duration int64  `yaml:"duration_ms"`
	Output   string `yaml:"output,omitempty"`
}

func (s *tapSink) OnEvent(e event.Event) error {
	switch e.Type {
	case event.RunStart:
		fmt.Fprintln(s.w, "TAP version 13")
	case event.TestEnd:
		s.n++
		s.counts.Add(e.Status)
		switch e.Status {
		case event.Skipped:
			fmt.Fprintf(s.w, "ok %d %s # SKIP\n", s.n, tapName(e))
		case event.Failed:
			fmt.Fprintf(s.w, "not ok %d %s\n", s.n, tapName(e))
			if err := s.writeDiagnostic(e); err != nil {
				return err
			}
		default:
			fmt.Fprintf(s.w, "ok %d %s\n", s.n, tapName(e))
		}
	case event.RunEnd:
		counts := s.counts
		if e.Counts != nil {
			counts = *e.Counts
		}
		fmt.Fprintf(s.w, "1..%d\n", s.n)
		fmt.Fprintf(s.w, "# pass %d\n", counts.Passed)
		fmt.Fprintf(s.w, "# skip %d\n", counts.Skipped)
		fmt.Fprintf(s.w, "# fail %d\n", counts.Failed)
	}
	return s.w.Flush()
}

func (s *tapSink) writeDiagnostic(e event.Event) error {
	diag := tapDiagnostic{
		Message:  "failed",
		Severity: "failed",
		Duration: e.Elapsed.Milliseconds(),
		Output:   strings.Join(e.Output, ""),
	}
	data, err := yaml.Marshal(diag)
	if err != nil {
		return fmt.Errorf("encoding TAP diagnostic for %s: %w", e.FullName(), err)
	}
	fmt.Fprintln(s.w, "  ---")
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		fmt.Fprintln(s.w, "  "+line)
	}
	fmt.Fprintln(s.w, "  ...")
	return nil
}

func (s *tapSink) Close() error {
	return s.w.Flush()
}

// tapName formats the description after the test number. A leading "-"
// keeps descriptions that start with a digit unambiguous.
func tapName(e event.Event) string {
	name := strings.ReplaceAll(e.FullName(), "#", `\#`)
	return "- " + name
}

// Name returns "tap".
func (r *TAPReporter) Name() string { return r.name }
