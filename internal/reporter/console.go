package reporter

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tapkit-labs/tapkit/internal/event"
)

// ConsoleReporter writes one line per finished test and a summary.
type ConsoleReporter struct {
	name string
}

// Attach subscribes a console writer to bus.
func (r *ConsoleReporter) Attach(_ context.Context, bus *event.Bus, out io.Writer) error {
	bus.Subscribe(&consoleSink{w: bufio.NewWriter(out)})
	return nil
}

type consoleSink struct {
	w      *bufio.Writer
	start  time.Time
	counts event.Counts
}

func (s *consoleSink) OnEvent(e event.Event) error {
	switch e.Type {
	case event.RunStart:
		s.start = e.Time
	case event.TestEnd:
		s.counts.Add(e.Status)
		label := "PASS"
		switch e.Status {
		case event.Failed:
			label = "FAIL"
		case event.Skipped:
			label = "SKIP"
		}
		fmt.Fprintf(s.w, "%s %s (%s)\n", label, e.FullName(), e.Elapsed.Round(time.Millisecond))
		if e.Status == event.Failed {
			for _, line := range e.Output {
				fmt.Fprintf(s.w, "    %s\n", strings.TrimRight(line, "\n"))
			}
		}
	case event.RunEnd:
		counts := s.counts
		if e.Counts != nil {
			counts = *e.Counts
		}
		elapsed := e.Elapsed
		if elapsed == 0 && !s.start.IsZero() && !e.Time.IsZero() {
			elapsed = e.Time.Sub(s.start)
		}
		fmt.Fprintf(s.w, "\n%s: %d tests, %d passed, %d failed, %d skipped (%s)\n",
			strings.ToUpper(string(counts.Status())), counts.Total, counts.Passed, counts.Failed, counts.Skipped,
			elapsed.Round(time.Millisecond))
	}
	return s.w.Flush()
}

func (s *consoleSink) Close() error {
	return s.w.Flush()
}

// Name returns "console".
func (r *ConsoleReporter) Name() string { return r.name }
