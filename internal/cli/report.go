package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/tapkit-labs/tapkit/internal/event"
	"github.com/tapkit-labs/tapkit/internal/gotest"
)

func newReportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [files...]",
		Short: "Render recorded go test -json output with a reporter",
		Long: `Replay one or more files of recorded "go test -json" output through the selected
reporter. Arguments may be "**" glob patterns. Without arguments the stream is read
from stdin. The exit code is 1 when any recorded test or package failed.`,
		RunE: a.report,
	}
	addReporterFlag(cmd)
	return cmd
}

func (a *app) report(cmd *cobra.Command, args []string) error {
	files, err := expandInputs(args)
	if err != nil {
		return err
	}

	rep, err := a.resolveReporter(cmd)
	if err != nil {
		return err
	}

	bus := event.NewBus()
	if err := rep.Attach(cmd.Context(), bus, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("attaching reporter: %w", err)
	}

	dec := gotest.NewDecoder(bus, "")
	err = dec.Start()
	if err == nil {
		err = a.replay(dec, cmd.InOrStdin(), files)
	}
	if err == nil {
		err = dec.Finish()
	}
	if err := multierr.Append(err, bus.Close()); err != nil {
		return err
	}
	if dec.Failed() {
		return &ExitError{Code: 1}
	}
	return nil
}

func (a *app) replay(dec *gotest.Decoder, stdin io.Reader, files []string) error {
	if len(files) == 0 {
		a.logger.Debug("replaying stdin")
		return dec.Decode(stdin)
	}
	for _, path := range files {
		a.logger.Debug("replaying file", zap.String("path", path))
		if err := replayFile(dec, path); err != nil {
			return err
		}
	}
	return nil
}

func replayFile(dec *gotest.Decoder, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	if err := dec.Decode(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// expandInputs expands glob patterns in args, keeping argument order and
// dropping repeats. Directories matched by a pattern are skipped, and a
// pattern left with no files is an error. Plain paths are kept as given.
func expandInputs(args []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, arg := range args {
		if !strings.ContainsAny(arg, "*?[{") {
			add(arg)
			continue
		}
		matches, err := doublestar.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("expanding %q: %w", arg, err)
		}
		sort.Strings(matches)
		n := 0
		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && info.IsDir() {
				continue
			}
			add(m)
			n++
		}
		if n == 0 {
			return nil, fmt.Errorf("no files match %q", arg)
		}
	}
	return files, nil
}
