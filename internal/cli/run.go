package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/tapkit-labs/tapkit/internal/event"
	"github.com/tapkit-labs/tapkit/internal/gotest"
	"github.com/tapkit-labs/tapkit/internal/runner"
)

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [packages...] [-- go test flags...]",
		Short: "Run go tests and render them with a reporter",
		Long: `Run "go test -json" in the project directory and render the results with the
selected reporter. Arguments are passed to go test; put go test flags after "--".
The exit code is the one go test returned.`,
		RunE: a.runTests,
	}
	addReporterFlag(cmd)
	return cmd
}

func (a *app) runTests(cmd *cobra.Command, args []string) error {
	rep, err := a.resolveReporter(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	bus := event.NewBus()
	if err := rep.Attach(ctx, bus, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("attaching reporter: %w", err)
	}

	dec := gotest.NewDecoder(bus, "")
	a.logger.Debug("starting run", zap.String("run_id", dec.RunID()))

	r := &runner.Runner{
		GoBinary: a.settings.GoBinary,
		Dir:      a.projectDir,
		Stderr:   cmd.ErrOrStderr(),
		Logger:   a.logger.Named("runner"),
	}

	code := -1
	err = dec.Start()
	if err == nil {
		code, err = r.Run(ctx, dec, args)
		err = multierr.Append(err, dec.Finish())
	}
	if err := multierr.Append(err, bus.Close()); err != nil {
		return err
	}
	if code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}
