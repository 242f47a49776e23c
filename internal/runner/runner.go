// Package runner executes "go test -json" and feeds its stream to a
// gotest.Decoder.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tapkit-labs/tapkit/internal/gotest"
)

// Runner runs the go tool in a project directory.
type Runner struct {
	GoBinary string
	Dir      string
	Env      []string

	// Stderr receives the go tool's stderr; defaults to os.Stderr.
	Stderr io.Writer
	Logger *zap.Logger
}

// Command returns the argument vector Run executes.
func (r *Runner) Command(args []string) []string {
	bin := r.GoBinary
	if bin == "" {
		bin = "go"
	}
	return append([]string{bin, "test", "-json"}, args...)
}

// Run executes the tests and decodes their output with dec. It returns the
// go tool's exit code; a non-zero code is not an error. The error is set
// when the tool could not be started, was killed, or its stream could not
// be decoded.
func (r *Runner) Run(ctx context.Context, dec *gotest.Decoder, args []string) (int, error) {
	argv := r.Command(args)
	logger := r.logger()
	logger.Debug("running tests", zap.Strings("argv", argv), zap.String("dir", r.Dir))

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = r.Dir
	cmd.Env = append(os.Environ(), r.Env...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return -1, fmt.Errorf("opening stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return -1, fmt.Errorf("opening stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return -1, fmt.Errorf("starting %s: %w", argv[0], err)
	}

	var g errgroup.Group
	g.Go(func() error {
		if err := dec.Decode(stdout); err != nil {
			// Keep draining so the child never blocks on a full pipe.
			_, _ = io.Copy(io.Discard, stdout)
			return err
		}
		return nil
	})
	g.Go(func() error {
		_, err := io.Copy(r.stderr(), stderr)
		return err
	})

	streamErr := g.Wait()
	waitErr := cmd.Wait()

	code := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return -1, fmt.Errorf("waiting for %s: %w", argv[0], waitErr)
		}
		code = exitErr.ExitCode()
		if code < 0 {
			if ctx.Err() != nil {
				return code, fmt.Errorf("%s interrupted: %w", argv[0], ctx.Err())
			}
			return code, fmt.Errorf("%s killed: %w", argv[0], waitErr)
		}
	}
	logger.Debug("tests finished", zap.Int("exit_code", code))

	if streamErr != nil {
		return code, streamErr
	}
	return code, nil
}

func (r *Runner) stderr() io.Writer {
	if r.Stderr == nil {
		return os.Stderr
	}
	return r.Stderr
}

func (r *Runner) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}
