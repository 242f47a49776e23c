package reporter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/tapkit-labs/tapkit/internal/event"
	"github.com/tapkit-labs/tapkit/internal/manifest"
)

// Process is a reporter installed as an external package. Attach runs the
// package's entry point with the package directory as working directory,
// writes events to its stdin as JSON lines and copies its stdout to out.
// Nothing about the entry point is checked before Attach.
type Process struct {
	Name     string
	Dir      string
	Manifest *manifest.PackageManifest

	// Stderr receives the child's stderr; defaults to os.Stderr.
	Stderr io.Writer
}

// Attach starts the reporter process and subscribes it to bus.
func (p *Process) Attach(ctx context.Context, bus *event.Bus, out io.Writer) error {
	if p.Manifest == nil || p.Manifest.Entry == "" {
		return fmt.Errorf("reporter %s: manifest declares no entry point", p.Name)
	}

	entry := p.Manifest.Entry
	if !filepath.IsAbs(entry) {
		entry = filepath.Join(p.Dir, entry)
	}
	info, err := os.Stat(entry)
	if err != nil {
		return fmt.Errorf("reporter %s: entry point: %w", p.Name, err)
	}
	if info.IsDir() {
		return fmt.Errorf("reporter %s: entry point %s is a directory", p.Name, entry)
	}

	cmd := exec.CommandContext(ctx, entry, p.Manifest.Args...)
	cmd.Dir = p.Dir
	cmd.Env = buildEnv(p.Name, p.Manifest.Env)
	cmd.Stdout = out
	cmd.Stderr = p.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("reporter %s: opening stdin: %w", p.Name, err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("reporter %s: starting %s: %w", p.Name, entry, err)
	}

	bus.Subscribe(&processSink{
		name:  p.Name,
		cmd:   cmd,
		stdin: stdin,
		enc:   event.NewEncoder(stdin),
	})
	return nil
}

type processSink struct {
	name  string
	cmd   *exec.Cmd
	stdin io.WriteCloser
	enc   *event.Encoder
}

func (s *processSink) OnEvent(e event.Event) error {
	if err := s.enc.Encode(e); err != nil {
		return fmt.Errorf("reporter %s: %w", s.name, err)
	}
	return nil
}

// Close ends the child's input and waits for it to exit.
func (s *processSink) Close() error {
	closeErr := s.stdin.Close()
	if err := s.cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("reporter %s exited with status %d", s.name, exitErr.ExitCode())
		}
		return fmt.Errorf("reporter %s: %w", s.name, err)
	}
	if closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
		return fmt.Errorf("reporter %s: closing stdin: %w", s.name, closeErr)
	}
	return nil
}

// buildEnv inherits the current environment and layers the manifest's
// variables and TAPKIT_REPORTER on top.
func buildEnv(name string, extra map[string]string) []string {
	env := os.Environ()
	for k, v := range extra {
		env = setEnv(env, k, v)
	}
	return setEnv(env, "TAPKIT_REPORTER", name)
}

// setEnv sets or replaces an environment variable in the env slice.
func setEnv(env []string, key, value string) []string {
	prefix := key + "="
	for i, e := range env {
		if strings.HasPrefix(e, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}
