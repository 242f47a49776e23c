package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tapkit-labs/tapkit/internal/branding"
	"github.com/tapkit-labs/tapkit/internal/config"
	"github.com/tapkit-labs/tapkit/internal/observability"
)

// BuildInfo is injected via ldflags.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// ExitError carries a process exit code without a message of its own.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string { return fmt.Sprintf("exit status %d", e.Code) }

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

type globalOptions struct {
	configFile  string
	projectDir  string
	packagesDir string
	logLevel    string
}

// app is the state shared by every command of one invocation.
type app struct {
	build    BuildInfo
	global   globalOptions
	settings *config.Settings
	logger   *zap.Logger

	// projectDir, projectFile and packagesDir are absolute once setup ran.
	projectDir  string
	projectFile string
	packagesDir string
}

// NewRootCmd builds a fresh command tree.
func NewRootCmd(build BuildInfo) *cobra.Command {
	a := &app{build: build, logger: zap.NewNop()}

	cmd := &cobra.Command{
		Use:   branding.CLIName(),
		Short: branding.Description(),
		Long: branding.DisplayName() + ` runs Go tests and renders the results with a reporter: one of the
built-in reporters or a reporter package installed alongside the project.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.global.configFile, "config", "", "config file (default ~/"+branding.HomeDir()+"/config.yaml)")
	pf.StringVar(&a.global.projectDir, "project-dir", ".", "directory holding the project manifest")
	pf.StringVar(&a.global.packagesDir, "packages-dir", "", "directory of installed packages, relative to the project directory")
	pf.StringVar(&a.global.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newRunCmd(a),
		newReportCmd(a),
		newReportersCmd(a),
		newConfigCmd(a),
		newVersionCmd(a),
	)
	return cmd
}

// setup loads configuration, applies flag overrides and starts logging.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := config.Load(a.global.configFile); err != nil {
		return err
	}

	flags := cmd.Flags()
	if err := viper.BindPFlag(config.KeyPackagesDir, flags.Lookup("packages-dir")); err != nil {
		return fmt.Errorf("binding --packages-dir: %w", err)
	}
	if err := viper.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level")); err != nil {
		return fmt.Errorf("binding --log-level: %w", err)
	}

	settings, err := config.Current()
	if err != nil {
		return err
	}
	a.settings = settings

	logCfg := settings.Log
	logCfg.ServiceName = branding.CLIName()
	observability.Initialize(logCfg, zapcore.Lock(zapcore.AddSync(cmd.ErrOrStderr())))
	a.logger = observability.GetLogger()

	a.projectDir, err = filepath.Abs(a.global.projectDir)
	if err != nil {
		return fmt.Errorf("resolving project directory: %w", err)
	}
	a.projectFile = a.inProject(settings.ProjectFile)
	a.packagesDir = a.inProject(settings.PackagesDir)

	a.logger.Debug("configured",
		zap.String("command", cmd.Name()),
		zap.String("project_dir", a.projectDir),
		zap.String("project_file", a.projectFile),
		zap.String("packages_dir", a.packagesDir),
		zap.String("config_file", viper.ConfigFileUsed()),
	)
	return nil
}

// inProject resolves path against the project directory unless absolute.
func (a *app) inProject(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(a.projectDir, path)
}

// Run executes root with args, printing any failure other than a bare exit
// code to root's stderr. A reporter name may follow --reporter as a
// separate argument.
func Run(ctx context.Context, root *cobra.Command, args []string) error {
	root.SetArgs(normalizeReporterArgs(args))
	err := root.ExecuteContext(ctx)
	if err != nil {
		printError(root.ErrOrStderr(), err)
	}
	return err
}

func printError(w io.Writer, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return
	}
	fmt.Fprintln(w, err)
}

// Execute runs the CLI with os.Args and build info injected via ldflags.
func Execute(version, commit, date string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	defer observability.Sync()

	root := NewRootCmd(BuildInfo{Version: version, Commit: commit, Date: date})
	return Run(ctx, root, os.Args[1:])
}
