package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/tapkit-labs/tapkit/internal/loader"
	"github.com/tapkit-labs/tapkit/internal/project"
	"github.com/tapkit-labs/tapkit/internal/reporter"
	"github.com/tapkit-labs/tapkit/internal/resolver"
)

const reporterFlag = "reporter"

// noValue is what pflag stores for a bare --reporter.
const noValue = " "

func addReporterFlag(cmd *cobra.Command) {
	cmd.Flags().StringP(reporterFlag, "r", "", "reporter to render results with (default \"tap\")")
	cmd.Flags().Lookup(reporterFlag).NoOptDefVal = noValue
}

// reporterName returns nil when --reporter was not given and a pointer to
// the trimmed value otherwise; a bare --reporter yields "".
func reporterName(cmd *cobra.Command) (*string, error) {
	if !cmd.Flags().Changed(reporterFlag) {
		return nil, nil
	}
	v, err := cmd.Flags().GetString(reporterFlag)
	if err != nil {
		return nil, err
	}
	v = strings.TrimSpace(v)
	return &v, nil
}

// normalizeReporterArgs joins "--reporter name" and "-r name" into
// "--reporter=name" so the value may be given as a separate argument. A
// following token that starts with "-" is left alone. Nothing after "--" is
// touched.
func normalizeReporterArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return append(out, args[i:]...)
		}
		if (arg == "--"+reporterFlag || arg == "-r") && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			out = append(out, "--"+reporterFlag+"="+args[i+1])
			i++
			continue
		}
		out = append(out, arg)
	}
	return out
}

// newResolver builds a resolver over the built-ins, the packages directory and
// the project's dependency list.
func (a *app) newResolver(cmd *cobra.Command) *resolver.Resolver {
	ldr := loader.New(a.packagesDir, a.logger.Named("loader"))
	ldr.Stderr = cmd.ErrOrStderr()

	deps := &project.FSReader{ProjectFile: a.projectFile, PackagesDir: a.packagesDir}
	return resolver.New(deps,
		resolver.WithSources(ldr),
		resolver.WithLogger(a.logger.Named("resolver")),
	)
}

// resolveReporter resolves the reporter named by --reporter.
func (a *app) resolveReporter(cmd *cobra.Command) (reporter.Reporter, error) {
	name, err := reporterName(cmd)
	if err != nil {
		return nil, err
	}
	return a.newResolver(cmd).Resolve(name)
}
