package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tapkit-labs/tapkit/internal/project"
	"github.com/tapkit-labs/tapkit/internal/registry"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// reporterEntry is one row of "tapkit reporters".
type reporterEntry struct {
	Name       string `json:"name"`
	Source     string `json:"source"`
	Default    bool   `json:"default,omitempty"`
	Version    string `json:"version,omitempty"`
	Constraint string `json:"constraint,omitempty"`
	Satisfied  *bool  `json:"satisfied,omitempty"`
}

func newReportersCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "reporters",
		Short: "List available reporters",
		Long: `List the built-in reporters and the project's installed dependencies that
declare themselves reporters, with each dependency's installed version and
whether it satisfies the declared constraint.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := a.listReporters()
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), entries)
			}
			return writeReporterTable(cmd.OutOrStdout(), entries)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	return cmd
}

func (a *app) listReporters() ([]reporterEntry, error) {
	var entries []reporterEntry
	for _, name := range registry.Names() {
		entries = append(entries, reporterEntry{Name: name, Source: "builtin", Default: name == registry.Default})
	}

	m, err := project.LoadOrEmpty(a.projectFile)
	if err != nil {
		return nil, err
	}
	reader := &project.FSReader{ProjectFile: a.projectFile, PackagesDir: a.packagesDir}

	groups := []struct {
		source string
		deps   project.DependencyList
	}{
		{"dependency", m.Dependencies},
		{"dev_dependency", m.DevDependencies},
	}
	for _, g := range groups {
		for _, dep := range g.deps {
			pkg, err := reader.Package(dep.Name)
			if errors.Is(err, project.ErrManifestUnavailable) {
				a.logger.Debug("dependency not installed", zap.String("package", dep.Name))
				continue
			}
			if err != nil {
				return nil, err
			}
			if !pkg.IsReporter() {
				continue
			}

			entry := reporterEntry{Name: dep.Name, Source: g.source, Version: pkg.Version, Constraint: dep.Constraint}
			if pkg.Version != "" {
				ok, err := dep.Satisfied(pkg.Version)
				if err != nil {
					a.logger.Warn("cannot check dependency constraint", zap.Error(err))
				} else {
					entry.Satisfied = &ok
				}
			}
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func writeReporterTable(out io.Writer, entries []reporterEntry) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSOURCE\tVERSION\tCONSTRAINT\tSATISFIED")
	for _, e := range entries {
		name := e.Name
		if e.Default {
			name += " (default)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", name, e.Source, dash(e.Version), dash(e.Constraint), satisfiedText(e.Satisfied))
	}
	return w.Flush()
}

func writeJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func satisfiedText(ok *bool) string {
	switch {
	case ok == nil:
		return "-"
	case *ok:
		return "yes"
	default:
		return "no"
	}
}
