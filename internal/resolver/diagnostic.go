package resolver

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/tapkit-labs/tapkit/internal/manifest"
	"github.com/tapkit-labs/tapkit/internal/project"
	"github.com/tapkit-labs/tapkit/internal/registry"
)

// Diagnostic explains a failed resolution. Message lines are joined with
// "\n" and carry no trailing newline.
type Diagnostic struct {
	Message string
	Fatal   bool

	// Candidates are the dependency names listed in Message.
	Candidates []string
}

func (d *Diagnostic) Error() string { return d.Message }

// Diagnose builds the message shown when name matched nothing. A nil or
// empty name omits the "No reporter found" line. The error is non-nil only
// when the dependency scan fails for a reason other than a missing or
// inaccessible manifest.
func (r *Resolver) Diagnose(name *string) (*Diagnostic, error) {
	var lines []string
	if name != nil && *name != "" {
		lines = append(lines, fmt.Sprintf("No reporter found matching %q.", *name))
	}
	lines = append(lines, "Built-in reporters: "+strings.Join(registry.Names(), ", "))

	candidates, err := r.Candidates()
	if err != nil {
		return nil, err
	}
	if len(candidates) > 0 {
		lines = append(lines, "Extra reporters found among package dependencies: "+strings.Join(candidates, ", "))
	}

	return &Diagnostic{
		Message:    strings.Join(lines, "\n"),
		Fatal:      true,
		Candidates: candidates,
	}, nil
}

// Candidates returns the declared dependencies, runtime first and then
// development, whose manifests carry the reporter keyword. Order and
// duplicates follow the declarations.
func (r *Resolver) Candidates() ([]string, error) {
	if r.deps == nil {
		return nil, nil
	}

	runtime, dev, err := r.deps.Dependencies()
	if err != nil {
		return nil, fmt.Errorf("reading project dependencies: %w", err)
	}

	var out []string
	for _, dep := range slices.Concat(runtime, dev) {
		keywords, err := r.deps.Keywords(dep)
		if errors.Is(err, project.ErrManifestUnavailable) {
			r.log().Debug("skipping dependency without manifest", zap.String("package", dep), zap.Error(err))
			continue
		}
		if err != nil {
			return nil, err
		}
		if slices.Contains(keywords, manifest.ReporterKeyword) {
			out = append(out, dep)
		}
	}
	return out, nil
}
