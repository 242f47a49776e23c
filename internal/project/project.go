package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/Masterminds/semver/v3"
	"go.yaml.in/yaml/v3"
)

// Dependency is one declared package with an optional version constraint.
type Dependency struct {
	Name       string
	Constraint string
}

// Satisfied reports whether version meets the declared constraint. An empty
// constraint accepts any version.
func (d Dependency) Satisfied(version string) (bool, error) {
	if d.Constraint == "" {
		return true, nil
	}
	c, err := semver.NewConstraint(d.Constraint)
	if err != nil {
		return false, fmt.Errorf("dependency %s: parsing constraint %q: %w", d.Name, d.Constraint, err)
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return false, fmt.Errorf("dependency %s: parsing version %q: %w", d.Name, version, err)
	}
	return c.Check(v), nil
}

// DependencyList decodes either a mapping of name to constraint or a plain
// sequence of names, keeping declaration order.
type DependencyList []Dependency

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *DependencyList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		deps := make(DependencyList, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, val := node.Content[i], node.Content[i+1]
			if val.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: constraint for %q must be a string", val.Line, key.Value)
			}
			constraint := val.Value
			if val.Tag == "!!null" {
				constraint = ""
			}
			deps = append(deps, Dependency{Name: key.Value, Constraint: constraint})
		}
		*l = deps
	case yaml.SequenceNode:
		deps := make(DependencyList, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: dependency must be a package name", item.Line)
			}
			deps = append(deps, Dependency{Name: item.Value})
		}
		*l = deps
	case yaml.ScalarNode:
		if node.Tag != "!!null" {
			return fmt.Errorf("line %d: dependencies must be a mapping or a list", node.Line)
		}
		*l = nil
	default:
		return fmt.Errorf("line %d: dependencies must be a mapping or a list", node.Line)
	}
	return nil
}

// Names returns the dependency names in declaration order.
func (l DependencyList) Names() []string {
	names := make([]string, 0, len(l))
	for _, d := range l {
		names = append(names, d.Name)
	}
	return names
}

// Manifest is the host project's tapkit.yaml.
type Manifest struct {
	Name            string         `yaml:"name"`
	Dependencies    DependencyList `yaml:"dependencies"`
	DevDependencies DependencyList `yaml:"dev_dependencies"`
}

// All returns runtime dependencies followed by development dependencies.
// Names declared in both lists appear twice.
func (m *Manifest) All() []Dependency {
	all := make([]Dependency, 0, len(m.Dependencies)+len(m.DevDependencies))
	all = append(all, m.Dependencies...)
	return append(all, m.DevDependencies...)
}

// Load reads and parses a project manifest. A missing file returns an error
// wrapping fs.ErrNotExist.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading project manifest %s: %w", path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing project manifest %s: %w", path, err)
	}
	return &m, nil
}

// LoadOrEmpty is Load, except that a missing file yields an empty manifest.
func LoadOrEmpty(path string) (*Manifest, error) {
	m, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Manifest{}, nil
	}
	return m, err
}
