package project

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad_MappingKeepsDeclarationOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tapkit.yaml")
	writeFile(t, path, `name: calc
dependencies:
  zeta-reporter: ^1.0.0
  alpha-lib: "~2.1"
  mid-reporter:
dev_dependencies:
  tapkit-html: ">=0.3"
  alpha-lib: 2.1.4
`)

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "calc", m.Name)

	want := []Dependency{
		{Name: "zeta-reporter", Constraint: "^1.0.0"},
		{Name: "alpha-lib", Constraint: "~2.1"},
		{Name: "mid-reporter"},
		{Name: "tapkit-html", Constraint: ">=0.3"},
		{Name: "alpha-lib", Constraint: "2.1.4"},
	}
	if diff := cmp.Diff(want, m.All()); diff != "" {
		t.Errorf("All() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_SequenceForm(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tapkit.yaml")
	writeFile(t, path, "dependencies: [b-pkg, a-pkg]\ndev_dependencies: []\n")

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"b-pkg", "a-pkg"}, m.Dependencies.Names())
	assert.Empty(t, m.DevDependencies.Names())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"scalar dependencies", "dependencies: tapkit-junit\n"},
		{"nested constraint", "dependencies:\n  tapkit-junit:\n    version: 1.0.0\n"},
		{"nested list item", "dependencies:\n  - [a, b]\n"},
		{"not yaml", "dependencies: [unclosed\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "tapkit.yaml")
			writeFile(t, path, tt.content)
			_, err := Load(path)
			require.Error(t, err)
			assert.False(t, errors.Is(err, fs.ErrNotExist))
		})
	}
}

func TestLoadOrEmpty_MissingFile(t *testing.T) {
	m, err := LoadOrEmpty(filepath.Join(t.TempDir(), "tapkit.yaml"))
	require.NoError(t, err)
	assert.Empty(t, m.All())

	_, err = Load(filepath.Join(t.TempDir(), "tapkit.yaml"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestDependency_Satisfied(t *testing.T) {
	tests := []struct {
		dep     Dependency
		version string
		want    bool
		wantErr bool
	}{
		{Dependency{Name: "a"}, "0.0.1", true, false},
		{Dependency{Name: "a", Constraint: "^1.0.0"}, "1.4.2", true, false},
		{Dependency{Name: "a", Constraint: "^1.0.0"}, "2.0.0", false, false},
		{Dependency{Name: "a", Constraint: ">=0.3"}, "0.2.9", false, false},
		{Dependency{Name: "a", Constraint: "not a constraint"}, "1.0.0", false, true},
		{Dependency{Name: "a", Constraint: "^1.0.0"}, "latest", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.dep.Constraint+"@"+tt.version, func(t *testing.T) {
			got, err := tt.dep.Satisfied(tt.version)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
