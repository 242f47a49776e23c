package resolver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tapkit-labs/tapkit/internal/loader"
	"github.com/tapkit-labs/tapkit/internal/project"
	"github.com/tapkit-labs/tapkit/internal/reporter"
)

// fakeDeps is an in-memory project.Reader.
type fakeDeps struct {
	runtime, dev []string
	depsErr      error
	keywords     map[string][]string
	failures     map[string]error
	asked        []string
}

func (f *fakeDeps) Dependencies() ([]string, []string, error) {
	return f.runtime, f.dev, f.depsErr
}

func (f *fakeDeps) Keywords(name string) ([]string, error) {
	f.asked = append(f.asked, name)
	if err, ok := f.failures[name]; ok {
		return nil, err
	}
	kw, ok := f.keywords[name]
	if !ok {
		return nil, fmt.Errorf("package %s: %w", name, project.ErrManifestUnavailable)
	}
	return kw, nil
}

// stubSource records lookups and answers from a fixed table.
type stubSource struct {
	found map[string]reporter.Reporter
	fail  map[string]error
	calls []string
}

func (s *stubSource) Lookup(name string) (reporter.Reporter, error) {
	s.calls = append(s.calls, name)
	if err, ok := s.fail[name]; ok {
		return nil, err
	}
	if r, ok := s.found[name]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("package %q: %w", name, loader.ErrNotFound)
}

func strPtr(s string) *string { return &s }

func TestResolve_NilNameIsDefault(t *testing.T) {
	src := &stubSource{}
	got, err := New(nil, WithSources(src)).Resolve(nil)
	require.NoError(t, err)
	assert.Same(t, reporter.TAP, got)
	assert.Empty(t, src.calls)
}

func TestResolve_BuiltinsAreIdentical(t *testing.T) {
	tests := []struct {
		name string
		want reporter.Reporter
	}{
		{"tap", reporter.TAP},
		{"console", reporter.Console},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &stubSource{}
			r := New(nil, WithSources(src))

			first, err := r.Resolve(strPtr(tt.name))
			require.NoError(t, err)
			second, err := r.Resolve(strPtr(tt.name))
			require.NoError(t, err)

			assert.Same(t, tt.want, first)
			assert.Same(t, first, second)
			assert.Empty(t, src.calls, "external sources must not be consulted for built-ins")
		})
	}
}

func TestResolve_ExternalSource(t *testing.T) {
	ext := &reporter.Process{Name: "npm-reporter"}
	src := &stubSource{found: map[string]reporter.Reporter{"npm-reporter": ext}}

	got, err := New(nil, WithSources(src)).Resolve(strPtr("npm-reporter"))
	require.NoError(t, err)
	assert.Same(t, ext, got)
}

func TestResolve_SourcesTriedInOrder(t *testing.T) {
	ext := &reporter.Process{Name: "later"}
	first := &stubSource{}
	second := &stubSource{found: map[string]reporter.Reporter{"later": ext}}

	got, err := New(nil, WithSources(first, second)).Resolve(strPtr("later"))
	require.NoError(t, err)
	assert.Same(t, ext, got)
	assert.Equal(t, []string{"later"}, first.calls)
	assert.Equal(t, []string{"later"}, second.calls)
}

func TestResolve_SourceFaultIsFatal(t *testing.T) {
	fault := &loader.LoadError{Name: "broken", Err: errors.New("boom")}
	first := &stubSource{fail: map[string]error{"broken": fault}}
	second := &stubSource{}
	deps := &fakeDeps{runtime: []string{"rep"}, keywords: map[string][]string{"rep": {"tapkit-reporter"}}}

	got, err := New(deps, WithSources(first, second)).Resolve(strPtr("broken"))
	assert.Nil(t, got)
	assert.Same(t, fault, err)
	assert.Empty(t, second.calls)
	assert.Empty(t, deps.asked, "no dependency scan after a fault")

	var diag *Diagnostic
	assert.False(t, errors.As(err, &diag))
}

func TestResolve_NotFoundNoCandidates(t *testing.T) {
	deps := &fakeDeps{runtime: []string{"left-pad"}, keywords: map[string][]string{"left-pad": {"string"}}}

	_, err := New(deps, WithSources(&stubSource{})).Resolve(strPtr("foo"))

	var diag *Diagnostic
	require.ErrorAs(t, err, &diag)
	assert.True(t, diag.Fatal)
	assert.Equal(t, "No reporter found matching \"foo\".\nBuilt-in reporters: console, tap", diag.Message)
	assert.Empty(t, diag.Candidates)
}

func TestResolve_NotFoundWithCandidates(t *testing.T) {
	deps := &fakeDeps{
		runtime: []string{"x", "y"},
		dev:     []string{"y", "z"},
		keywords: map[string][]string{
			"x": {"tapkit-reporter"},
			"y": {"tapkit-reporter", "html"},
			"z": {"other"},
		},
	}

	_, err := New(deps).Resolve(strPtr("bar"))

	var diag *Diagnostic
	require.ErrorAs(t, err, &diag)
	want := "No reporter found matching \"bar\".\n" +
		"Built-in reporters: console, tap\n" +
		"Extra reporters found among package dependencies: x, y, y"
	assert.Equal(t, want, diag.Message)
	assert.Equal(t, []string{"x", "y", "y"}, diag.Candidates)
	assert.Equal(t, []string{"x", "y", "y", "z"}, deps.asked)
}

func TestResolve_EmptyNameSkipsLookup(t *testing.T) {
	src := &stubSource{found: map[string]reporter.Reporter{"": &reporter.Process{}}}

	_, err := New(nil, WithSources(src)).Resolve(strPtr(""))

	var diag *Diagnostic
	require.ErrorAs(t, err, &diag)
	assert.Equal(t, "Built-in reporters: console, tap", diag.Message)
	assert.Empty(t, src.calls)
}

func TestResolve_CaseSensitive(t *testing.T) {
	_, err := New(nil).Resolve(strPtr("TAP"))

	var diag *Diagnostic
	require.ErrorAs(t, err, &diag)
	assert.Contains(t, diag.Message, `No reporter found matching "TAP".`)
}

func TestResolve_UnavailableManifestsAreSkipped(t *testing.T) {
	deps := &fakeDeps{
		runtime:  []string{"missing", "locked", "rep"},
		keywords: map[string][]string{"rep": {"tapkit-reporter"}},
		failures: map[string]error{
			"locked": fmt.Errorf("package locked: %w: %w", project.ErrManifestUnavailable, os.ErrPermission),
		},
	}

	_, err := New(deps).Resolve(strPtr("nope"))

	var diag *Diagnostic
	require.ErrorAs(t, err, &diag)
	assert.Equal(t, []string{"rep"}, diag.Candidates)
}

func TestResolve_ScanFaultIsPropagated(t *testing.T) {
	corrupt := errors.New("reading manifest of bad: parse error")
	deps := &fakeDeps{
		runtime:  []string{"bad", "rep"},
		keywords: map[string][]string{"rep": {"tapkit-reporter"}},
		failures: map[string]error{"bad": corrupt},
	}

	_, err := New(deps).Resolve(strPtr("nope"))
	assert.ErrorIs(t, err, corrupt)

	var diag *Diagnostic
	assert.False(t, errors.As(err, &diag))
}

func TestResolve_DependencyListFaultIsPropagated(t *testing.T) {
	broken := errors.New("tapkit.yaml: bad indentation")
	_, err := New(&fakeDeps{depsErr: broken}).Resolve(strPtr("nope"))
	assert.ErrorIs(t, err, broken)
}

func TestZeroResolver(t *testing.T) {
	var r Resolver

	got, err := r.Resolve(strPtr("console"))
	require.NoError(t, err)
	assert.Same(t, reporter.Console, got)

	_, err = r.Resolve(strPtr("missing"))
	var diag *Diagnostic
	require.ErrorAs(t, err, &diag)
	assert.Equal(t, "No reporter found matching \"missing\".\nBuilt-in reporters: console, tap", diag.Message)
}

func TestDiagnose_NilName(t *testing.T) {
	d, err := New(nil).Diagnose(nil)
	require.NoError(t, err)
	assert.Equal(t, "Built-in reporters: console, tap", d.Message)
	assert.Equal(t, d.Message, d.Error())
}

// TestResolve_WithFilesystem wires the real loader and project reader.
func TestResolve_WithFilesystem(t *testing.T) {
	root := t.TempDir()
	pkgs := filepath.Join(root, "packages")
	writeFile := func(rel, content string) {
		t.Helper()
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}

	writeFile("tapkit.yaml", "dependencies:\n  html-reporter: ^1.0.0\n  left-pad: '*'\ndev_dependencies:\n  - junit-reporter\n  - not-installed\n")
	writeFile("packages/html-reporter/manifest.yaml", "name: html-reporter\nversion: 1.2.0\nkeywords: [tapkit-reporter]\nentry: bin/html\n")
	writeFile("packages/left-pad/manifest.yaml", "name: left-pad\nentry: index\n")
	writeFile("packages/junit-reporter/manifest.json", `{"name": "junit-reporter", "keywords": ["tapkit-reporter"], "entry": "junit"}`)

	deps := &project.FSReader{ProjectFile: filepath.Join(root, "tapkit.yaml"), PackagesDir: pkgs}
	r := New(deps, WithSources(loader.New(pkgs, nil)))

	got, err := r.Resolve(strPtr("html-reporter"))
	require.NoError(t, err)
	assert.Equal(t, "html-reporter", got.(*reporter.Process).Name)

	_, err = r.Resolve(strPtr("xunit"))
	var diag *Diagnostic
	require.ErrorAs(t, err, &diag)
	assert.Equal(t, []string{"html-reporter", "junit-reporter"}, diag.Candidates)
}
