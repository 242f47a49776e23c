package project

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/tapkit-labs/tapkit/internal/manifest"
)

// ErrManifestUnavailable marks a dependency whose manifest is not installed
// or cannot be accessed. Callers treat it as "not a reporter".
var ErrManifestUnavailable = errors.New("manifest unavailable")

// Reader exposes the host project's declared dependencies and each
// dependency's own keywords.
type Reader interface {
	// Dependencies returns runtime and development dependency names in
	// declaration order.
	Dependencies() (runtime, dev []string, err error)
	// Keywords returns the keywords declared by the named dependency. The
	// error wraps ErrManifestUnavailable when the manifest is missing or
	// inaccessible.
	Keywords(name string) ([]string, error)
}

// FSReader reads tapkit.yaml and installed package manifests from disk.
type FSReader struct {
	ProjectFile string
	PackagesDir string
}

// Dependencies implements Reader. A project without a manifest declares nothing.
func (r *FSReader) Dependencies() ([]string, []string, error) {
	m, err := LoadOrEmpty(r.ProjectFile)
	if err != nil {
		return nil, nil, err
	}
	return m.Dependencies.Names(), m.DevDependencies.Names(), nil
}

// Keywords implements Reader.
func (r *FSReader) Keywords(name string) ([]string, error) {
	m, err := r.Package(name)
	if err != nil {
		return nil, err
	}
	return m.Keywords, nil
}

// Package returns the parsed manifest of the installed dependency name.
func (r *FSReader) Package(name string) (*manifest.PackageManifest, error) {
	dir, err := manifest.PackageDir(r.PackagesDir, name)
	if err != nil {
		return nil, fmt.Errorf("package %s: %w: %w", name, ErrManifestUnavailable, err)
	}

	m, err := manifest.ParseDir(dir)
	switch {
	case err == nil:
		return m, nil
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission):
		return nil, fmt.Errorf("package %s: %w: %w", name, ErrManifestUnavailable, err)
	default:
		return nil, fmt.Errorf("reading manifest of %s: %w", name, err)
	}
}
