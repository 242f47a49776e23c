// Package loader locates reporters installed as packages under the packages
// directory. A name resolves to <packages_dir>/<name> exactly; there is no
// prefixing or fuzzy matching. Load separates "nothing installed under that
// name" (ErrNotFound) from "installed but broken" (*LoadError).
package loader

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"go.uber.org/zap"

	"github.com/tapkit-labs/tapkit/internal/manifest"
	"github.com/tapkit-labs/tapkit/internal/reporter"
)

// ErrNotFound reports that no installed package has the requested name.
var ErrNotFound = errors.New("reporter package not found")

// LoadError reports a package that is installed but cannot be loaded.
type LoadError struct {
	Name string
	Dir  string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading reporter package %q from %s: %v", e.Name, e.Dir, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Loader loads reporter packages from a packages directory.
type Loader struct {
	PackagesDir string
	Logger      *zap.Logger

	// Stderr is handed to loaded reporters for their child's stderr.
	Stderr io.Writer
}

// New returns a Loader reading packagesDir. A nil logger disables logging.
func New(packagesDir string, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{PackagesDir: packagesDir, Logger: logger}
}

// Lookup is Load; it lets a Loader serve as a resolution source.
func (l *Loader) Lookup(name string) (reporter.Reporter, error) {
	return l.Load(name)
}

// Load returns a reporter for the package installed under name. The
// returned reporter is not checked beyond its manifest; a package whose
// entry point is broken fails when attached.
func (l *Loader) Load(name string) (reporter.Reporter, error) {
	logger := l.logger().With(zap.String("package", name))

	dir, err := manifest.PackageDir(l.PackagesDir, name)
	if err != nil {
		logger.Debug("name cannot identify a package", zap.Error(err))
		return nil, fmt.Errorf("package %q: %w", name, ErrNotFound)
	}

	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Debug("package not installed", zap.String("dir", dir))
		return nil, fmt.Errorf("package %q: %w", name, ErrNotFound)
	case err != nil:
		return nil, &LoadError{Name: name, Dir: dir, Err: err}
	case !info.IsDir():
		logger.Debug("package path is not a directory", zap.String("dir", dir))
		return nil, fmt.Errorf("package %q: %w", name, ErrNotFound)
	}

	m, err := manifest.Load(dir)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Debug("package directory has no manifest", zap.String("dir", dir))
		return nil, fmt.Errorf("package %q: %w", name, ErrNotFound)
	}
	if err != nil {
		logger.Debug("package failed to load", zap.Error(err))
		return nil, &LoadError{Name: name, Dir: dir, Err: err}
	}

	logger.Debug("loaded reporter package", zap.String("dir", dir), zap.String("version", m.Version))
	return &reporter.Process{Name: name, Dir: dir, Manifest: m, Stderr: l.Stderr}, nil
}

func (l *Loader) logger() *zap.Logger {
	if l.Logger == nil {
		return zap.NewNop()
	}
	return l.Logger
}
