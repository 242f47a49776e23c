package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/Masterminds/semver/v3"
	"go.yaml.in/yaml/v3"
)

// fileNames is the lookup order for a package's manifest file.
var fileNames = []string{"manifest.yaml", "manifest.json"}

// Find returns the manifest path inside dir. When none exists the error
// wraps fs.ErrNotExist; any other stat failure is returned as is.
func Find(dir string) (string, error) {
	for _, name := range fileNames {
		p := filepath.Join(dir, name)
		_, err := os.Stat(p)
		if err == nil {
			return p, nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("checking manifest %s: %w", p, err)
		}
	}
	return "", fmt.Errorf("no manifest found in %s: %w", dir, fs.ErrNotExist)
}

// Parse reads and decodes a manifest file without validating it. JSON
// manifests decode through the YAML parser.
func Parse(path string) (*PackageManifest, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return decode(data, path)
}

// ParseDir finds and parses the manifest of the package in dir.
func ParseDir(dir string) (*PackageManifest, error) {
	path, err := Find(dir)
	if err != nil {
		return nil, err
	}
	return Parse(path)
}

// Load finds, parses and validates the manifest of the package in dir.
// Schema violations are returned as *InvalidError.
func Load(dir string) (*PackageManifest, error) {
	path, err := Find(dir)
	if err != nil {
		return nil, err
	}

	data, err := readFile(path)
	if err != nil {
		return nil, err
	}

	result, err := Validate(data)
	if err != nil {
		return nil, fmt.Errorf("validating manifest %s: %w", path, err)
	}
	if !result.Valid {
		return nil, &InvalidError{Path: path, Issues: result.Issues}
	}

	m, err := decode(data, path)
	if err != nil {
		return nil, err
	}

	if m.Version != "" {
		if _, err := semver.NewVersion(m.Version); err != nil {
			return nil, fmt.Errorf("manifest %s: invalid version %q: %w", path, m.Version, err)
		}
	}

	return m, nil
}

func decode(data []byte, path string) (*PackageManifest, error) {
	var m PackageManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return &m, nil
}

// readFile reads the contents of a file at the given path.
func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return data, nil
}

// namePattern matches package identifiers, optionally scoped ("@acme/junit").
var namePattern = regexp.MustCompile(`^(@[a-z0-9][a-z0-9._-]*/)?[a-z0-9][a-z0-9._-]*$`)

// ErrInvalidName is returned by PackageDir for names that cannot identify an
// installed package.
var ErrInvalidName = errors.New("invalid package name")

// ValidName reports whether name can identify an installed package.
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// PackageDir returns the directory of package name under root. Scoped names
// nest one level. Names that are not package identifiers, including any that
// would leave root, yield ErrInvalidName.
func PackageDir(root, name string) (string, error) {
	if !ValidName(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(root, filepath.FromSlash(name)), nil
}
