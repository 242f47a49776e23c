package manifest

// ReporterKeyword is the keyword a package lists to declare itself a reporter.
const ReporterKeyword = "tapkit-reporter"

// PackageManifest describes an installed reporter package.
type PackageManifest struct {
	Name        string            `yaml:"name" json:"name"`
	Version     string            `yaml:"version,omitempty" json:"version,omitempty"`
	Description string            `yaml:"description,omitempty" json:"description,omitempty"`
	Keywords    []string          `yaml:"keywords,omitempty" json:"keywords,omitempty"`
	Entry       string            `yaml:"entry" json:"entry"`
	Args        []string          `yaml:"args,omitempty" json:"args,omitempty"`
	Env         map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
}

// HasKeyword reports whether the manifest lists keyword exactly.
func (m *PackageManifest) HasKeyword(keyword string) bool {
	for _, k := range m.Keywords {
		if k == keyword {
			return true
		}
	}
	return false
}

// IsReporter reports whether the package declares the reporter keyword.
func (m *PackageManifest) IsReporter() bool {
	return m.HasKeyword(ReporterKeyword)
}
