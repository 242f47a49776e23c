// Package manifest parses and validates reporter package manifests. A package
// directory carries manifest.yaml (or manifest.json) describing the package
// name, version, keywords and the executable entry point that renders events.
// Load validates the manifest against the JSON schema embedded from
// schema/manifest.schema.json.
package manifest
