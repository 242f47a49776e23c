// Package config manages tapkit settings. Values come from defaults, the
// user-level file at ~/.tapkit/config.yaml (or the file named by --config)
// and TAPKIT_* environment variables, in increasing priority.
package config
