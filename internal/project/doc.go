// Package project reads the host project's tapkit.yaml: the runtime and
// development dependencies it declares, in declaration order, and the
// keywords each installed dependency lists in its own manifest.
package project
