package resolver

import (
	"errors"

	"go.uber.org/zap"

	"github.com/tapkit-labs/tapkit/internal/loader"
	"github.com/tapkit-labs/tapkit/internal/project"
	"github.com/tapkit-labs/tapkit/internal/registry"
	"github.com/tapkit-labs/tapkit/internal/reporter"
)

// Source looks a reporter up by name. An error wrapping loader.ErrNotFound
// means the source has nothing under that name; any other error is fatal.
type Source interface {
	Lookup(name string) (reporter.Reporter, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(name string) (reporter.Reporter, error)

// Lookup implements Source.
func (f SourceFunc) Lookup(name string) (reporter.Reporter, error) { return f(name) }

// Builtin is the Source backed by the built-in registry.
var Builtin Source = SourceFunc(func(name string) (reporter.Reporter, error) {
	if r, ok := registry.Lookup(name); ok {
		return r, nil
	}
	return nil, loader.ErrNotFound
})

// Resolver resolves reporter names. The zero value resolves built-ins only
// and reports no dependency candidates.
type Resolver struct {
	sources []Source
	deps    project.Reader
	logger  *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for resolution tracing.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithSources appends external sources, tried in order after the registry.
func WithSources(sources ...Source) Option {
	return func(r *Resolver) {
		r.sources = append(r.sources, sources...)
	}
}

// New returns a Resolver that scans deps for diagnostics. deps may be nil.
func New(deps project.Reader, opts ...Option) *Resolver {
	r := &Resolver{deps: deps, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the reporter for name. A nil name selects the default
// reporter. A non-nil empty name is never looked up and yields a
// *Diagnostic. Built-in names return the registry's own reporter value.
//
// The error is a *Diagnostic when nothing matched, the source's error when
// a source failed, or the error that interrupted the dependency scan.
func (r *Resolver) Resolve(name *string) (reporter.Reporter, error) {
	if name == nil {
		if rep, ok := registry.DefaultReporter(); ok {
			r.log().Debug("no reporter requested, using default", zap.String("reporter", registry.Default))
			return rep, nil
		}
		return nil, r.fail(nil)
	}
	if *name == "" {
		return nil, r.fail(name)
	}

	for i, src := range r.all() {
		rep, err := src.Lookup(*name)
		if err == nil {
			r.log().Debug("resolved reporter", zap.String("reporter", *name), zap.Int("source", i))
			return rep, nil
		}
		if errors.Is(err, loader.ErrNotFound) {
			continue
		}
		r.log().Debug("reporter source failed", zap.String("reporter", *name), zap.Error(err))
		return nil, err
	}

	return nil, r.fail(name)
}

func (r *Resolver) fail(name *string) error {
	d, err := r.Diagnose(name)
	if err != nil {
		return err
	}
	return d
}

func (r *Resolver) all() []Source {
	return append([]Source{Builtin}, r.sources...)
}

func (r *Resolver) log() *zap.Logger {
	if r.logger == nil {
		return zap.NewNop()
	}
	return r.logger
}
