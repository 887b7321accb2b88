// Package instrumesh provides a high-level facade over the remote-proxy core:
// a connection context that owns the per-identity Manager cache and the
// capability-class instance registry, so no hidden process-global state is
// involved. Most applications interact with this package by:
//  1. Creating an InstruMesh via New() (supplying a Manager factory; the
//     in-process manager from the manager package is the usual choice for
//     local drivers, tests and demos)
//  2. Declaring capability classes via NewClass (server naming rules and
//     shared-kwarg keys)
//  3. Constructing remote instruments via NewInstrument and operating on the
//     mirrored Method / Parameter / Function proxies
//
// The facade delegates all proxy semantics to the remote package while
// keeping setup and teardown ergonomics concise.
package instrumesh

import (
	"context"
	"errors"

	"github.com/hupe1980/instrumesh/config"
	"github.com/hupe1980/instrumesh/core"
	"github.com/hupe1980/instrumesh/logging"
	"github.com/hupe1980/instrumesh/remote"
)

// Options configures the InstruMesh connection context.
type Options struct {
	// ManagerFactory builds the Manager for a server identity on first
	// acquisition. Required for any remote construction to succeed.
	ManagerFactory core.ManagerFactory

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// InstruMesh is the top-level connection context. It owns the Manager cache
// (at most one Manager per server identity) and the instance registry every
// capability class created through it records into.
type InstruMesh struct {
	opts     Options
	managers *core.ManagerCache
	registry *core.InstanceRegistry
}

// New creates a connection context with optional overrides.
func New(optFns ...func(o *Options)) *InstruMesh {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &InstruMesh{
		opts:     opts,
		managers: core.NewManagerCache(opts.ManagerFactory),
		registry: core.NewInstanceRegistry(),
	}
}

// NewFromConfig builds a context configured from a file (see the config
// package). The configured log level and format yield the context logger
// unless an option overrides it.
func NewFromConfig(path string, optFns ...func(o *Options)) (*InstruMesh, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.ParseLevel(cfg.LogLevel),
		Format: cfg.LogFormat,
	})
	base := []func(o *Options){func(o *Options) { o.Logger = logger }}
	return New(append(base, optFns...)...), nil
}

// NewClass declares a capability class bound to this context's instance
// registry.
func (m *InstruMesh) NewClass(name string, optFns ...func(*core.ClassOptions)) *core.BaseClass {
	return core.NewClass(name, m.registry, optFns...)
}

// NewInstrument constructs a remote instrument proxy through this context's
// Manager cache.
func (m *InstruMesh) NewInstrument(ctx context.Context, class core.Class, optFns ...func(*remote.Options)) (*remote.Instrument, error) {
	base := []func(*remote.Options){remote.WithLogger(m.opts.Logger)}
	return remote.NewInstrument(ctx, class, m.managers, append(base, optFns...)...)
}

// Managers exposes the per-identity Manager cache.
func (m *InstruMesh) Managers() *core.ManagerCache { return m.managers }

// Instruments returns the live proxies of one capability class.
func (m *InstruMesh) Instruments(class core.Class) []core.Proxy {
	return class.Instances()
}

// Close tears down every live instrument created through this context.
func (m *InstruMesh) Close(ctx context.Context) error {
	var errs []error
	for _, p := range m.registry.All() {
		if closer, ok := p.(interface{ Close(context.Context) error }); ok {
			if err := closer.Close(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
