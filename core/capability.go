package core

import "fmt"

// Kind tags the three capability categories a remote instrument exposes.
type Kind int

const (
	// KindMethod is a callable action of the instrument itself.
	KindMethod Kind = iota
	// KindParameter is a readable/writable instrument value.
	KindParameter
	// KindFunction is a callable sub-procedure taking positional args only.
	KindFunction
)

// String returns the capability category label.
func (k Kind) String() string {
	switch k {
	case KindMethod:
		return "Method"
	case KindParameter:
		return "Parameter"
	case KindFunction:
		return "Function"
	default:
		return "Unknown"
	}
}

// Capability is a named remote operation reachable through a proxy.
type Capability interface {
	Name() string
	Kind() Kind
}

// Proxy is the minimal surface of a remote instrument proxy as seen by
// registries and managers.
type Proxy interface {
	Name() string
	RemoteID() RemoteID
}

// Class describes the driver type being proxied: how to derive a default
// server name, which constructor kwargs select the worker rather than the
// instance, and the bookkeeping of live proxies for the class.
//
// DefaultServerName must be pure: calling it with the same effective kwargs
// must yield the same name whenever colocation is desired.
type Class interface {
	Name() string
	DefaultServerName(kwargs Kwargs) string
	SharedKeys() []string
	RecordInstance(p Proxy)
	RemoveInstance(p Proxy)
	Instances() []Proxy
}

// ClassOptions configures a BaseClass.
type ClassOptions struct {
	// SharedKeys declares, in order, the constructor kwargs used to select
	// or create the worker instead of constructing the remote instance.
	SharedKeys []string

	// DefaultServerName derives a server name from the constructor kwargs
	// when none is supplied explicitly. Defaults to "<class>-server".
	DefaultServerName func(kwargs Kwargs) string
}

// BaseClass is the standard Class implementation. Its instance bookkeeping is
// backed by an InstanceRegistry owned by the enclosing connection context, so
// no process-global state is involved.
type BaseClass struct {
	name        string
	sharedKeys  []string
	defaultName func(kwargs Kwargs) string
	registry    *InstanceRegistry
}

// NewClass constructs a BaseClass bound to the given registry.
func NewClass(name string, registry *InstanceRegistry, optFns ...func(*ClassOptions)) *BaseClass {
	opts := ClassOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.DefaultServerName == nil {
		opts.DefaultServerName = func(Kwargs) string {
			return fmt.Sprintf("%s-server", name)
		}
	}
	return &BaseClass{
		name:        name,
		sharedKeys:  opts.SharedKeys,
		defaultName: opts.DefaultServerName,
		registry:    registry,
	}
}

// Name returns the class name, used verbatim as the remote construction key.
func (c *BaseClass) Name() string { return c.name }

// DefaultServerName derives the server name from the constructor kwargs.
func (c *BaseClass) DefaultServerName(kwargs Kwargs) string { return c.defaultName(kwargs) }

// SharedKeys returns the ordered shared-kwarg key names.
func (c *BaseClass) SharedKeys() []string { return c.sharedKeys }

// RecordInstance registers a live proxy of this class.
func (c *BaseClass) RecordInstance(p Proxy) { c.registry.Record(c.name, p) }

// RemoveInstance drops a proxy from the class bookkeeping.
func (c *BaseClass) RemoveInstance(p Proxy) { c.registry.Remove(c.name, p) }

// Instances returns the live proxies of this class.
func (c *BaseClass) Instances() []Proxy { return c.registry.Instances(c.name) }
