package remote

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/instrumesh/core"
	"github.com/hupe1980/instrumesh/logging"
)

// Options configures construction of an Instrument.
type Options struct {
	// ServerName overrides the capability class's default server name
	// derivation. Leave empty to derive deterministically from the kwargs.
	ServerName string

	// Args are positional arguments for the remote construction call.
	Args core.Args

	// Kwargs are keyword arguments. Keys declared shared by the capability
	// class select the worker; the rest are forwarded to the remote
	// construction call.
	Kwargs core.Kwargs

	// Logger receives debug records of every remote call. Defaults to NoOp.
	Logger logging.Logger
}

// WithServerName sets an explicit server name.
func WithServerName(name string) func(*Options) {
	return func(o *Options) { o.ServerName = name }
}

// WithArgs sets positional constructor arguments.
func WithArgs(args ...any) func(*Options) {
	return func(o *Options) { o.Args = args }
}

// WithKwargs sets keyword constructor arguments.
func WithKwargs(kwargs core.Kwargs) func(*Options) {
	return func(o *Options) { o.Kwargs = kwargs }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) func(*Options) {
	return func(o *Options) { o.Logger = l }
}

// Instrument is the top-level proxy for an instrument driver running on a
// worker owned by a Manager. It performs the introspection handshake,
// materializes one proxy per reflected capability and dispatches ask/write on
// behalf of its children.
//
// An Instrument is destroyed exactly once by Close; any call after Close
// returns a StaleReferenceError.
type Instrument struct {
	mu       sync.Mutex
	name     string
	id       core.RemoteID
	class    core.Class
	args     core.Args
	kwargs   core.Kwargs // instance kwargs (shared keys removed)
	identity core.ServerIdentity
	managers *core.ManagerCache
	manager  core.Manager
	caps     capabilitySet
	closed   bool
	logger   logging.Logger
}

// NewInstrument resolves the server identity, acquires (or creates) the
// Manager for it, registers the proxy with its class and connects.
//
// Keyword arguments are partitioned by the class's shared-key declaration:
// shared keys select the worker, the rest construct the remote instance. If
// no server name is given it is derived by the class's pure default-naming
// function from the full kwargs, so identical effective arguments colocate.
func NewInstrument(ctx context.Context, class core.Class, managers *core.ManagerCache, optFns ...func(*Options)) (*Instrument, error) {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	serverName := opts.ServerName
	if serverName == "" {
		serverName = class.DefaultServerName(opts.Kwargs)
	}

	shared, instance := core.PartitionKwargs(opts.Kwargs, class.SharedKeys())
	identity := core.ServerIdentity{Name: serverName, Shared: shared}

	manager, err := managers.Acquire(identity)
	if err != nil {
		return nil, &core.ConstructionError{Class: class.Name(), Server: serverName, Err: err}
	}

	inst := &Instrument{
		class:    class,
		args:     opts.Args,
		kwargs:   instance,
		identity: identity,
		managers: managers,
		manager:  manager,
		logger:   opts.Logger,
	}

	class.RecordInstance(inst)
	if err := inst.Connect(ctx); err != nil {
		class.RemoveInstance(inst)
		return nil, &core.ConstructionError{Class: class.Name(), Server: serverName, Err: err}
	}
	return inst, nil
}

// Connect creates (or re-creates) the instance on the worker and replicates
// its capability surface locally. Each category's proxy mapping is replaced
// wholesale: references to proxies from an earlier Connect become stale.
func (i *Instrument) Connect(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return &core.StaleReferenceError{Instrument: i.name, Op: "Connect"}
	}

	reply, err := i.manager.Connect(ctx, i, i.class, i.args, i.kwargs)
	if err != nil {
		return err
	}
	i.name = reply.Name
	i.id = reply.ID

	caps := newCapabilitySet()
	for name, attrs := range reply.Methods {
		caps.methods[name] = newMethod(name, i, attrs)
	}
	for name, attrs := range reply.Parameters {
		caps.parameters[name] = newParameter(name, i, attrs)
	}
	for name, attrs := range reply.Functions {
		caps.functions[name] = newFunction(name, i, attrs)
	}
	i.caps = caps

	i.logger.Debug("connected remote instrument",
		"instrument", i.name, "id", string(i.id), "server", i.identity.Key())
	return nil
}

// Name returns the remote instance's resolved name.
func (i *Instrument) Name() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.name
}

// RemoteID returns the worker-assigned handle for this instance.
func (i *Instrument) RemoteID() core.RemoteID {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.id
}

// ServerIdentity returns the identity the owning Manager is keyed by.
func (i *Instrument) ServerIdentity() core.ServerIdentity { return i.identity }

// Method returns the method proxy with the given name.
func (i *Instrument) Method(name string) (*Method, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	m, ok := i.caps.methods[name]
	return m, ok
}

// Parameter returns the parameter proxy with the given name.
func (i *Instrument) Parameter(name string) (*Parameter, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	p, ok := i.caps.parameters[name]
	return p, ok
}

// Function returns the function proxy with the given name.
func (i *Instrument) Function(name string) (*Function, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	f, ok := i.caps.functions[name]
	return f, ok
}

// Resolve looks up an unqualified capability name in the fixed category
// order: methods, then parameters, then functions. A name present in two
// categories is reachable only through the earlier one.
func (i *Instrument) Resolve(name string) (core.Capability, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.caps.resolve(name)
}

// Lookup is the indexed access: it checks parameters then functions and
// fails with a LookupError naming both categories when absent from both.
func (i *Instrument) Lookup(name string) (core.Capability, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if p, ok := i.caps.parameters[name]; ok {
		return p, nil
	}
	if f, ok := i.caps.functions[name]; ok {
		return f, nil
	}
	return nil, &core.LookupError{Name: name, Categories: []string{"parameters", "functions"}}
}

// AddParameter extends the remote instance's capability set at runtime and
// materializes exactly one new local proxy from the returned descriptor,
// overwriting any existing proxy under the same name.
func (i *Instrument) AddParameter(ctx context.Context, name string, kwargs core.Kwargs) (*Parameter, error) {
	result, err := i.askServer(ctx, "add_parameter", kwargs, name)
	if err != nil {
		return nil, err
	}
	attrs, ok := core.AsAttrs(result)
	if !ok {
		return nil, &core.RemoteCallError{
			Category: core.CommandCategory, ID: i.id, Func: "add_parameter",
			Err: errUnexpectedDescriptor(result),
		}
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	p := newParameter(name, i, attrs)
	i.caps.parameters[name] = p
	return p, nil
}

// AddFunction extends the remote instance with a new function, mirroring
// AddParameter's local materialization semantics.
func (i *Instrument) AddFunction(ctx context.Context, name string, kwargs core.Kwargs) (*Function, error) {
	result, err := i.askServer(ctx, "add_function", kwargs, name)
	if err != nil {
		return nil, err
	}
	attrs, ok := core.AsAttrs(result)
	if !ok {
		return nil, &core.RemoteCallError{
			Category: core.CommandCategory, ID: i.id, Func: "add_function",
			Err: errUnexpectedDescriptor(result),
		}
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	f := newFunction(name, i, attrs)
	i.caps.functions[name] = f
	return f, nil
}

// Close irreversibly tears down the proxy. Worker liveness is checked first;
// only if the worker is alive is the server-side delete issued, avoiding a
// second failed call against an already-dead worker. The Manager reference is
// dropped and the proxy removed from its class registry unconditionally.
func (i *Instrument) Close(ctx context.Context) error {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return &core.StaleReferenceError{Instrument: i.name, Op: "Close"}
	}
	manager := i.manager
	id := i.id
	i.manager = nil
	i.closed = true
	i.mu.Unlock()

	var err error
	if manager.Alive() {
		err = manager.Delete(id)
	}
	i.class.RemoveInstance(i)
	i.logger.Debug("closed remote instrument", "instrument", i.name, "id", string(id))
	return err
}

// Restart relaunches the worker hosting this instrument. The proxy itself is
// closed first (if it was not already); the Manager is then re-resolved from
// the cache by server identity, which the instrument retains independently of
// its own Manager reference.
func (i *Instrument) Restart(ctx context.Context) error {
	i.mu.Lock()
	closed := i.closed
	i.mu.Unlock()

	if !closed {
		if err := i.Close(ctx); err != nil {
			return err
		}
	}
	manager, ok := i.managers.Lookup(i.identity)
	if !ok {
		return &core.ConstructionError{
			Class:  i.class.Name(),
			Server: i.identity.Name,
			Err:    errNoManagerForIdentity,
		}
	}
	return manager.Restart()
}

// askServer issues a blocking request on behalf of this instrument or one of
// its child proxies and returns the decoded remote result.
func (i *Instrument) askServer(ctx context.Context, funcName string, kwargs core.Kwargs, args ...any) (any, error) {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return nil, &core.StaleReferenceError{Instrument: i.name, Op: funcName}
	}
	manager := i.manager
	id := i.id
	i.mu.Unlock()

	start := time.Now()
	result, err := manager.Ask(ctx, core.CommandCategory, id, funcName, kwargs, args...)
	i.logger.Debug("ask", "instrument", i.name, "func", funcName,
		"duration", time.Since(start), "err", err)
	return result, err
}

// writeServer sends the same addressed message as askServer without waiting
// for or expecting a response.
func (i *Instrument) writeServer(funcName string, kwargs core.Kwargs, args ...any) error {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return &core.StaleReferenceError{Instrument: i.name, Op: funcName}
	}
	manager := i.manager
	id := i.id
	i.mu.Unlock()

	err := manager.Write(core.CommandCategory, id, funcName, kwargs, args...)
	i.logger.Debug("write", "instrument", i.name, "func", funcName, "err", err)
	return err
}

// capabilitySet is the typed capability registry built at connect time. The
// mapping per category is replaced wholesale on every Connect.
type capabilitySet struct {
	methods    map[string]*Method
	parameters map[string]*Parameter
	functions  map[string]*Function
}

func newCapabilitySet() capabilitySet {
	return capabilitySet{
		methods:    make(map[string]*Method),
		parameters: make(map[string]*Parameter),
		functions:  make(map[string]*Function),
	}
}

// resolve encodes the fixed unqualified lookup order.
func (c *capabilitySet) resolve(name string) (core.Capability, bool) {
	if m, ok := c.methods[name]; ok {
		return m, true
	}
	if p, ok := c.parameters[name]; ok {
		return p, true
	}
	if f, ok := c.functions[name]; ok {
		return f, true
	}
	return nil, false
}
