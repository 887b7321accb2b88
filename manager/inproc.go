package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/instrumesh/core"
	"github.com/hupe1980/instrumesh/logging"
)

// Driver is the worker-side contract: a concrete instrument the worker hosts.
// Introspection feeds the connect handshake; Handle serves every later
// command addressed to the instance ("get", "set", "call", "getattr",
// "setattr", "callattr", "add_parameter", "add_function", or an instrument
// method name).
//
// A Driver is only ever touched by its worker's command loop, so
// implementations need no internal locking for that path.
type Driver interface {
	Name() string
	Methods() map[string]core.Attrs
	Parameters() map[string]core.Attrs
	Functions() map[string]core.Attrs
	Handle(funcName string, kwargs core.Kwargs, args ...any) (any, error)
}

// DriverFactory constructs the concrete driver for a remote construction
// call. class is the capability class name; shared carries the worker-level
// kwargs the instance was colocated by.
type DriverFactory func(class string, args core.Args, kwargs core.Kwargs, shared core.Kwargs) (Driver, error)

// Options configures an InProc manager.
type Options struct {
	// BufferSize is the command channel buffer of the worker loop.
	BufferSize int

	// AskTimeout bounds every blocking ask. Zero means no bound beyond the
	// caller's context.
	AskTimeout time.Duration

	// Logger receives worker lifecycle records. Defaults to NoOp.
	Logger logging.Logger
}

var errWorkerDead = errors.New("worker is not alive")

type cmdOp int

const (
	opConnect cmdOp = iota
	opAsk
	opDelete
)

type command struct {
	op     cmdOp
	id     core.RemoteID
	class  string
	fn     string
	args   core.Args
	kwargs core.Kwargs
	reply  chan result // nil for fire-and-forget
}

type result struct {
	value any
	err   error
}

// InProc is a core.Manager hosting driver instances behind one command-loop
// goroutine, the in-process analogue of a worker process. All commands for
// one identity are totally ordered by the loop; several instances may be
// hosted simultaneously, each under its own RemoteID.
type InProc struct {
	identity core.ServerIdentity
	factory  DriverFactory
	opts     Options

	mu    sync.Mutex
	alive bool
	cmds  chan command
	quit  chan struct{}
}

// NewInProc creates the manager and launches its worker loop.
func NewInProc(identity core.ServerIdentity, factory DriverFactory, optFns ...func(*Options)) *InProc {
	opts := Options{BufferSize: 16, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	m := &InProc{identity: identity, factory: factory, opts: opts}
	m.launch()
	return m
}

// Factory adapts InProc construction to the core.ManagerFactory signature
// used by a ManagerCache.
func Factory(factory DriverFactory, optFns ...func(*Options)) core.ManagerFactory {
	return func(identity core.ServerIdentity) (core.Manager, error) {
		return NewInProc(identity, factory, optFns...), nil
	}
}

func (m *InProc) launch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cmds = make(chan command, m.opts.BufferSize)
	m.quit = make(chan struct{})
	m.alive = true
	go m.loop(m.cmds, m.quit)
	m.opts.Logger.Debug("worker launched", "server", m.identity.Key())
}

// loop owns the hosted driver instances. It exits when quit is closed.
func (m *InProc) loop(cmds chan command, quit chan struct{}) {
	instances := make(map[core.RemoteID]Driver)
	for {
		select {
		case <-quit:
			return
		case cmd := <-cmds:
			res := m.serve(instances, cmd)
			if cmd.reply != nil {
				cmd.reply <- res
			}
		}
	}
}

func (m *InProc) serve(instances map[core.RemoteID]Driver, cmd command) result {
	switch cmd.op {
	case opConnect:
		driver, err := m.factory(cmd.class, cmd.args, cmd.kwargs, m.identity.Shared)
		if err != nil {
			return result{err: err}
		}
		id := core.RemoteID(uuid.NewString())
		instances[id] = driver
		return result{value: &core.ConnectReply{
			Name:       driver.Name(),
			ID:         id,
			Methods:    driver.Methods(),
			Parameters: driver.Parameters(),
			Functions:  driver.Functions(),
		}}
	case opAsk:
		driver, ok := instances[cmd.id]
		if !ok {
			return result{err: &core.RemoteCallError{
				Category: core.CommandCategory, ID: cmd.id, Func: cmd.fn,
				Err: fmt.Errorf("unknown remote id %q", cmd.id),
			}}
		}
		value, err := driver.Handle(cmd.fn, cmd.kwargs, cmd.args...)
		if err != nil {
			return result{err: &core.RemoteCallError{
				Category: core.CommandCategory, ID: cmd.id, Func: cmd.fn, Err: err,
			}}
		}
		return result{value: value}
	case opDelete:
		delete(instances, cmd.id)
		return result{}
	default:
		return result{err: fmt.Errorf("unknown worker op %d", cmd.op)}
	}
}

func (m *InProc) submit(ctx context.Context, cmd command) (any, error) {
	m.mu.Lock()
	alive := m.alive
	cmds := m.cmds
	quit := m.quit
	m.mu.Unlock()
	if !alive {
		return nil, errWorkerDead
	}

	if m.opts.AskTimeout > 0 && cmd.reply != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.opts.AskTimeout)
		defer cancel()
	}

	select {
	case cmds <- cmd:
	case <-quit:
		return nil, errWorkerDead
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if cmd.reply == nil {
		return nil, nil
	}

	select {
	case res := <-cmd.reply:
		return res.value, res.err
	case <-quit:
		return nil, errWorkerDead
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Connect implements core.Manager: it constructs the driver inside the worker
// loop and returns the introspection handshake.
func (m *InProc) Connect(ctx context.Context, _ core.Proxy, class core.Class, args core.Args, kwargs core.Kwargs) (*core.ConnectReply, error) {
	value, err := m.submit(ctx, command{
		op:     opConnect,
		class:  class.Name(),
		args:   args,
		kwargs: kwargs,
		reply:  make(chan result, 1),
	})
	if err != nil {
		return nil, err
	}
	return value.(*core.ConnectReply), nil
}

// Ask implements core.Manager: a blocking round trip through the worker loop.
func (m *InProc) Ask(ctx context.Context, _ string, id core.RemoteID, funcName string, kwargs core.Kwargs, args ...any) (any, error) {
	return m.submit(ctx, command{
		op:     opAsk,
		id:     id,
		fn:     funcName,
		args:   args,
		kwargs: kwargs,
		reply:  make(chan result, 1),
	})
}

// Write implements core.Manager: the same addressed message without a reply.
func (m *InProc) Write(_ string, id core.RemoteID, funcName string, kwargs core.Kwargs, args ...any) error {
	_, err := m.submit(context.Background(), command{
		op:     opAsk,
		id:     id,
		fn:     funcName,
		args:   args,
		kwargs: kwargs,
	})
	return err
}

// Delete implements core.Manager: the hosted instance is dropped, no reply.
func (m *InProc) Delete(id core.RemoteID) error {
	_, err := m.submit(context.Background(), command{op: opDelete, id: id})
	return err
}

// Restart implements core.Manager: the worker loop is torn down and
// relaunched. Every previously issued RemoteID becomes invalid.
func (m *InProc) Restart() error {
	m.Stop()
	m.launch()
	return nil
}

// Alive implements core.Manager.
func (m *InProc) Alive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.alive
}

// Stop terminates the worker loop without relaunching it. Subsequent asks and
// writes fail; Alive reports false.
func (m *InProc) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.alive {
		return
	}
	m.alive = false
	close(m.quit)
	m.opts.Logger.Debug("worker stopped", "server", m.identity.Key())
}
