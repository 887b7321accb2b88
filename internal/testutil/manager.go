package testutil

import (
	"context"
	"sync"
	"testing"

	"github.com/hupe1980/instrumesh/core"
)

// Call records one operation issued against a FakeManager.
type Call struct {
	Kind     string // "connect", "ask", "write", "delete" or "restart"
	Category string
	ID       core.RemoteID
	Func     string
	Args     []any
	Kwargs   core.Kwargs
}

// FakeManager is a scriptable core.Manager for tests. Configure it with the
// fluent With* helpers; every operation is recorded for later assertion.
// Example:
//
//	mgr := testutil.NewFakeManager().
//	    WithParameter("gain", core.Attrs{"doc": "amplifier gain"}).
//	    WithReply("get", 4.2)
//
// Strict mode (Strict) fails the enclosing test on any ask or write, which is
// how locality properties are verified.
type FakeManager struct {
	mu         sync.Mutex
	t          *testing.T
	strict     bool
	alive      bool
	connect    core.ConnectReply
	connectErr error
	replies    map[string]any
	errs       map[string]error
	calls      []Call
}

// NewFakeManager creates a live FakeManager with an empty handshake reply
// named "fake" and id "remote-1".
func NewFakeManager() *FakeManager {
	return &FakeManager{
		alive: true,
		connect: core.ConnectReply{
			Name:       "fake",
			ID:         "remote-1",
			Methods:    map[string]core.Attrs{},
			Parameters: map[string]core.Attrs{},
			Functions:  map[string]core.Attrs{},
		},
		replies: map[string]any{},
		errs:    map[string]error{},
	}
}

// WithName sets the handshake name (chainable).
func (f *FakeManager) WithName(name string) *FakeManager {
	f.connect.Name = name
	return f
}

// WithID sets the handshake remote id (chainable).
func (f *FakeManager) WithID(id core.RemoteID) *FakeManager {
	f.connect.ID = id
	return f
}

// WithMethod adds a method descriptor to the handshake reply (chainable).
func (f *FakeManager) WithMethod(name string, attrs core.Attrs) *FakeManager {
	f.connect.Methods[name] = attrs
	return f
}

// WithParameter adds a parameter descriptor to the handshake reply (chainable).
func (f *FakeManager) WithParameter(name string, attrs core.Attrs) *FakeManager {
	f.connect.Parameters[name] = attrs
	return f
}

// WithFunction adds a function descriptor to the handshake reply (chainable).
func (f *FakeManager) WithFunction(name string, attrs core.Attrs) *FakeManager {
	f.connect.Functions[name] = attrs
	return f
}

// WithConnectError scripts a handshake failure (chainable).
func (f *FakeManager) WithConnectError(err error) *FakeManager {
	f.connectErr = err
	return f
}

// WithReply scripts the Ask result for a funcName (chainable).
func (f *FakeManager) WithReply(funcName string, v any) *FakeManager {
	f.replies[funcName] = v
	return f
}

// WithError scripts an Ask failure for a funcName (chainable).
func (f *FakeManager) WithError(funcName string, err error) *FakeManager {
	f.errs[funcName] = err
	return f
}

// WithAlive sets the worker liveness report (chainable).
func (f *FakeManager) WithAlive(alive bool) *FakeManager {
	f.alive = alive
	return f
}

// Strict makes any ask or write fail the test (chainable).
func (f *FakeManager) Strict(t *testing.T) *FakeManager {
	f.t = t
	f.strict = true
	return f
}

// Connect implements core.Manager.
func (f *FakeManager) Connect(_ context.Context, _ core.Proxy, class core.Class, args core.Args, kwargs core.Kwargs) (*core.ConnectReply, error) {
	f.record(Call{Kind: "connect", Func: class.Name(), Args: args, Kwargs: kwargs})
	if f.connectErr != nil {
		return nil, f.connectErr
	}
	reply := f.connect
	return &reply, nil
}

// Ask implements core.Manager.
func (f *FakeManager) Ask(_ context.Context, category string, id core.RemoteID, funcName string, kwargs core.Kwargs, args ...any) (any, error) {
	if f.strict {
		f.t.Helper()
		f.t.Fatalf("unexpected ask %q on strict fake manager", funcName)
	}
	f.record(Call{Kind: "ask", Category: category, ID: id, Func: funcName, Args: args, Kwargs: kwargs})
	if err, ok := f.errs[funcName]; ok {
		return nil, &core.RemoteCallError{Category: category, ID: id, Func: funcName, Err: err}
	}
	return f.replies[funcName], nil
}

// Write implements core.Manager.
func (f *FakeManager) Write(category string, id core.RemoteID, funcName string, kwargs core.Kwargs, args ...any) error {
	if f.strict {
		f.t.Helper()
		f.t.Fatalf("unexpected write %q on strict fake manager", funcName)
	}
	f.record(Call{Kind: "write", Category: category, ID: id, Func: funcName, Args: args, Kwargs: kwargs})
	return nil
}

// Delete implements core.Manager.
func (f *FakeManager) Delete(id core.RemoteID) error {
	f.record(Call{Kind: "delete", ID: id})
	return nil
}

// Restart implements core.Manager.
func (f *FakeManager) Restart() error {
	f.record(Call{Kind: "restart"})
	return nil
}

// Alive implements core.Manager. Liveness queries are not recorded as calls.
func (f *FakeManager) Alive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alive
}

func (f *FakeManager) record(c Call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

// Calls returns a copy of every recorded call.
func (f *FakeManager) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallsOf returns the recorded calls of one kind.
func (f *FakeManager) CallsOf(kind string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Call
	for _, c := range f.calls {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// Reset clears the recorded calls.
func (f *FakeManager) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}
