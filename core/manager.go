package core

import (
	"context"
	"sync"
)

// CommandCategory addresses the command channel of a worker. Every ask/write
// issued on behalf of a capability proxy uses this category; a Manager must
// preserve request/response pairing per remote id and per category.
const CommandCategory = "cmd"

// Manager owns one worker and its wire protocol for one server identity. It
// is transport-agnostic: implementations may use pipes, sockets, shared
// memory or in-process channels.
//
// A Manager is borrowed by the proxies bound to its identity, never owned;
// it must not be used after the borrowing proxy is closed. Retry, timeout
// and cancellation policy live entirely inside the Manager.
type Manager interface {
	// Connect creates the remote instance for the proxy and returns the
	// introspection handshake result.
	Connect(ctx context.Context, proxy Proxy, class Class, args Args, kwargs Kwargs) (*ConnectReply, error)

	// Ask issues a blocking request addressed to (category, id, funcName)
	// and returns the decoded remote result, or an error if the remote side
	// reports failure.
	Ask(ctx context.Context, category string, id RemoteID, funcName string, kwargs Kwargs, args ...any) (any, error)

	// Write sends the same addressed message as Ask without waiting for or
	// expecting a response. The returned error covers local submission
	// failure only.
	Write(category string, id RemoteID, funcName string, kwargs Kwargs, args ...any) error

	// Delete tears down one remote instance. No reply is expected.
	Delete(id RemoteID) error

	// Restart relaunches the worker. Existing remote ids become invalid.
	Restart() error

	// Alive reports whether the associated worker is still active.
	Alive() bool
}

// ManagerFactory creates the Manager for a server identity on first
// acquisition.
type ManagerFactory func(identity ServerIdentity) (Manager, error)

// ManagerCache holds at most one Manager per server identity. It is owned by
// the top-level connection context and shared by all proxies created through
// that context.
type ManagerCache struct {
	mu       sync.Mutex
	factory  ManagerFactory
	managers map[string]Manager
}

// NewManagerCache creates a cache that builds missing managers with factory.
func NewManagerCache(factory ManagerFactory) *ManagerCache {
	return &ManagerCache{factory: factory, managers: make(map[string]Manager)}
}

// Acquire returns the Manager for the identity, creating it on first use.
func (c *ManagerCache) Acquire(identity ServerIdentity) (Manager, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := identity.Key()
	if m, ok := c.managers[key]; ok {
		return m, nil
	}
	if c.factory == nil {
		return nil, &ConstructionError{
			Server: identity.Name,
			Err:    ErrNoManagerFactory,
		}
	}
	m, err := c.factory(identity)
	if err != nil {
		return nil, err
	}
	c.managers[key] = m
	return m, nil
}

// Lookup returns the cached Manager for the identity without creating one.
func (c *ManagerCache) Lookup(identity ServerIdentity) (Manager, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.managers[identity.Key()]
	return m, ok
}

// Remove evicts the Manager for the identity, if cached.
func (c *ManagerCache) Remove(identity ServerIdentity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.managers, identity.Key())
}

// Len returns the number of cached managers.
func (c *ManagerCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.managers)
}
