package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoManagerFactory is returned when a ManagerCache has to create a Manager
// but was constructed without a factory.
var ErrNoManagerFactory = errors.New("no manager factory configured")

// ConstructionError reports a failed server resolution or remote
// construction. The proxy is left unregistered when it is returned.
type ConstructionError struct {
	Class  string // capability class name, if known
	Server string // resolved server name, if known
	Err    error
}

// Error implements the error interface.
func (e *ConstructionError) Error() string {
	return fmt.Sprintf("constructing remote instrument (class %q, server %q): %v", e.Class, e.Server, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ConstructionError) Unwrap() error { return e.Err }

// RemoteCallError reports a failure the remote side raised during an ask. It
// is propagated unchanged to the caller: never retried, never locally
// recovered.
type RemoteCallError struct {
	Category string
	ID       RemoteID
	Func     string
	Err      error
}

// Error implements the error interface.
func (e *RemoteCallError) Error() string {
	return fmt.Sprintf("remote call %s/%s on %s failed: %v", e.Category, e.Func, e.ID, e.Err)
}

// Unwrap returns the remote-reported cause.
func (e *RemoteCallError) Unwrap() error { return e.Err }

// LookupError reports an indexed capability lookup missing every searched
// category. The message names all of them.
type LookupError struct {
	Name       string
	Categories []string
}

// Error implements the error interface.
func (e *LookupError) Error() string {
	return fmt.Sprintf("%q not found in %s", e.Name, strings.Join(e.Categories, " or "))
}

// StaleReferenceError reports a call on a proxy after Close. Closing is
// irreversible; the stale proxy holds no Manager reference anymore.
type StaleReferenceError struct {
	Instrument string
	Op         string
}

// Error implements the error interface.
func (e *StaleReferenceError) Error() string {
	return fmt.Sprintf("%s on closed remote instrument %q", e.Op, e.Instrument)
}
