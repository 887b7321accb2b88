package core

import (
	"fmt"
	"sort"
	"strings"
)

// RemoteID identifies one instrument instance within its worker for the
// lifetime of the proxy. A worker may host several instances simultaneously;
// IDs are unique within a worker and must not be reused after close.
type RemoteID string

// Args carries positional arguments for a remote call or construction.
type Args []any

// Kwargs carries keyword arguments for a remote call or construction.
type Kwargs map[string]any

// Clone returns a shallow copy of the kwargs map. A nil receiver yields an
// empty, non-nil map so callers may mutate the result freely.
func (k Kwargs) Clone() Kwargs {
	out := make(Kwargs, len(k))
	for key, v := range k {
		out[key] = v
	}
	return out
}

// PartitionKwargs splits kwargs into the shared subset (used only to select
// or create the worker) and the instance subset (forwarded only to the remote
// construction call). A key appears in exactly one of the two results.
func PartitionKwargs(kwargs Kwargs, sharedKeys []string) (shared, instance Kwargs) {
	shared = make(Kwargs)
	instance = kwargs.Clone()
	for _, key := range sharedKeys {
		if v, ok := instance[key]; ok {
			shared[key] = v
			delete(instance, key)
		}
	}
	return shared, instance
}

// Attrs is arbitrary key/value data describing one reflected capability.
// The optional documentation string is stored under the "doc" key.
type Attrs map[string]any

// DocKey is the Attrs key holding a capability's documentation string.
const DocKey = "doc"

// Doc returns the documentation string carried by the attrs, if any.
func (a Attrs) Doc() string {
	doc, _ := a[DocKey].(string)
	return doc
}

// Clone returns a shallow copy of the attrs map.
func (a Attrs) Clone() Attrs {
	out := make(Attrs, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// AsAttrs coerces a decoded remote result into Attrs. Managers are free to
// return either Attrs or a plain map.
func AsAttrs(v any) (Attrs, bool) {
	switch m := v.(type) {
	case Attrs:
		return m, true
	case map[string]any:
		return Attrs(m), true
	case nil:
		return Attrs{}, true
	default:
		return nil, false
	}
}

// ServerIdentity selects or creates a Manager. Instruments constructed with
// the same name and identical shared kwarg values colocate on one worker.
type ServerIdentity struct {
	Name   string
	Shared Kwargs
}

// Key returns a deterministic cache key for the identity. Shared kwargs are
// rendered in sorted key order so equal identities map to equal keys.
func (s ServerIdentity) Key() string {
	if len(s.Shared) == 0 {
		return s.Name
	}
	keys := make([]string, 0, len(s.Shared))
	for k := range s.Shared {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(s.Name)
	for _, k := range keys {
		fmt.Fprintf(&b, "|%s=%v", k, s.Shared[k])
	}
	return b.String()
}

// String implements fmt.Stringer.
func (s ServerIdentity) String() string { return s.Key() }

// ConnectReply is the introspection handshake result: the remote instance's
// resolved name and id plus one descriptor per reflected capability, grouped
// by category.
type ConnectReply struct {
	Name       string
	ID         RemoteID
	Methods    map[string]Attrs
	Parameters map[string]Attrs
	Functions  map[string]Attrs
}
