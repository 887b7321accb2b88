package core

import "sync"

// InstanceRegistry tracks live proxies per capability class. It is owned by
// an explicit top-level connection context rather than living as hidden
// package state, and is safe for concurrent construct/close.
type InstanceRegistry struct {
	mu        sync.RWMutex
	instances map[string][]Proxy // class name -> live proxies
}

// NewInstanceRegistry creates an empty registry.
func NewInstanceRegistry() *InstanceRegistry {
	return &InstanceRegistry{instances: make(map[string][]Proxy)}
}

// Record adds a proxy under the given class name.
func (r *InstanceRegistry) Record(class string, p Proxy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances[class] = append(r.instances[class], p)
}

// Remove drops a proxy from the given class. Removing a proxy that was never
// recorded is a no-op.
func (r *InstanceRegistry) Remove(class string, p Proxy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.instances[class]
	for i, candidate := range list {
		if candidate == p {
			r.instances[class] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// Instances returns a copy of the live proxy list for the class.
func (r *InstanceRegistry) Instances(class string) []Proxy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Proxy(nil), r.instances[class]...)
}

// All returns every live proxy across all classes.
func (r *InstanceRegistry) All() []Proxy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var all []Proxy
	for _, list := range r.instances {
		all = append(all, list...)
	}
	return all
}
