package remote

import (
	"fmt"

	"github.com/hupe1980/instrumesh/core"
)

// component bundles what every capability proxy shares: its name, the owning
// instrument and the attribute snapshot copied from its descriptor. The
// documentation attribute, when present and non-empty, is rewritten so the
// remote origin is always recoverable from the proxy alone.
type component struct {
	name       string
	kind       core.Kind
	instrument *Instrument
	attrs      core.Attrs
}

func newComponent(name string, kind core.Kind, inst *Instrument, attrs core.Attrs) component {
	c := component{
		name:       name,
		kind:       kind,
		instrument: inst,
		attrs:      attrs.Clone(),
	}
	if doc := attrs.Doc(); doc != "" {
		// inst.mu may be held by the caller (Connect builds proxies under
		// lock), so read the name field directly.
		c.attrs[core.DocKey] = fmt.Sprintf("Remote%s %s in RemoteInstrument %s\n---\n\n%s",
			kind, name, inst.name, doc)
	}
	return c
}

// Name returns the capability name, used verbatim as the remote lookup key.
func (c *component) Name() string { return c.name }

// Kind returns the capability category.
func (c *component) Kind() core.Kind { return c.kind }

// Doc returns the provenance-rewritten documentation string, if any.
func (c *component) Doc() string { return c.attrs.Doc() }

// Attr returns one descriptor attribute copied at construction time.
func (c *component) Attr(key string) (any, bool) {
	v, ok := c.attrs[key]
	return v, ok
}

// Attrs returns a copy of the descriptor attributes.
func (c *component) Attrs() core.Attrs { return c.attrs.Clone() }

// String implements fmt.Stringer.
func (c *component) String() string {
	return fmt.Sprintf("Remote%s %s", c.kind, c.name)
}
