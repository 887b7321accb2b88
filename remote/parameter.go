package remote

import (
	"context"
	"fmt"

	"github.com/hupe1980/instrumesh/core"
)

// Parameter is a proxy for a readable/writable value of the remote
// instrument. Get and Set are forwarded to the worker; Validate, Sweep and
// index access execute locally against the definition copied at construction
// time, accepting a staleness risk if the live rules later change.
type Parameter struct {
	component
	validator   Validator
	setViaWrite bool

	// GetLatest is the "latest value" holder attached at construction. Its
	// Get performs a private round trip rather than serving a local cache,
	// so fetching the latest value of a remote parameter is not latency-free.
	// This is a deliberate, documented non-optimization.
	GetLatest *LatestValue
}

func newParameter(name string, inst *Instrument, attrs core.Attrs) *Parameter {
	p := &Parameter{
		component: newComponent(name, core.KindParameter, inst, attrs),
		validator: validatorFromAttrs(attrs),
	}
	if b, ok := attrs["set_via_write"].(bool); ok {
		p.setViaWrite = b
	}
	p.GetLatest = &LatestValue{param: p}
	return p
}

// Get reads the parameter value from the worker, blocking for the result.
func (p *Parameter) Get(ctx context.Context) (any, error) {
	return p.instrument.askServer(ctx, "get", nil, p.name)
}

// Set writes a new value. By default it blocks until the worker confirms;
// when the parameter is configured for fire-and-forget sets (via the
// "set_via_write" descriptor attribute or SetViaWrite) the message is sent
// without expecting a response.
func (p *Parameter) Set(ctx context.Context, value any) error {
	if p.setViaWrite {
		return p.instrument.writeServer("set", nil, p.name, value)
	}
	_, err := p.instrument.askServer(ctx, "set", nil, p.name, value)
	return err
}

// SetViaWrite switches this parameter between confirmed (blocking) and
// fire-and-forget sets.
func (p *Parameter) SetViaWrite(enabled bool) { p.setViaWrite = enabled }

// Validate tests a value against the local copy of the parameter definition.
// No round trip is performed.
func (p *Parameter) Validate(value any) error {
	if err := p.validator.Validate(value); err != nil {
		return fmt.Errorf("parameter %s: %w", p.name, err)
	}
	return nil
}

// Sweep builds the value sequence from start to stop (inclusive, subject to
// step granularity) entirely locally, validating the endpoints against the
// local definition copy.
func (p *Parameter) Sweep(start, stop, step float64) ([]float64, error) {
	if step == 0 {
		return nil, fmt.Errorf("parameter %s: sweep step must be non-zero", p.name)
	}
	if err := p.Validate(start); err != nil {
		return nil, err
	}
	if err := p.Validate(stop); err != nil {
		return nil, err
	}
	if (stop-start)*step < 0 {
		step = -step
	}
	var values []float64
	if step > 0 {
		for v := start; v <= stop; v += step {
			values = append(values, v)
		}
	} else {
		for v := start; v >= stop; v += step {
			values = append(values, v)
		}
	}
	return values, nil
}

// GetAttr reads an attribute of the remote parameter not otherwise mirrored
// locally. The path is a sequence of segments relative to the parameter, so
// a segment containing a literal separator character stays unambiguous.
func (p *Parameter) GetAttr(ctx context.Context, path ...string) (any, error) {
	return p.instrument.askServer(ctx, "getattr", nil, p.attrPath(path))
}

// SetAttr writes an attribute of the remote parameter, addressed like GetAttr.
func (p *Parameter) SetAttr(ctx context.Context, path []string, value any) error {
	_, err := p.instrument.askServer(ctx, "setattr", nil, p.attrPath(path), value)
	return err
}

// CallAttr calls an arbitrary method of the remote parameter, addressed like
// GetAttr. There is no local validation on this escape hatch.
func (p *Parameter) CallAttr(ctx context.Context, path []string, args ...any) (any, error) {
	wireArgs := make([]any, 0, len(args)+1)
	wireArgs = append(wireArgs, p.attrPath(path))
	wireArgs = append(wireArgs, args...)
	return p.instrument.askServer(ctx, "callattr", nil, wireArgs...)
}

// Snapshot returns the remote parameter's state. It is always a round trip,
// never served from a local cache.
func (p *Parameter) Snapshot(ctx context.Context, update bool) (any, error) {
	return p.CallAttr(ctx, []string{"snapshot"}, update)
}

func (p *Parameter) attrPath(path []string) []string {
	full := make([]string, 0, len(path)+1)
	full = append(full, p.name)
	full = append(full, path...)
	return full
}

// LatestValue fetches the most recently known value of its parameter from the
// worker. See the GetLatest field of Parameter for semantics.
type LatestValue struct {
	param *Parameter
}

// Get performs the round trip for the latest value.
func (l *LatestValue) Get(ctx context.Context) (any, error) {
	return l.param.CallAttr(ctx, []string{"_latest"})
}
