package manager

import (
	"fmt"

	"github.com/hupe1980/instrumesh/core"
)

// SimDriver is an introspectable simulated instrument driver for examples and
// tests. Parameters hold plain values, functions and methods are Go closures.
// It implements the full command surface the proxy layer relies on, including
// the segment-path attribute escape hatch, snapshotting and runtime extension
// via add_parameter / add_function.
type SimDriver struct {
	name       string
	parameters map[string]*simParameter
	functions  map[string]*simFunction
	methods    map[string]*simMethod
}

type simParameter struct {
	value any
	attrs core.Attrs
}

type simFunction struct {
	fn    func(args ...any) (any, error)
	attrs core.Attrs
}

type simMethod struct {
	fn    func(kwargs core.Kwargs, args ...any) (any, error)
	attrs core.Attrs
}

// NewSimDriver creates an empty simulated driver.
func NewSimDriver(name string) *SimDriver {
	return &SimDriver{
		name:       name,
		parameters: make(map[string]*simParameter),
		functions:  make(map[string]*simFunction),
		methods:    make(map[string]*simMethod),
	}
}

// AddParameter registers a parameter with its initial value and descriptor
// attributes (chainable).
func (d *SimDriver) AddParameter(name string, initial any, attrs core.Attrs) *SimDriver {
	d.parameters[name] = &simParameter{value: initial, attrs: attrs.Clone()}
	return d
}

// AddFunction registers a positional-args-only function (chainable).
func (d *SimDriver) AddFunction(name string, attrs core.Attrs, fn func(args ...any) (any, error)) *SimDriver {
	d.functions[name] = &simFunction{fn: fn, attrs: attrs.Clone()}
	return d
}

// AddMethod registers an instrument method (chainable).
func (d *SimDriver) AddMethod(name string, attrs core.Attrs, fn func(kwargs core.Kwargs, args ...any) (any, error)) *SimDriver {
	d.methods[name] = &simMethod{fn: fn, attrs: attrs.Clone()}
	return d
}

// Name implements Driver.
func (d *SimDriver) Name() string { return d.name }

// Methods implements Driver.
func (d *SimDriver) Methods() map[string]core.Attrs {
	out := make(map[string]core.Attrs, len(d.methods))
	for name, m := range d.methods {
		out[name] = m.attrs.Clone()
	}
	return out
}

// Parameters implements Driver.
func (d *SimDriver) Parameters() map[string]core.Attrs {
	out := make(map[string]core.Attrs, len(d.parameters))
	for name, p := range d.parameters {
		out[name] = p.attrs.Clone()
	}
	return out
}

// Functions implements Driver.
func (d *SimDriver) Functions() map[string]core.Attrs {
	out := make(map[string]core.Attrs, len(d.functions))
	for name, f := range d.functions {
		out[name] = f.attrs.Clone()
	}
	return out
}

// Handle implements Driver.
func (d *SimDriver) Handle(funcName string, kwargs core.Kwargs, args ...any) (any, error) {
	switch funcName {
	case "get":
		p, err := d.parameterArg(args, 0)
		if err != nil {
			return nil, err
		}
		return p.value, nil
	case "set":
		p, err := d.parameterArg(args, 0)
		if err != nil {
			return nil, err
		}
		if len(args) < 2 {
			return nil, fmt.Errorf("set needs a value")
		}
		p.value = args[1]
		return nil, nil
	case "call":
		name, err := stringArg(args, 0)
		if err != nil {
			return nil, err
		}
		f, ok := d.functions[name]
		if !ok {
			return nil, fmt.Errorf("unknown function %q", name)
		}
		if f.fn == nil {
			return nil, fmt.Errorf("function %q has no implementation", name)
		}
		return f.fn(args[1:]...)
	case "getattr":
		path, err := pathArg(args, 0)
		if err != nil {
			return nil, err
		}
		return d.getAttr(path)
	case "setattr":
		path, err := pathArg(args, 0)
		if err != nil {
			return nil, err
		}
		if len(args) < 2 {
			return nil, fmt.Errorf("setattr needs a value")
		}
		return nil, d.setAttr(path, args[1])
	case "callattr":
		path, err := pathArg(args, 0)
		if err != nil {
			return nil, err
		}
		return d.callAttr(path, args[1:]...)
	case "add_parameter":
		name, err := stringArg(args, 0)
		if err != nil {
			return nil, err
		}
		attrs := core.Attrs(kwargs.Clone())
		initial := attrs["initial"]
		delete(attrs, "initial")
		d.parameters[name] = &simParameter{value: initial, attrs: attrs}
		return attrs.Clone(), nil
	case "add_function":
		name, err := stringArg(args, 0)
		if err != nil {
			return nil, err
		}
		attrs := core.Attrs(kwargs.Clone())
		d.functions[name] = &simFunction{attrs: attrs}
		return attrs.Clone(), nil
	default:
		m, ok := d.methods[funcName]
		if !ok {
			return nil, fmt.Errorf("unknown command %q", funcName)
		}
		return m.fn(kwargs, args...)
	}
}

// getAttr walks the segment path: the first segment names a parameter, the
// rest index into its attribute data.
func (d *SimDriver) getAttr(path []string) (any, error) {
	p, rest, err := d.resolveParam(path)
	if err != nil {
		return nil, err
	}
	var current any = p.attrs
	for _, seg := range rest {
		attrs, ok := core.AsAttrs(current)
		if !ok {
			return nil, fmt.Errorf("attribute path %v does not resolve", path)
		}
		current, ok = attrs[seg]
		if !ok {
			return nil, fmt.Errorf("no attribute %q on parameter %q", seg, path[0])
		}
	}
	return current, nil
}

func (d *SimDriver) setAttr(path []string, value any) error {
	p, rest, err := d.resolveParam(path)
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		return fmt.Errorf("setattr needs an attribute segment")
	}
	attrs := p.attrs
	for _, seg := range rest[:len(rest)-1] {
		next, ok := core.AsAttrs(attrs[seg])
		if !ok {
			return fmt.Errorf("attribute path %v does not resolve", path)
		}
		attrs = next
	}
	attrs[rest[len(rest)-1]] = value
	return nil
}

func (d *SimDriver) callAttr(path []string, args ...any) (any, error) {
	p, rest, err := d.resolveParam(path)
	if err != nil {
		return nil, err
	}
	if len(rest) != 1 {
		return nil, fmt.Errorf("callattr path %v does not name a callable", path)
	}
	switch rest[0] {
	case "_latest":
		return p.value, nil
	case "snapshot":
		snap := map[string]any{"value": p.value}
		for k, v := range p.attrs {
			snap[k] = v
		}
		return snap, nil
	default:
		return nil, fmt.Errorf("parameter %q has no callable %q", path[0], rest[0])
	}
}

func (d *SimDriver) resolveParam(path []string) (*simParameter, []string, error) {
	if len(path) == 0 {
		return nil, nil, fmt.Errorf("empty attribute path")
	}
	p, ok := d.parameters[path[0]]
	if !ok {
		return nil, nil, fmt.Errorf("unknown parameter %q", path[0])
	}
	return p, path[1:], nil
}

func (d *SimDriver) parameterArg(args []any, i int) (*simParameter, error) {
	name, err := stringArg(args, i)
	if err != nil {
		return nil, err
	}
	p, ok := d.parameters[name]
	if !ok {
		return nil, fmt.Errorf("unknown parameter %q", name)
	}
	return p, nil
}

func stringArg(args []any, i int) (string, error) {
	if i >= len(args) {
		return "", fmt.Errorf("missing argument %d", i)
	}
	s, ok := args[i].(string)
	if !ok {
		return "", fmt.Errorf("argument %d: expected string, got %T", i, args[i])
	}
	return s, nil
}

func pathArg(args []any, i int) ([]string, error) {
	if i >= len(args) {
		return nil, fmt.Errorf("missing argument %d", i)
	}
	p, ok := args[i].([]string)
	if !ok {
		return nil, fmt.Errorf("argument %d: expected path segments, got %T", i, args[i])
	}
	return p, nil
}
