package remote

import (
	"context"

	"github.com/hupe1980/instrumesh/core"
)

// Method is a proxy for a callable action of the remote instrument. Every
// call is synchronous and forwards both positional and keyword arguments.
type Method struct {
	component
}

func newMethod(name string, inst *Instrument, attrs core.Attrs) *Method {
	return &Method{component: newComponent(name, core.KindMethod, inst, attrs)}
}

// Call invokes the method on the worker with positional arguments and blocks
// for the decoded result.
func (m *Method) Call(ctx context.Context, args ...any) (any, error) {
	return m.instrument.askServer(ctx, m.name, nil, args...)
}

// CallKw invokes the method with both keyword and positional arguments.
func (m *Method) CallKw(ctx context.Context, kwargs core.Kwargs, args ...any) (any, error) {
	return m.instrument.askServer(ctx, m.name, kwargs, args...)
}
