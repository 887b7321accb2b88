package remote

import (
	"context"
	"fmt"

	"github.com/hupe1980/instrumesh/core"
)

// Function is a proxy for a callable sub-procedure of the remote instrument.
// Remote functions accept positional arguments only; this is an explicit
// simplification of the call contract, not a transport limitation.
type Function struct {
	component
	validators []Validator
}

func newFunction(name string, inst *Instrument, attrs core.Attrs) *Function {
	return &Function{
		component:  newComponent(name, core.KindFunction, inst, attrs),
		validators: argValidatorsFromAttrs(attrs),
	}
}

// Call invokes the function on the worker and blocks for the decoded result.
func (f *Function) Call(ctx context.Context, args ...any) (any, error) {
	wireArgs := make([]any, 0, len(args)+1)
	wireArgs = append(wireArgs, f.name)
	wireArgs = append(wireArgs, args...)
	return f.instrument.askServer(ctx, "call", nil, wireArgs...)
}

// Validate checks the arguments against the local copy of the function's
// definition. No round trip is performed.
func (f *Function) Validate(args ...any) error {
	if len(f.validators) > 0 && len(args) != len(f.validators) {
		return fmt.Errorf("function %s takes %d args, got %d", f.name, len(f.validators), len(args))
	}
	for i, v := range f.validators {
		if err := v.Validate(args[i]); err != nil {
			return fmt.Errorf("function %s arg %d: %w", f.name, i, err)
		}
	}
	return nil
}
