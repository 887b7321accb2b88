package remote

import (
	"fmt"

	"github.com/hupe1980/instrumesh/core"
)

// Validator checks a candidate value against the local copy of a capability's
// definition. Validation never leaves the client process, so it can silently
// diverge if the rules change on the live remote object after proxy
// construction.
type Validator interface {
	Validate(value any) error
}

// AnyValidator accepts every value. Used when a descriptor declares no
// validation rules.
type AnyValidator struct{}

// Validate implements Validator.
func (AnyValidator) Validate(any) error { return nil }

// RangeValidator accepts numeric values within [Min, Max].
type RangeValidator struct {
	Min, Max float64
}

// Validate implements Validator.
func (v RangeValidator) Validate(value any) error {
	f, ok := toFloat(value)
	if !ok {
		return fmt.Errorf("expected a number, got %T", value)
	}
	if f < v.Min || f > v.Max {
		return fmt.Errorf("%v is outside [%v, %v]", f, v.Min, v.Max)
	}
	return nil
}

// EnumValidator accepts only the listed values.
type EnumValidator struct {
	Allowed []any
}

// Validate implements Validator.
func (v EnumValidator) Validate(value any) error {
	for _, a := range v.Allowed {
		if equalValue(a, value) {
			return nil
		}
	}
	return fmt.Errorf("%v is not one of the allowed values", value)
}

// validatorFromAttrs builds the local validator from a descriptor's "vals"
// attribute. The attribute is itself a map: {"type": "numbers", "min": ...,
// "max": ...} or {"type": "enum", "values": [...]}.
func validatorFromAttrs(attrs core.Attrs) Validator {
	spec, ok := core.AsAttrs(attrs["vals"])
	if !ok || len(spec) == 0 {
		return AnyValidator{}
	}
	switch spec["type"] {
	case "numbers":
		v := RangeValidator{Min: -maxFloat, Max: maxFloat}
		if f, ok := toFloat(spec["min"]); ok {
			v.Min = f
		}
		if f, ok := toFloat(spec["max"]); ok {
			v.Max = f
		}
		return v
	case "enum":
		if values, ok := spec["values"].([]any); ok {
			return EnumValidator{Allowed: values}
		}
		return AnyValidator{}
	default:
		return AnyValidator{}
	}
}

// argValidatorsFromAttrs builds per-argument validators for a function
// descriptor from its "args" attribute, a list of validator specs.
func argValidatorsFromAttrs(attrs core.Attrs) []Validator {
	specs, ok := attrs["args"].([]any)
	if !ok {
		return nil
	}
	validators := make([]Validator, len(specs))
	for i, spec := range specs {
		validators[i] = validatorFromAttrs(core.Attrs{"vals": spec})
	}
	return validators
}

const maxFloat = 1.7976931348623157e308

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	default:
		return 0, false
	}
}

func equalValue(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
		return false
	}
	return a == b
}
