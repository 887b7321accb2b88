package remote

import (
	"errors"
	"fmt"
)

var errNoManagerForIdentity = errors.New("no manager cached for server identity")

func errUnexpectedDescriptor(v any) error {
	return fmt.Errorf("expected a capability descriptor, got %T", v)
}
