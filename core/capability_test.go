package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubProxy struct {
	name string
	id   RemoteID
}

func (s *stubProxy) Name() string       { return s.name }
func (s *stubProxy) RemoteID() RemoteID { return s.id }

func TestBaseClass_Defaults(t *testing.T) {
	class := NewClass("dmm", NewInstanceRegistry())
	if got := class.DefaultServerName(nil); got != "dmm-server" {
		t.Fatalf("expected default server name 'dmm-server', got %q", got)
	}
	if class.SharedKeys() != nil {
		t.Fatalf("expected no shared keys, got %v", class.SharedKeys())
	}
}

func TestBaseClass_CustomNaming(t *testing.T) {
	class := NewClass("dmm", NewInstanceRegistry(), func(o *ClassOptions) {
		o.SharedKeys = []string{"visa_address"}
		o.DefaultServerName = func(kwargs Kwargs) string {
			if addr, ok := kwargs["visa_address"].(string); ok {
				return "visa-" + addr
			}
			return "visa"
		}
	})
	if got := class.DefaultServerName(Kwargs{"visa_address": "GPIB::1"}); got != "visa-GPIB::1" {
		t.Fatalf("unexpected server name %q", got)
	}
	assert.Equal(t, []string{"visa_address"}, class.SharedKeys())
}

func TestInstanceRegistry(t *testing.T) {
	registry := NewInstanceRegistry()
	class := NewClass("dmm", registry)

	a := &stubProxy{name: "a"}
	b := &stubProxy{name: "b"}
	class.RecordInstance(a)
	class.RecordInstance(b)
	assert.Len(t, class.Instances(), 2)

	class.RemoveInstance(a)
	instances := class.Instances()
	assert.Len(t, instances, 1)
	assert.Same(t, b, instances[0])

	// Removing an unknown proxy is a no-op.
	class.RemoveInstance(a)
	assert.Len(t, class.Instances(), 1)

	assert.Len(t, registry.All(), 1)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "Method", KindMethod.String())
	assert.Equal(t, "Parameter", KindParameter.String())
	assert.Equal(t, "Function", KindFunction.String())
}
