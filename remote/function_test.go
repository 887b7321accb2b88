package remote

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/instrumesh/core"
	"github.com/hupe1980/instrumesh/internal/testutil"
)

func TestFunction_CallForwardsPositionalArgs(t *testing.T) {
	fake := testutil.NewFakeManager().
		WithFunction("trigger", core.Attrs{}).
		WithReply("call", "armed")
	inst, err := NewInstrument(context.Background(), testClass(core.NewInstanceRegistry()), testCache(fake))
	require.NoError(t, err)
	f, ok := inst.Function("trigger")
	require.True(t, ok)
	fake.Reset()

	got, err := f.Call(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, "armed", got)

	asks := fake.CallsOf("ask")
	require.Len(t, asks, 1)
	assert.Equal(t, "call", asks[0].Func)
	assert.Equal(t, []any{"trigger", 1, 2}, asks[0].Args)
	assert.Empty(t, asks[0].Kwargs)
}

func TestFunction_ValidateIsLocal(t *testing.T) {
	fake := testutil.NewFakeManager().
		WithFunction("setpoint", core.Attrs{
			"args": []any{
				core.Attrs{"type": "numbers", "min": 0.0, "max": 1.0},
			},
		}).
		Strict(t)
	inst, err := NewInstrument(context.Background(), testClass(core.NewInstanceRegistry()), testCache(fake))
	require.NoError(t, err)
	f, ok := inst.Function("setpoint")
	require.True(t, ok)

	require.NoError(t, f.Validate(0.5))
	assert.Error(t, f.Validate(2.0))
	// Arity must match the advertised argument list exactly.
	assert.Error(t, f.Validate())
	assert.Error(t, f.Validate(0.5, 1))
}

func TestMethod_CallForwardsArgsAndKwargs(t *testing.T) {
	fake := testutil.NewFakeManager().
		WithMethod("configure", core.Attrs{}).
		WithReply("configure", "ok")
	inst, err := NewInstrument(context.Background(), testClass(core.NewInstanceRegistry()), testCache(fake))
	require.NoError(t, err)
	m, ok := inst.Method("configure")
	require.True(t, ok)
	fake.Reset()

	got, err := m.CallKw(context.Background(), core.Kwargs{"mode": "fast"}, "ch1")
	require.NoError(t, err)
	assert.Equal(t, "ok", got)

	asks := fake.CallsOf("ask")
	require.Len(t, asks, 1)
	// The method name is the remote funcName, used verbatim.
	assert.Equal(t, "configure", asks[0].Func)
	assert.Equal(t, []any{"ch1"}, asks[0].Args)
	assert.Equal(t, core.Kwargs{"mode": "fast"}, asks[0].Kwargs)

	_, err = m.Call(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.CommandCategory, fake.CallsOf("ask")[1].Category)
}
