package remote

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/instrumesh/core"
	"github.com/hupe1980/instrumesh/internal/testutil"
)

func testCache(m core.Manager) *core.ManagerCache {
	return core.NewManagerCache(func(core.ServerIdentity) (core.Manager, error) {
		return m, nil
	})
}

func testClass(registry *core.InstanceRegistry, shared ...string) *core.BaseClass {
	return core.NewClass("dmm", registry, func(o *core.ClassOptions) {
		o.SharedKeys = shared
	})
}

func TestConnect_BuildsOneProxyPerDescriptor(t *testing.T) {
	fake := testutil.NewFakeManager().
		WithName("dmm1").
		WithMethod("reset", core.Attrs{}).
		WithParameter("voltage", core.Attrs{"unit": "V"}).
		WithFunction("trigger", core.Attrs{})

	inst, err := NewInstrument(context.Background(), testClass(core.NewInstanceRegistry()), testCache(fake))
	require.NoError(t, err)

	assert.Equal(t, "dmm1", inst.Name())
	assert.Equal(t, core.RemoteID("remote-1"), inst.RemoteID())

	_, ok := inst.Method("reset")
	assert.True(t, ok)
	p, ok := inst.Parameter("voltage")
	assert.True(t, ok)
	unit, _ := p.Attr("unit")
	assert.Equal(t, "V", unit)
	_, ok = inst.Function("trigger")
	assert.True(t, ok)
}

func TestResolve_FixedCategoryOrder(t *testing.T) {
	// The same name in every category: methods shadow parameters shadow
	// functions.
	fake := testutil.NewFakeManager().
		WithMethod("status", core.Attrs{}).
		WithParameter("status", core.Attrs{}).
		WithFunction("status", core.Attrs{}).
		WithParameter("gain", core.Attrs{}).
		WithFunction("gain", core.Attrs{}).
		WithFunction("fire", core.Attrs{})

	inst, err := NewInstrument(context.Background(), testClass(core.NewInstanceRegistry()), testCache(fake))
	require.NoError(t, err)

	cap, ok := inst.Resolve("status")
	require.True(t, ok)
	assert.Equal(t, core.KindMethod, cap.Kind())

	cap, ok = inst.Resolve("gain")
	require.True(t, ok)
	assert.Equal(t, core.KindParameter, cap.Kind())

	cap, ok = inst.Resolve("fire")
	require.True(t, ok)
	assert.Equal(t, core.KindFunction, cap.Kind())

	_, ok = inst.Resolve("missing")
	assert.False(t, ok)
}

func TestLookup_MissNamesBothCategories(t *testing.T) {
	fake := testutil.NewFakeManager()
	inst, err := NewInstrument(context.Background(), testClass(core.NewInstanceRegistry()), testCache(fake))
	require.NoError(t, err)

	_, err = inst.Lookup("missing")
	require.Error(t, err)

	var lookupErr *core.LookupError
	require.True(t, errors.As(err, &lookupErr))
	assert.Contains(t, err.Error(), "parameters")
	assert.Contains(t, err.Error(), "functions")
}

func TestLookup_ParametersBeforeFunctions(t *testing.T) {
	fake := testutil.NewFakeManager().
		WithParameter("x", core.Attrs{}).
		WithFunction("x", core.Attrs{})
	inst, err := NewInstrument(context.Background(), testClass(core.NewInstanceRegistry()), testCache(fake))
	require.NoError(t, err)

	cap, err := inst.Lookup("x")
	require.NoError(t, err)
	assert.Equal(t, core.KindParameter, cap.Kind())
}

func TestNewInstrument_PartitionsKwargs(t *testing.T) {
	fake := testutil.NewFakeManager()
	var acquired []core.ServerIdentity
	cache := core.NewManagerCache(func(identity core.ServerIdentity) (core.Manager, error) {
		acquired = append(acquired, identity)
		return fake, nil
	})

	class := testClass(core.NewInstanceRegistry(), "visa_address")
	_, err := NewInstrument(context.Background(), class, cache,
		WithKwargs(core.Kwargs{"visa_address": "GPIB::1", "range": 10}))
	require.NoError(t, err)

	// Manager acquisition keyed only by the shared kwargs.
	require.Len(t, acquired, 1)
	assert.Equal(t, core.Kwargs{"visa_address": "GPIB::1"}, acquired[0].Shared)

	// Remote construction receives only the instance kwargs.
	connects := fake.CallsOf("connect")
	require.Len(t, connects, 1)
	assert.Equal(t, core.Kwargs{"range": 10}, connects[0].Kwargs)
}

func TestNewInstrument_Colocation(t *testing.T) {
	created := 0
	cache := core.NewManagerCache(func(core.ServerIdentity) (core.Manager, error) {
		created++
		return testutil.NewFakeManager(), nil
	})
	class := testClass(core.NewInstanceRegistry(), "visa_address")

	for i := 0; i < 2; i++ {
		_, err := NewInstrument(context.Background(), class, cache,
			WithKwargs(core.Kwargs{"visa_address": "GPIB::1"}))
		require.NoError(t, err)
	}
	assert.Equal(t, 1, created)

	_, err := NewInstrument(context.Background(), class, cache,
		WithKwargs(core.Kwargs{"visa_address": "GPIB::2"}))
	require.NoError(t, err)
	assert.Equal(t, 2, created)
}

func TestNewInstrument_ConnectFailureLeavesUnregistered(t *testing.T) {
	fake := testutil.NewFakeManager().WithConnectError(errors.New("driver blew up"))
	registry := core.NewInstanceRegistry()
	class := testClass(registry)

	_, err := NewInstrument(context.Background(), class, testCache(fake))
	require.Error(t, err)

	var consErr *core.ConstructionError
	require.True(t, errors.As(err, &consErr))
	assert.Empty(t, class.Instances())
}

func TestNewInstrument_RegistersInstance(t *testing.T) {
	registry := core.NewInstanceRegistry()
	class := testClass(registry)
	inst, err := NewInstrument(context.Background(), class, testCache(testutil.NewFakeManager()))
	require.NoError(t, err)

	instances := class.Instances()
	require.Len(t, instances, 1)
	assert.Same(t, inst, instances[0].(*Instrument))
}

func TestConnect_ReplacesProxiesWholesale(t *testing.T) {
	fake := testutil.NewFakeManager().WithParameter("gain", core.Attrs{})
	inst, err := NewInstrument(context.Background(), testClass(core.NewInstanceRegistry()), testCache(fake))
	require.NoError(t, err)

	before, ok := inst.Parameter("gain")
	require.True(t, ok)

	require.NoError(t, inst.Connect(context.Background()))
	after, ok := inst.Parameter("gain")
	require.True(t, ok)
	assert.NotSame(t, before, after)
}

func TestAddParameter_ImmediatelyUsable(t *testing.T) {
	fake := testutil.NewFakeManager().
		WithReply("add_parameter", core.Attrs{"unit": "Hz"}).
		WithReply("get", 50.0)
	inst, err := NewInstrument(context.Background(), testClass(core.NewInstanceRegistry()), testCache(fake))
	require.NoError(t, err)

	p, err := inst.AddParameter(context.Background(), "freq", core.Kwargs{"unit": "Hz"})
	require.NoError(t, err)

	// Gettable and settable without a new Connect.
	got, err := p.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 50.0, got)
	require.NoError(t, p.Set(context.Background(), 60.0))

	byName, ok := inst.Parameter("freq")
	require.True(t, ok)
	assert.Same(t, p, byName)

	asks := fake.CallsOf("ask")
	require.Len(t, asks, 3)
	assert.Equal(t, "add_parameter", asks[0].Func)
	assert.Equal(t, core.Kwargs{"unit": "Hz"}, asks[0].Kwargs)
}

func TestAddParameter_OverwritesLocalProxy(t *testing.T) {
	fake := testutil.NewFakeManager().WithReply("add_parameter", core.Attrs{})
	inst, err := NewInstrument(context.Background(), testClass(core.NewInstanceRegistry()), testCache(fake))
	require.NoError(t, err)

	first, err := inst.AddParameter(context.Background(), "freq", nil)
	require.NoError(t, err)
	second, err := inst.AddParameter(context.Background(), "freq", nil)
	require.NoError(t, err)

	// Two remote descriptors were created but only the last proxy remains
	// locally reachable.
	assert.Len(t, fake.CallsOf("ask"), 2)
	byName, ok := inst.Parameter("freq")
	require.True(t, ok)
	assert.NotSame(t, first, byName)
	assert.Same(t, second, byName)
}

func TestAddFunction(t *testing.T) {
	fake := testutil.NewFakeManager().
		WithReply("add_function", core.Attrs{}).
		WithReply("call", "ok")
	inst, err := NewInstrument(context.Background(), testClass(core.NewInstanceRegistry()), testCache(fake))
	require.NoError(t, err)

	f, err := inst.AddFunction(context.Background(), "arm", nil)
	require.NoError(t, err)
	got, err := f.Call(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestClose_AliveWorkerIssuesDelete(t *testing.T) {
	fake := testutil.NewFakeManager()
	registry := core.NewInstanceRegistry()
	class := testClass(registry)
	inst, err := NewInstrument(context.Background(), class, testCache(fake))
	require.NoError(t, err)

	require.NoError(t, inst.Close(context.Background()))

	deletes := fake.CallsOf("delete")
	require.Len(t, deletes, 1)
	assert.Equal(t, core.RemoteID("remote-1"), deletes[0].ID)
	assert.Empty(t, class.Instances())
}

func TestClose_DeadWorkerMakesNoNetworkCalls(t *testing.T) {
	fake := testutil.NewFakeManager().WithAlive(false)
	registry := core.NewInstanceRegistry()
	class := testClass(registry)
	inst, err := NewInstrument(context.Background(), class, testCache(fake))
	require.NoError(t, err)
	fake.Reset()

	require.NoError(t, inst.Close(context.Background()))

	assert.Empty(t, fake.Calls())
	assert.Empty(t, class.Instances())
}

func TestClose_EveryLaterCallIsStale(t *testing.T) {
	fake := testutil.NewFakeManager().WithParameter("gain", core.Attrs{})
	inst, err := NewInstrument(context.Background(), testClass(core.NewInstanceRegistry()), testCache(fake))
	require.NoError(t, err)
	p, _ := inst.Parameter("gain")

	require.NoError(t, inst.Close(context.Background()))

	var stale *core.StaleReferenceError

	_, err = p.Get(context.Background())
	assert.True(t, errors.As(err, &stale))

	err = p.Set(context.Background(), 1)
	assert.True(t, errors.As(err, &stale))

	err = inst.Connect(context.Background())
	assert.True(t, errors.As(err, &stale))

	err = inst.Close(context.Background())
	assert.True(t, errors.As(err, &stale))
}

func TestRestart_AfterCloseUsesCachedManager(t *testing.T) {
	fake := testutil.NewFakeManager()
	inst, err := NewInstrument(context.Background(), testClass(core.NewInstanceRegistry()), testCache(fake))
	require.NoError(t, err)

	require.NoError(t, inst.Close(context.Background()))
	require.NoError(t, inst.Restart(context.Background()))

	assert.Len(t, fake.CallsOf("restart"), 1)
}

func TestRestart_ClosesFirst(t *testing.T) {
	fake := testutil.NewFakeManager()
	registry := core.NewInstanceRegistry()
	class := testClass(registry)
	inst, err := NewInstrument(context.Background(), class, testCache(fake))
	require.NoError(t, err)

	require.NoError(t, inst.Restart(context.Background()))

	assert.Len(t, fake.CallsOf("delete"), 1)
	assert.Len(t, fake.CallsOf("restart"), 1)
	assert.Empty(t, class.Instances())
}

func TestComponent_DocRewrite(t *testing.T) {
	fake := testutil.NewFakeManager().
		WithName("dmm1").
		WithParameter("gain", core.Attrs{"doc": "amplifier gain"}).
		WithParameter("bare", core.Attrs{})
	inst, err := NewInstrument(context.Background(), testClass(core.NewInstanceRegistry()), testCache(fake))
	require.NoError(t, err)

	p, _ := inst.Parameter("gain")
	assert.Equal(t, "RemoteParameter gain in RemoteInstrument dmm1\n---\n\namplifier gain", p.Doc())

	bare, _ := inst.Parameter("bare")
	assert.Equal(t, "", bare.Doc())
}

func TestWithServerName_OverridesDerivation(t *testing.T) {
	var acquired []core.ServerIdentity
	cache := core.NewManagerCache(func(identity core.ServerIdentity) (core.Manager, error) {
		acquired = append(acquired, identity)
		return testutil.NewFakeManager(), nil
	})
	_, err := NewInstrument(context.Background(), testClass(core.NewInstanceRegistry()), cache,
		WithServerName("bench-3"))
	require.NoError(t, err)
	require.Len(t, acquired, 1)
	assert.Equal(t, "bench-3", acquired[0].Name)
}
