package builder

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tferrors "github.com/orizon-lang/tierforge/internal/errors"
	"github.com/orizon-lang/tierforge/internal/program"
	"github.com/orizon-lang/tierforge/internal/registry"
	"github.com/orizon-lang/tierforge/internal/types"
)

func leafRegistry(t *testing.T) *Registry {
	t.Helper()

	reg, err := NewRegistry(
		registry.E(Unit("int", func(b *Builder, _ []program.Variable) (program.Variable, error) {
			return b.LoadInt(b.GenInt()), nil
		}), 1),
	)
	require.NoError(t, err)

	return reg
}

func TestBuilder_CreateObjectRecordsShape(t *testing.T) {
	b := New(leafRegistry(t), Options{Seed: 1})

	obj := b.CreateObject(map[string]program.Variable{"b": b.LoadInt(1), "a": b.LoadInt(2)})
	assert.Equal(t, []string{"a", "b"}, b.Shapes().Properties(obj))
	assert.True(t, b.Type(obj).Is(types.Object("a", "b")))

	b.StoreProperty(b.LoadInt(3), "c", obj)
	assert.Equal(t, []string{"a", "b", "c"}, b.Shapes().Properties(obj))
	assert.True(t, b.Type(obj).HasProperty("c"))

	key := b.LoadString("d")
	b.StoreComputedProperty(b.LoadInt(4), key, obj)
	assert.True(t, b.Shapes().Has(obj, "d"))
}

func TestBuilder_CreateObjectProtoKeyIsNotAProperty(t *testing.T) {
	b := New(leafRegistry(t), Options{Seed: 1})

	proto := b.CreateObject(nil)
	obj := b.CreateObject(map[string]program.Variable{"__proto__": proto, "a": b.LoadInt(1)})

	assert.Equal(t, []string{"a"}, b.Shapes().Properties(obj))
	assert.False(t, b.Type(obj).HasProperty("__proto__"))
	assert.True(t, b.Type(obj).HasProperty("a"))

	b.StoreProperty(b.LoadInt(2), "__proto__", obj)
	assert.False(t, b.Shapes().Has(obj, "__proto__"))

	p, err := b.Finalize(program.Meta{})
	require.NoError(t, err)

	var names [][]string
	for _, in := range p.Instructions() {
		if in.Op == program.OpCreateObject {
			names = append(names, in.Names)
		}
	}

	require.Len(t, names, 2)
	assert.Equal(t, []string{"__proto__", "a"}, names[1])
}

func TestBuilder_GenPropertyNameForStoreSkipsAccessors(t *testing.T) {
	b := New(leafRegistry(t), Options{Seed: 3})

	obj := b.CreateObject(map[string]program.Variable{
		"length":      b.LoadInt(1),
		"constructor": b.LoadInt(2),
		"x":           b.LoadInt(3),
	})

	seen := map[string]bool{}
	for i := 0; i < 500; i++ {
		name := b.GenPropertyNameForStore(obj)
		assert.NotContains(t, readOnlyNames, name)
		seen[name] = true
	}

	assert.True(t, seen["x"])
}

func TestBuilder_GenerateBoundsAttemptsPerSlot(t *testing.T) {
	var attempts int

	declines := Unit("declines", func(*Builder, []program.Variable) (program.Variable, error) {
		attempts++
		return program.NoVariable, NoEligible("anything")
	})

	reg, err := NewRegistry(registry.E(declines, 1))
	require.NoError(t, err)

	b := New(reg, Options{Seed: 5, MaxRetries: 5})

	assert.Equal(t, 0, b.Generate(2))
	assert.Equal(t, 10, attempts)
}

func TestBuilder_TypeMismatchAbortsSession(t *testing.T) {
	b := New(leafRegistry(t), Options{Seed: 1})

	bad := Unit("badLoad", func(b *Builder, _ []program.Variable) (program.Variable, error) {
		return b.LoadProperty("a", b.LoadInt(1)), nil
	})

	p, err := b.Build(program.Meta{Template: "T"}, func(b *Builder) error {
		b.Run(bad)
		return nil
	})

	require.Error(t, err)
	assert.Nil(t, p)
	assert.True(t, errors.Is(err, tferrors.ErrTypeMismatch))

	var se *tferrors.SynthesisError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "T", se.Template)
	assert.Equal(t, "badLoad", se.Unit)
}

func TestBuilder_IntrinsicPropertiesFollowType(t *testing.T) {
	b := New(leafRegistry(t), Options{Seed: 1})

	_, err := b.Build(program.Meta{}, func(b *Builder) error {
		ta := b.Construct(b.LoadBuiltin("Uint8Array"), []program.Variable{b.LoadInt(8)})
		assert.True(t, b.Type(b.LoadProperty("byteLength", ta)).Is(types.Integer))
		assert.True(t, b.Type(b.LoadProperty("byteOffset", ta)).Is(types.Integer))

		obj := b.CreateObject(nil)
		b.LoadProperty("byteLength", obj)

		return nil
	})

	assert.True(t, errors.Is(err, tferrors.ErrTypeMismatch))
}

func TestBuilder_DefineFunctionScopes(t *testing.T) {
	b := New(leafRegistry(t), Options{Seed: 1, RecursionBudget: 3})

	var param, inner program.Variable

	sig := types.NewSignature(types.Anything, types.Object("a"))
	f := b.DefineFunction(sig, func(params []program.Variable) {
		require.Len(t, params, 1)
		param = params[0]
		inner = b.LoadProperty("a", param)
		b.Return(inner)
	})

	assert.Equal(t, 2, b.Budget())
	assert.True(t, b.Type(f).Callable())

	for i := 0; i < 200; i++ {
		v, ok := b.RandVar()
		require.True(t, ok)
		assert.NotEqual(t, param, v)
		assert.NotEqual(t, inner, v)
	}

	p, err := b.Finalize(program.Meta{})
	require.NoError(t, err)
	require.NoError(t, p.Validate())
	assert.Equal(t, 1, p.Count(program.OpReturn))
}

func TestBuilder_ConstructGeneratesArguments(t *testing.T) {
	b := New(leafRegistry(t), Options{Seed: 3})

	dv := b.Construct(b.LoadBuiltin("DataView"), nil)
	assert.True(t, b.Type(dv).Is(types.DataView))

	p, err := b.Finalize(program.Meta{})
	require.NoError(t, err)

	last := p.At(p.Len() - 1)
	assert.Equal(t, program.OpConstruct, last.Op)
	assert.Len(t, last.Inputs, 2)
}

func TestBuilder_ConstructRequiresConstructor(t *testing.T) {
	b := New(leafRegistry(t), Options{Seed: 3})

	_, err := b.Build(program.Meta{}, func(b *Builder) error {
		b.Construct(b.LoadInt(1), nil)
		return nil
	})

	assert.True(t, errors.Is(err, tferrors.ErrTypeMismatch))
}

func TestBuilder_UnknownBuiltin(t *testing.T) {
	b := New(leafRegistry(t), Options{Seed: 3})

	_, err := b.Build(program.Meta{}, func(b *Builder) error {
		b.LoadBuiltin("noSuchThing")
		return nil
	})

	assert.True(t, errors.Is(err, tferrors.ErrUnknownBuiltin))
}

func TestBuilder_ProfileBuiltinsMerge(t *testing.T) {
	gc := types.Function(types.NewSignature(types.Undefined))
	b := New(leafRegistry(t), Options{Builtins: []Builtin{{Name: "gc", Type: gc}, {Name: "Object", Type: types.AnyConstructor()}}})

	assert.True(t, b.HasBuiltin("gc"))
	assert.True(t, b.HasBuiltin("Uint8Array"))
	assert.Equal(t, "Object", b.Builtins()[0])
	assert.True(t, b.Type(b.LoadBuiltin("Object")).Equal(types.AnyConstructor()))
}

func TestBuilder_GenerateTerminatesWithRecursiveOnlyRegistry(t *testing.T) {
	var calls int

	nest := RecursiveUnit("nest", func(b *Builder, _ []program.Variable) (program.Variable, error) {
		calls++
		b.GenerateRecursive()

		return program.NoVariable, nil
	})

	reg, err := NewRegistry(registry.E(nest, 1))
	require.NoError(t, err)

	b := New(reg, Options{Seed: 7, RecursionBudget: 5})
	done := b.Generate(10)

	assert.LessOrEqual(t, done, 10)
	assert.Equal(t, 0, b.Budget())
	assert.Positive(t, calls)
	assert.LessOrEqual(t, calls, 10+5*3)
}

func TestBuilder_GenerateDropsSlotsThatNeverSucceed(t *testing.T) {
	var attempts int

	needy := UnitWithInput("needsFunction", types.AnyFunction(), func(b *Builder, in []program.Variable) (program.Variable, error) {
		attempts++
		return b.CallFunction(in[0]), nil
	})
	declines := Unit("declines", func(*Builder, []program.Variable) (program.Variable, error) {
		attempts++
		return program.NoVariable, NoEligible("anything")
	})

	reg, err := NewRegistry(registry.E(needy, 1), registry.E(declines, 1))
	require.NoError(t, err)

	b := New(reg, Options{Seed: 7, MaxRetries: 4})

	assert.Equal(t, 0, b.Generate(5))
	assert.Equal(t, 0, b.Len())
	assert.LessOrEqual(t, attempts, 20)
}

func TestBuilder_GenerateCountsSuccesses(t *testing.T) {
	b := New(leafRegistry(t), Options{Seed: 9})

	before := b.Len()
	assert.Equal(t, 6, b.Generate(6))
	assert.Equal(t, before+6, b.Len())
}

func TestBuilder_WithRegistryRestoresAfterAbort(t *testing.T) {
	base := leafRegistry(t)
	swapped, err := NewRegistry(registry.E(Unit("mismatch", func(b *Builder, _ []program.Variable) (program.Variable, error) {
		b.StoreProperty(b.LoadInt(1), "a", b.LoadFloat(1.5))
		return program.NoVariable, nil
	}), 1))
	require.NoError(t, err)

	b := New(base, Options{Seed: 11})

	_, err = b.Build(program.Meta{Template: "swap"}, func(b *Builder) error {
		b.WithRegistry(swapped, func() {
			assert.Same(t, swapped, b.ActiveRegistry())
			b.Generate(3)
		})

		return nil
	})

	require.True(t, errors.Is(err, tferrors.ErrTypeMismatch))
	assert.Same(t, base, b.ActiveRegistry())
}

func TestBuilder_FinalizedRejectsEmission(t *testing.T) {
	b := New(leafRegistry(t), Options{Seed: 1})
	b.LoadInt(1)

	p, err := b.Finalize(program.Meta{Template: "x"})
	require.NoError(t, err)
	assert.Equal(t, 1, p.Len())
	assert.Equal(t, PhaseFinalized, b.Phase())

	assert.Panics(t, func() { b.LoadInt(2) })

	_, err = b.Finalize(program.Meta{})
	assert.True(t, errors.Is(err, tferrors.ErrFinalized))
}

func TestBuilder_PhasesNeverMoveBackwards(t *testing.T) {
	b := New(leafRegistry(t), Options{Seed: 1})

	_, err := b.Build(program.Meta{}, func(b *Builder) error {
		b.Advance(PhasePopulating)
		b.Advance(PhaseFunctionDefined)
		b.Advance(TierLoop(2))
		b.Advance(TierLoop(1))

		return nil
	})

	assert.True(t, errors.Is(err, tferrors.ErrPhaseOrder))
	assert.Equal(t, "TierLoop2", TierLoop(2).String())
}

func TestBuilder_LoopsAndConditionals(t *testing.T) {
	b := New(leafRegistry(t), Options{Seed: 5})

	p, err := b.Build(program.Meta{}, func(b *Builder) error {
		b.Repeat(11, func(i program.Variable) {
			cond := b.Compare(i, program.LessThan, b.LoadInt(5))
			b.If(cond, func() { b.LoadInt(1) }, func() { b.LoadInt(2) })
		})

		return nil
	})
	require.NoError(t, err)

	loops := p.Loops()
	require.Len(t, loops, 1)
	assert.Equal(t, int64(11), loops[0].Iterations())
	assert.Equal(t, 1, p.Count(program.OpBeginElse))
}

func TestBuilder_ReturnOutsideFunction(t *testing.T) {
	b := New(leafRegistry(t), Options{Seed: 5})

	_, err := b.Build(program.Meta{}, func(b *Builder) error {
		b.Return(b.LoadInt(1))
		return nil
	})

	assert.True(t, errors.Is(err, tferrors.ErrTypeMismatch))
}

func TestBuilder_GenerateValueMatchesType(t *testing.T) {
	b := New(leafRegistry(t), Options{Seed: 13})

	wants := []types.Type{
		types.Integer, types.Float, types.String, types.Boolean, types.Undefined,
		types.Object("a"), types.Array, types.TypedArray(types.ElementInt32), types.ArrayBuffer,
		types.DataView, types.Proxy, types.Collection("Map"), types.AnyFunction(),
	}

	for _, want := range wants {
		v := b.GenerateValue(want)
		assert.True(t, b.Type(v).Is(want), "%s generated %s", want, b.Type(v))
	}

	_, err := b.Finalize(program.Meta{})
	require.NoError(t, err)
}

func TestBuilder_NonAbortPanicsPropagate(t *testing.T) {
	b := New(leafRegistry(t), Options{Seed: 1})

	assert.PanicsWithValue(t, "boom", func() {
		_, _ = b.Build(program.Meta{}, func(*Builder) error { panic("boom") })
	})
}
