package generators

import (
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orizon-lang/tierforge/internal/builder"
	tferrors "github.com/orizon-lang/tierforge/internal/errors"
	"github.com/orizon-lang/tierforge/internal/program"
	"github.com/orizon-lang/tierforge/internal/types"
)

func hostBuiltins() []builder.Builtin {
	fn := func(returns types.Type, params ...types.Type) types.Type {
		return types.Function(types.NewSignature(returns, params...))
	}

	return []builder.Builtin{
		{Name: "gc", Type: fn(types.Undefined)},
		{Name: "enqueueJob", Type: fn(types.Undefined, types.AnyFunction())},
		{Name: "drainJobQueue", Type: fn(types.Undefined)},
		{Name: "bailout", Type: fn(types.Undefined)},
		{Name: "setJitCompilerOption", Type: fn(types.Undefined, types.String, types.Integer)},
		{Name: "FakeDOMObject", Type: types.Constructor(types.NewSignature(types.Host("FakeDOMObject")))},
	}
}

func TestTypedArrayLengths_AreFiltered(t *testing.T) {
	lengths := TypedArrayLengths()

	assert.Contains(t, lengths, int64(0))
	assert.Contains(t, lengths, int64(65535))
	assert.Contains(t, lengths, int64(2147483647))
	assert.Contains(t, lengths, int64(2147483648))
	assert.NotContains(t, lengths, int64(-9007199254740991))
	assert.NotContains(t, lengths, int64(-1))
	assert.NotContains(t, lengths, int64(2147483649))
	assert.NotContains(t, lengths, int64(4294967296))

	for _, n := range lengths {
		assert.True(t, ValidTypedArrayLength(n), "%d", n)
	}
}

func TestTypedArray_NeverConstructsWithInvalidLength(t *testing.T) {
	b := builder.New(Default(), builder.Options{Seed: 21})

	for i := 0; i < 500; i++ {
		b.Run(TypedArray)
		b.Run(ArrayBuffer)
	}

	p, err := b.Finalize(program.Meta{})
	require.NoError(t, err)

	constructs := 0

	for _, in := range p.Instructions() {
		if in.Op != program.OpConstruct {
			continue
		}

		constructs++

		require.Len(t, in.Inputs, 2)
		n, ok := p.IntConstant(in.Inputs[1])
		require.True(t, ok)
		assert.True(t, ValidTypedArrayLength(n), "length %d", n)
	}

	assert.Equal(t, 1000, constructs)
}

func TestCatalogue_NamesAreUniqueAndWeighted(t *testing.T) {
	names := Names()

	sorted := slices.Clone(names)
	slices.Sort(sorted)
	assert.Equal(t, len(names), len(slices.Compact(sorted)))

	for name := range DefaultWeights {
		_, ok := Lookup(name)
		assert.True(t, ok, name)
	}

	_, ok := Lookup("NoSuchGenerator")
	assert.False(t, ok)

	reg := Default()
	assert.Equal(t, len(DefaultWeights), reg.Len())
	assert.Equal(t, 5, reg.Weight("ObjectGenerator"))
}

func TestWeighted_RejectsZeroTotal(t *testing.T) {
	_, err := Weighted(map[string]int{"IntegerGenerator": 0})
	assert.True(t, errors.Is(err, tferrors.ErrRegistryExhausted))
}

func TestHostGenerators_DeclineWithoutBuiltins(t *testing.T) {
	b := builder.New(Default(), builder.Options{Seed: 1})

	assert.Equal(t, program.NoVariable, b.Run(MegamorphicIC))
	assert.Equal(t, program.NoVariable, b.Run(GC))
	assert.Equal(t, program.NoVariable, b.Run(FakeDOMObject))
	assert.Equal(t, 0, b.Len())
}

func TestFakeDOMObject_ProducesHostObject(t *testing.T) {
	b := builder.New(Default(), builder.Options{Seed: 1, Builtins: hostBuiltins()})

	v := b.Run(FakeDOMObject)
	require.NotEqual(t, program.NoVariable, v)
	assert.True(t, b.Type(v).Is(types.Host("FakeDOMObject")))
}

func TestMegamorphicIC_CallsJitOption(t *testing.T) {
	b := builder.New(Default(), builder.Options{Seed: 1, Builtins: hostBuiltins()})

	b.Run(MegamorphicIC)

	p, err := b.Finalize(program.Meta{})
	require.NoError(t, err)
	require.Equal(t, 1, p.Count(program.OpCallFunction))

	call := p.At(p.Len() - 1)
	flag, ok := p.IntConstant(call.Inputs[2])
	require.True(t, ok)
	assert.Contains(t, []int64{0, 1}, flag)
}

func TestPropertyStubs_RespectTypes(t *testing.T) {
	for seed := int64(0); seed < 40; seed++ {
		b := builder.New(Default(), builder.Options{Seed: seed, Builtins: hostBuiltins()})

		p, err := b.Build(program.Meta{Template: "stubs"}, func(b *builder.Builder) error {
			b.Run(Object)
			b.Run(TypedArray)
			b.Run(ArrayBuffer)
			b.Run(FakeDOMObject)

			for i := 0; i < 30; i++ {
				b.Run(GetPropStub)
				b.Run(SetPropStub)
			}

			return nil
		})
		require.NoError(t, err, "seed %d", seed)

		for _, in := range p.Instructions() {
			if in.Op != program.OpLoadProperty {
				continue
			}

			switch in.Text {
			case "byteLength":
				assert.Contains(t, []types.Kind{types.KindTypedArray, types.KindArrayBuffer, types.KindDataView}, b.Type(in.Inputs[0]).Kind)
			case "byteOffset":
				assert.Equal(t, types.KindTypedArray, b.Type(in.Inputs[0]).Kind)
			}
		}
	}
}

func TestNativeSlotSetProp_NeverStoresAccessors(t *testing.T) {
	accessors := []string{"length", "__proto__", "constructor"}

	for seed := int64(0); seed < 40; seed++ {
		b := builder.New(Default(), builder.Options{Seed: seed})

		p, err := b.Build(program.Meta{Template: "stores"}, func(b *builder.Builder) error {
			obj := b.CreateObject(map[string]program.Variable{
				"length":      b.LoadInt(1),
				"constructor": b.LoadInt(2),
				"a":           b.LoadInt(3),
			})
			b.LoadString("__proto__")

			for i := 0; i < 30; i++ {
				b.Run(NativeSlotSetProp, obj)
			}

			return nil
		})
		require.NoError(t, err, "seed %d", seed)

		strs := map[program.Variable]string{}

		for _, in := range p.Instructions() {
			switch in.Op {
			case program.OpLoadString:
				strs[in.Outputs[0]] = in.Text
			case program.OpStoreProperty:
				assert.NotContains(t, accessors, in.Text, "seed %d", seed)
			case program.OpStoreComputedProperty:
				assert.NotContains(t, accessors, strs[in.Inputs[1]], "seed %d", seed)
			}
		}
	}
}

func TestDefaultRegistry_GeneratesWellTypedPrograms(t *testing.T) {
	for seed := int64(0); seed < 25; seed++ {
		b := builder.New(Default(), builder.Options{Seed: seed, Builtins: hostBuiltins(), RecursionBudget: 8})

		p, err := b.Build(program.Meta{Template: "default"}, func(b *builder.Builder) error {
			b.Generate(60)
			return nil
		})
		require.NoError(t, err, "seed %d", seed)
		require.NoError(t, p.Validate())
		assert.Positive(t, p.Len())
	}
}

func TestFancyNatives_DefinesAccessor(t *testing.T) {
	b := builder.New(Default(), builder.Options{Seed: 4})

	b.Run(FancyNatives)

	p, err := b.Finalize(program.Meta{})
	require.NoError(t, err)

	require.Equal(t, 1, p.Count(program.OpCallMethod))

	for _, in := range p.Instructions() {
		if in.Op == program.OpCallMethod {
			assert.Equal(t, "defineProperty", in.Text)
			assert.Len(t, in.Inputs, 4)
		}
	}
}

func TestForceTier_LoopCounts(t *testing.T) {
	b := builder.New(Default(), builder.Options{Seed: 4})

	b.DefineFunction(types.NewSignature(types.Undefined), func([]program.Variable) {})
	b.Run(ForceBaseline)
	b.Run(ForceOptimize)

	p, err := b.Finalize(program.Meta{})
	require.NoError(t, err)

	loops := p.Loops()
	require.Len(t, loops, 2)
	assert.Equal(t, int64(BaselineIterations), loops[0].Iterations())
	assert.Equal(t, int64(OptimizeIterations), loops[1].Iterations())
}
