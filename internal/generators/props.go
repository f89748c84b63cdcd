package generators

import (
	"github.com/orizon-lang/tierforge/internal/builder"
	"github.com/orizon-lang/tierforge/internal/program"
	"github.com/orizon-lang/tierforge/internal/types"
)

// oneOf runs one of the branches with equal probability.
func oneOf(b *builder.Builder, branches ...func()) {
	branches[b.Rand().Intn(len(branches))]()
}

// MegamorphicIC flips the engine's force-megamorphic switch, rarely to on.
var MegamorphicIC = builder.Unit("MegamorphicICGenerator", func(b *builder.Builder, _ []program.Variable) (program.Variable, error) {
	if !b.HasBuiltin("setJitCompilerOption") {
		return program.NoVariable, builder.NoEligible("builtin setJitCompilerOption")
	}

	var on int64
	if b.Probability(0.05) {
		on = 1
	}

	options := b.LoadBuiltin("setJitCompilerOption")

	return b.CallFunction(options, b.LoadString("ic.force-megamorphic"), b.LoadInt(on)), nil
})

// GC calls the engine's collector.
var GC = builder.Unit("GCGenerator", func(b *builder.Builder, _ []program.Variable) (program.Variable, error) {
	if !b.HasBuiltin("gc") {
		return program.NoVariable, builder.NoEligible("builtin gc")
	}

	return b.CallFunction(b.LoadBuiltin("gc")), nil
})

// NativeSlotGetProp reads a named slot of a plain object, statically or through a computed key.
var NativeSlotGetProp = builder.UnitWithInput("NativeSlotGetPropGenerator", types.Object(), func(b *builder.Builder, in []program.Variable) (program.Variable, error) {
	o := in[0]
	name := b.GenPropertyNameForRead(o)

	if b.Probability(0.5) {
		return b.LoadProperty(name, o), nil
	}

	return b.LoadComputedProperty(b.LoadString(name), o), nil
})

var ArrayBufferGetProp = builder.UnitWithInput("ArrayBufferGetPropGenerator", types.ArrayBuffer, func(b *builder.Builder, in []program.Variable) (program.Variable, error) {
	buf := in[0]
	out := program.NoVariable

	oneOf(b,
		func() { out = b.LoadProperty("byteLength", buf) },
		func() { out = b.LoadProperty("__proto__", buf) },
		func() { out = b.LoadComputedProperty(propertyKey(b), buf) },
	)

	return out, nil
})

var TypedArrayGetProp = builder.UnitWithInput("TypedArrayGetPropGenerator", types.TypedArray(types.ElementNone), func(b *builder.Builder, in []program.Variable) (program.Variable, error) {
	ta := in[0]
	out := program.NoVariable

	oneOf(b,
		func() { out = b.LoadProperty("length", ta) },
		func() { out = b.LoadProperty("byteOffset", ta) },
		func() { out = b.LoadProperty("byteLength", ta) },
		func() { out = b.LoadProperty("__proto__", ta) },
		func() { out = b.LoadComputedProperty(propertyKey(b), ta) },
	)

	return out, nil
})

// GetPropStub exercises one get-property inline cache, occasionally under a
// forced megamorphic state. One branch in four emits nothing.
var GetPropStub = builder.Unit("GetPropStubGenerator", func(b *builder.Builder, _ []program.Variable) (program.Variable, error) {
	b.Run(MegamorphicIC)

	out := program.NoVariable

	oneOf(b,
		func() { out = b.Run(NativeSlotGetProp) },
		func() { out = b.Run(ArrayBufferGetProp) },
		func() { out = b.Run(TypedArrayGetProp) },
		func() {},
	)

	return out, nil
})

// NativeSlotSetProp stores into a plain object by name, computed key or element index.
var NativeSlotSetProp = builder.UnitWithInput("NativeSlotSetPropGenerator", types.Object(), func(b *builder.Builder, in []program.Variable) (program.Variable, error) {
	o := in[0]
	name := b.GenPropertyNameForStore(o)

	value, ok := b.RandVar()
	if !ok {
		value = b.LoadInt(b.GenInt())
	}

	oneOf(b,
		func() { b.StoreProperty(value, name, o) },
		func() { b.StoreComputedProperty(value, b.LoadString(name), o) },
		func() { b.StoreElement(value, b.GenIndex(), o) },
	)

	return program.NoVariable, nil
})

// SetPropStub runs NativeSlotSetProp half of the time.
var SetPropStub = builder.UnitWithInput("SetPropStubGenerator", types.Object(), func(b *builder.Builder, in []program.Variable) (program.Variable, error) {
	if b.Probability(0.5) {
		b.Run(NativeSlotSetProp, in[0])
	}

	return program.NoVariable, nil
})
