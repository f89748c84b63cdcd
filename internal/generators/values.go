// Package generators holds the built-in catalogue of generator units.
//
// Units are stateless values shared by every session: whatever they learn
// about the heap they read from, and record into, the Builder they run in.
package generators

import (
	"github.com/orizon-lang/tierforge/internal/builder"
	"github.com/orizon-lang/tierforge/internal/program"
	"github.com/orizon-lang/tierforge/internal/types"
)

// MaxTypedArrayLength is the largest length the typed-array and buffer
// generators pass to a constructor.
const MaxTypedArrayLength = 2147483648

// ValidTypedArrayLength reports whether n may be passed as a typed-array or
// buffer length.
func ValidTypedArrayLength(n int64) bool {
	return n >= 0 && n <= MaxTypedArrayLength
}

// TypedArrayLengths is the boundary-value set restricted to valid lengths.
func TypedArrayLengths() []int64 {
	var out []int64

	for _, n := range builder.InterestingIntegers {
		if ValidTypedArrayLength(n) {
			out = append(out, n)
		}
	}

	return out
}

var typedArrayLengths = TypedArrayLengths()

var Integer = builder.Unit("IntegerGenerator", func(b *builder.Builder, _ []program.Variable) (program.Variable, error) {
	return b.LoadInt(b.GenInt()), nil
})

var Float = builder.Unit("FloatGenerator", func(b *builder.Builder, _ []program.Variable) (program.Variable, error) {
	return b.LoadFloat(b.GenFloat()), nil
})

var String = builder.Unit("StringGenerator", func(b *builder.Builder, _ []program.Variable) (program.Variable, error) {
	return b.LoadString(b.GenString()), nil
})

var Boolean = builder.Unit("BooleanGenerator", func(b *builder.Builder, _ []program.Variable) (program.Variable, error) {
	return b.LoadBool(b.Probability(0.5)), nil
})

var IntArray = builder.Unit("IntArrayGenerator", func(b *builder.Builder, _ []program.Variable) (program.Variable, error) {
	elems := make([]program.Variable, 1+b.Rand().Intn(6))
	for i := range elems {
		elems[i] = b.LoadInt(b.GenInt())
	}

	return b.CreateArray(elems...), nil
})

var FloatArray = builder.Unit("FloatArrayGenerator", func(b *builder.Builder, _ []program.Variable) (program.Variable, error) {
	elems := make([]program.Variable, 1+b.Rand().Intn(6))
	for i := range elems {
		elems[i] = b.LoadFloat(b.GenFloat())
	}

	return b.CreateArray(elems...), nil
})

// Array builds an array from whatever is in scope.
var Array = builder.Unit("ArrayGenerator", func(b *builder.Builder, _ []program.Variable) (program.Variable, error) {
	elems := make([]program.Variable, 1+b.Rand().Intn(5))
	for i := range elems {
		v, ok := b.RandVar()
		if !ok {
			v = b.LoadInt(b.GenInt())
		}

		elems[i] = v
	}

	return b.CreateArray(elems...), nil
})

// Object emits {a: 42}: every population object starts on the same shape.
var Object = builder.Unit("ObjectGenerator", func(b *builder.Builder, _ []program.Variable) (program.Variable, error) {
	return b.CreateObject(map[string]program.Variable{"a": b.LoadInt(42)}), nil
})

func plainNative(b *builder.Builder) program.Variable {
	if b.Probability(0.5) {
		return b.CreateObject(nil)
	}

	val, ok := b.RandVar()
	if !ok {
		val = b.LoadInt(b.GenInt())
	}

	name := b.GenString()
	if b.Probability(0.5) {
		name = b.GenPropertyNameForRead(program.NoVariable)
	}

	return b.CreateObject(map[string]program.Variable{name: val})
}

// PlainNatives emits an empty object or a one-property literal.
var PlainNatives = builder.Unit("PlainNativesGenerator", func(b *builder.Builder, _ []program.Variable) (program.Variable, error) {
	return plainNative(b), nil
})

// FancyNatives emits a plain native and installs an accessor on it.
var FancyNatives = builder.Unit("FancyNativesGenerator", func(b *builder.Builder, _ []program.Variable) (program.Variable, error) {
	obj := plainNative(b)
	b.Run(DefineProperty, obj)

	return obj, nil
})

// propertyKey loads a string or an index to use as a computed key.
func propertyKey(b *builder.Builder) program.Variable {
	if b.Probability(0.5) {
		return b.LoadString(b.GenPropertyNameForWrite())
	}

	return b.LoadInt(b.GenIndex())
}

// DefineProperty emits Object.defineProperty(o, key, {configurable: true[, get]}).
var DefineProperty = builder.UnitWithInput("DefinePropertyGenerator", types.Object(), func(b *builder.Builder, in []program.Variable) (program.Variable, error) {
	o := in[0]
	key := propertyKey(b)

	desc := map[string]program.Variable{"configurable": b.LoadBool(true)}

	if b.Probability(0.5) {
		if b.Probability(0.5) {
			if getter, ok := b.RandVarOfType(types.AnyFunction()); ok {
				desc["get"] = getter
			}
		} else {
			desc["get"] = b.DefineFunction(types.NewSignature(types.Anything), func([]program.Variable) {
				b.Run(NativeSlotGetProp)
			})
		}
	}

	descriptor := b.CreateObject(desc)
	object := b.LoadBuiltin("Object")

	return b.CallMethod("defineProperty", object, o, key, descriptor), nil
})

// TypedArray constructs a typed array of a random element kind. Lengths come
// from the boundary set, filtered to the range constructors accept.
var TypedArray = builder.Unit("TypedArrayGenerator", func(b *builder.Builder, _ []program.Variable) (program.Variable, error) {
	e := builder.Choose(b, types.Elements())
	ctor := b.LoadBuiltin(e.ConstructorName())

	return b.Construct(ctor, []program.Variable{b.LoadInt(builder.Choose(b, typedArrayLengths))}), nil
})

var ArrayBuffer = builder.Unit("ArrayBufferGenerator", func(b *builder.Builder, _ []program.Variable) (program.Variable, error) {
	ctor := b.LoadBuiltin("ArrayBuffer")
	return b.Construct(ctor, []program.Variable{b.LoadInt(builder.Choose(b, typedArrayLengths))}), nil
})

// Proxy emits new Proxy(target, {get: (t, k) => t[k]}).
var Proxy = builder.Unit("ProxyGenerator", func(b *builder.Builder, _ []program.Variable) (program.Variable, error) {
	target, ok := b.RandObject("")
	if !ok {
		target = b.CreateObject(nil)
	}

	trap := b.DefineFunction(types.NewSignature(types.Anything, types.Object(), types.String), func(params []program.Variable) {
		b.Return(b.LoadComputedProperty(params[1], params[0]))
	})

	handler := b.CreateObject(map[string]program.Variable{"get": trap})

	return b.Construct(b.LoadBuiltin("Proxy"), []program.Variable{target, handler}), nil
})

// BuiltinConstructor returns a unit constructing the named builtin with
// arguments generated from its signature. It declines when the environment
// lacks the builtin.
func BuiltinConstructor(name string) *builder.Generator {
	return builder.Unit(name+"Generator", func(b *builder.Builder, _ []program.Variable) (program.Variable, error) {
		if !b.HasBuiltin(name) {
			return program.NoVariable, builder.NoEligible("builtin " + name)
		}

		ctor := b.LoadBuiltin(name)
		if b.Type(ctor).Kind != types.KindConstructor {
			return program.NoVariable, builder.NoEligible("constructor " + name)
		}

		return b.Construct(ctor, nil), nil
	})
}

var (
	DataView      = BuiltinConstructor("DataView")
	Map           = BuiltinConstructor("Map")
	Set           = BuiltinConstructor("Set")
	WeakMap       = BuiltinConstructor("WeakMap")
	WeakSet       = BuiltinConstructor("WeakSet")
	FakeDOMObject = BuiltinConstructor("FakeDOMObject")
)

// ConstructorCall calls a constructor already in scope.
var ConstructorCall = builder.UnitWithInput("ConstructorCallGenerator", types.AnyConstructor(), func(b *builder.Builder, in []program.Variable) (program.Variable, error) {
	args, ok := b.RandCallArguments(in[0])
	if !ok {
		return program.NoVariable, builder.NoEligible("constructor arguments")
	}

	return b.Construct(in[0], args), nil
})
