package builder

import (
	"math"
	"slices"

	"github.com/orizon-lang/tierforge/internal/program"
	"github.com/orizon-lang/tierforge/internal/types"
)

// InterestingIntegers are boundary values around the engines' int32, uint32
// and double-precision integer limits.
var InterestingIntegers = []int64{
	-9007199254740993, -9007199254740992, -9007199254740991,
	-4294967297, -4294967296, -4294967295,
	-2147483649, -2147483648, -2147483647,
	-1073741824, -536870912, -268435456,
	-65537, -65536, -65535,
	-4096, -1024, -256, -128,
	-2, -1, 0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10,
	16, 64, 127, 128, 129, 255, 256, 257, 512, 1000, 1024, 4096, 10000,
	65535, 65536, 65537,
	268435456, 536870912, 1073741824,
	2147483647, 2147483648, 2147483649,
	4294967295, 4294967296, 4294967297,
	9007199254740991, 9007199254740992, 9007199254740993,
}

// InterestingFloats are doubles with special representations.
var InterestingFloats = []float64{
	-math.MaxFloat64, -1e-15, -0.5, 0.5, 1e-15, 1.5, 13.37, 1e12, math.MaxFloat64,
	math.SmallestNonzeroFloat64, math.Inf(1), math.Inf(-1), math.NaN(),
}

// PropertyNames is the default pool of user property names.
var PropertyNames = []string{"a", "b", "c", "d", "e", "f", "g"}

// readOnlyNames name engine-defined accessors. Reads may target them; stores
// never do.
var readOnlyNames = []string{"length", "__proto__", "constructor"}

var interestingStrings = []string{"", "foo", "bar", "0", "1", "-1", "NaN", "length", "__proto__", "valueOf"}

// GenInt returns a boundary integer most of the time and a small one otherwise.
func (b *Builder) GenInt() int64 {
	if b.Probability(0.5) {
		return Choose(b, InterestingIntegers)
	}

	return int64(b.rng.Intn(256))
}

func (b *Builder) GenFloat() float64 {
	if b.Probability(0.5) {
		return Choose(b, InterestingFloats)
	}

	return b.rng.NormFloat64() * 1000
}

func (b *Builder) GenString() string {
	if b.Probability(0.3) {
		return b.GenPropertyNameForWrite()
	}

	return Choose(b, interestingStrings)
}

// GenIndex returns a small element index.
func (b *Builder) GenIndex() int64 {
	if b.Probability(0.1) {
		return Choose(b, []int64{-1, 255, 256, 4294967295})
	}

	return int64(b.rng.Intn(16))
}

// GenPropertyNameForWrite favours names already used in the session so that
// stores extend existing shapes instead of always inventing new ones.
func (b *Builder) GenPropertyNameForWrite() string {
	if len(b.names) > 0 && b.Probability(0.5) {
		return Choose(b, b.names)
	}

	return Choose(b, PropertyNames)
}

// GenPropertyNameForRead picks a name known on obj when possible, then a name
// seen in the session, then an engine-defined one.
func (b *Builder) GenPropertyNameForRead(obj program.Variable) string {
	known := b.shapes.Properties(obj)
	known = append(known, b.types[obj].Properties()...)

	if len(known) > 0 && b.Probability(0.8) {
		return Choose(b, known)
	}

	if len(b.names) > 0 && b.Probability(0.7) {
		return Choose(b, b.names)
	}

	if b.Probability(0.5) {
		return Choose(b, readOnlyNames)
	}

	return Choose(b, PropertyNames)
}

// GenPropertyNameForStore picks a store target on obj: a name already known on
// obj when possible, else a session or default name. Engine-defined accessors
// are never returned.
func (b *Builder) GenPropertyNameForStore(obj program.Variable) string {
	writable := func(names []string) []string {
		return slices.DeleteFunc(names, func(n string) bool { return slices.Contains(readOnlyNames, n) })
	}

	known := writable(append(b.shapes.Properties(obj), b.types[obj].Properties()...))
	if len(known) > 0 && b.Probability(0.8) {
		return Choose(b, known)
	}

	seen := writable(slices.Clone(b.names))
	if len(seen) > 0 && b.Probability(0.5) {
		return Choose(b, seen)
	}

	return Choose(b, PropertyNames)
}

// GenerateValue returns a variable of type t, reusing a visible one for
// compound kinds when available.
func (b *Builder) GenerateValue(t types.Type) program.Variable {
	if !t.Kind.IsPrimitive() && t.Kind != types.KindAnything {
		if v, ok := b.RandVarOfType(t); ok && b.Probability(0.75) {
			return v
		}
	}

	switch t.Kind {
	case types.KindAnything:
		if v, ok := b.RandVar(); ok {
			return v
		}

		return b.LoadInt(b.GenInt())
	case types.KindUndefined:
		return b.LoadUndefined()
	case types.KindInteger:
		return b.LoadInt(b.GenInt())
	case types.KindFloat:
		return b.LoadFloat(b.GenFloat())
	case types.KindString:
		return b.LoadString(b.GenString())
	case types.KindBoolean:
		return b.LoadBool(b.Probability(0.5))
	case types.KindPlainObject:
		props := make(map[string]program.Variable)
		for _, name := range t.Properties() {
			props[name] = b.LoadInt(b.GenInt())
		}

		return b.CreateObject(props)
	case types.KindArray:
		return b.CreateArray(b.LoadInt(b.GenInt()), b.LoadInt(b.GenInt()), b.LoadInt(b.GenInt()))
	case types.KindFunction:
		sig := types.NewSignature(types.Undefined)
		if t.Signature != nil {
			sig = *t.Signature
		}

		return b.DefineFunction(sig, func([]program.Variable) {})
	case types.KindConstructor:
		return b.LoadBuiltin("Object")
	case types.KindTypedArray:
		e := t.Element
		if e == types.ElementNone {
			e = Choose(b, types.Elements())
		}

		return b.Construct(b.LoadBuiltin(e.ConstructorName()), []program.Variable{b.LoadInt(int64(b.rng.Intn(64)))})
	case types.KindArrayBuffer:
		return b.Construct(b.LoadBuiltin("ArrayBuffer"), []program.Variable{b.LoadInt(int64(b.rng.Intn(64)))})
	case types.KindDataView:
		buf := b.GenerateValue(types.ArrayBuffer)
		return b.Construct(b.LoadBuiltin("DataView"), []program.Variable{buf})
	case types.KindProxy:
		target := b.GenerateValue(types.Object())
		return b.Construct(b.LoadBuiltin("Proxy"), []program.Variable{target, b.CreateObject(nil)})
	case types.KindCollection, types.KindHostObject:
		if t.Group != "" && b.HasBuiltin(t.Group) && b.env[t.Group].Kind == types.KindConstructor {
			return b.Construct(b.LoadBuiltin(t.Group), nil)
		}

		return b.CreateObject(nil)
	default:
		return b.LoadUndefined()
	}
}

// DefaultEnvironment is the set of standard constructors every session can load.
func DefaultEnvironment() []Builtin {
	ctor := func(returns types.Type, params ...types.Type) types.Type {
		return types.Constructor(types.NewSignature(returns, params...))
	}

	env := []Builtin{
		{Name: "Object", Type: ctor(types.Object())},
		{Name: "Array", Type: ctor(types.Array, types.Integer)},
		{Name: "ArrayBuffer", Type: ctor(types.ArrayBuffer, types.Integer)},
		{Name: "DataView", Type: ctor(types.DataView, types.ArrayBuffer)},
		{Name: "Proxy", Type: ctor(types.Proxy, types.Object(), types.Object())},
	}

	for _, group := range []string{"Map", "Set", "WeakMap", "WeakSet"} {
		env = append(env, Builtin{Name: group, Type: ctor(types.Collection(group))})
	}

	for _, e := range types.Elements() {
		env = append(env, Builtin{Name: e.ConstructorName(), Type: ctor(types.TypedArray(e), types.Integer)})
	}

	return slices.Clip(env)
}
