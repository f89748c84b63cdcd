package generators

import (
	"slices"

	"github.com/orizon-lang/tierforge/internal/builder"
	"github.com/orizon-lang/tierforge/internal/registry"
)

// catalogue lists every built-in unit in registry order.
var catalogue = []*builder.Generator{
	Integer, Float, String, Boolean,
	IntArray, FloatArray, Array,
	Object, PlainNatives, FancyNatives, DefineProperty,
	TypedArray, ArrayBuffer, Proxy,
	DataView, Map, Set, WeakMap, WeakSet, FakeDOMObject,
	ConstructorCall,
	MegamorphicIC, GC,
	NativeSlotGetProp, ArrayBufferGetProp, TypedArrayGetProp, GetPropStub,
	NativeSlotSetProp, SetPropStub,
	FunctionDefinition, FunctionCall, ForLoop, IfElse,
	ForceBaseline, ForceOptimize,
}

// DefaultWeights are the base selection weights. They are tuning defaults;
// profiles override them per unit. Units absent here are not in the base
// registry but can be added by name.
var DefaultWeights = map[string]int{
	"IntegerGenerator":            2,
	"FloatGenerator":              1,
	"StringGenerator":             1,
	"BooleanGenerator":            1,
	"IntArrayGenerator":           1,
	"FloatArrayGenerator":         1,
	"ArrayGenerator":              5,
	"ObjectGenerator":             5,
	"PlainNativesGenerator":       3,
	"FancyNativesGenerator":       2,
	"DefinePropertyGenerator":     2,
	"TypedArrayGenerator":         1,
	"ArrayBufferGenerator":        1,
	"ProxyGenerator":              1,
	"DataViewGenerator":           1,
	"MapGenerator":                1,
	"SetGenerator":                1,
	"WeakMapGenerator":            1,
	"WeakSetGenerator":            1,
	"ConstructorCallGenerator":    2,
	"GCGenerator":                 1,
	"NativeSlotGetPropGenerator":  5,
	"ArrayBufferGetPropGenerator": 2,
	"TypedArrayGetPropGenerator":  2,
	"GetPropStubGenerator":        5,
	"NativeSlotSetPropGenerator":  5,
	"SetPropStubGenerator":        5,
	"FunctionDefinitionGenerator": 3,
	"FunctionCallGenerator":       3,
	"ForLoopGenerator":            2,
	"IfElseGenerator":             2,
	"ForceBaselineGenerator":      1,
}

// Lookup finds a built-in unit by name.
func Lookup(name string) (*builder.Generator, bool) {
	i := slices.IndexFunc(catalogue, func(g *builder.Generator) bool { return g.Name() == name })
	if i < 0 {
		return nil, false
	}

	return catalogue[i], true
}

// Names lists every built-in unit name in catalogue order.
func Names() []string {
	names := make([]string, len(catalogue))
	for i, g := range catalogue {
		names[i] = g.Name()
	}

	return names
}

// Default builds the base registry from DefaultWeights.
func Default() *builder.Registry {
	return registry.MustNew(entries(DefaultWeights)...)
}

// Weighted builds a registry over the units named in weights, in catalogue order.
func Weighted(weights map[string]int) (*builder.Registry, error) {
	return registry.New(entries(weights)...)
}

func entries(weights map[string]int) []registry.Entry[*builder.Generator] {
	var out []registry.Entry[*builder.Generator]

	for _, g := range catalogue {
		if w, ok := weights[g.Name()]; ok {
			out = append(out, registry.E(g, w))
		}
	}

	return out
}
