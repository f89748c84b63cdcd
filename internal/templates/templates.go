package templates

import (
	"github.com/orizon-lang/tierforge/internal/builder"
	"github.com/orizon-lang/tierforge/internal/generators"
	"github.com/orizon-lang/tierforge/internal/program"
	"github.com/orizon-lang/tierforge/internal/registry"
	"github.com/orizon-lang/tierforge/internal/types"
)

// Template is a named program recipe. Templates hold no state of their own;
// any units they need are declared inside build, per session.
type Template struct {
	name           string
	requiresPrefix bool
	build          func(b *builder.Builder) error
}

// New returns a template.
func New(name string, requiresPrefix bool, build func(b *builder.Builder) error) *Template {
	return &Template{name: name, requiresPrefix: requiresPrefix, build: build}
}

func (t *Template) Name() string { return t.name }

// RequiresPrefix reports whether the program relies on names defined by the
// profile's code prefix.
func (t *Template) RequiresPrefix() bool { return t.requiresPrefix }

// Build emits the template into b.
func (t *Template) Build(b *builder.Builder) error { return t.build(b) }

// Config tunes the built-in templates.
type Config struct {
	Incidental int
	TierLoops  []int64
}

func (c Config) withDefaults() Config {
	if c.Incidental <= 0 {
		c.Incidental = DefaultIncidental
	}

	if len(c.TierLoops) == 0 {
		c.TierLoops = DefaultTierLoops
	}

	return c
}

// populationWeights is the value battery shared by the get-property templates.
var populationWeights = []registry.Entry[*builder.Generator]{
	registry.E(generators.Integer, 2),
	registry.E(generators.String, 1),
	registry.E(generators.FloatArray, 1),
	registry.E(generators.IntArray, 1),
	registry.E(generators.Array, 5),
	registry.E(generators.Object, 5),
	registry.E(generators.ArrayBuffer, 1),
	registry.E(generators.TypedArray, 1),
	registry.E(generators.DataView, 1),
	registry.E(generators.Proxy, 1),
	registry.E(generators.FakeDOMObject, 1),
}

// Population returns the value battery run at the start of the get-property templates.
func Population() *builder.Registry {
	return registry.MustNew(populationWeights...)
}

// Stubs returns the property-stub registry drawn from inside the promoted function.
func Stubs() *builder.Registry {
	return registry.MustNew(
		registry.E(generators.GetPropStub, 5),
		registry.E(generators.SetPropStub, 5),
	)
}

// GetPropIC runs the full tier-forcing sequence over a function that
// exercises one get-property and one set-property stub.
func GetPropIC(cfg Config) *Template {
	cfg = cfg.withDefaults()
	population := Population()

	return New("GetPropIC", false, func(b *builder.Builder) error {
		TierForcing{
			Population: population,
			Signature:  types.NewSignature(types.Undefined),
			Body: func(b *builder.Builder, _ []program.Variable) {
				b.Run(generators.GetPropStub)
				b.Run(generators.SetPropStub)
			},
			Incidental: cfg.Incidental,
			Loops:      cfg.TierLoops,
		}.Run(b)

		return nil
	})
}

// GetPropIC2 packs eleven stub draws into the function and only promotes it
// to the baseline tier.
func GetPropIC2(cfg Config) *Template {
	cfg = cfg.withDefaults()
	population := Population()
	stubs := Stubs()

	return New("GetPropIC2", false, func(b *builder.Builder) error {
		TierForcing{
			Population: population,
			Signature:  types.NewSignature(types.Undefined),
			Body: func(b *builder.Builder, _ []program.Variable) {
				for i := 0; i < 11; i++ {
					b.Run(stubs.Draw(b.Rand()))
				}
			},
			Loops: cfg.TierLoops[:1],
		}.Run(b)

		return nil
	})
}

// mapTransitionNames is the fixed property set of MapTransition.
var mapTransitionNames = []string{"a", "b", "c", "d", "e", "f", "g"}

// MapTransition swaps in a small registry of object create/load/store units
// so that stores walk objects of one initial shape through many transitions,
// while the prefix-defined foo() keeps reading obj.a. The previous registry
// is restored for a final incidental pass.
func MapTransition(cfg Config) *Template {
	cfg = cfg.withDefaults()

	return New("MapTransition", true, func(b *builder.Builder) error {
		objType := types.Object("a")
		sig := types.NewSignature(objType, objType, objType)

		b.Advance(builder.PhasePopulating)

		intVal := b.LoadInt(42)
		floatVal := b.LoadFloat(13.37)
		objVal := b.CreateObject(nil)
		values := []program.Variable{intVal, floatVal, objVal}

		for i := 0; i < 5; i++ {
			b.CreateObject(map[string]program.Variable{"a": intVal})
		}

		createObject := builder.Unit("CreateObject", func(b *builder.Builder, _ []program.Variable) (program.Variable, error) {
			return b.CreateObject(map[string]program.Variable{"a": intVal}), nil
		})

		propertyLoad := builder.UnitWithInput("PropertyLoad", objType, func(b *builder.Builder, in []program.Variable) (program.Variable, error) {
			return b.LoadProperty(builder.Choose(b, mapTransitionNames), in[0]), nil
		})

		propertyStore := builder.UnitWithInput("PropertyStore", objType, func(b *builder.Builder, in []program.Variable) (program.Variable, error) {
			for n := 1 + b.Rand().Intn(4); n > 0; n-- {
				b.StoreProperty(builder.Choose(b, values), builder.Choose(b, mapTransitionNames), in[0])
			}

			return program.NoVariable, nil
		})

		functionDefinition := builder.RecursiveUnit("FunctionDefinition", func(b *builder.Builder, _ []program.Variable) (program.Variable, error) {
			return b.DefineFunction(sig, func([]program.Variable) {
				b.GenerateRecursive()

				ret, _ := b.RandVarOfType(objType)
				b.Return(ret)
			}), nil
		})

		local, err := builder.NewRegistry(
			registry.E(createObject, 1),
			registry.E(propertyLoad, 2),
			registry.E(propertyStore, 5),
			registry.E(functionDefinition, 1),
		)
		if err != nil {
			return err
		}

		b.WithRegistry(local, func() {
			b.Run(functionDefinition)
			b.Advance(builder.PhaseFunctionDefined)
			b.Generate(2 * cfg.Incidental)

			foo := b.LoadBuiltin("foo")

			b.Advance(builder.TierLoop(1))
			b.Repeat(generators.BaselineIterations, func(program.Variable) {
				b.CallFunction(foo)
			})

			b.Generate(2 * cfg.Incidental)
		})

		b.Generate(cfg.Incidental)

		return nil
	})
}

// Catalogue returns every built-in template.
func Catalogue(cfg Config) []*Template {
	return []*Template{GetPropIC(cfg), GetPropIC2(cfg), MapTransition(cfg)}
}

// Lookup finds a built-in template by name.
func Lookup(cfg Config, name string) (*Template, bool) {
	for _, t := range Catalogue(cfg) {
		if t.Name() == name {
			return t, true
		}
	}

	return nil, false
}
