package engine

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tferrors "github.com/orizon-lang/tierforge/internal/errors"
	"github.com/orizon-lang/tierforge/internal/profile"
	"github.com/orizon-lang/tierforge/internal/program"
)

func builtinEngine(t *testing.T, name string) *Engine {
	t.Helper()

	p, err := profile.Embedded(name)
	require.NoError(t, err)

	e, err := New(p, nil)
	require.NoError(t, err)

	return e
}

func TestSynthesize_BuiltinProfiles(t *testing.T) {
	for _, name := range profile.Names() {
		e := builtinEngine(t, name)

		for seed := int64(0); seed < 15; seed++ {
			p, err := e.Synthesize(seed)
			require.NoError(t, err, "%s seed %d", name, seed)

			assert.NotEmpty(t, p.ID())
			assert.Equal(t, seed, p.Seed())
			assert.Contains(t, e.Templates(), p.Template())
			assert.NoError(t, p.Validate())
			assert.NotEmpty(t, p.Loops())
		}
	}
}

func TestSynthesize_Deterministic(t *testing.T) {
	e := builtinEngine(t, "cacheir")

	a, err := e.Synthesize(42)
	require.NoError(t, err)

	b, err := e.Synthesize(42)
	require.NoError(t, err)

	assert.NotEqual(t, a.ID(), b.ID())
	assert.Empty(t, cmp.Diff(a.Instructions(), b.Instructions(), cmpopts.EquateNaNs()))
	assert.Equal(t, a.Format(), b.Format())
}

func TestSynthesizeTemplate(t *testing.T) {
	e := builtinEngine(t, "cacheir")

	p, err := e.SynthesizeTemplate("GetPropIC", 3)
	require.NoError(t, err)
	assert.Equal(t, "GetPropIC", p.Template())

	_, err = e.SynthesizeTemplate("MapTransition", 3)
	assert.True(t, errors.Is(err, tferrors.ErrInvalidProfile))
}

func TestSpidermonkey_ForcesOptimizingLoops(t *testing.T) {
	e := builtinEngine(t, "spidermonkey")
	_, ok := e.Generators().Lookup("ForceOptimizeGenerator")
	assert.True(t, ok)

	p, err := e.Synthesize(8)
	require.NoError(t, err)
	assert.Equal(t, "MapTransition", p.Template())
	assert.GreaterOrEqual(t, p.Count(program.OpCallFunction), 1)
}

func TestNew_LayersGenerators(t *testing.T) {
	p := &profile.Profile{
		Templates: []profile.TemplateWeight{{Name: "GetPropIC", Weight: 1}},
		Generators: profile.Generators{
			Weights: map[string]int{"IntegerGenerator": 9},
			Disable: []string{"GCGenerator"},
			Add:     map[string]int{"ForceOptimizeGenerator": 4},
		},
	}

	e, err := New(p, nil)
	require.NoError(t, err)

	reg := e.Generators()
	assert.Equal(t, 9, reg.Weight("IntegerGenerator"))
	assert.Equal(t, 4, reg.Weight("ForceOptimizeGenerator"))

	_, ok := reg.Lookup("GCGenerator")
	assert.False(t, ok)
}

func TestNew_Rejects(t *testing.T) {
	getProp := []profile.TemplateWeight{{Name: "GetPropIC", Weight: 1}}

	cases := map[string]*profile.Profile{
		"no templates":     {},
		"unknown template": {Templates: []profile.TemplateWeight{{Name: "Nope", Weight: 1}}},
		"missing prefix":   {Templates: []profile.TemplateWeight{{Name: "MapTransition", Weight: 1}}},
		"unknown add": {Templates: getProp,
			Generators: profile.Generators{Add: map[string]int{"NopeGenerator": 1}}},
		"unknown disable": {Templates: getProp,
			Generators: profile.Generators{Disable: []string{"NopeGenerator"}}},
		"weight not in registry": {Templates: getProp,
			Generators: profile.Generators{Weights: map[string]int{"ForceOptimizeGenerator": 1}}},
	}

	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := New(p, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tferrors.ErrInvalidProfile), err.Error())
		})
	}
}
