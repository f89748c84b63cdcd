// Package engine binds a profile to the generator and template catalogues
// and runs synthesis sessions against the result.
package engine

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orizon-lang/tierforge/internal/builder"
	tferrors "github.com/orizon-lang/tierforge/internal/errors"
	"github.com/orizon-lang/tierforge/internal/generators"
	"github.com/orizon-lang/tierforge/internal/logging"
	"github.com/orizon-lang/tierforge/internal/profile"
	"github.com/orizon-lang/tierforge/internal/program"
	"github.com/orizon-lang/tierforge/internal/registry"
	"github.com/orizon-lang/tierforge/internal/templates"
)

// Engine is immutable after New and safe for concurrent Synthesize calls;
// every call builds its own Builder.
type Engine struct {
	profile    *profile.Profile
	generators *builder.Registry
	templates  *registry.Weighted[*templates.Template]
	builtins   []builder.Builtin
	log        *zap.Logger
}

// New resolves p against the catalogues.
func New(p *profile.Profile, log *zap.Logger) (*Engine, error) {
	log = logging.OrNop(log)

	if err := p.Validate(); err != nil {
		return nil, err
	}

	gens, err := layerGenerators(generators.Default(), p.Generators)
	if err != nil {
		return nil, err
	}

	tmpls, err := activeTemplates(p)
	if err != nil {
		return nil, err
	}

	builtins, err := p.ResolveBuiltins()
	if err != nil {
		return nil, err
	}

	log.Debug("engine ready",
		zap.String("profile", p.Name),
		zap.Int("generators", gens.Len()),
		zap.Int("templates", tmpls.Len()),
		zap.Int("builtins", len(builtins)))

	return &Engine{profile: p, generators: gens, templates: tmpls, builtins: builtins, log: log}, nil
}

func layerGenerators(base *builder.Registry, cfg profile.Generators) (*builder.Registry, error) {
	var additions []registry.Entry[*builder.Generator]

	for _, name := range sortedKeys(cfg.Add) {
		g, ok := generators.Lookup(name)
		if !ok {
			return nil, tferrors.InvalidProfile("generators.add."+name, "unknown generator")
		}

		additions = append(additions, registry.E(g, cfg.Add[name]))
	}

	for _, name := range cfg.Disable {
		if _, ok := generators.Lookup(name); !ok {
			return nil, tferrors.InvalidProfile("generators.disable", fmt.Sprintf("unknown generator %q", name))
		}
	}

	for name := range cfg.Weights {
		_, inBase := base.Lookup(name)
		_, added := cfg.Add[name]

		if !inBase && !added {
			return nil, tferrors.InvalidProfile("generators.weights."+name, "not in the registry; use generators.add")
		}
	}

	return base.Layer(additions, cfg.Disable, cfg.Weights)
}

func activeTemplates(p *profile.Profile) (*registry.Weighted[*templates.Template], error) {
	if len(p.Templates) == 0 {
		return nil, tferrors.InvalidProfile("templates", "no active templates")
	}

	cfg := templates.Config{Incidental: p.Synthesis.Incidental, TierLoops: p.Synthesis.TierLoops}

	var entries []registry.Entry[*templates.Template]

	for _, tw := range p.Templates {
		t, ok := templates.Lookup(cfg, tw.Name)
		if !ok {
			return nil, tferrors.InvalidProfile("templates", fmt.Sprintf("unknown template %q", tw.Name))
		}

		if t.RequiresPrefix() && p.CodePrefix == "" {
			return nil, tferrors.InvalidProfile("templates",
				fmt.Sprintf("template %s needs a code_prefix", tw.Name))
		}

		entries = append(entries, registry.E(t, tw.Weight))
	}

	return registry.New(entries...)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

func (e *Engine) Profile() *profile.Profile { return e.profile }

// Generators returns the layered generator registry.
func (e *Engine) Generators() *builder.Registry { return e.generators }

// Templates lists the active template names in profile order.
func (e *Engine) Templates() []string {
	names := make([]string, 0, e.templates.Len())
	for t := range e.templates.All() {
		names = append(names, t.Name())
	}

	return names
}

// Synthesize runs one session with a template drawn by weight from seed.
func (e *Engine) Synthesize(seed int64) (*program.Program, error) {
	t := e.templates.Draw(rand.New(rand.NewSource(seed)))

	return e.run(t, seed)
}

// SynthesizeTemplate runs one session of the named active template.
func (e *Engine) SynthesizeTemplate(name string, seed int64) (*program.Program, error) {
	t, ok := e.templates.Lookup(name)
	if !ok {
		return nil, tferrors.InvalidProfile("templates", fmt.Sprintf("template %q is not active", name))
	}

	return e.run(t, seed)
}

func (e *Engine) run(t *templates.Template, seed int64) (*program.Program, error) {
	b := builder.New(e.generators, builder.Options{
		Seed:            seed,
		RecursionBudget: e.profile.Synthesis.RecursionBudget,
		MaxRetries:      e.profile.Synthesis.MaxRetries,
		Builtins:        e.builtins,
		Logger:          e.log.With(zap.String("template", t.Name()), zap.Int64("seed", seed)),
	})

	meta := program.Meta{ID: uuid.NewString(), Template: t.Name(), Seed: seed}

	p, err := b.Build(meta, t.Build)
	if err != nil {
		return nil, err
	}

	e.log.Debug("program synthesized",
		zap.String("id", p.ID()),
		zap.String("template", t.Name()),
		zap.Int64("seed", seed),
		zap.Int("instructions", p.Len()))

	return p, nil
}
