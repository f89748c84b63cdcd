package builder

import (
	"errors"

	"go.uber.org/zap"

	tferrors "github.com/orizon-lang/tierforge/internal/errors"
	"github.com/orizon-lang/tierforge/internal/program"
	"github.com/orizon-lang/tierforge/internal/types"
)

// declined reports whether err only means "skip this attempt".
func declined(err error) bool {
	return errors.Is(err, tferrors.ErrNoEligibleVariable) || errors.Is(err, tferrors.ErrBudgetExceeded)
}

// NoEligible is returned by units that found nothing to work on.
func NoEligible(what string) error {
	return tferrors.NewStandardError(tferrors.CategorySynthesis, tferrors.CodeNoEligibleVariable,
		"no visible variable of "+what, nil)
}

// run invokes g and reports whether it completed.
func (b *Builder) run(g *Generator, inputs []program.Variable) (program.Variable, bool) {
	if g.recursive && b.budget <= 0 {
		return program.NoVariable, false
	}

	if g.hasInput && len(inputs) == 0 {
		v, ok := b.RandVarOfType(g.input)
		if !ok {
			return program.NoVariable, false
		}

		inputs = []program.Variable{v}
	}

	prev := b.unit
	b.unit = g.name

	v, err := g.emit(b, inputs)

	b.unit = prev

	if err != nil {
		if declined(err) {
			return program.NoVariable, false
		}

		b.unit = g.name
		b.fail(err)
	}

	return v, true
}

// Run invokes g once, propagating its result. A unit that declines yields
// NoVariable.
func (b *Builder) Run(g *Generator, inputs ...program.Variable) program.Variable {
	v, _ := b.run(g, inputs)
	return v
}

// Generate fills n slots from the active registry and returns how many
// completed. Declined draws are retried up to the retry cap, after which the
// slot is dropped.
func (b *Builder) Generate(n int) int {
	done := 0

	for slot := 0; slot < n; slot++ {
		if b.generateSlot(nil) {
			done++
		}
	}

	return done
}

func (b *Builder) generateSlot(keep func(*Generator) bool) bool {
	if b.registry == nil {
		return false
	}

	_, ok := b.registry.DrawFiltered(b.rng, b.maxRetries, func(g *Generator) bool {
		if keep != nil && !keep(g) {
			return false
		}

		_, ran := b.run(g, nil)

		return ran
	})
	if ok {
		return true
	}

	b.log.Debug("generation slot dropped",
		zap.Int("attempts", b.maxRetries),
		zap.Int("budget", b.budget))

	return false
}

// GenerateRecursive emits a few slots of nested code for a recursive unit.
// Each call spends one unit of the session budget; once the budget is gone it
// degrades to a single non-recursive slot.
func (b *Builder) GenerateRecursive() {
	if b.budget <= 0 {
		b.generateSlot(func(g *Generator) bool { return !g.recursive })
		return
	}

	b.spendBudget()
	b.Generate(1 + b.rng.Intn(3))
}

func (b *Builder) spendBudget() {
	if b.budget <= 0 {
		return
	}

	b.budget--

	if b.budget == 0 {
		b.log.Debug("recursion budget exhausted", zap.Int("instructions", len(b.code)))
	}
}

// visible lists every variable in scope, outermost first.
func (b *Builder) visible() []program.Variable {
	var out []program.Variable
	for _, s := range b.scopes {
		out = append(out, s...)
	}

	return out
}

// RandVar returns a uniformly random visible variable.
func (b *Builder) RandVar() (program.Variable, bool) {
	return b.RandVarWhere(func(types.Type) bool { return true })
}

// RandVarOfType returns a random visible variable whose type is t.
func (b *Builder) RandVarOfType(t types.Type) (program.Variable, bool) {
	return b.RandVarWhere(func(have types.Type) bool { return have.Is(t) })
}

// RandObject returns a random visible variable on which name may be accessed.
// An empty name accepts any object-like variable.
func (b *Builder) RandObject(name string) (program.Variable, bool) {
	return b.RandVarWhere(func(t types.Type) bool {
		if name == "" {
			return t.IsObject()
		}

		return t.AllowsProperty(name)
	})
}

// RandVarWhere returns a random visible variable whose type satisfies keep.
func (b *Builder) RandVarWhere(keep func(types.Type) bool) (program.Variable, bool) {
	var candidates []program.Variable

	for _, v := range b.visible() {
		if keep(b.types[v]) {
			candidates = append(candidates, v)
		}
	}

	if len(candidates) == 0 {
		return program.NoVariable, false
	}

	return candidates[b.rng.Intn(len(candidates))], true
}

// RandCallArguments picks existing variables matching f's parameters. It fails
// when some parameter has no candidate.
func (b *Builder) RandCallArguments(f program.Variable) ([]program.Variable, bool) {
	t := b.types[f]
	if t.Signature == nil {
		n := b.rng.Intn(3)
		args := make([]program.Variable, 0, n)

		for i := 0; i < n; i++ {
			v, ok := b.RandVar()
			if !ok {
				return nil, false
			}

			args = append(args, v)
		}

		return args, true
	}

	args := make([]program.Variable, len(t.Signature.Params))
	for i, pt := range t.Signature.Params {
		v, ok := b.RandVarOfType(pt)
		if !ok {
			return nil, false
		}

		args[i] = v
	}

	return args, true
}

// GenerateCallArguments produces one value per parameter of sig, reusing
// visible variables where possible.
func (b *Builder) GenerateCallArguments(sig types.Signature) []program.Variable {
	args := make([]program.Variable, len(sig.Params))
	for i, pt := range sig.Params {
		args[i] = b.GenerateValue(pt)
	}

	return args
}
