package generators

import (
	"github.com/orizon-lang/tierforge/internal/builder"
	"github.com/orizon-lang/tierforge/internal/program"
	"github.com/orizon-lang/tierforge/internal/types"
)

// Iteration counts that overshoot the default baseline and optimizing
// warm-up thresholds of the target engine.
const (
	BaselineIterations = 10
	OptimizeIterations = 100
)

var paramTypes = []types.Type{types.Anything, types.Integer, types.Object(), types.String}

// FunctionDefinition defines a function whose body is nested generated code.
var FunctionDefinition = builder.RecursiveUnit("FunctionDefinitionGenerator", func(b *builder.Builder, _ []program.Variable) (program.Variable, error) {
	params := make([]types.Type, b.Rand().Intn(3))
	for i := range params {
		params[i] = builder.Choose(b, paramTypes)
	}

	f := b.DefineFunction(types.NewSignature(types.Anything, params...), func([]program.Variable) {
		b.GenerateRecursive()

		if v, ok := b.RandVar(); ok {
			b.Return(v)
		}
	})

	return f, nil
})

// FunctionCall calls a function in scope with matching arguments.
var FunctionCall = builder.UnitWithInput("FunctionCallGenerator", types.AnyFunction(), func(b *builder.Builder, in []program.Variable) (program.Variable, error) {
	args, ok := b.RandCallArguments(in[0])
	if !ok {
		return program.NoVariable, builder.NoEligible("call arguments")
	}

	return b.CallFunction(in[0], args...), nil
})

// ForLoop wraps nested generated code in a short counted loop.
var ForLoop = builder.RecursiveUnit("ForLoopGenerator", func(b *builder.Builder, _ []program.Variable) (program.Variable, error) {
	b.Repeat(int64(1+b.Rand().Intn(16)), func(program.Variable) {
		b.GenerateRecursive()
	})

	return program.NoVariable, nil
})

// IfElse branches on a boolean in scope, or on a fresh comparison.
var IfElse = builder.RecursiveUnit("IfElseGenerator", func(b *builder.Builder, _ []program.Variable) (program.Variable, error) {
	cond, ok := b.RandVarOfType(types.Boolean)
	if !ok {
		lhs, found := b.RandVarOfType(types.Integer)
		if !found {
			lhs = b.LoadInt(b.GenInt())
		}

		cmp := program.Comparator(b.Rand().Intn(int(program.StrictNotEqual) + 1))
		cond = b.Compare(lhs, cmp, b.LoadInt(b.GenInt()))
	}

	b.If(cond, b.GenerateRecursive, b.GenerateRecursive)

	return program.NoVariable, nil
})

func forceTier(name string, iterations int64) *builder.Generator {
	return builder.UnitWithInput(name, types.AnyFunction(), func(b *builder.Builder, in []program.Variable) (program.Variable, error) {
		args, ok := b.RandCallArguments(in[0])
		if !ok {
			return program.NoVariable, builder.NoEligible("call arguments")
		}

		b.Repeat(iterations, func(program.Variable) {
			b.CallFunction(in[0], args...)
		})

		return program.NoVariable, nil
	})
}

var (
	// ForceBaseline calls a function often enough to reach the baseline tier.
	ForceBaseline = forceTier("ForceBaselineGenerator", BaselineIterations)
	// ForceOptimize calls a function often enough to reach the optimizing tier.
	ForceOptimize = forceTier("ForceOptimizeGenerator", OptimizeIterations)
)
