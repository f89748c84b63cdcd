// Package templates sequences generator units into whole programs.
//
// The central routine is TierForcing: it seeds a diverse heap, defines one
// function over property accesses and then calls that function in counted
// loops sized to push it through the target engine's execution tiers.
package templates

import (
	"go.uber.org/zap"

	"github.com/orizon-lang/tierforge/internal/builder"
	"github.com/orizon-lang/tierforge/internal/program"
	"github.com/orizon-lang/tierforge/internal/types"
)

// Loop counts overshooting the default interpreter-to-baseline and
// baseline-to-optimizing thresholds, plus a further optimizing round.
var DefaultTierLoops = []int64{11, 101, 101}

// DefaultIncidental is the size of each incidental Generate pass.
const DefaultIncidental = 10

// TierForcing describes one tier-forcing session.
type TierForcing struct {
	// Population units are each run once, in registry order.
	Population *builder.Registry
	Signature  types.Signature
	// Body emits the function body that the loops will promote.
	Body func(b *builder.Builder, params []program.Variable)
	// Incidental is the Generate(n) size between stages; zero skips the passes.
	Incidental int
	Loops      []int64
}

// Trace reports what a TierForcing run emitted.
type Trace struct {
	Function program.Variable
	// Generated holds the program length after each incidental pass.
	Generated []int
	Loops     []int64
}

// Run emits the tier-forcing sequence into b:
// populate, define the function, then for every loop an incidental pass
// followed by the counted call loop.
func (tf TierForcing) Run(b *builder.Builder) Trace {
	var trace Trace

	b.Advance(builder.PhasePopulating)

	if tf.Population != nil {
		for g := range tf.Population.All() {
			b.Run(g)
		}
	}

	trace.Function = b.DefineFunction(tf.Signature, func(params []program.Variable) {
		if tf.Body != nil {
			tf.Body(b, params)
		}
	})

	b.Advance(builder.PhaseFunctionDefined)

	for i, n := range tf.Loops {
		if tf.Incidental > 0 {
			b.Generate(tf.Incidental)
			trace.Generated = append(trace.Generated, b.Len())
		}

		args := b.GenerateCallArguments(tf.Signature)

		b.Advance(builder.TierLoop(i + 1))
		b.Repeat(n, func(program.Variable) {
			b.CallFunction(trace.Function, args...)
		})

		trace.Loops = append(trace.Loops, n)
	}

	b.Logger().Debug("tier forcing emitted",
		zap.Int64s("loops", trace.Loops),
		zap.Int("instructions", b.Len()))

	return trace
}
