package builder

import (
	"github.com/orizon-lang/tierforge/internal/program"
	"github.com/orizon-lang/tierforge/internal/registry"
	"github.com/orizon-lang/tierforge/internal/types"
)

// Emit is the body of a generator unit. inputs holds the pre-selected input
// variable when the unit declares an input type.
//
// Returning an error matching ErrNoEligibleVariable or ErrBudgetExceeded
// declines the attempt; Generate then draws again. Any other error aborts the
// session.
type Emit func(b *Builder, inputs []program.Variable) (program.Variable, error)

// Generator is a named unit that emits a program fragment.
type Generator struct {
	name      string
	input     types.Type
	hasInput  bool
	recursive bool
	emit      Emit
}

// Unit returns a generator without input constraints.
func Unit(name string, emit Emit) *Generator {
	return &Generator{name: name, emit: emit}
}

// UnitWithInput returns a generator that runs on a visible variable of type input.
func UnitWithInput(name string, input types.Type, emit Emit) *Generator {
	return &Generator{name: name, input: input, hasInput: true, emit: emit}
}

// RecursiveUnit returns a generator that synthesizes nested code. Recursive
// units become ineligible once the session's recursion budget is spent.
func RecursiveUnit(name string, emit Emit) *Generator {
	return &Generator{name: name, recursive: true, emit: emit}
}

func (g *Generator) Name() string { return g.name }

// Input returns the declared input type, if any.
func (g *Generator) Input() (types.Type, bool) { return g.input, g.hasInput }

func (g *Generator) Recursive() bool { return g.recursive }

// Registry is the weighted generator table a Builder draws from.
type Registry = registry.Weighted[*Generator]

// NewRegistry builds a generator registry.
func NewRegistry(entries ...registry.Entry[*Generator]) (*Registry, error) {
	return registry.New(entries...)
}
