// Package builder implements the synthesis context that turns generator units
// into a program.
//
// A Builder is single-threaded and lives for exactly one synthesis session.
// Primitive operations that detect a type violation abort the session by
// panicking; Build recovers the panic and returns it as a *errors.SynthesisError
// naming the template and the generator unit that faulted.
package builder

import (
	"errors"
	"math"
	"math/rand"
	"slices"
	"strconv"

	"go.uber.org/zap"

	tferrors "github.com/orizon-lang/tierforge/internal/errors"
	"github.com/orizon-lang/tierforge/internal/program"
	"github.com/orizon-lang/tierforge/internal/shape"
	"github.com/orizon-lang/tierforge/internal/types"
)

const (
	DefaultRecursionBudget = 16
	DefaultMaxRetries      = 32
)

// Builtin binds a host or runtime name to its type.
type Builtin struct {
	Name string
	Type types.Type
}

// Options configures a Builder.
type Options struct {
	Seed            int64
	RecursionBudget int
	MaxRetries      int
	// Builtins are merged over DefaultEnvironment; a later entry replaces an earlier one.
	Builtins []Builtin
	Logger   *zap.Logger
}

// Phase is the coarse progress of a session. Phases never move backwards.
type Phase int

const (
	PhaseEmpty Phase = iota
	PhasePopulating
	PhaseFunctionDefined
	PhaseTierLoop1
	PhaseFinalized Phase = math.MaxInt32
)

// TierLoop returns the phase of the n-th tier loop, starting at 1.
func TierLoop(n int) Phase {
	return PhaseTierLoop1 + Phase(n-1)
}

func (p Phase) String() string {
	switch {
	case p == PhaseEmpty:
		return "Empty"
	case p == PhasePopulating:
		return "Populating"
	case p == PhaseFunctionDefined:
		return "FunctionDefined"
	case p == PhaseFinalized:
		return "Finalized"
	case p >= PhaseTierLoop1:
		return "TierLoop" + strconv.Itoa(int(p-PhaseTierLoop1)+1)
	default:
		return "Phase(" + strconv.Itoa(int(p)) + ")"
	}
}

// PhaseMark records the program length when a phase was entered.
type PhaseMark struct {
	Phase        Phase
	Instructions int
}

// abort is the panic payload used to unwind a failed session.
type abort struct {
	err  error
	unit string
}

// Builder is the mutable synthesis context.
type Builder struct {
	rng *rand.Rand
	log *zap.Logger

	code   []program.Instruction
	next   program.Variable
	scopes [][]program.Variable
	types  map[program.Variable]types.Type
	consts map[program.Variable]string

	shapes *shape.Tracker
	names  []string

	registry *Registry
	env      map[string]types.Type
	envOrder []string

	budget     int
	maxRetries int
	fnDepth    int

	unit      string
	phase     Phase
	marks     []PhaseMark
	finalized bool
}

// New returns a Builder drawing from reg.
func New(reg *Registry, opts Options) *Builder {
	if opts.RecursionBudget <= 0 {
		opts.RecursionBudget = DefaultRecursionBudget
	}

	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	b := &Builder{
		rng:        rand.New(rand.NewSource(opts.Seed)),
		log:        logger,
		scopes:     [][]program.Variable{nil},
		types:      make(map[program.Variable]types.Type),
		consts:     make(map[program.Variable]string),
		shapes:     shape.NewTracker(),
		registry:   reg,
		env:        make(map[string]types.Type),
		budget:     opts.RecursionBudget,
		maxRetries: opts.MaxRetries,
	}

	for _, bi := range append(DefaultEnvironment(), opts.Builtins...) {
		if _, seen := b.env[bi.Name]; !seen {
			b.envOrder = append(b.envOrder, bi.Name)
		}

		b.env[bi.Name] = bi.Type
	}

	return b
}

// Rand exposes the session's random source to generator units.
func (b *Builder) Rand() *rand.Rand { return b.rng }

func (b *Builder) Logger() *zap.Logger { return b.log }

// Len is the number of instructions emitted so far.
func (b *Builder) Len() int { return len(b.code) }

func (b *Builder) Budget() int { return b.budget }

func (b *Builder) Shapes() *shape.Tracker { return b.shapes }

func (b *Builder) Phase() Phase { return b.phase }

// Phases lists every phase transition of the session in order.
func (b *Builder) Phases() []PhaseMark { return slices.Clone(b.marks) }

// ActiveRegistry is the registry Generate currently draws from.
func (b *Builder) ActiveRegistry() *Registry { return b.registry }

// Type returns the tracked type of v.
func (b *Builder) Type(v program.Variable) types.Type {
	return b.types[v]
}

// Builtins lists the environment names in declaration order.
func (b *Builder) Builtins() []string { return slices.Clone(b.envOrder) }

// HasBuiltin reports whether name is in the environment.
func (b *Builder) HasBuiltin(name string) bool {
	_, ok := b.env[name]
	return ok
}

// Probability returns true with probability p.
func (b *Builder) Probability(p float64) bool {
	return b.rng.Float64() < p
}

// Choose returns a uniformly random element of items, which must not be empty.
func Choose[T any](b *Builder, items []T) T {
	return items[b.rng.Intn(len(items))]
}

// Advance moves the session to phase to.
func (b *Builder) Advance(to Phase) {
	b.checkOpen()

	if to < b.phase {
		b.fail(tferrors.PhaseOrder(b.phase.String(), to.String()))
	}

	b.phase = to
	b.marks = append(b.marks, PhaseMark{Phase: to, Instructions: len(b.code)})
}

// WithRegistry makes reg the active registry while fn runs and restores the
// previous one on every exit path, including an aborting panic.
func (b *Builder) WithRegistry(reg *Registry, fn func()) {
	prev := b.registry
	b.registry = reg

	defer func() { b.registry = prev }()

	fn()
}

// Build runs fn as one synthesis session and finalizes the result. A session
// that fails is discarded and the Builder rejects further use.
func (b *Builder) Build(meta program.Meta, fn func(*Builder) error) (p *program.Program, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}

		a, ok := r.(*abort)
		if !ok {
			panic(r)
		}

		b.finalized = true
		p = nil
		err = &tferrors.SynthesisError{Template: meta.Template, Unit: a.unit, Err: a.err}
	}()

	if err := fn(b); err != nil {
		b.finalized = true

		var se *tferrors.SynthesisError
		if errors.As(err, &se) {
			return nil, err
		}

		return nil, &tferrors.SynthesisError{Template: meta.Template, Unit: b.unit, Err: err}
	}

	return b.Finalize(meta)
}

// Finalize freezes the session into a Program.
func (b *Builder) Finalize(meta program.Meta) (*program.Program, error) {
	if b.finalized {
		return nil, finalizedError()
	}

	if len(b.scopes) != 1 {
		return nil, tferrors.NewStandardError(tferrors.CategorySynthesis, tferrors.CodePhaseOrder,
			"cannot finalize with open blocks", map[string]interface{}{"depth": len(b.scopes) - 1})
	}

	b.phase = PhaseFinalized
	b.marks = append(b.marks, PhaseMark{Phase: PhaseFinalized, Instructions: len(b.code)})
	b.finalized = true

	scope := make([]program.Binding, 0, len(b.scopes[0]))
	for _, v := range b.scopes[0] {
		scope = append(scope, program.Binding{Var: v, Type: b.types[v]})
	}

	p := program.New(meta, b.code, scope)
	if err := p.Validate(); err != nil {
		return nil, err
	}

	b.log.Debug("session finalized",
		zap.String("template", meta.Template),
		zap.Int("instructions", p.Len()),
		zap.Int("budget_left", b.budget))

	return p, nil
}

func finalizedError() error {
	return tferrors.NewStandardError(tferrors.CategorySynthesis, tferrors.CodeFinalized,
		"program already finalized", nil)
}

func (b *Builder) fail(err error) {
	panic(&abort{err: err, unit: b.unit})
}

func (b *Builder) checkOpen() {
	if b.finalized {
		b.fail(finalizedError())
	}
}
