// Package shape records which property names have been attached to which
// synthesized objects during one synthesis session.
//
// Shapes only grow: a name recorded once is never removed, mirroring how
// engines attach properties monotonically. Generators consult the tracker to
// reuse established names so that later accesses hit an already-seen shape.
package shape

import (
	"slices"
	"sort"

	"github.com/orizon-lang/tierforge/internal/program"
)

// Tracker is session-scoped and not safe for concurrent use.
type Tracker struct {
	props map[program.Variable]map[string]struct{}
	order []program.Variable
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{props: make(map[program.Variable]map[string]struct{})}
}

// Record adds name to the shape of v. Duplicate insertion is a no-op.
func (t *Tracker) Record(v program.Variable, name string) {
	set, ok := t.props[v]
	if !ok {
		set = make(map[string]struct{})
		t.props[v] = set
		t.order = append(t.order, v)
	}

	set[name] = struct{}{}
}

// Properties returns the sorted names known on v.
func (t *Tracker) Properties(v program.Variable) []string {
	set := t.props[v]
	if len(set) == 0 {
		return nil
	}

	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}

	sort.Strings(out)

	return out
}

// Has reports whether name was recorded on v.
func (t *Tracker) Has(v program.Variable, name string) bool {
	_, ok := t.props[v][name]
	return ok
}

// Objects lists every variable with at least one recorded property, in first-seen order.
func (t *Tracker) Objects() []program.Variable {
	return slices.Clone(t.order)
}

// Size is the total number of (variable, name) pairs recorded.
func (t *Tracker) Size() int {
	n := 0
	for _, set := range t.props {
		n += len(set)
	}

	return n
}
