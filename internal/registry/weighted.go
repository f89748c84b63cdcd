// Package registry provides immutable weighted collections used to select
// generator units and program templates.
package registry

import (
	"iter"
	"math/rand"
	"sort"

	tferrors "github.com/orizon-lang/tierforge/internal/errors"
)

// Named is implemented by everything a registry can hold.
type Named interface {
	Name() string
}

// Entry is one weighted element.
type Entry[T Named] struct {
	Item   T
	Weight int
}

// E is shorthand for building entries.
func E[T Named](item T, weight int) Entry[T] {
	return Entry[T]{Item: item, Weight: weight}
}

// Weighted is an ordered, immutable list of weighted items.
//
// A Weighted value is safe to share between goroutines: nothing mutates it
// after construction. Layer returns a new registry instead of editing one.
type Weighted[T Named] struct {
	entries    []Entry[T]
	cumulative []int
	total      int
}

// New validates entries and builds a registry.
//
// It fails with RegistryExhausted when entries is empty or the total weight is
// zero, and with InvalidWeight when any single weight is not positive.
func New[T Named](entries ...Entry[T]) (*Weighted[T], error) {
	total := 0

	for _, e := range entries {
		if e.Weight < 0 {
			return nil, tferrors.InvalidWeight(e.Item.Name(), e.Weight)
		}

		total += e.Weight
	}

	if total == 0 {
		return nil, tferrors.RegistryExhausted(len(entries))
	}

	w := &Weighted[T]{
		entries:    append([]Entry[T](nil), entries...),
		cumulative: make([]int, len(entries)),
		total:      total,
	}

	running := 0

	for i, e := range entries {
		if e.Weight == 0 {
			return nil, tferrors.InvalidWeight(e.Item.Name(), e.Weight)
		}

		running += e.Weight
		w.cumulative[i] = running
	}

	return w, nil
}

// MustNew is New for package-level tables; it panics on invalid input.
func MustNew[T Named](entries ...Entry[T]) *Weighted[T] {
	w, err := New(entries...)
	if err != nil {
		panic(err)
	}

	return w
}

// Draw picks an item with probability proportional to its weight.
func (w *Weighted[T]) Draw(r *rand.Rand) T {
	target := r.Intn(w.total)
	i := sort.Search(len(w.cumulative), func(i int) bool { return w.cumulative[i] > target })

	return w.entries[i].Item
}

// DrawFiltered draws until keep accepts an item, giving up after attempts draws.
func (w *Weighted[T]) DrawFiltered(r *rand.Rand, attempts int, keep func(T) bool) (T, bool) {
	for i := 0; i < attempts; i++ {
		item := w.Draw(r)
		if keep(item) {
			return item, true
		}
	}

	var zero T

	return zero, false
}

// All yields every item once, in insertion order. Each call starts afresh.
func (w *Weighted[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, e := range w.entries {
			if !yield(e.Item) {
				return
			}
		}
	}
}

// Entries returns a copy of the weighted entries.
func (w *Weighted[T]) Entries() []Entry[T] {
	return append([]Entry[T](nil), w.entries...)
}

func (w *Weighted[T]) Len() int         { return len(w.entries) }
func (w *Weighted[T]) TotalWeight() int { return w.total }

// Weight returns the weight of the named item, or 0.
func (w *Weighted[T]) Weight(name string) int {
	for _, e := range w.entries {
		if e.Item.Name() == name {
			return e.Weight
		}
	}

	return 0
}

// Lookup finds an item by name.
func (w *Weighted[T]) Lookup(name string) (T, bool) {
	for _, e := range w.entries {
		if e.Item.Name() == name {
			return e.Item, true
		}
	}

	var zero T

	return zero, false
}

// Layer builds a new registry: entries named in remove are dropped, weights
// listed in reweight replace existing ones, and additions are appended (or
// replace an existing entry of the same name in place).
func (w *Weighted[T]) Layer(additions []Entry[T], remove []string, reweight map[string]int) (*Weighted[T], error) {
	drop := make(map[string]bool, len(remove))
	for _, name := range remove {
		drop[name] = true
	}

	added := make(map[string]Entry[T], len(additions))
	for _, e := range additions {
		added[e.Item.Name()] = e
	}

	out := make([]Entry[T], 0, len(w.entries)+len(additions))

	for _, e := range w.entries {
		name := e.Item.Name()
		if drop[name] {
			continue
		}

		if repl, ok := added[name]; ok {
			e = repl
			delete(added, name)
		}

		if weight, ok := reweight[name]; ok {
			e.Weight = weight
		}

		out = append(out, e)
	}

	for _, e := range additions {
		name := e.Item.Name()
		if _, pending := added[name]; !pending || drop[name] {
			continue
		}

		if weight, ok := reweight[name]; ok {
			e.Weight = weight
		}

		out = append(out, e)
	}

	return New(out...)
}
