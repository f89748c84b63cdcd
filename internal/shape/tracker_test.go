package shape

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orizon-lang/tierforge/internal/program"
)

func TestTracker_RecordIsIdempotent(t *testing.T) {
	tr := NewTracker()
	tr.Record(1, "a")
	tr.Record(1, "a")
	tr.Record(1, "b")

	assert.Equal(t, []string{"a", "b"}, tr.Properties(1))
	assert.Equal(t, 2, tr.Size())
	assert.True(t, tr.Has(1, "a"))
	assert.False(t, tr.Has(2, "a"))
	assert.Nil(t, tr.Properties(2))
}

func TestTracker_ShapesOnlyGrow(t *testing.T) {
	tr := NewTracker()
	r := rand.New(rand.NewSource(1))
	names := []string{"a", "b", "c", "d", "length", "__proto__"}
	prev := map[program.Variable][]string{}

	for i := 0; i < 2000; i++ {
		v := program.Variable(r.Intn(8))
		tr.Record(v, names[r.Intn(len(names))])

		for obj, before := range prev {
			now := tr.Properties(obj)
			require.GreaterOrEqual(t, len(now), len(before))

			for _, name := range before {
				require.Contains(t, now, name)
			}
		}

		prev[v] = tr.Properties(v)
	}
}

func TestTracker_ObjectsOrder(t *testing.T) {
	tr := NewTracker()
	tr.Record(5, "x")
	tr.Record(2, "y")
	tr.Record(5, "z")

	assert.Equal(t, []program.Variable{5, 2}, tr.Objects())
}
