package campaign

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/orizon-lang/tierforge/internal/corpus"
	"github.com/orizon-lang/tierforge/internal/engine"
	"github.com/orizon-lang/tierforge/internal/profile"
	"github.com/orizon-lang/tierforge/internal/program"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSynth struct {
	fail  func(seed int64) bool
	panic func(seed int64) bool
}

func (f fakeSynth) Synthesize(seed int64) (*program.Program, error) {
	return f.SynthesizeTemplate("fake", seed)
}

func (f fakeSynth) SynthesizeTemplate(name string, seed int64) (*program.Program, error) {
	if f.panic != nil && f.panic(seed) {
		panic("boom")
	}

	if f.fail != nil && f.fail(seed) {
		return nil, errors.New("declined")
	}

	return program.New(program.Meta{ID: name, Template: name, Seed: seed}, []program.Instruction{
		{Op: program.OpLoadInteger, Outputs: []program.Variable{0}, Int: seed},
	}, nil), nil
}

type memSink struct {
	mu    sync.Mutex
	seeds []int64
	stop  func(n int) error
}

func (s *memSink) Put(_ context.Context, p *program.Program) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seeds = append(s.seeds, p.Seed())

	if s.stop != nil {
		return s.stop(len(s.seeds))
	}

	return nil
}

func TestDerive_Stable(t *testing.T) {
	assert.Equal(t, Derive(1, 0), Derive(1, 0))
	assert.NotEqual(t, Derive(1, 0), Derive(1, 1))
	assert.NotEqual(t, Derive(1, 0), Derive(2, 0))
}

func TestRun_CountsAndSeeds(t *testing.T) {
	odd := func(seed int64) bool { return seed%2 != 0 }
	sink := &memSink{}
	var failures bytes.Buffer

	stats, err := Run(context.Background(), fakeSynth{fail: odd}, sink, Options{
		Count: 40, Seed: 9, Concurrency: 4, Failures: &failures,
	})
	require.NoError(t, err)

	var wantOK, wantFail uint64

	for i := 0; i < 40; i++ {
		if odd(Derive(9, i)) {
			wantFail++
		} else {
			wantOK++
		}
	}

	assert.Equal(t, wantOK, stats.Programs)
	assert.Equal(t, wantFail, stats.Failures)
	assert.Equal(t, wantOK, stats.Instructions)
	assert.Len(t, sink.seeds, int(wantOK))

	lines := 0
	for sc := bufio.NewScanner(&failures); sc.Scan(); lines++ {
		assert.Len(t, strings.Split(sc.Text(), "\t"), 3)
	}

	assert.Equal(t, int(wantFail), lines)
}

func TestRun_RecoversPanics(t *testing.T) {
	stats, err := Run(context.Background(), fakeSynth{panic: func(int64) bool { return true }}, &memSink{}, Options{Count: 5, Seed: 1})
	require.NoError(t, err)
	assert.Equal(t, uint64(5), stats.Failures)
	assert.Zero(t, stats.Programs)
}

func TestRun_SinkErrorStops(t *testing.T) {
	errFull := errors.New("full")
	sink := &memSink{stop: func(n int) error {
		if n >= 3 {
			return errFull
		}

		return nil
	}}

	stats, err := Run(context.Background(), fakeSynth{}, sink, Options{Count: 1000, Seed: 2, Concurrency: 2})
	require.ErrorIs(t, err, errFull)
	assert.Less(t, stats.Programs, uint64(1000))
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats, err := Run(ctx, fakeSynth{}, &memSink{}, Options{Count: 100, Seed: 3})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, stats.Programs)
}

func TestRun_EngineIntoCorpus(t *testing.T) {
	p, err := profile.Embedded("cacheir")
	require.NoError(t, err)

	e, err := engine.New(p, nil)
	require.NoError(t, err)

	store, err := corpus.Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	stats, err := Run(context.Background(), e, store, Options{Count: 8, Seed: 11, Concurrency: 3, Template: "GetPropIC"})
	require.NoError(t, err)
	assert.Equal(t, uint64(8), stats.Programs)
	assert.Zero(t, stats.Failures)

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, n)
}

func TestWriterSink_JSONLines(t *testing.T) {
	var buf bytes.Buffer

	_, err := Run(context.Background(), fakeSynth{}, NewWriterSink(&buf), Options{Count: 3, Seed: 4})
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(buf.String(), "\n"))
}
