// Package campaign synthesizes batches of programs in parallel and hands them
// to a sink.
package campaign

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/orizon-lang/tierforge/internal/logging"
	"github.com/orizon-lang/tierforge/internal/program"
)

// Synthesizer produces one program per seed. *engine.Engine implements it.
type Synthesizer interface {
	Synthesize(seed int64) (*program.Program, error)
	SynthesizeTemplate(name string, seed int64) (*program.Program, error)
}

// Sink receives every successfully synthesized program.
type Sink interface {
	Put(ctx context.Context, p *program.Program) error
}

// Options configures a campaign run.
type Options struct {
	Count       int   // programs to attempt
	Seed        int64 // campaign seed; program seeds derive from it (0 = time based)
	Concurrency int   // parallel sessions
	Template    string
	// Failures, when set, receives one tab-separated line per failed session.
	Failures io.Writer
	Logger   *zap.Logger
}

// Stats captures aggregate counters for a campaign.
type Stats struct {
	Programs     uint64
	Failures     uint64
	Instructions uint64
}

// Run attempts opts.Count sessions. Synthesis failures are counted and
// logged; a sink error stops the campaign and is returned. Cancelling ctx
// stops scheduling new sessions.
func Run(ctx context.Context, syn Synthesizer, sink Sink, opts Options) (Stats, error) {
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}

	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}

	log := logging.OrNop(opts.Logger)

	var (
		programs, failures, instructions atomic.Uint64
		failMu                           sync.Mutex
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

schedule:
	for i := 0; i < opts.Count; i++ {
		select {
		case <-gctx.Done():
			break schedule
		default:
		}

		seed := Derive(opts.Seed, i)

		g.Go(func() error {
			p, err := synthesizeSafe(syn, opts.Template, seed)
			if err != nil {
				failures.Add(1)
				log.Warn("synthesis failed", zap.Int64("seed", seed), zap.Error(err))

				if opts.Failures != nil {
					failMu.Lock()
					fmt.Fprintf(opts.Failures, "%s\t%d\t%s\n", time.Now().Format(time.RFC3339Nano), seed, err)
					failMu.Unlock()
				}

				return nil
			}

			if err := sink.Put(gctx, p); err != nil {
				return fmt.Errorf("sink rejected program %s: %w", p.ID(), err)
			}

			programs.Add(1)
			instructions.Add(uint64(p.Len()))

			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	stats := Stats{Programs: programs.Load(), Failures: failures.Load(), Instructions: instructions.Load()}

	log.Info("campaign finished",
		zap.Uint64("programs", stats.Programs),
		zap.Uint64("failures", stats.Failures),
		zap.Uint64("instructions", stats.Instructions))

	return stats, err
}

// synthesizeSafe converts panics into errors for recording.
func synthesizeSafe(syn Synthesizer, template string, seed int64) (p *program.Program, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if template != "" {
		return syn.SynthesizeTemplate(template, seed)
	}

	return syn.Synthesize(seed)
}

// Derive returns the seed of the salt-th program of a campaign seeded with base.
func Derive(base int64, salt int) int64 {
	var b [16]byte

	binary.LittleEndian.PutUint64(b[0:8], uint64(base))
	binary.LittleEndian.PutUint64(b[8:16], uint64(salt))
	sh := sha256.Sum256(b[:])

	return int64(binary.LittleEndian.Uint64(sh[:8]))
}

// WriterSink writes programs as JSON lines.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterSink(w io.Writer) *WriterSink { return &WriterSink{w: w} }

func (s *WriterSink) Put(_ context.Context, p *program.Program) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.w.Write(append(data, '\n'))

	return err
}
