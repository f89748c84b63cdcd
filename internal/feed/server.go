// Package feed serves synthesized programs over HTTP/3 and fetches them from
// another tierforge instance.
package feed

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/quic-go/quic-go/http3"
	"go.uber.org/zap"

	"github.com/orizon-lang/tierforge/internal/campaign"
	"github.com/orizon-lang/tierforge/internal/corpus"
	"github.com/orizon-lang/tierforge/internal/logging"
	"github.com/orizon-lang/tierforge/internal/program"
)

// Store is the part of the corpus the feed reads and writes.
type Store interface {
	Put(ctx context.Context, p *program.Program) error
	Get(ctx context.Context, id string) (*program.Program, error)
}

// Handler answers feed requests:
//
//	GET /program[?seed=N&template=NAME]  synthesize a fresh program
//	GET /program/{id}                    look a program up in the corpus
//	GET /healthz
type Handler struct {
	syn   campaign.Synthesizer
	store Store
	log   *zap.Logger
	seed  int64
	next  atomic.Int64
}

// NewHandler serves programs from syn. store may be nil; fresh programs are
// recorded in it otherwise.
func NewHandler(syn campaign.Synthesizer, store Store, log *zap.Logger) *Handler {
	return &Handler{syn: syn, store: store, log: logging.OrNop(log), seed: time.Now().UnixNano()}
}

// Routes returns the request multiplexer.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /program", h.fresh)
	mux.HandleFunc("GET /program/{id}", h.lookup)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	return mux
}

func (h *Handler) fresh(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	seed := campaign.Derive(h.seed, int(h.next.Add(1)))
	if s := q.Get("seed"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			http.Error(w, "invalid seed", http.StatusBadRequest)
			return
		}

		seed = v
	}

	var (
		p   *program.Program
		err error
	)

	if name := q.Get("template"); name != "" {
		p, err = h.syn.SynthesizeTemplate(name, seed)
	} else {
		p, err = h.syn.Synthesize(seed)
	}

	if err != nil {
		h.log.Warn("feed synthesis failed", zap.Int64("seed", seed), zap.Error(err))
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)

		return
	}

	if h.store != nil {
		if err := h.store.Put(r.Context(), p); err != nil {
			h.log.Warn("feed could not record program", zap.String("id", p.ID()), zap.Error(err))
		}
	}

	writeProgram(w, p)
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		http.Error(w, "no corpus configured", http.StatusServiceUnavailable)
		return
	}

	p, err := h.store.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, corpus.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeProgram(w, p)
}

func writeProgram(w http.ResponseWriter, p *program.Program) {
	data, err := json.Marshal(p)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

// Server runs a handler over HTTP/3.
type Server struct {
	srv  *http3.Server
	pc   net.PacketConn
	addr string
	done chan struct{}
}

func NewServer(addr string, tlsCfg *tls.Config, h http.Handler) *Server {
	return &Server{srv: &http3.Server{Addr: addr, TLSConfig: tlsCfg, Handler: h}, addr: addr}
}

// Start binds the UDP socket and serves in the background. It returns the
// bound address, which differs from the configured one for port 0.
func (s *Server) Start() (string, error) {
	pc, err := net.ListenPacket("udp", s.addr)
	if err != nil {
		return "", err
	}

	s.pc = pc
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		_ = s.srv.Serve(pc)
	}()

	return pc.LocalAddr().String(), nil
}

// Stop closes the server and waits briefly for the serve loop to exit.
func (s *Server) Stop() error {
	if s.pc == nil {
		return nil
	}

	err := s.srv.Close()
	_ = s.pc.Close()

	select {
	case <-s.done:
	case <-time.After(time.Second):
	}

	return err
}
