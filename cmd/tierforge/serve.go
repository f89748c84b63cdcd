package main

import (
	"crypto/tls"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/orizon-lang/tierforge/internal/corpus"
	"github.com/orizon-lang/tierforge/internal/engine"
	"github.com/orizon-lang/tierforge/internal/feed"
	"github.com/orizon-lang/tierforge/internal/profile"
	"github.com/orizon-lang/tierforge/internal/program"
)

var (
	serveAddr   string
	serveCorpus string
	serveCert   string
	serveKey    string
	serveWatch  bool
)

// liveEngine forwards to the most recently loaded engine so that a profile
// reload takes effect without restarting the feed.
type liveEngine struct {
	cur atomic.Pointer[engine.Engine]
}

func (l *liveEngine) Synthesize(seed int64) (*program.Program, error) {
	return l.cur.Load().Synthesize(seed)
}

func (l *liveEngine) SynthesizeTemplate(name string, seed int64) (*program.Program, error) {
	return l.cur.Load().SynthesizeTemplate(name, seed)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve programs over HTTP/3",
	Long: `Serves GET /program (fresh synthesis, optional seed and template query
parameters), GET /program/{id} (corpus lookup) and GET /healthz. Without
--cert and --key a self-signed certificate is generated. --watch reloads the
profile file when it changes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEngine()
		if err != nil {
			return err
		}

		live := &liveEngine{}
		live.cur.Store(e)

		var store feed.Store

		if serveCorpus != "" {
			s, err := corpus.Open(serveCorpus)
			if err != nil {
				return err
			}
			defer s.Close()

			store = s
		}

		tlsCfg, err := serverTLS()
		if err != nil {
			return err
		}

		srv := feed.NewServer(serveAddr, tlsCfg, feed.NewHandler(live, store, logger).Routes())

		addr, err := srv.Start()
		if err != nil {
			return err
		}
		defer srv.Stop()

		logger.Info("feed listening", zap.String("addr", addr), zap.String("profile", e.Profile().Name))
		fmt.Fprintf(cmd.OutOrStdout(), "serving on %s\n", addr)

		ctx, stop := signalContext()
		defer stop()

		if serveWatch {
			if _, err := os.Stat(profileName); err != nil {
				return fmt.Errorf("--watch needs a profile file: %w", err)
			}

			return profile.Watch(ctx, profileName, logger, func(p *profile.Profile, err error) {
				if err != nil {
					return
				}

				next, err := engine.New(p, logger)
				if err != nil {
					logger.Warn("reloaded profile rejected", zap.Error(err))
					return
				}

				live.cur.Store(next)
			})
		}

		<-ctx.Done()

		return nil
	},
}

func serverTLS() (*tls.Config, error) {
	if serveCert != "" || serveKey != "" {
		return feed.LoadTLS(serveCert, serveKey)
	}

	return feed.SelfSignedTLS([]string{"localhost", "127.0.0.1", "::1"}, 0)
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:4433", "UDP listen address")
	serveCmd.Flags().StringVar(&serveCorpus, "corpus", "", "SQLite corpus to record into and look up from")
	serveCmd.Flags().StringVar(&serveCert, "cert", "", "TLS certificate PEM")
	serveCmd.Flags().StringVar(&serveKey, "key", "", "TLS key PEM")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "reload the profile file on change")
}
