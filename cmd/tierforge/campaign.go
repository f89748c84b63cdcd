package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/orizon-lang/tierforge/internal/campaign"
	"github.com/orizon-lang/tierforge/internal/corpus"
)

var (
	campOpts     campaign.Options
	campCorpus   string
	campFailures string
)

var campaignCmd = &cobra.Command{
	Use:   "campaign",
	Short: "Synthesize a batch of programs in parallel",
	Long: `Runs --count sessions over --concurrency workers. Programs go to the SQLite
corpus named by --corpus, or to stdout as JSON lines when it is empty.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEngine()
		if err != nil {
			return err
		}

		var sink campaign.Sink = campaign.NewWriterSink(os.Stdout)

		if campCorpus != "" {
			store, err := corpus.Open(campCorpus)
			if err != nil {
				return err
			}
			defer store.Close()

			sink = store
		}

		if campFailures != "" {
			f, err := os.OpenFile(campFailures, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				return err
			}
			defer f.Close()

			campOpts.Failures = f
		}

		ctx, stop := signalContext()
		defer stop()

		campOpts.Logger = logger.With(zap.String("profile", e.Profile().Name))

		stats, err := campaign.Run(ctx, e, sink, campOpts)

		var out io.Writer = os.Stderr
		if campCorpus != "" {
			out = os.Stdout
		}

		fmt.Fprintf(out, "programs=%d failures=%d instructions=%d\n", stats.Programs, stats.Failures, stats.Instructions)

		return err
	},
}

func init() {
	campaignCmd.Flags().IntVarP(&campOpts.Count, "count", "n", 100, "programs to attempt")
	campaignCmd.Flags().Int64Var(&campOpts.Seed, "seed", 0, "campaign seed (0 = time based)")
	campaignCmd.Flags().IntVarP(&campOpts.Concurrency, "concurrency", "j", 4, "parallel sessions")
	campaignCmd.Flags().StringVarP(&campOpts.Template, "template", "t", "", "force an active template")
	campaignCmd.Flags().StringVar(&campCorpus, "corpus", "", "SQLite corpus file")
	campaignCmd.Flags().StringVar(&campFailures, "failures", "", "append failed sessions to this file")
}
