package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/orizon-lang/tierforge/internal/cli"
	"github.com/orizon-lang/tierforge/internal/feed"
	"github.com/orizon-lang/tierforge/internal/program"
)

var (
	fetchAddr     string
	fetchID       string
	fetchSeed     int64
	fetchTemplate string
	fetchFormat   string
	fetchInsecure bool
	fetchTimeout  time.Duration
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch a program from a tierforge feed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := feed.NewClient(fetchAddr, feed.ClientTLS(fetchInsecure), fetchTimeout)
		defer c.Close()

		ctx, stop := signalContext()
		defer stop()

		var (
			p   *program.Program
			err error
		)

		if fetchID != "" {
			p, err = c.Get(ctx, fetchID)
		} else {
			req := feed.Request{Template: fetchTemplate}
			if cmd.Flags().Changed("seed") {
				req.Seed = &fetchSeed
			}

			p, err = c.Fetch(ctx, req)
		}

		if err != nil {
			return err
		}

		return cli.WriteProgram(os.Stdout, p, fetchFormat)
	},
}

func init() {
	fetchCmd.Flags().StringVar(&fetchAddr, "addr", "127.0.0.1:4433", "feed address")
	fetchCmd.Flags().StringVar(&fetchID, "id", "", "fetch a stored program by id")
	fetchCmd.Flags().Int64Var(&fetchSeed, "seed", 0, "session seed (server chooses when unset)")
	fetchCmd.Flags().StringVarP(&fetchTemplate, "template", "t", "", "force an active template")
	fetchCmd.Flags().StringVarP(&fetchFormat, "format", "f", cli.FormatIR, "output format (ir, json)")
	fetchCmd.Flags().BoolVar(&fetchInsecure, "insecure", true, "skip certificate verification")
	fetchCmd.Flags().DurationVar(&fetchTimeout, "timeout", 10*time.Second, "request timeout")
}
