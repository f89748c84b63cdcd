package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/orizon-lang/tierforge/internal/campaign"
	"github.com/orizon-lang/tierforge/internal/cli"
	"github.com/orizon-lang/tierforge/internal/program"
)

var (
	genSeed     int64
	genCount    int
	genTemplate string
	genFormat   string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Synthesize programs and print them",
	Long: `Synthesizes --count programs. The first uses --seed; later ones use seeds
derived from it, so a run is reproducible from its flags.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEngine()
		if err != nil {
			return err
		}

		for i := 0; i < genCount; i++ {
			seed := genSeed
			if i > 0 {
				seed = campaign.Derive(genSeed, i)
			}

			var p *program.Program
			if genTemplate != "" {
				p, err = e.SynthesizeTemplate(genTemplate, seed)
			} else {
				p, err = e.Synthesize(seed)
			}

			if err != nil {
				return err
			}

			if err := cli.WriteProgram(os.Stdout, p, genFormat); err != nil {
				return err
			}
		}

		return nil
	},
}

func init() {
	generateCmd.Flags().Int64Var(&genSeed, "seed", 1, "session seed")
	generateCmd.Flags().IntVarP(&genCount, "count", "n", 1, "number of programs")
	generateCmd.Flags().StringVarP(&genTemplate, "template", "t", "", "force an active template")
	generateCmd.Flags().StringVarP(&genFormat, "format", "f", cli.FormatIR, "output format (ir, json)")
}
