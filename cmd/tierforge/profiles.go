package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/orizon-lang/tierforge/internal/engine"
	"github.com/orizon-lang/tierforge/internal/profile"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles [name]",
	Short: "List built-in profiles, or show one resolved",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		if len(args) == 0 {
			for _, name := range profile.Names() {
				fmt.Fprintln(out, name)
			}

			return nil
		}

		p, err := profile.Load(args[0])
		if err != nil {
			return err
		}

		e, err := engine.New(p, logger)
		if err != nil {
			return err
		}

		data, err := p.Marshal()
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "%s\n", data)
		fmt.Fprintf(out, "# active templates: %v\n", e.Templates())
		fmt.Fprintf(out, "# generator registry: %d units, total weight %d\n", e.Generators().Len(), e.Generators().TotalWeight())

		if sigs, err := p.Signals(); err == nil {
			for _, s := range sigs {
				fmt.Fprintf(out, "# crash signal %s = %d\n", s.Name, s.Number)
			}
		}

		return nil
	},
}
