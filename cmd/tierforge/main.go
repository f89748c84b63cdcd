// Command tierforge synthesizes tier-forcing JavaScript programs in IR form.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/orizon-lang/tierforge/internal/engine"
	"github.com/orizon-lang/tierforge/internal/logging"
	"github.com/orizon-lang/tierforge/internal/profile"
)

var (
	// Global flags
	logLevel    string
	logJSON     bool
	profileName string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "tierforge",
	Short: "Synthesize programs that walk JIT property-access stubs through execution tiers",
	Long: `tierforge builds programs from weighted generator units and tier-forcing
templates. A profile selects the target engine's builtins, templates and
generator weights; built-in profiles are listed by "tierforge profiles".`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		logger, err = logging.New(logging.Options{Level: logLevel, JSON: logJSON})

		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log as JSON")
	rootCmd.PersistentFlags().StringVarP(&profileName, "profile", "p", "cacheir", "built-in profile name or profile file")

	rootCmd.AddCommand(generateCmd, campaignCmd, serveCmd, fetchCmd, profilesCmd, versionCmd)
}

// loadEngine resolves the --profile flag.
func loadEngine() (*engine.Engine, error) {
	p, err := profile.Load(profileName)
	if err != nil {
		return nil, err
	}

	return engine.New(p, logger)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
