// Package cli implements the ghswitch command tree.
package cli

import (
	"context"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/ghswitch/ghswitch/internal/config"
	"github.com/ghswitch/ghswitch/internal/engine"
	"github.com/ghswitch/ghswitch/internal/logging"
	"github.com/ghswitch/ghswitch/internal/notify"
	"github.com/ghswitch/ghswitch/internal/prompt"
)

// version is injected at build time via -ldflags.
var version = "dev"

var (
	jsonOutput bool
	noColor    bool
	verbose    bool
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:          "ghswitch",
	Short:        "Rotate between GitHub accounts under rate limits",
	Long:         "ghswitch keeps a pool of GitHub credentials, exactly one active at a time, and rotates to the next account automatically when the provider throttles the current one.",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose && quiet {
			verbose = false
		}
		l := logging.NewLogger(os.Stderr)
		logging.Configure(l, logging.Flags{
			Verbose: verbose,
			Quiet:   quiet,
			NoColor: noColor,
			JSON:    jsonOutput,
		})
		cmd.SetContext(logging.WithLogger(cmd.Context(), l))

		// Load config from disk so malformed files surface a warning.
		if _, err := config.Init(); err != nil {
			l.Warn("config file is malformed, using defaults", "err", err)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Minimal output")
	rootCmd.Flags().Bool("version", false, "Show version and exit")

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if v, _ := cmd.Flags().GetBool("version"); v {
			out("ghswitch %s\n", version)
			return nil
		}
		return runAccountsList(cmd)
	}

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(accountsCmd)
	rootCmd.AddCommand(usageCmd)
	rootCmd.AddCommand(rotateCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(credentialCmd)
	rootCmd.AddCommand(remoteCheckCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with the given context.
// Commands access it via cmd.Context().
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func isTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// newEngine assembles the engine for a command invocation.
func newEngine(cmd *cobra.Command) (*engine.Engine, error) {
	logger := logging.FromContext(cmd.Context())
	prompter := &prompt.Huh{}
	notifier := &notify.Terminal{
		W:           outWriter,
		Prompter:    prompter,
		Interactive: isTerminal() && !quiet,
	}
	return engine.New(config.Get(), notifier, prompter, logger)
}
