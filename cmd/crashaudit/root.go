package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"crashaudit/internal/config"
	"crashaudit/internal/gitscan"
	"crashaudit/internal/log"
	"crashaudit/internal/output"
)

var (
	// Global flags
	verbose bool
	quiet   bool

	// Shared state injected into commands
	cfg *config.Config
)

// rootCmd is the audit command itself; subcommands cover cache and
// config management.
var rootCmd = &cobra.Command{
	Use:   "crashaudit [flags] REPO_PATH",
	Short: "Audit a repository for deleted crash tests with still-open issues",
	Long: `crashaudit scans a repository's first-parent history for deleted crash
regression tests and correlates them with the issue tracker.

A crash test file encodes its tracker issue number in its filename. When
every test for an issue has been deleted but the issue is still open,
either the tests were removed by mistake or the issue should be closed.
crashaudit finds those cases.`,
	Example: `  crashaudit ~/src/rust                      # full history audit
  crashaudit --from 2024-01-01 ~/src/rust    # bounded scan
  crashaudit --json ~/src/rust > audit.json  # machine-readable output
  crashaudit --refresh-cache ~/src/rust      # refetch open issues first`,
	Args:                       cobra.ExactArgs(1),
	SilenceUsage:               true,
	SilenceErrors:              true,
	SuggestionsMinimumDistance: 2, // Enable typo suggestions
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip git check for commands that never touch a repository
		switch cmd.Name() {
		case "completion", "__complete", "help", "init", "status", "clear":
			return nil
		}

		// Validate mutually exclusive flags
		if verbose && quiet {
			return fmt.Errorf("--verbose and --quiet are mutually exclusive")
		}

		return gitscan.CheckGit()
	},
	RunE: runAudit,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	// Load config
	loadedCfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	cfg = &loadedCfg

	// Create context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Parse global flags early so the logger sees --verbose/--quiet.
	// Unknown flags are reported by Execute below.
	_ = rootCmd.ParseFlags(os.Args[1:])

	// Create logger (stderr for diagnostics)
	logger := log.New(os.Stderr, verbose, quiet)
	ctx = log.WithLogger(ctx, logger)

	// Add output printer (stdout for primary data)
	ctx = output.WithPrinter(ctx, os.Stdout)

	// Store context for commands to use
	rootCmd.SetContext(ctx)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Run 'crashaudit -h' for help")
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show external commands and per-issue detail")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress all log output")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	// Version flag
	rootCmd.Version = versionString()
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	rootCmd.AddCommand(newCacheCmd())
	rootCmd.AddCommand(newInitCmd())

	registerAuditFlags(rootCmd)
}
