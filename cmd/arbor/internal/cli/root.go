// Package cli implements the arbor command-line interface.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/albertocavalcante/arbor/internal/log"
	"github.com/albertocavalcante/arbor/pkg/config"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// globalFlags holds persistent flags that apply to all commands
var globalFlags struct {
	verbosity  int
	logFormat  string
	configPath string
}

// cfg is the merged configuration for the running command.
var cfg = config.NewConfig()

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "arbor",
	Short: "Incremental concrete syntax tree parser",
	Long: `Arbor parses source files into concrete syntax trees.

S-expressions are parsed by the built-in pure-Go engine, which supports
incremental reparsing, streaming input, timeouts and cancellation. Other
languages use tree-sitter grammars through CGO when it is available.

Settings are read from ~/.config/arbor/config.toml, .arbor/config.toml or
arbor.toml, and ARBOR_* environment variables; flags win over all of them.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	// Default behavior: show help
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// versionCmd shows version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "arbor %s (%s)\n", Version, GitCommit)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)

	// Global flags (persistent across all commands)
	rootCmd.PersistentFlags().IntVarP(&globalFlags.verbosity, "verbosity", "v", 1,
		"Verbosity level (0=error, 1=warn, 2=info, 3=debug, 4=trace)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.logFormat, "log-format", "text",
		"Log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.configPath, "config", "",
		"Read settings from this file instead of searching for arbor.toml")
}

// setup loads the configuration layers, applies CLI flags on top and
// initializes logging. It runs before every subcommand.
func setup(cmd *cobra.Command, _ []string) error {
	if globalFlags.configPath != "" {
		fileCfg, err := config.LoadFile(globalFlags.configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = config.NewConfig()
		cfg.Merge(fileCfg)
		cfg.Sources = []string{globalFlags.configPath}
	} else {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	// CLI flags override config
	flags := cmd.Flags()
	if flags.Changed("verbosity") {
		v := globalFlags.verbosity
		cfg.Log.Verbosity = &v
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = globalFlags.logFormat
	}
	applyParserFlags(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	initLogging(cmd)
	log.Debug("configuration loaded",
		"files", cfg.Sources,
		"backend", cfg.Parser.Backend,
		"timeout_micros", cfg.Timeout(),
		"chunk_size", cfg.ChunkSize(),
		"jobs", cfg.Parser.Jobs)
	return nil
}

// initLogging applies the merged settings to the logger.
func initLogging(cmd *cobra.Command) {
	log.Configure(log.Options{
		Verbosity: cfg.Verbosity(),
		Format:    cfg.Log.Format,
		Output:    cmd.ErrOrStderr(),
	})
}

// Execute runs the root command. An interrupt cancels parses in flight.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// RootCmd returns the root command for testing.
func RootCmd() *cobra.Command {
	return rootCmd
}
