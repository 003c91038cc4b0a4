package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/zero-day-ai/graphask/cmd/graphask/internal"
	"github.com/zero-day-ai/graphask/internal/config"
)

// appFs is the filesystem used for config, examples and prompt files.
var appFs afero.Fs = afero.NewOsFs()

// loadedConfig is set by loadConfig before any command that needs it runs.
var loadedConfig *config.Config

var rootCmd = &cobra.Command{
	Use:   "graphask",
	Short: "Ask questions of a graph database in natural language",
	Long: `graphask turns a natural-language question into a Cypher query or a
Starlark graph-analytics script, runs it read-only against Neo4j, repairs it
from the database's error message when it fails, and answers from the rows.`,
	PersistentPreRunE: loadConfig,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

// Execute runs the root command with signal handling
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return rootCmd.ExecuteContext(ctx)
}

// skipsConfig lists commands that must work without a loadable config file.
var skipsConfig = map[string]bool{
	"version":    true,
	"init":       true,
	"help":       true,
	"completion": true,
}

func loadConfig(cmd *cobra.Command, args []string) error {
	flags, err := ParseGlobalFlags(cmd)
	if err != nil {
		return err
	}
	if skipsConfig[cmd.Name()] {
		return nil
	}

	path := flags.ConfigPath()
	loader := config.NewConfigLoader(appFs, config.NewValidator())
	cfg, err := loader.LoadWithDefaults(path)
	if err != nil {
		return internal.WrapError(internal.ExitConfigError, "failed to load configuration from "+path, err)
	}

	switch {
	case flags.IsVerbose():
		cfg.Logging.Level = "debug"
	case flags.Quiet:
		cfg.Logging.Level = "error"
	}
	loadedConfig = cfg
	return nil
}

func init() {
	RegisterGlobalFlags(rootCmd)

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// isTerminal reports whether stderr is attached to a terminal; progress
// lines are only printed there.
func isTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}
