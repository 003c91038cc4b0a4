package main

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/zero-day-ai/graphask/cmd/graphask/internal"
	"github.com/zero-day-ai/graphask/internal/config"
	"github.com/zero-day-ai/graphask/internal/llm"
)

var configInitForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage graphask configuration",
	Long: `Create, display and validate the graphask configuration file.

Configuration is stored as YAML at ~/.graphask/config.yaml by default.
Every key can be overridden with a GRAPHASK_ environment variable, for
example GRAPHASK_ENGINE_MAX_ATTEMPTS=5, and values may reference the
environment as ${VAR} or ${VAR:-default}.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := globalFlags.ConfigPath()
		if err := config.WriteConfig(appFs, path, config.DefaultConfig(), configInitForce); err != nil {
			return internal.WrapError(internal.ExitConfigError, "failed to write configuration", err)
		}
		return internal.NewFormatter(globalFlags.GetOutputFormat(), cmd.OutOrStdout()).
			PrintSuccess("wrote " + path)
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the effective configuration",
	Long: `Display the configuration after defaults, environment overrides and
${VAR} expansion have been applied.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := redactedConfig(loadedConfig)
		if globalFlags.GetOutputFormat() == internal.FormatJSON {
			return internal.NewJSONFormatter(cmd.OutOrStdout()).PrintJSON(cfg)
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return err
		}
		return enc.Close()
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := globalFlags.ConfigPath()
		loader := config.NewConfigLoader(appFs, config.NewValidator())
		if _, err := loader.Load(path); err != nil {
			return internal.WrapError(internal.ExitConfigError, "configuration is invalid", err)
		}
		return internal.NewFormatter(globalFlags.GetOutputFormat(), cmd.OutOrStdout()).
			PrintSuccess(path + " is valid")
	},
}

const redacted = "[REDACTED]"

// redactedConfig returns a copy of cfg with credentials masked.
func redactedConfig(cfg *config.Config) *config.Config {
	out := *cfg
	if out.Graph.Neo4j.Password != "" {
		out.Graph.Neo4j.Password = redacted
	}
	out.LLM.Providers = make(map[string]llm.ProviderConfig, len(cfg.LLM.Providers))
	for name, p := range cfg.LLM.Providers {
		if p.APIKey != "" {
			p.APIKey = redacted
		}
		out.LLM.Providers[name] = p
	}
	return &out
}

func init() {
	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "Overwrite an existing file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}
