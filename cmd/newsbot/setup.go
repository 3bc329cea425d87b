package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/teams-newsbot/internal/config"
	"github.com/jonathan/teams-newsbot/internal/llm"
	"github.com/jonathan/teams-newsbot/internal/logging"
)

// loadConfig builds the run configuration: environment, then the --config
// file, then explicitly set flags. Logging is initialised from the result.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}

	if cmd.Flags().Changed("dry-run") {
		cfg.DryRun = dryRun
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	return cfg, nil
}

// initLogging points logging.Log at the configured level and file.
func initLogging(cfg config.Config) error {
	if err := logging.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		return err
	}
	logging.DebugWithFields("configuration loaded", logging.Fields{
		"config":       configPath,
		"dry_run":      cfg.DryRun,
		"llm_provider": cfg.LLMProvider,
		"timezone":     cfg.Timezone,
	})
	return nil
}

// llmConfig maps the bot settings onto the client configuration.
func llmConfig(cfg config.Config) *llm.Config {
	if cfg.LLMProvider == config.ProviderGemini {
		lc := llm.DefaultGeminiConfig()
		lc.APIKey = cfg.GeminiAPIKey
		if strings.HasPrefix(cfg.LLMModel, "gemini") {
			lc = lc.WithModel(cfg.LLMModel)
		}
		return lc
	}

	lc := llm.DefaultConfig()
	if cfg.LLMModel != "" {
		lc = lc.WithModel(cfg.LLMModel)
	}
	lc.Endpoint = cfg.LLMEndpoint
	lc.APIKey = cfg.LLMAPIKey
	return lc
}

// newLLMClient returns nil, nil when no model is configured; callers then
// run their non-LLM paths.
func newLLMClient(ctx context.Context, cfg config.Config) (llm.Client, error) {
	if !cfg.LLMEnabled() {
		logging.Log.Warn("no LLM configured; selection and rewriting are disabled")
		return nil, nil
	}
	client, err := llm.NewClient(ctx, llmConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return client, nil
}
