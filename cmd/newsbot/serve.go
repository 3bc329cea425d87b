package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/teams-newsbot/internal/logging"
	"github.com/jonathan/teams-newsbot/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the logging proxy endpoint",
	Long: `Start an HTTP endpoint that accepts any method and path, logs the request
and response with long values truncated, and answers "hello".

Traffic from the ChatAI client also goes to SPECIAL_LOG_FILE when set.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = servePort
	}
	if err := initLogging(cfg); err != nil {
		return err
	}

	srvCfg := server.Config{
		Port:  cfg.Port,
		Debug: cfg.Env == "dev",
		Log:   logging.Log,
	}
	if cfg.SpecialLogFile != "" {
		special, err := logging.NewFileLogger(cfg.SpecialLogFile, cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("failed to open special log: %w", err)
		}
		defer func() { _ = special.Close() }()
		srvCfg.SpecialLog = special
	}

	return server.New(srvCfg).Start()
}
