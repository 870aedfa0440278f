package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/psych-ds/psychds-validator/pkg/exitcode"
	"github.com/psych-ds/psychds-validator/pkg/logger"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "psychds-validator",
	Short: "Validate a Psych-DS dataset directory against the Psych-DS schema",
	Long: `psychds-validator checks a dataset directory against the Psych-DS
specification: required metadata files, JSON-LD schema.org structure,
filename conventions, and CSV columns declared against their metadata.

Examples:
   psychds-validator validate ./my-dataset
   psychds-validator validate ./my-dataset --json
   psychds-validator validate ./my-dataset --schema 1.0.0 --showWarnings`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeLogger(cmd)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("command execution failed", logger.Err(err))
		os.Exit(exitcode.GeneralError)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "set log level (trace|debug|info|warn|error)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "emit logs as JSON instead of pretty text")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")
	rootCmd.PersistentFlags().String("config", "", "path to a config file (default: search ./.psychds-validator.* and $HOME)")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate("psychds-validator {{.Version}}\n")

	rootCmd.AddCommand(validateCmd)
}

func initializeLogger(cmd *cobra.Command) error {
	levelStr, _ := cmd.Flags().GetString("log-level")
	jsonLogs, _ := cmd.Flags().GetBool("json-logs")
	noColor, _ := cmd.Flags().GetBool("no-color")

	level, err := logger.ParseLevel(levelStr)
	if err != nil {
		level = logger.InfoLevel
	}

	return logger.Initialize(logger.Config{
		Level:     level,
		UseColor:  !noColor && !jsonLogs,
		JSON:      jsonLogs,
		Component: "psychds-validator",
	})
}

func configFlag(cmd *cobra.Command) string {
	v, _ := cmd.Flags().GetString("config")
	return strings.TrimSpace(v)
}
