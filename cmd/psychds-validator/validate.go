package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/psych-ds/psychds-validator/internal/events"
	"github.com/psych-ds/psychds-validator/internal/schemaload"
	"github.com/psych-ds/psychds-validator/internal/validate"
	"github.com/psych-ds/psychds-validator/pkg/config"
	"github.com/psych-ds/psychds-validator/pkg/exitcode"
	"github.com/psych-ds/psychds-validator/pkg/logger"
)

var validateCmd = &cobra.Command{
	Use:   "validate <dataset_directory>",
	Short: "Validate a Psych-DS dataset directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().Bool("json", false, "emit the result as JSON instead of a plain-text table")
	validateCmd.Flags().String("schema", "latest", `schema version to validate against ("latest" or "X.Y.Z")`)
	validateCmd.Flags().Bool("verbose", false, "include every file touched, not just the ones with issues")
	validateCmd.Flags().Bool("showWarnings", true, "include warnings in the rendered output")
	validateCmd.Flags().String("debug", "", "log level override for this run (trace|debug|info|warn|error)")
	validateCmd.Flags().Bool("useEvents", false, "print progress events to stderr while validating")
}

func runValidate(cmd *cobra.Command, args []string) error {
	datasetPath := args[0]

	opts, err := config.Load(configFlag(cmd))
	if err != nil {
		os.Exit(exitcode.ConfigError)
		return nil
	}
	applyFlagOverrides(cmd, opts)

	if v := opts.SchemaVersion; v != "latest" && !regexp.MustCompile(`^\d+\.\d+\.\d+$`).MatchString(v) {
		fmt.Fprintf(cmd.ErrOrStderr(), "invalid --schema %q: expected \"latest\" or X.Y.Z\n", v)
		os.Exit(exitcode.ConfigError)
		return nil
	}

	if opts.LogLevel != "" {
		level, err := logger.ParseLevel(opts.LogLevel)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%v\n", err)
			os.Exit(exitcode.UnsupportedFormat)
			return nil
		}
		logger.Initialize(logger.Config{
			Level:     level,
			UseColor:  !opts.NoColor,
			JSON:      opts.LogJSON,
			Component: "psychds-validator",
		})
	}

	info, err := os.Stat(datasetPath)
	if err != nil || !info.IsDir() {
		fmt.Fprintf(cmd.ErrOrStderr(), "dataset directory %q is not readable: %v\n", datasetPath, err)
		os.Exit(exitcode.FileSystemError)
		return nil
	}

	var emitter *events.Emitter
	if opts.UseEvents {
		emitter = events.NewEmitter(16)
		go drainEvents(cmd, emitter)
	}

	jsonOut, _ := cmd.Flags().GetBool("json")
	verbose, _ := cmd.Flags().GetBool("verbose")
	debug, _ := cmd.Flags().GetString("debug")
	runOpts := validate.Options{
		DatasetPath:  datasetPath,
		Schema:       opts.SchemaVersion,
		JSON:         jsonOut,
		Verbose:      verbose,
		ShowWarnings: opts.ShowWarnings,
		Debug:        debug,
		UseEvents:    opts.UseEvents,
		IgnoreExtras: opts.IgnoreExtras,
	}

	fetcher := schemaload.NewRealHTTPFetcher(schemaload.DefaultTimeout)
	result, err := validate.Validate(context.Background(), runOpts, fetcher, emitter)
	emitter.Close()
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
		os.Exit(exitcode.GeneralError)
		return nil
	}

	if jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		var out strings.Builder
		renderTable(&out, result.Errors, result.Warnings, result.Summary, opts.ShowWarnings, runOpts.Verbose, result.FilesChecked)
		fmt.Fprint(cmd.OutOrStdout(), out.String())
	}

	if !result.Valid {
		os.Exit(exitcode.ValidationFailed)
	}
	return nil
}

func applyFlagOverrides(cmd *cobra.Command, opts *config.Options) {
	flags := cmd.Flags()
	if flags.Changed("schema") {
		opts.SchemaVersion, _ = flags.GetString("schema")
	}
	if flags.Changed("showWarnings") {
		opts.ShowWarnings, _ = flags.GetBool("showWarnings")
	}
	if flags.Changed("useEvents") {
		opts.UseEvents, _ = flags.GetBool("useEvents")
	}
	if flags.Changed("log-level") {
		opts.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("debug") {
		if v, _ := flags.GetString("debug"); v != "" {
			opts.LogLevel = v
		}
	}
	if flags.Changed("no-color") {
		opts.NoColor, _ = flags.GetBool("no-color")
	}
	if flags.Changed("json-logs") {
		opts.LogJSON, _ = flags.GetBool("json-logs")
	}
}

func drainEvents(cmd *cobra.Command, emitter *events.Emitter) {
	for ev := range emitter.Events() {
		fmt.Fprintf(cmd.ErrOrStderr(), "[%s] %s\n", ev.Step, ev.Message)
	}
}

