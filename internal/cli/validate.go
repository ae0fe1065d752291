package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/HENNGE/lambda-container-example/internal/config"
	"github.com/HENNGE/lambda-container-example/internal/index"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid       bool     `json:"valid"`
	Path        string   `json:"path"`
	Format      string   `json:"format,omitempty"`
	Mapping     string   `json:"mapping,omitempty"`
	OriginRules int      `json:"origin_rules"`
	KeyRules    int      `json:"key_rules"`
	Downstreams []string `json:"downstreams"`
	Warnings    []string `json:"warnings,omitempty"`
	Errors      []string `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [config-file]",
		Short: "Validate a configuration file",
		Long: `Validate a cdcsync configuration file without processing any batch.

Checks the file against the configuration schema, compiles the exclusion
rules and the entity mapping, and lists the downstreams that the current
environment enables. Defaults to the file given with --config.

Exit codes:
  0 - Configuration valid
  1 - Configuration invalid
  2 - Command error (no file given, file not found)`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			path := rootOpts.ConfigPath
			if len(args) == 1 {
				path = args[0]
			}
			return runValidate(rootOpts, path, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	if path == "" {
		return outputCommandError(formatter, ErrCodeConfig, "no configuration file given", nil)
	}

	result := ValidationResult{Path: path, Downstreams: []string{}}
	if format, err := config.FormatOf(path); err == nil {
		result.Format = string(format)
	}

	cfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return outputCommandError(formatter, ErrCodeConfig, "configuration file not found", err)
		}
		result.Errors = append(result.Errors, err.Error())
		return outputValidationErrors(formatter, result)
	}
	formatter.VerboseLog("Loaded %s configuration from %s", result.Format, path)

	cfg.FromEnv(opts.getenv)
	result.Mapping = cfg.Mapping.Mode

	if _, err := cfg.Validator(); err != nil {
		result.Errors = append(result.Errors, err.Error())
	}
	if rules, err := cfg.Rules(); err == nil && rules != nil {
		result.OriginRules, result.KeyRules = rules.Len()
	}

	if cfg.Index.Enabled() {
		ic, err := cfg.IndexConfig()
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
		} else {
			client := index.New(ic)
			result.Downstreams = append(result.Downstreams, client.Target())
			if err := client.Check(); err != nil {
				result.Warnings = append(result.Warnings, err.Error())
			}
		}
	}
	if cfg.Replica.Path != "" {
		result.Downstreams = append(result.Downstreams, "sqlite:"+cfg.Replica.Path)
	}
	if len(result.Downstreams) == 0 {
		result.Warnings = append(result.Warnings, "no downstream configured; batches will fail with MISSING_CONFIG")
	}

	if len(result.Errors) > 0 {
		return outputValidationErrors(formatter, result)
	}
	result.Valid = true
	return outputValidateSuccess(formatter, result)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintln(w, newMarks(w).pass("✓ Configuration valid: %s", result.Path))
	fmt.Fprintf(w, "  mapping: %s\n", result.Mapping)
	fmt.Fprintf(w, "  exclude: %d origin rule(s), %d key rule(s)\n", result.OriginRules, result.KeyRules)
	for _, d := range result.Downstreams {
		fmt.Fprintf(w, "  downstream: %s\n", d)
	}
	for _, warning := range result.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warning)
	}
	return nil
}

// outputValidationErrors outputs every validation error.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    ErrCodeConfig,
				Message: result.Errors[0],
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, newMarks(formatter.Writer).fail("✗ Validation failed: %s", result.Path))
	fmt.Fprintln(formatter.Writer)
	for _, msg := range result.Errors {
		fmt.Fprintf(formatter.Writer, "  %s\n", msg)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
}
