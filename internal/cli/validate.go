package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/entityq/internal/compiler"
	"github.com/roach88/entityq/internal/query"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Queries  int                        `json:"queries"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []string                   `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <path>",
		Short: "Validate query documents",
		Long: `Validate CUE or YAML query documents without running them.

Reports every document error (unknown operators, float values, limit
without sort, ...) and, for documents that build, advisory warnings such
as columns sorted twice or ordering comparisons on booleans.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loadResult, loadErrors := LoadQueries(path, LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputCommandError(formatter, loadErr.Code, loadErr.Message)
		}
		return outputCommandError(formatter, ErrCodeGeneric, loadErrors[0].Error())
	}
	formatter.VerboseLog("Found %d query file(s) in %s", loadResult.FileCount, path)

	result := ValidationResult{Queries: len(loadResult.Queries)}
	for _, err := range loadErrors {
		code, message := parseCompileError(err)
		ve := compiler.ValidationError{Field: "load", Message: message, Code: code}
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			ve.Field = fmt.Sprintf("%s:%d", loadErr.Pos.Filename(), loadErr.Pos.Line())
		}
		result.Errors = append(result.Errors, ve)
	}

	for _, doc := range loadResult.Queries {
		formatter.VerboseLog("Validating query: %s", doc.Name)
		errs, warnings := validateQuery(doc)
		result.Errors = append(result.Errors, errs...)
		result.Warnings = append(result.Warnings, warnings...)
	}

	result.Valid = len(result.Errors) == 0
	return outputValidation(formatter, result)
}

// validateQuery checks one document. Warnings are only computed for
// documents without errors.
func validateQuery(doc compiler.QueryDoc) ([]compiler.ValidationError, []string) {
	errs := compiler.ValidateDoc(&doc)
	for i := range errs {
		errs[i].Field = doc.Name + "." + errs[i].Field
	}
	if len(errs) > 0 {
		return errs, nil
	}

	q, err := compiler.Build(&doc)
	if err != nil {
		return []compiler.ValidationError{{Field: doc.Name, Message: err.Error(), Code: ErrCodeGeneric}}, nil
	}
	var warnings []string
	for _, w := range query.Validate(q).Warnings {
		warnings = append(warnings, doc.Name+": "+w)
	}
	return nil, warnings
}

func outputValidation(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			resp.Status = "error"
			resp.Error = &CLIError{Code: result.Errors[0].Code, Message: result.Errors[0].Message}
		}
		if err := formatter.encode(resp); err != nil {
			return err
		}
	} else {
		w := formatter.Writer
		if result.Valid {
			fmt.Fprintf(w, "✓ All %d query(ies) valid\n", result.Queries)
		} else {
			fmt.Fprintln(w, "✗ Validation failed")
			fmt.Fprintln(w)
			for _, e := range result.Errors {
				fmt.Fprintf(w, "  %s: %s: %s\n", e.Code, e.Field, e.Message)
			}
		}
		for _, warning := range result.Warnings {
			fmt.Fprintf(w, "  warning: %s\n", warning)
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
	}
	return nil
}
