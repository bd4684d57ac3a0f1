package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/entityq/internal/compiler"
	"github.com/roach88/entityq/internal/harness"
	"github.com/roach88/entityq/internal/query"
	"github.com/roach88/entityq/internal/querysql"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
	Table  string // table override
	Query  string // compile only this query
}

// CompiledQuery is one compiled query document.
type CompiledQuery struct {
	Name        string     `json:"name"`
	Table       string     `json:"table"`
	Plan        query.Plan `json:"plan"`
	SQL         string     `json:"sql"`
	Params      []any      `json:"params"`
	Fingerprint string     `json:"fingerprint"`
}

// CompilationResult holds the compiled queries.
type CompilationResult struct {
	Queries []CompiledQuery `json:"queries"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <path>",
		Short: "Compile query documents to plans and SQL",
		Long: `Compile CUE or YAML query documents.

For every query, prints the SQL statement with its parameters and the
query fingerprint. JSON output also carries the type-erased plan.

Examples:
  entityq compile ./queries
  entityq compile ./queries/recent.yaml --table projects
  entityq compile ./queries --query done --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the compiled queries to this file as JSON")
	cmd.Flags().StringVar(&opts.Table, "table", "", "table name (overrides the documents)")
	cmd.Flags().StringVar(&opts.Query, "query", "", "compile only the named query")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	docs, err := loadSelected(formatter, path, opts.Query, LoadModeCollectAll)
	if err != nil {
		return err
	}

	result := &CompilationResult{Queries: make([]CompiledQuery, 0, len(docs))}
	var errs []error
	for _, doc := range docs {
		formatter.VerboseLog("Compiling query: %s", doc.Name)
		compiled, err := compileDoc(doc, opts.Table)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", doc.Name, err))
			continue
		}
		result.Queries = append(result.Queries, compiled)
	}
	if len(errs) > 0 {
		return outputLoadErrors(formatter, "Compilation", errs)
	}

	if opts.Output != "" {
		if err := writeJSONFile(result, opts.Output); err != nil {
			return outputCommandError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

// compileDoc builds doc and compiles it for table, which defaults to the
// document's own table and then to harness.DefaultTable.
func compileDoc(doc compiler.QueryDoc, table string) (CompiledQuery, error) {
	if table == "" {
		table = doc.Table
	}
	if table == "" {
		table = harness.DefaultTable
	}

	q, err := compiler.Build(&doc)
	if err != nil {
		return CompiledQuery{}, err
	}
	plan := q.Plan()
	stmt, params, err := querysql.NewSQLCompiler(table).Compile(plan)
	if err != nil {
		return CompiledQuery{}, err
	}
	fingerprint, err := plan.Fingerprint()
	if err != nil {
		return CompiledQuery{}, err
	}
	if params == nil {
		params = []any{}
	}
	return CompiledQuery{
		Name:        doc.Name,
		Table:       table,
		Plan:        plan,
		SQL:         stmt,
		Params:      params,
		Fingerprint: fingerprint,
	}, nil
}

// loadSelected loads the documents under path, optionally keeping only the
// query named name. Load failures are written to formatter and returned as
// an ExitError.
func loadSelected(formatter *OutputFormatter, path, name string, mode LoadMode) ([]compiler.QueryDoc, error) {
	loadResult, loadErrors := LoadQueries(path, mode)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return nil, outputCommandError(formatter, loadErr.Code, loadErr.Message)
		}
		return nil, outputCommandError(formatter, ErrCodeGeneric, loadErrors[0].Error())
	}
	formatter.VerboseLog("Found %d query file(s) in %s", loadResult.FileCount, path)

	if len(loadErrors) > 0 {
		return nil, outputLoadErrors(formatter, "Loading", loadErrors)
	}

	if name == "" {
		return loadResult.Queries, nil
	}
	doc, ok := loadResult.Find(name)
	if !ok {
		return nil, outputCommandError(formatter, ErrCodeNotFound, fmt.Sprintf("query %q not found in %s", name, path))
	}
	return []compiler.QueryDoc{doc}, nil
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d query(ies)\n\n", len(result.Queries))
	for _, q := range result.Queries {
		params, err := json.Marshal(q.Params)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s (%s) %s\n", q.Name, q.Table, q.Fingerprint[:12])
		fmt.Fprintf(w, "  %s\n", q.SQL)
		fmt.Fprintf(w, "  params: %s\n\n", params)
	}

	if outputFile != "" {
		fmt.Fprintf(w, "Wrote compiled queries to %s\n", outputFile)
	}
	return nil
}

// outputCommandError outputs a single command-level error (exit code 2).
func outputCommandError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputLoadErrors outputs several load or compile errors (exit code 2).
// stage names the failed step, e.g. "Compilation".
func outputLoadErrors(formatter *OutputFormatter, stage string, errs []error) error {
	cliErrors := make([]CLIError, len(errs))
	for i, err := range errs {
		code, message := parseCompileError(err)
		cliErrors[i] = CLIError{Code: code, Message: message}
	}

	if formatter.Format == "json" {
		if err := formatter.encode(CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors,
		}); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("%s failed with %d error(s)", stage, len(errs)))
	}

	fmt.Fprintf(formatter.Writer, "✗ %s failed\n\n", stage)
	for i, err := range errs {
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				loadErr.Pos.Filename(),
				loadErr.Pos.Line(),
				loadErr.Pos.Column())
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", cliErrors[i].Code, cliErrors[i].Message)
	}
	return NewExitError(ExitCommandError, fmt.Sprintf("%s failed with %d error(s)", stage, len(errs)))
}

// parseCompileError extracts error code and message from an error.
func parseCompileError(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	var validationErr compiler.ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Code, err.Error()
	}
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return MapFieldToErrorCode(compileErr.Field), compileErr.Message
	}
	return ErrCodeGeneric, err.Error()
}

// writeJSONFile writes v to filename as indented JSON.
func writeJSONFile(v any, filename string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
