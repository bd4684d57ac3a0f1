package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/entityq/internal/compiler"
	"github.com/roach88/entityq/internal/engine"
	"github.com/roach88/entityq/internal/ir"
	"github.com/roach88/entityq/internal/store"
)

// Execution backends.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// ExecOptions holds flags for the exec command.
type ExecOptions struct {
	*RootOptions
	Query    string // query name; optional when the path holds one query
	Database string // SQLite database path
	Records  string // YAML or JSON file with a list of records
	Table    string // table override
	MaxScan  int    // in-memory scan quota, 0 = unlimited
}

// ExecResult is the output of the exec command.
type ExecResult struct {
	Query       string        `json:"query"`
	Backend     string        `json:"backend"`
	Table       string        `json:"table,omitempty"`
	Fingerprint string        `json:"fingerprint"`
	Count       int           `json:"count"`
	Records     []ir.IRObject `json:"records"`
}

// NewExecCommand creates the exec command.
func NewExecCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExecOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "exec <path>",
		Short: "Run a query against a database or a record file",
		Long: `Run one query document.

With --db the query is compiled to SQL and run against the SQLite
database; --records additionally seeds the table with the file's records
first. With only --records the query runs in memory.

Examples:
  entityq exec ./queries --query done --db ./projects.db
  entityq exec ./queries/done.yaml --records ./projects.yaml
  entityq exec ./queries/done.yaml --records ./projects.yaml --db ./projects.db --table projects`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Query, "query", "", "name of the query to run")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database")
	cmd.Flags().StringVar(&opts.Records, "records", "", "YAML or JSON file holding a list of records")
	cmd.Flags().StringVar(&opts.Table, "table", "", "table name (overrides the document)")
	cmd.Flags().IntVar(&opts.MaxScan, "max-scan", engine.DefaultMaxScan, "maximum records scanned in memory (0 = unlimited)")

	return cmd
}

func runExec(opts *ExecOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if opts.Database == "" && opts.Records == "" {
		return outputCommandError(formatter, ErrCodeGeneric, "one of --db or --records is required")
	}

	docs, err := loadSelected(formatter, path, opts.Query, LoadModeFailFast)
	if err != nil {
		return err
	}
	if len(docs) != 1 {
		return outputCommandError(formatter, ErrCodeGeneric, fmt.Sprintf("%d queries found in %s, select one with --query", len(docs), path))
	}
	doc := docs[0]

	compiled, err := compileDoc(doc, opts.Table)
	if err != nil {
		code, message := parseCompileError(err)
		return outputCommandError(formatter, code, message)
	}
	q, err := compiler.Build(&doc)
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, err.Error())
	}

	var records []ir.IRObject
	if opts.Records != "" {
		if records, err = readRecords(opts.Records); err != nil {
			return outputCommandError(formatter, ErrCodeLoadFailed, err.Error())
		}
		formatter.VerboseLog("Read %d record(s) from %s", len(records), opts.Records)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result := ExecResult{
		Query:       doc.Name,
		Fingerprint: compiled.Fingerprint,
	}
	if opts.Database != "" {
		result.Backend = BackendSQLite
		result.Table = compiled.Table
		result.Records, err = execSQLite(ctx, opts.Database, compiled, records)
		if err != nil {
			return outputCommandError(formatter, ErrCodeStore, err.Error())
		}
	} else {
		result.Backend = BackendMemory
		eng := engine.New(compiler.ObjectID,
			engine.WithMaxScan(opts.MaxScan),
			engine.WithLogger(slog.Default()),
		)
		result.Records, err = eng.Execute(ctx, q, records)
		if err != nil {
			_ = formatter.Error(ErrCodeExec, err.Error(), nil)
			return WrapExitError(ExitFailure, "query execution failed", err)
		}
	}
	result.Count = len(result.Records)

	return outputExecSuccess(formatter, result)
}

// execSQLite seeds the table with records, if any, and runs the compiled
// query.
func execSQLite(ctx context.Context, path string, compiled CompiledQuery, records []ir.IRObject) ([]ir.IRObject, error) {
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	if len(records) > 0 {
		t, err := store.InferTable(compiled.Table, records)
		if err != nil {
			return nil, err
		}
		if err := st.EnsureTable(ctx, t); err != nil {
			return nil, err
		}
		if _, err := st.PutAll(ctx, compiled.Table, records); err != nil {
			return nil, err
		}
		slog.Debug("seeded table", "table", compiled.Table, "records", len(records))
	}

	rows, err := st.Find(ctx, compiled.Table, compiled.Plan)
	if errors.Is(err, store.ErrUnknownTable) {
		return nil, fmt.Errorf("table %q does not exist in %s", compiled.Table, path)
	}
	return rows, err
}

// readRecords reads a YAML (or JSON) list of objects.
func readRecords(path string) ([]ir.IRObject, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading records: %w", err)
	}
	var raw []map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing records: %w", err)
	}
	records := make([]ir.IRObject, len(raw))
	for i, rec := range raw {
		v, err := ir.FromGo(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		obj, ok := v.(ir.IRObject)
		if !ok {
			return nil, fmt.Errorf("record %d: expected an object", i)
		}
		records[i] = obj
	}
	return records, nil
}

func outputExecSuccess(formatter *OutputFormatter, result ExecResult) error {
	if result.Records == nil {
		result.Records = []ir.IRObject{}
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ %s: %d record(s) (%s)\n", result.Query, result.Count, result.Backend)
	for _, rec := range result.Records {
		line, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  %s\n", line)
	}
	return nil
}
