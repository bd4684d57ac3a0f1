package harness

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/entityq/internal/compiler"
	"github.com/roach88/entityq/internal/engine"
	"github.com/roach88/entityq/internal/ir"
	"github.com/roach88/entityq/internal/query"
	"github.com/roach88/entityq/internal/querysql"
	"github.com/roach88/entityq/internal/store"
)

// Harness executes scenarios against both backends.
type Harness struct {
	store  *store.Store
	engine *engine.Engine[string, ir.IRObject]
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Build the query document
// 2. Run the query through the engine
// 3. Seed an in-memory store and run the query through SQL
// 4. Compare the two results
// 5. Evaluate assertions against the engine result
//
// An error is returned when the scenario cannot be executed at all; failed
// parity checks and assertions are reported in the Result.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunContext is Run with an explicit context and logger.
func RunContext(ctx context.Context, scenario *Scenario, logger *slog.Logger) (*Result, error) {
	records, err := scenario.irRecords()
	if err != nil {
		return nil, err
	}
	q, err := compiler.Build(&scenario.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		engine: engine.New(compiler.ObjectID, engine.WithLogger(logger)),
		logger: logger,
	}
	return h.run(ctx, scenario, q, records)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario, q *compiler.ObjectQuery, records []ir.IRObject) (*Result, error) {
	table := scenario.table()
	plan := q.Plan()

	result := NewResult()
	stmt, params, err := querysql.NewSQLCompiler(table).Compile(plan)
	if err != nil {
		return nil, fmt.Errorf("failed to compile SQL: %w", err)
	}
	result.SQL = stmt
	result.Params = params
	if result.Fingerprint, err = plan.Fingerprint(); err != nil {
		return nil, fmt.Errorf("failed to fingerprint query: %w", err)
	}

	// The SQL backend breaks ties on id; feed the engine in id order so
	// its stable sort does the same.
	ordered := slices.Clone(records)
	slices.SortFunc(ordered, func(a, b ir.IRObject) int {
		return cmp.Compare(compiler.ObjectID(a), compiler.ObjectID(b))
	})
	fromEngine, err := h.engine.Execute(ctx, q, ordered)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	fromStore, err := h.runStore(ctx, table, records, plan)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	result.Records = fromEngine
	for _, rec := range fromEngine {
		result.IDs = append(result.IDs, compiler.ObjectID(rec))
	}
	h.logger.Debug("scenario executed",
		"scenario", scenario.Name,
		"engine", len(fromEngine),
		"store", len(fromStore),
	)

	for _, msg := range compareBackends(fromEngine, fromStore) {
		result.AddError(msg)
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// runStore seeds table with records and runs plan against it.
func (h *Harness) runStore(ctx context.Context, table string, records []ir.IRObject, plan query.Plan) ([]ir.IRObject, error) {
	t, err := store.InferTable(table, records)
	if err != nil {
		return nil, err
	}
	if err := h.store.EnsureTable(ctx, t); err != nil {
		return nil, err
	}
	if _, err := h.store.PutAll(ctx, table, records); err != nil {
		return nil, err
	}
	rows, err := h.store.Find(ctx, table, plan)
	if err != nil {
		return nil, err
	}
	if plan.MaskSet {
		for i, row := range rows {
			rows[i] = engine.ProjectObject(row, plan.Mask)
		}
	}
	return rows, nil
}

// compareBackends returns one message per disagreement between the two
// result lists.
func compareBackends(fromEngine, fromStore []ir.IRObject) []string {
	engineIDs := make([]string, len(fromEngine))
	for i, rec := range fromEngine {
		engineIDs[i] = compiler.ObjectID(rec)
	}
	storeIDs := make([]string, len(fromStore))
	for i, rec := range fromStore {
		storeIDs[i] = compiler.ObjectID(rec)
	}
	if !slices.Equal(engineIDs, storeIDs) {
		return []string{fmt.Sprintf("backends disagree on ids: engine %v, store %v", engineIDs, storeIDs)}
	}

	var errs []string
	for i := range fromEngine {
		a, errA := ir.RecordDigest(fromEngine[i])
		b, errB := ir.RecordDigest(fromStore[i])
		switch {
		case errA != nil:
			errs = append(errs, fmt.Sprintf("record %s: engine digest: %v", engineIDs[i], errA))
		case errB != nil:
			errs = append(errs, fmt.Sprintf("record %s: store digest: %v", storeIDs[i], errB))
		case a != b:
			errs = append(errs, fmt.Sprintf("record %s: backends return different contents", engineIDs[i]))
		}
	}
	return errs
}
