package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/roach88/entityq/internal/ir"
	"github.com/roach88/entityq/internal/query"
	"github.com/roach88/entityq/internal/querysql"
)

// Find executes plan against table and returns the matching records in
// result order. NULL columns are omitted from the returned objects.
//
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) Find(ctx context.Context, table string, plan query.Plan) ([]ir.IRObject, error) {
	t, err := s.Table(ctx, table)
	if err != nil {
		return nil, err
	}

	stmt, params, err := querysql.NewSQLCompiler(table).Compile(plan)
	if err != nil {
		return nil, fmt.Errorf("compile query: %w", err)
	}
	slog.Debug("executing query",
		"table", table,
		"sql", stmt,
		"params", len(params),
	)

	rows, err := s.db.QueryContext(ctx, stmt, params...)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	records := []ir.IRObject{}
	for rows.Next() {
		rec, err := scanRecord(rows, t)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return records, nil
}

// Get returns the record with the given id.
func (s *Store) Get(ctx context.Context, table, id string) (ir.IRObject, bool, error) {
	records, err := s.Find(ctx, table, query.Plan{IDs: []any{id}})
	if err != nil {
		return nil, false, err
	}
	if len(records) == 0 {
		return nil, false, nil
	}
	return records[0], true, nil
}

func scanRecord(rows *sql.Rows, t Table) (ir.IRObject, error) {
	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	values := make([]any, len(names))
	dest := make([]any, len(names))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, fmt.Errorf("scan row: %w", err)
	}

	rec := ir.IRObject{}
	for i, name := range names {
		if values[i] == nil {
			continue
		}
		kind := KindString
		if name != "id" {
			col, ok := t.Column(name)
			if !ok {
				return nil, fmt.Errorf("table %s: unknown column %q in result", t.Name, name)
			}
			kind = col.Kind
		}
		v, err := decodeValue(kind, values[i])
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", name, err)
		}
		rec[name] = v
	}
	return rec, nil
}

// decodeValue converts a scanned driver value back to its ir form.
func decodeValue(kind ColumnKind, raw any) (ir.IRValue, error) {
	switch kind {
	case KindString:
		switch v := raw.(type) {
		case string:
			return ir.IRString(v), nil
		case []byte:
			return ir.IRString(v), nil
		}
	case KindInt:
		if v, ok := raw.(int64); ok {
			return ir.IRInt(v), nil
		}
	case KindBool:
		if v, ok := raw.(int64); ok {
			return ir.IRBool(v != 0), nil
		}
	case KindJSON:
		switch v := raw.(type) {
		case string:
			return ir.UnmarshalIRValue([]byte(v))
		case []byte:
			return ir.UnmarshalIRValue(v)
		}
	}
	return nil, fmt.Errorf("cannot decode %T as %s", raw, kind)
}
