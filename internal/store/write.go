package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/entityq/internal/ir"
)

// Put inserts or replaces record in table and returns its id.
//
// The id is read from record["id"], which must be a string when present.
// A record without an id (or with an empty one) is assigned a random UUID.
// Fields must be declared columns of the table; null fields are stored as
// NULL.
func (s *Store) Put(ctx context.Context, table string, record ir.IRObject) (string, error) {
	t, err := s.Table(ctx, table)
	if err != nil {
		return "", err
	}
	return insert(ctx, s.db, t, record)
}

// PutAll writes records in one transaction and returns their ids in
// input order. Nothing is written if any record fails.
func (s *Store) PutAll(ctx context.Context, table string, records []ir.IRObject) ([]string, error) {
	t, err := s.Table(ctx, table)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	ids := make([]string, 0, len(records))
	for i, rec := range records {
		id, err := insert(ctx, tx, t, rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return ids, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insert(ctx context.Context, db execer, t Table, record ir.IRObject) (string, error) {
	id, err := recordID(record)
	if err != nil {
		return "", err
	}
	if id == "" {
		id = uuid.NewString()
	}

	cols := []string{`"id"`}
	placeholders := []string{"?"}
	args := []any{id}
	for _, key := range record.SortedKeys() {
		if key == "id" {
			continue
		}
		col, ok := t.Column(key)
		if !ok {
			return "", fmt.Errorf("table %s: unknown column %q", t.Name, key)
		}
		arg, err := encodeValue(col, record[key])
		if err != nil {
			return "", fmt.Errorf("table %s: column %s: %w", t.Name, key, err)
		}
		cols = append(cols, `"`+key+`"`)
		placeholders = append(placeholders, "?")
		args = append(args, arg)
	}

	stmt := fmt.Sprintf(`INSERT OR REPLACE INTO "%s" (%s) VALUES (%s)`,
		t.Name, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	if _, err := db.ExecContext(ctx, stmt, args...); err != nil {
		return "", fmt.Errorf("insert into %s: %w", t.Name, err)
	}
	return id, nil
}

// Delete removes the record with the given id. Deleting a missing record
// is not an error.
func (s *Store) Delete(ctx context.Context, table, id string) error {
	if _, err := s.Table(ctx, table); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM "%s" WHERE id = ?`, table), id); err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	return nil
}

func recordID(record ir.IRObject) (string, error) {
	v, ok := record["id"]
	if !ok {
		return "", nil
	}
	switch id := v.(type) {
	case ir.IRString:
		return string(id), nil
	case ir.IRNull:
		return "", nil
	default:
		return "", fmt.Errorf("id must be a string, got %T", v)
	}
}

// encodeValue converts v to the driver value stored in col.
func encodeValue(col Column, v ir.IRValue) (any, error) {
	if _, isNull := v.(ir.IRNull); isNull || v == nil {
		return nil, nil
	}
	kind, _ := KindOf(v)
	if kind != col.Kind {
		return nil, fmt.Errorf("value of kind %s does not fit column of kind %s", kind, col.Kind)
	}
	switch val := v.(type) {
	case ir.IRString:
		return string(val), nil
	case ir.IRInt:
		return int64(val), nil
	case ir.IRBool:
		if val {
			return int64(1), nil
		}
		return int64(0), nil
	default:
		data, err := ir.MarshalIRValue(val)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	}
}
