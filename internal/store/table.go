package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/entityq/internal/ir"
)

// ColumnKind is the value kind stored in a table column.
type ColumnKind string

const (
	KindString ColumnKind = "string"
	KindInt    ColumnKind = "int"
	KindBool   ColumnKind = "bool"
	KindJSON   ColumnKind = "json"
)

func (k ColumnKind) sqlType() (string, error) {
	switch k {
	case KindString, KindJSON:
		return "TEXT", nil
	case KindInt, KindBool:
		return "INTEGER", nil
	default:
		return "", fmt.Errorf("unknown column kind %q", k)
	}
}

// Column declares one table column.
type Column struct {
	Name string     `json:"name"`
	Kind ColumnKind `json:"kind"`
}

// Table declares an entity table. The "id" column is implicit.
type Table struct {
	Name    string
	Columns []Column
}

// Column returns the column named name.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ErrUnknownTable is returned for tables missing from the registry.
var ErrUnknownTable = errors.New("unknown table")

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// KindOf returns the column kind able to hold v. Nulls have no kind.
func KindOf(v ir.IRValue) (ColumnKind, bool) {
	switch v.(type) {
	case ir.IRString:
		return KindString, true
	case ir.IRInt:
		return KindInt, true
	case ir.IRBool:
		return KindBool, true
	case ir.IRArray, ir.IRObject:
		return KindJSON, true
	}
	return "", false
}

// InferTable derives a table declaration from sample records. Columns are
// ordered by first appearance, with keys of each record in sorted order.
// A field holding values of different kinds is an error. A field that is
// null in every record is stored as json.
func InferTable(name string, records []ir.IRObject) (Table, error) {
	t := Table{Name: name}
	kinds := map[string]ColumnKind{}
	for i, rec := range records {
		for _, key := range rec.SortedKeys() {
			if key == "id" {
				continue
			}
			kind, ok := KindOf(rec[key])
			existing, seen := kinds[key]
			if !seen {
				t.Columns = append(t.Columns, Column{Name: key})
				if ok {
					kinds[key] = kind
				} else {
					kinds[key] = ""
				}
				continue
			}
			if !ok {
				continue
			}
			if existing == "" {
				kinds[key] = kind
				continue
			}
			if existing != kind {
				return Table{}, fmt.Errorf("record %d: field %q is %s, earlier records hold %s", i, key, kind, existing)
			}
		}
	}
	for i := range t.Columns {
		kind := kinds[t.Columns[i].Name]
		if kind == "" {
			kind = KindJSON
		}
		t.Columns[i].Kind = kind
	}
	return t, nil
}

// EnsureTable creates the table if it does not exist and adds columns
// missing from an existing table. Changing the kind of an existing column
// is an error.
func (s *Store) EnsureTable(ctx context.Context, t Table) error {
	if err := validateTable(t); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := lookupTable(ctx, tx, t.Name)
	switch {
	case errors.Is(err, ErrUnknownTable):
		if err := createTable(ctx, tx, t); err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		if err := extendTable(ctx, tx, existing, t); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Table returns the registered declaration of name.
func (s *Store) Table(ctx context.Context, name string) (Table, error) {
	return lookupTable(ctx, s.db, name)
}

// Tables returns all registered tables in creation order.
func (s *Store) Tables(ctx context.Context) ([]Table, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, columns
		FROM entity_tables
		ORDER BY seq ASC, name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	tables := []Table{}
	for rows.Next() {
		var name, columns string
		if err := rows.Scan(&name, &columns); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		t, err := decodeTable(name, columns)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	return tables, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func lookupTable(ctx context.Context, q queryer, name string) (Table, error) {
	var columns string
	err := q.QueryRowContext(ctx, `SELECT columns FROM entity_tables WHERE name = ?`, name).Scan(&columns)
	if errors.Is(err, sql.ErrNoRows) {
		return Table{}, fmt.Errorf("%w: %s", ErrUnknownTable, name)
	}
	if err != nil {
		return Table{}, fmt.Errorf("lookup table %s: %w", name, err)
	}
	return decodeTable(name, columns)
}

func decodeTable(name, columns string) (Table, error) {
	t := Table{Name: name}
	if err := json.Unmarshal([]byte(columns), &t.Columns); err != nil {
		return Table{}, fmt.Errorf("decode columns of %s: %w", name, err)
	}
	return t, nil
}

func validateTable(t Table) error {
	if !identifierRe.MatchString(t.Name) {
		return fmt.Errorf("invalid table name %q", t.Name)
	}
	if strings.HasPrefix(strings.ToLower(t.Name), "sqlite_") || t.Name == "entity_tables" {
		return fmt.Errorf("reserved table name %q", t.Name)
	}
	seen := map[string]bool{}
	for _, c := range t.Columns {
		if !identifierRe.MatchString(c.Name) {
			return fmt.Errorf("table %s: invalid column name %q", t.Name, c.Name)
		}
		if strings.EqualFold(c.Name, "id") {
			return fmt.Errorf("table %s: column id is implicit", t.Name)
		}
		if seen[c.Name] {
			return fmt.Errorf("table %s: duplicate column %q", t.Name, c.Name)
		}
		seen[c.Name] = true
		if _, err := c.Kind.sqlType(); err != nil {
			return fmt.Errorf("table %s: column %s: %w", t.Name, c.Name, err)
		}
	}
	return nil
}

func createTable(ctx context.Context, tx *sql.Tx, t Table) error {
	defs := []string{`"id" TEXT PRIMARY KEY`}
	for _, c := range t.Columns {
		sqlType, _ := c.Kind.sqlType()
		defs = append(defs, fmt.Sprintf(`"%s" %s`, c.Name, sqlType))
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS "%s" (%s)`, t.Name, strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", t.Name, err)
	}
	return register(ctx, tx, t, true)
}

func extendTable(ctx context.Context, tx *sql.Tx, existing, want Table) error {
	merged := existing
	for _, c := range want.Columns {
		if have, ok := existing.Column(c.Name); ok {
			if have.Kind != c.Kind {
				return fmt.Errorf("table %s: column %s is %s, cannot change to %s", want.Name, c.Name, have.Kind, c.Kind)
			}
			continue
		}
		sqlType, _ := c.Kind.sqlType()
		ddl := fmt.Sprintf(`ALTER TABLE "%s" ADD COLUMN "%s" %s`, want.Name, c.Name, sqlType)
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("add column %s.%s: %w", want.Name, c.Name, err)
		}
		merged.Columns = append(merged.Columns, c)
	}
	if len(merged.Columns) == len(existing.Columns) {
		return nil
	}
	return register(ctx, tx, merged, false)
}

func register(ctx context.Context, tx *sql.Tx, t Table, insert bool) error {
	columns := t.Columns
	if columns == nil {
		columns = []Column{}
	}
	encoded, err := json.Marshal(columns)
	if err != nil {
		return fmt.Errorf("encode columns: %w", err)
	}
	if insert {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO entity_tables (name, columns, seq)
			VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM entity_tables))
		`, t.Name, string(encoded))
	} else {
		_, err = tx.ExecContext(ctx, `UPDATE entity_tables SET columns = ? WHERE name = ?`, string(encoded), t.Name)
	}
	if err != nil {
		return fmt.Errorf("register table %s: %w", t.Name, err)
	}
	return nil
}
