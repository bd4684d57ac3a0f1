// Package store provides a SQLite-backed entity store that executes query
// plans compiled by internal/querysql.
//
// Each entity table has a TEXT primary key named "id" and one column per
// top-level record field. The column kinds of every table are kept in the
// entity_tables registry so that rows scan back into the same ir values
// they were written from:
//   - string: TEXT
//   - int: INTEGER
//   - bool: INTEGER holding 0 or 1
//   - json: TEXT holding the JSON encoding of an array or object
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Every read is ordered by the plan's sort directives followed by
// "id ASC COLLATE BINARY", so results are deterministic.
package store
