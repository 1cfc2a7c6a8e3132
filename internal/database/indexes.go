package database

import (
	"context"
	"fmt"
)

// IndexSpec names the columns of Table that each get their own index.
type IndexSpec struct {
	Table   string
	Columns []string
}

// IndexName follows the idx_<table>_<column> convention.
func IndexName(table, column string) string {
	return fmt.Sprintf("idx_%s_%s", table, column)
}

// SkipFunc is told about every column RecreateIndexes had to skip.
type SkipFunc func(table, column string)

// RecreateIndexes drops and recreates idx_<table>_<column> for every column in
// specs and returns how many indexes were recreated. Tables that don't exist
// are skipped, as are columns missing from an existing table (reported through
// onSkip). onIndex, when set, is called after each recreated index.
func (db *DB) RecreateIndexes(ctx context.Context, specs []IndexSpec, onIndex func(name string), onSkip SkipFunc) (int, error) {
	var count int

	for _, spec := range specs {
		exists, err := db.TableExists(ctx, spec.Table)
		if err != nil {
			return count, err
		}
		if !exists {
			continue
		}

		columns, err := db.columns(ctx, spec.Table)
		if err != nil {
			return count, err
		}

		for _, column := range spec.Columns {
			if !columns[column] {
				if onSkip != nil {
					onSkip(spec.Table, column)
				}
				continue
			}

			name := IndexName(spec.Table, column)
			if _, err := db.ExecContext(ctx, "DROP INDEX IF EXISTS "+QuoteIdent(name)); err != nil {
				return count, fmt.Errorf("dropping index %s: %w", name, err)
			}
			createQuery := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
				QuoteIdent(name), QuoteIdent(spec.Table), QuoteIdent(column))
			if _, err := db.ExecContext(ctx, createQuery); err != nil {
				return count, fmt.Errorf("creating index %s: %w", name, err)
			}

			count++
			if onIndex != nil {
				onIndex(name)
			}
		}
	}

	return count, nil
}

// IndexCount returns how many of the indexes in specs would be touched, which
// is the upper bound RecreateIndexes can return.
func IndexCount(specs []IndexSpec) int {
	var n int
	for _, spec := range specs {
		n += len(spec.Columns)
	}
	return n
}

func (db *DB) columns(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, fmt.Errorf("reading columns of %s: %w", table, err)
	}
	defer rows.Close()

	columns := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning column of %s: %w", table, err)
		}
		columns[name] = true
	}
	return columns, rows.Err()
}
