package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned by Open when the database file does not exist.
var ErrNotFound = errors.New("database not found")

// Executor defines an interface for executing SQL queries, compatible with *sql.DB and *sql.Tx.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB wraps sql.DB with the maintenance operations run against the preprints database.
type DB struct {
	*sql.DB
	path string
}

// Options tunes the connection.
type Options struct {
	// BusyTimeoutMs is how long a statement waits on a locked database.
	BusyTimeoutMs int
}

// Open connects to an existing database file. It never creates one.
func Open(path string, opts Options) (*DB, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving database path: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("checking database at %s: %w", path, err)
	}

	db, err := sql.Open("sqlite3", dsn(path, opts))
	if err != nil {
		return nil, fmt.Errorf("opening database at %s: %w", path, err)
	}

	// One process-wide connection, so PRAGMAs and VACUUM hit the same handle.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database at %s: %w", path, err)
	}

	return &DB{DB: db, path: path}, nil
}

// dsn builds a URI filename for path. The path is escaped so '?' and '#' stay
// part of the file name, and mode=rw keeps SQLite from creating the file.
func dsn(path string, opts Options) string {
	query := url.Values{}
	query.Set("_busy_timeout", strconv.Itoa(opts.BusyTimeoutMs))
	query.Set("mode", "rw")
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path), RawQuery: query.Encode()}
	return u.String()
}

// Size returns the on-disk size of the database file in bytes, 0 if it is gone.
func (db *DB) Size() (int64, error) {
	return FileSize(db.path)
}

// FileSize returns the size of the file at path in bytes, or 0 if it doesn't exist.
func FileSize(path string) (int64, error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	return fileInfo.Size(), nil
}

// Analyze recomputes the query planner statistics.
func (db *DB) Analyze(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, "ANALYZE"); err != nil {
		return fmt.Errorf("running ANALYZE: %w", err)
	}
	return nil
}

// Vacuum switches the file to full auto-vacuum and rewrites it to reclaim
// unused pages. The new auto_vacuum mode only takes effect through the VACUUM.
func (db *DB) Vacuum(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, "PRAGMA auto_vacuum = FULL"); err != nil {
		return fmt.Errorf("setting auto_vacuum: %w", err)
	}
	if _, err := db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("running VACUUM: %w", err)
	}
	return nil
}

// TableExists reports whether a table (regular or virtual) named name exists.
func (db *DB) TableExists(ctx context.Context, name string) (bool, error) {
	return TableExistsIn(ctx, db.DB, name)
}

// TableExistsIn is TableExists for any connection or transaction.
func TableExistsIn(ctx context.Context, exec Executor, name string) (bool, error) {
	var found string
	err := exec.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name=?", name,
	).Scan(&found)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("looking up table %s: %w", name, err)
	}
	return true, nil
}

// Tables lists the user tables, FTS shadow tables included, sorted by name.
func (db *DB) Tables(ctx context.Context) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name",
	)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning table name: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// CountRows returns the number of rows in table.
func (db *DB) CountRows(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+QuoteIdent(table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting rows in %s: %w", table, err)
	}
	return n, nil
}

// Stats is the page accounting SQLite keeps for the file.
type Stats struct {
	PageSize      int64
	PageCount     int64
	FreelistCount int64
	AutoVacuum    int64
}

// TotalBytes is the size implied by the page count.
func (s Stats) TotalBytes() int64 {
	return s.PageSize * s.PageCount
}

// FreeBytes is the space VACUUM could reclaim.
func (s Stats) FreeBytes() int64 {
	return s.PageSize * s.FreelistCount
}

// Stats reads the page accounting pragmas.
func (db *DB) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	pragmas := []struct {
		name string
		dest *int64
	}{
		{"page_size", &st.PageSize},
		{"page_count", &st.PageCount},
		{"freelist_count", &st.FreelistCount},
		{"auto_vacuum", &st.AutoVacuum},
	}
	for _, p := range pragmas {
		if err := db.QueryRowContext(ctx, "PRAGMA "+p.name).Scan(p.dest); err != nil {
			return Stats{}, fmt.Errorf("reading PRAGMA %s: %w", p.name, err)
		}
	}
	return st, nil
}

// QuoteIdent quotes an SQL identifier for SQLite.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
