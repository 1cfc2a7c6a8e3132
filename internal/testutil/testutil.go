// Package testutil builds throwaway preprints databases for tests across packages.
package testutil

import (
	"database/sql"
	"fmt"
	"net/url"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
	CREATE TABLE preprints (
		id TEXT PRIMARY KEY,
		title TEXT,
		description TEXT,
		date_created TEXT,
		date_modified TEXT,
		provider TEXT
	);
	CREATE TABLE contributors (
		id TEXT PRIMARY KEY,
		full_name TEXT
	);
	CREATE TABLE preprints_ui (
		id TEXT PRIMARY KEY,
		title TEXT,
		description TEXT,
		contributors_list TEXT,
		date_created TEXT,
		date_modified TEXT,
		provider TEXT
	);
`

// NewPreprintsDB creates a database file in a temp dir with the preprints
// schema and n rows in both preprints and preprints_ui. It returns the path.
func NewPreprintsDB(t *testing.T, n int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "preprints.db")
	db := open(t, path)
	defer db.Close()

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("creating schema: %v", err)
	}
	InsertPreprints(t, path, 0, n)
	return path
}

// InsertPreprints adds n rows, numbered from offset, to preprints and
// preprints_ui directly, bypassing any FTS maintenance.
func InsertPreprints(t *testing.T, path string, offset, n int) {
	t.Helper()

	db := open(t, path)
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("beginning transaction: %v", err)
	}
	defer tx.Rollback()

	for i := offset; i < offset+n; i++ {
		id := fmt.Sprintf("pp%04d", i)
		title := fmt.Sprintf("Preprint %d on replication", i)
		desc := fmt.Sprintf("Abstract %d about open science", i)
		if _, err := tx.Exec(
			"INSERT INTO preprints (id, title, description, date_created, date_modified, provider) VALUES (?, ?, ?, ?, ?, ?)",
			id, title, desc, "2024-01-01T00:00:00", "2024-01-02T00:00:00", "psyarxiv",
		); err != nil {
			t.Fatalf("inserting preprint %s: %v", id, err)
		}
		if _, err := tx.Exec(
			"INSERT INTO preprints_ui (id, title, description, contributors_list, date_created, date_modified, provider) VALUES (?, ?, ?, ?, ?, ?, ?)",
			id, title, desc, fmt.Sprintf("Author %d; Coauthor %d", i, i+1), "2024-01-01T00:00:00", "2024-01-02T00:00:00", "psyarxiv",
		); err != nil {
			t.Fatalf("inserting preprints_ui %s: %v", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		t.Fatalf("committing rows: %v", err)
	}
}

// Exec runs statements against the database at path.
func Exec(t *testing.T, path string, query string, args ...any) {
	t.Helper()

	db := open(t, path)
	defer db.Close()

	if _, err := db.Exec(query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

// QueryInt runs a single-value integer query against the database at path.
func QueryInt(t *testing.T, path string, query string, args ...any) int64 {
	t.Helper()

	db := open(t, path)
	defer db.Close()

	var n int64
	if err := db.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("query %q: %v", query, err)
	}
	return n
}

func open(t *testing.T, path string) *sql.DB {
	t.Helper()
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	db, err := sql.Open("sqlite3", u.String())
	if err != nil {
		t.Fatalf("opening %s: %v", path, err)
	}
	return db
}
