// Package fts keeps an FTS4 shadow table in step with its content table.
package fts

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/aziis98/osf-optimize/internal/database"
	"github.com/aziis98/osf-optimize/internal/logging"
)

// Querier is the subset of *sql.DB the maintainer needs.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Action tells which branch Update took.
type Action string

const (
	ActionCreated Action = "created"
	ActionRebuilt Action = "rebuilt"
)

// Result describes one Update.
type Result struct {
	Action  Action
	Rows    int64
	Elapsed time.Duration
}

// Maintainer owns the <Source>_fts table.
type Maintainer struct {
	db      Querier
	log     *logging.Logger
	source  string
	columns []string
}

// New returns a maintainer mirroring columns of source.
func New(db Querier, log *logging.Logger, source string, columns []string) *Maintainer {
	if log == nil {
		log = logging.Discard()
	}
	return &Maintainer{
		db:      db,
		log:     log,
		source:  source,
		columns: columns,
	}
}

// Table is the name of the FTS shadow table.
func (m *Maintainer) Table() string {
	return m.source + "_fts"
}

// Exists reports whether the shadow table has been created.
func (m *Maintainer) Exists(ctx context.Context) (bool, error) {
	return database.TableExistsIn(ctx, m.db, m.Table())
}

// Update creates and populates the shadow table when it is missing, and asks
// FTS to rebuild it from the content table otherwise. Either way the index
// matches the source table afterwards. A failed create may leave a partially
// populated table behind; the next Update rebuilds it.
func (m *Maintainer) Update(ctx context.Context) (Result, error) {
	exists, err := m.Exists(ctx)
	if err != nil {
		return Result{}, err
	}

	start := time.Now()
	res := Result{Action: ActionRebuilt}

	if !exists {
		res.Action = ActionCreated
		m.log.Infof("Creating FTS table for %s...", m.source)
		if err := m.create(ctx); err != nil {
			return Result{}, err
		}
		if err := m.populate(ctx); err != nil {
			return Result{}, err
		}
		if res.Rows, err = m.sourceRows(ctx); err != nil {
			return Result{}, err
		}
		res.Elapsed = time.Since(start)
		m.log.Infof("Created and populated FTS table in %.2fs", res.Elapsed.Seconds())
		return res, nil
	}

	m.log.Infof("Updating FTS table...")
	if err := m.rebuild(ctx); err != nil {
		return Result{}, err
	}
	if res.Rows, err = m.sourceRows(ctx); err != nil {
		return Result{}, err
	}
	res.Elapsed = time.Since(start)
	m.log.Infof("FTS index updated in %.2fs", res.Elapsed.Seconds())
	return res, nil
}

func (m *Maintainer) quotedColumns() string {
	quoted := make([]string, len(m.columns))
	for i, c := range m.columns {
		quoted[i] = database.QuoteIdent(c)
	}
	return strings.Join(quoted, ", ")
}

func (m *Maintainer) create(ctx context.Context) error {
	query := fmt.Sprintf(
		"CREATE VIRTUAL TABLE IF NOT EXISTS %s USING fts4(%s, content=%s)",
		database.QuoteIdent(m.Table()), m.quotedColumns(), database.QuoteIdent(m.source),
	)
	if _, err := m.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("creating %s: %w", m.Table(), err)
	}
	return nil
}

func (m *Maintainer) populate(ctx context.Context) error {
	cols := m.quotedColumns()
	query := fmt.Sprintf(
		"INSERT INTO %s(rowid, %s) SELECT rowid, %s FROM %s",
		database.QuoteIdent(m.Table()), cols, cols, database.QuoteIdent(m.source),
	)
	if _, err := m.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("populating %s from %s: %w", m.Table(), m.source, err)
	}
	return nil
}

func (m *Maintainer) rebuild(ctx context.Context) error {
	table := database.QuoteIdent(m.Table())
	query := fmt.Sprintf("INSERT INTO %s(%s) VALUES('rebuild')", table, table)
	if _, err := m.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("rebuilding %s: %w", m.Table(), err)
	}
	return nil
}

func (m *Maintainer) sourceRows(ctx context.Context) (int64, error) {
	var n int64
	if err := m.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+database.QuoteIdent(m.source)).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting rows in %s: %w", m.source, err)
	}
	return n, nil
}
