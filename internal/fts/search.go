package fts

import (
	"context"
	"fmt"

	"github.com/aziis98/osf-optimize/internal/database"
)

// Hit is one full-text match.
type Hit struct {
	RowID   int64
	ID      string
	Title   string
	Snippet string
}

// titleColumn is the indexed column shown as the hit title: "title" when it is
// indexed, otherwise the first column.
func (m *Maintainer) titleColumn() string {
	for _, c := range m.columns {
		if c == "title" {
			return c
		}
	}
	return m.columns[0]
}

// Search performs a full-text search over the shadow table. Matched terms are
// wrapped in [HL] and [/HL] markers in the snippet.
func (m *Maintainer) Search(ctx context.Context, queryTerm string, limit int) ([]Hit, error) {
	exists, err := m.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%s does not exist yet, run the optimizer first", m.Table())
	}

	table := database.QuoteIdent(m.Table())
	query := fmt.Sprintf(`
		SELECT
			s.rowid,
			COALESCE(s.id, ''),
			COALESCE(s.%s, ''),
			snippet(%s, '[HL]', '[/HL]', '...', -1, 15)
		FROM %s
		JOIN %s AS s ON s.rowid = %s.docid
		WHERE %s MATCH ?
		ORDER BY s.rowid
		LIMIT ?`,
		database.QuoteIdent(m.titleColumn()),
		table, table, database.QuoteIdent(m.source), table, table,
	)

	rows, err := m.db.QueryContext(ctx, query, queryTerm, limit)
	if err != nil {
		return nil, fmt.Errorf("search query failed: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.RowID, &h.ID, &h.Title, &h.Snippet); err != nil {
			return nil, fmt.Errorf("scanning search hit: %w", err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}
