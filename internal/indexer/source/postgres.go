package source

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/document"
)

// Postgres reads documents from a table with the columns
// (position, title, path, parent_names text[], draft, content).
type Postgres struct {
	db    *sql.DB
	table string
}

func NewPostgres(db *sql.DB, table string) *Postgres {
	if table == "" {
		table = "documents"
	}
	return &Postgres{db: db, table: table}
}

func (p *Postgres) query() string {
	return fmt.Sprintf(
		`SELECT title, path, parent_names, draft, content FROM %s ORDER BY position`,
		pq.QuoteIdentifier(p.table),
	)
}

func (p *Postgres) Items(ctx context.Context) ([]Item, error) {
	rows, err := p.db.QueryContext(ctx, p.query())
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var (
			doc     document.Document
			path    sql.NullString
			parents []string
			content sql.NullString
		)
		if err := rows.Scan(&doc.Title, &path, pq.Array(&parents), &doc.Draft, &content); err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		doc.Path = path.String
		doc.ParentNames = parents
		items = append(items, Item{Document: doc, Content: []byte(content.String)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating document rows: %w", err)
	}
	return items, nil
}
