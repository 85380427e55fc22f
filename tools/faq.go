package tools

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// FAQEntry is one company FAQ row.
type FAQEntry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// FAQStore holds the company FAQ database the company_faq tool queries.
type FAQStore struct {
	db *sql.DB
}

// OpenFAQStore opens (and if needed initializes) the FAQ database.
func OpenFAQStore(path string) (*FAQStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening FAQ database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS faq (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			question TEXT NOT NULL,
			answer TEXT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing FAQ schema: %w", err)
	}

	return &FAQStore{db: db}, nil
}

// Seed inserts FAQ entries, for initial setup and tests.
func (s *FAQStore) Seed(ctx context.Context, entries []FAQEntry) error {
	for _, e := range entries {
		if _, err := s.db.ExecContext(ctx,
			"INSERT INTO faq (question, answer) VALUES (?, ?)", e.Question, e.Answer); err != nil {
			return fmt.Errorf("seeding FAQ: %w", err)
		}
	}
	return nil
}

// Close releases the underlying database handle.
func (s *FAQStore) Close() error {
	return s.db.Close()
}

// FAQInput defines the input for the company_faq tool.
type FAQInput struct {
	Query string `json:"query" jsonschema:"required,description=Keywords to search the company FAQ for"`
}

// FAQOutput defines the output of the company_faq tool.
type FAQOutput struct {
	Entries []FAQEntry `json:"entries"`
	Count   int        `json:"count"`
}

// Tool returns the company_faq lookup tool backed by this store.
func (s *FAQStore) Tool() Tool {
	return NewTool(
		"company_faq",
		"Look up company FAQ entries, e.g. about benefits, working hours, or the hiring process.",
		func(ctx context.Context, in FAQInput) (FAQOutput, error) {
			pattern := "%" + in.Query + "%"
			rows, err := s.db.QueryContext(ctx, `
				SELECT question, answer FROM faq
				WHERE question LIKE ? OR answer LIKE ?
				ORDER BY id LIMIT 5
			`, pattern, pattern)
			if err != nil {
				return FAQOutput{}, fmt.Errorf("querying FAQ: %w", err)
			}
			defer rows.Close()

			var out FAQOutput
			for rows.Next() {
				var e FAQEntry
				if err := rows.Scan(&e.Question, &e.Answer); err != nil {
					return FAQOutput{}, fmt.Errorf("scanning FAQ row: %w", err)
				}
				out.Entries = append(out.Entries, e)
			}
			if err := rows.Err(); err != nil {
				return FAQOutput{}, fmt.Errorf("reading FAQ rows: %w", err)
			}
			out.Count = len(out.Entries)
			return out, nil
		},
	)
}
