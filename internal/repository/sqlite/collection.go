package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sakif/stockbook/internal/model"
	"github.com/sakif/stockbook/internal/repository"
)

// compile-time check that *Collection implements repository.Collection
var _ repository.Collection[model.Invoice] = (*Collection[model.Invoice])(nil)

// Collection is one named JSON document stored in the collections table.
type Collection[T any] struct {
	db   *DB
	name string
}

// NewCollection returns the collection stored under name.
func NewCollection[T any](db *DB, name string) *Collection[T] {
	return &Collection[T]{db: db, name: name}
}

// Load reads the collection document.
// A missing row or blank body is an empty collection.
func (c *Collection[T]) Load(ctx context.Context) ([]T, error) {
	var body string
	err := c.db.conn.QueryRowContext(ctx,
		`SELECT body FROM collections WHERE name = ?`, c.name,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading %s: %w", c.name, err)
	}
	if strings.TrimSpace(body) == "" {
		return []T{}, nil
	}

	var items []T
	if err := json.Unmarshal([]byte(body), &items); err != nil {
		return nil, fmt.Errorf("sqlite: parsing %s: %w", c.name, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// Save replaces the collection document.
//
// INSERT ... ON CONFLICT DO UPDATE is SQLite's upsert: the first save of a
// collection inserts the row, later saves overwrite body in place.
func (c *Collection[T]) Save(ctx context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}

	body, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("sqlite: encoding %s: %w", c.name, err)
	}

	_, err = c.db.conn.ExecContext(ctx,
		`INSERT INTO collections (name, body, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		c.name,
		string(body),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: saving %s: %w", c.name, err)
	}
	return nil
}
