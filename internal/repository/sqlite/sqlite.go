// Package sqlite implements the repository contract on top of SQLite.
//
// WHY SQLITE HERE?
// The JSON-file backend is the default, but it cannot make a write durable
// and consistent across a crash the way a real database can. This backend
// keeps exactly the same whole-collection contract (Load/Save a list) and
// stores each collection document in one row, so services do not change at
// all when switching STORAGE_DRIVER to "sqlite".
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// modernc.org/sqlite is a pure Go translation of SQLite: no C compiler, and
// cross-compilation keeps working.
//
// SCHEMA:
//
//	collections(name TEXT PRIMARY KEY, body TEXT, updated_at DATETIME)
//
// One row per collection ("products", "users", ...). body holds the same
// pretty-printed JSON array the file backend writes.
package sqlite

import (
	"database/sql"
	"fmt"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"

	"github.com/sakif/stockbook/internal/model"
	"github.com/sakif/stockbook/internal/repository"
)

// DB wraps a sql.DB connection pool.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/stockbook.db"  → file-based database (persistent)
//   - ":memory:"           → in-memory database (tests)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// A ":memory:" database exists per connection. Pinning the pool to a
	// single connection keeps every query on the same database, and also
	// serialises writers, which SQLite requires anyway.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in progress.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Store returns a repository.Store whose collections are rows of this DB.
func (db *DB) Store() *repository.Store {
	return &repository.Store{
		Products:   NewCollection[model.Product](db, repository.ProductsCollection),
		Categories: NewCollection[model.Category](db, repository.CategoriesCollection),
		Users:      NewCollection[model.User](db, repository.UsersCollection),
		Invoices:   NewCollection[model.Invoice](db, repository.InvoicesCollection),
	}
}

// migrate creates the schema and seeds one empty document per collection.
// Both statements are idempotent, so it is safe on every start.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS collections (
			name       TEXT PRIMARY KEY,
			body       TEXT NOT NULL DEFAULT '[]',
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating collections table: %w", err)
	}

	for _, name := range repository.CollectionNames {
		if _, err := db.conn.Exec(
			`INSERT OR IGNORE INTO collections (name, body) VALUES (?, '[]')`, name,
		); err != nil {
			return fmt.Errorf("seeding collection %s: %w", name, err)
		}
	}

	return nil
}
