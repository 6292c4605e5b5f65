// Package jsonfile implements the repository contract with one JSON file per
// collection (products.json, users.json, ...).
//
// FILE FORMAT:
// Each file holds a single JSON array, pretty-printed with two-space
// indentation so it stays readable and diff-friendly:
//
//	[
//	  {
//	    "id": "cv37rs3pp9olc6atsptg",
//	    "name": "Widget",
//	    ...
//	  }
//	]
//
// ATOMIC WRITES:
// A plain os.WriteFile truncates the file before writing. If the process
// dies half-way, the collection is left as invalid JSON. atomicwriter writes
// to a temporary file in the same directory and renames it over the target,
// so readers see either the old document or the new one.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/moby/sys/atomicwriter"

	"github.com/sakif/stockbook/internal/model"
	"github.com/sakif/stockbook/internal/repository"
)

const filePerm = 0o644

// Collection stores a list of T as a JSON array in a single file.
type Collection[T any] struct {
	path string
}

// compile-time check that *Collection implements repository.Collection
var _ repository.Collection[model.Product] = (*Collection[model.Product])(nil)

// NewCollection returns the collection stored at {dir}/{name}.json.
func NewCollection[T any](dir, name string) *Collection[T] {
	return &Collection[T]{path: filepath.Join(dir, name+".json")}
}

// Path returns the backing file path.
func (c *Collection[T]) Path() string {
	return c.path
}

// Load reads and parses the whole file.
// A missing or blank file is an empty collection, not an error.
func (c *Collection[T]) Load(ctx context.Context) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("jsonfile: reading %s: %w", c.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []T{}, nil
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("jsonfile: parsing %s: %w", c.path, err)
	}
	// A file containing `null` decodes to a nil slice.
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// Save replaces the file with the given items.
func (c *Collection[T]) Save(ctx context.Context, items []T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if items == nil {
		items = []T{}
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("jsonfile: encoding %s: %w", c.path, err)
	}
	if err := atomicwriter.WriteFile(c.path, data, filePerm); err != nil {
		return fmt.Errorf("jsonfile: writing %s: %w", c.path, err)
	}
	return nil
}

// New prepares dir and returns a Store whose collections live in it.
//
// Missing collection files are created as empty arrays so the data directory
// is self-describing from the first run. Existing files are never touched.
func New(dir string, logger *slog.Logger) (*repository.Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("jsonfile: creating data directory %s: %w", dir, err)
	}

	for _, name := range repository.CollectionNames {
		path := filepath.Join(dir, name+".json")
		if _, err := os.Stat(path); err == nil {
			continue
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("jsonfile: checking %s: %w", path, err)
		}

		if err := atomicwriter.WriteFile(path, []byte("[]"), filePerm); err != nil {
			return nil, fmt.Errorf("jsonfile: creating %s: %w", path, err)
		}
		logger.Info("collection file created", slog.String("path", path))
	}

	return &repository.Store{
		Products:   NewCollection[model.Product](dir, repository.ProductsCollection),
		Categories: NewCollection[model.Category](dir, repository.CategoriesCollection),
		Users:      NewCollection[model.User](dir, repository.UsersCollection),
		Invoices:   NewCollection[model.Invoice](dir, repository.InvoicesCollection),
	}, nil
}
