// Package repository defines the storage contract used by the service layer.
//
// The application stores every collection as ONE document: a load returns
// the whole list and a save replaces it. There is no indexing and no partial
// update. Services therefore follow the same three steps for every write:
//
//	Load → transform in memory → Save
//
// Backends live in sub-packages (jsonfile, sqlite). Services only see the
// interfaces below, so swapping the backend is a one-line change in the
// server wiring.
package repository

import (
	"context"
	"sync"

	"github.com/sakif/stockbook/internal/model"
)

// Collection is a whole-document store for records of type T.
//
// Load returns an empty (non-nil) slice when nothing has been saved yet.
// Save overwrites the full document.
type Collection[T any] interface {
	Load(ctx context.Context) ([]T, error)
	Save(ctx context.Context, items []T) error
}

// Names of the persisted collections. Backends use them as file names
// (products.json) or row keys.
const (
	ProductsCollection   = "products"
	CategoriesCollection = "categories"
	UsersCollection      = "users"
	InvoicesCollection   = "invoices"
)

// CollectionNames lists every collection a backend must bootstrap.
var CollectionNames = []string{
	ProductsCollection,
	CategoriesCollection,
	UsersCollection,
	InvoicesCollection,
}

// Store bundles the application's collections with a single-writer lock.
//
// Every read-modify-write sequence runs inside Exclusive. Without it two
// concurrent invoice requests could both load the same pre-decrement stock
// and both succeed (lost update). The lock is process-local: two server
// processes sharing one data directory are still not coordinated.
type Store struct {
	Products   Collection[model.Product]
	Categories Collection[model.Category]
	Users      Collection[model.User]
	Invoices   Collection[model.Invoice]

	mu sync.Mutex
}

// Exclusive runs fn while holding the store's writer lock.
func (s *Store) Exclusive(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}
