// Package product defines the catalog collaborator contract. The order
// pipeline only reads from the catalog; catalog administration lives in a
// separate system.
package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound indicates a requested product does not exist in the catalog.
var ErrNotFound = errors.New("product not found")

// Product is a catalog entry as seen by the order pipeline.
type Product struct {
	ID    string
	Code  string
	Name  string
	Price decimal.Decimal
	Model string
}

// Repository provides read access to the product catalog.
type Repository interface {
	// GetByIDs returns the products matching any of the given IDs. Missing
	// IDs are simply absent from the result; callers that need all of them
	// must compare counts.
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context) ([]Product, error)
}
