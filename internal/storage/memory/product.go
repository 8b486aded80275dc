package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ecomcore/orderflow/internal/domain/product"
)

var _ product.Repository = (*ProductCatalog)(nil)

// ProductCatalog is an in-process product.Repository.
type ProductCatalog struct {
	mu   sync.RWMutex
	byID map[string]product.Product
}

// NewProductCatalog creates a catalog seeded with the given products.
func NewProductCatalog(products ...product.Product) *ProductCatalog {
	byID := make(map[string]product.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return &ProductCatalog{byID: byID}
}

// GetByIDs returns the products that exist; missing IDs are skipped.
func (c *ProductCatalog) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []product.Product
	for _, id := range ids {
		if p, ok := c.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// GetByID returns one product or product.ErrNotFound.
func (c *ProductCatalog) GetByID(_ context.Context, id string) (*product.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

// List returns all products ordered by ID.
func (c *ProductCatalog) List(_ context.Context) ([]product.Product, error) {
	c.mu.RLock()
	out := make([]product.Product, 0, len(c.byID))
	for _, p := range c.byID {
		out = append(out, p)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
