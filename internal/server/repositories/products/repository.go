// Package products is the catalog store. It has no lifecycle rules of its
// own; the products service adds validation on top.
package products

import (
	"context"

	"github.com/dmitrijs2005/jazzyauth/internal/server/models"
)

// SortableColumns lists the columns Sorted accepts.
var SortableColumns = map[string]struct{}{
	"id":                  {},
	"title":               {},
	"price":               {},
	"category":            {},
	"brand":               {},
	"rating_rate":         {},
	"stock_quantity":      {},
	"discount_percentage": {},
}

type Repository interface {
	Create(ctx context.Context, p *models.Product) (*models.Product, error)
	Get(ctx context.Context, id int64) (*models.Product, error)
	Update(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]*models.Product, error)
	Categories(ctx context.Context) ([]string, error)
	ByCategory(ctx context.Context, category string) ([]*models.Product, error)
	Limit(ctx context.Context, n int) ([]*models.Product, error)
	// Sorted orders by column, which must be a key of SortableColumns.
	Sorted(ctx context.Context, column string, desc bool) ([]*models.Product, error)
}
