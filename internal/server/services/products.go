package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/dmitrijs2005/jazzyauth/internal/common"
	"github.com/dmitrijs2005/jazzyauth/internal/dbx"
	"github.com/dmitrijs2005/jazzyauth/internal/logging"
	"github.com/dmitrijs2005/jazzyauth/internal/server/models"
	"github.com/dmitrijs2005/jazzyauth/internal/server/repositories/products"
	"github.com/dmitrijs2005/jazzyauth/internal/server/repositories/repomanager"
)

// ProductService validates catalog input on top of the products repository.
type ProductService struct {
	db          dbx.Database
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewProductService(db dbx.Database, m repomanager.RepositoryManager, logger logging.Logger) *ProductService {
	return &ProductService{db: db, repomanager: m, logger: logger}
}

func validateProduct(p *models.Product) error {
	switch {
	case strings.TrimSpace(p.Title) == "":
		return fmt.Errorf("title is required: %w", common.ErrorValidation)
	case p.Price < 0 || math.IsNaN(p.Price) || math.IsInf(p.Price, 0):
		return fmt.Errorf("price must be a non-negative number: %w", common.ErrorValidation)
	case p.StockQuantity < 0:
		return fmt.Errorf("stock_quantity must not be negative: %w", common.ErrorValidation)
	case p.DiscountPercentage < 0 || p.DiscountPercentage > 100:
		return fmt.Errorf("discount_percentage must be within 0..100: %w", common.ErrorValidation)
	}
	return nil
}

func (s *ProductService) notFound(ctx context.Context, op string, id int64, err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("product %d: %w", id, common.ErrorNotFound)
	}
	return boundary(ctx, s.logger, op, err)
}

func (s *ProductService) Create(ctx context.Context, p *models.Product) (*models.Product, error) {
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	created, err := s.repomanager.Products(s.db).Create(ctx, p)
	if err != nil {
		return nil, internal(ctx, s.logger, "create product", err)
	}
	return created, nil
}

// Update applies patch to product id; unset fields keep their values.
func (s *ProductService) Update(ctx context.Context, id int64, patch *models.ProductPatch) (*models.Product, error) {
	var updated *models.Product
	err := s.db.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Products(tx)
		p, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		patch.Apply(p)
		p.ID = id
		if err := validateProduct(p); err != nil {
			return err
		}
		if err := repo.Update(ctx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, s.notFound(ctx, "update product", id, err)
	}
	return updated, nil
}

func (s *ProductService) Delete(ctx context.Context, id int64) error {
	if err := s.repomanager.Products(s.db).Delete(ctx, id); err != nil {
		return s.notFound(ctx, "delete product", id, err)
	}
	return nil
}

func (s *ProductService) Get(ctx context.Context, id int64) (*models.Product, error) {
	p, err := s.repomanager.Products(s.db).Get(ctx, id)
	if err != nil {
		return nil, s.notFound(ctx, "get product", id, err)
	}
	return p, nil
}

func (s *ProductService) List(ctx context.Context) ([]*models.Product, error) {
	list, err := s.repomanager.Products(s.db).List(ctx)
	if err != nil {
		return nil, internal(ctx, s.logger, "list products", err)
	}
	return list, nil
}

func (s *ProductService) Categories(ctx context.Context) ([]string, error) {
	list, err := s.repomanager.Products(s.db).Categories(ctx)
	if err != nil {
		return nil, internal(ctx, s.logger, "list categories", err)
	}
	return list, nil
}

func (s *ProductService) ByCategory(ctx context.Context, category string) ([]*models.Product, error) {
	list, err := s.repomanager.Products(s.db).ByCategory(ctx, category)
	if err != nil {
		return nil, internal(ctx, s.logger, "products by category", err)
	}
	return list, nil
}

func (s *ProductService) Limit(ctx context.Context, n int) ([]*models.Product, error) {
	if n <= 0 {
		return nil, fmt.Errorf("limit must be positive: %w", common.ErrorValidation)
	}
	list, err := s.repomanager.Products(s.db).Limit(ctx, n)
	if err != nil {
		return nil, internal(ctx, s.logger, "limit products", err)
	}
	return list, nil
}

// Sorted orders the catalog by field, which must be one of
// products.SortableColumns. order is "asc" (default) or "desc".
func (s *ProductService) Sorted(ctx context.Context, field, order string) ([]*models.Product, error) {
	if _, ok := products.SortableColumns[field]; !ok {
		return nil, fmt.Errorf("cannot sort by %q: %w", field, common.ErrorValidation)
	}

	var desc bool
	switch strings.ToLower(order) {
	case "", "asc":
	case "desc":
		desc = true
	default:
		return nil, fmt.Errorf("order must be asc or desc: %w", common.ErrorValidation)
	}

	list, err := s.repomanager.Products(s.db).Sorted(ctx, field, desc)
	if err != nil {
		return nil, boundary(ctx, s.logger, "sort products", err)
	}
	return list, nil
}
