package products

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/jazzyauth/internal/common"
	"github.com/dmitrijs2005/jazzyauth/internal/dbx"
	"github.com/dmitrijs2005/jazzyauth/internal/server/models"
)

const productColumns = `id, title, price, description, brand, model, color, category, image,
		discount_percentage, stock_quantity, rating_rate, rating_count, availability_status`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*models.Product, error) {
	p := &models.Product{}
	err := row.Scan(&p.ID, &p.Title, &p.Price, &p.Description, &p.Brand, &p.Model, &p.Color,
		&p.Category, &p.Image, &p.DiscountPercentage, &p.StockQuantity, &p.RatingRate,
		&p.RatingCount, &p.AvailabilityStatus)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PostgresRepository) Create(ctx context.Context, p *models.Product) (*models.Product, error) {
	query := `
		INSERT INTO products (title, price, description, brand, model, color, category, image,
			discount_percentage, stock_quantity, rating_rate, rating_count, availability_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		p.Title, p.Price, p.Description, p.Brand, p.Model, p.Color, p.Category, p.Image,
		p.DiscountPercentage, p.StockQuantity, p.RatingRate, p.RatingCount, p.AvailabilityStatus).
		Scan(&p.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	p, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) Update(ctx context.Context, p *models.Product) error {
	query := `
		UPDATE products SET title = $2, price = $3, description = $4, brand = $5, model = $6,
			color = $7, category = $8, image = $9, discount_percentage = $10, stock_quantity = $11,
			rating_rate = $12, rating_count = $13, availability_status = $14
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, p.ID,
		p.Title, p.Price, p.Description, p.Brand, p.Model, p.Color, p.Category, p.Image,
		p.DiscountPercentage, p.StockQuantity, p.RatingRate, p.RatingCount, p.AvailabilityStatus)
	return affectedOne(res, err)
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM products WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	return affectedOne(res, err)
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY id`
	return r.query(ctx, query)
}

func (r *PostgresRepository) Categories(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT category FROM products ORDER BY category`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]string, 0)
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) ByCategory(ctx context.Context, category string) ([]*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE category = $1 ORDER BY id`
	return r.query(ctx, query, category)
}

func (r *PostgresRepository) Limit(ctx context.Context, n int) ([]*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY id LIMIT $1`
	return r.query(ctx, query, n)
}

func (r *PostgresRepository) Sorted(ctx context.Context, column string, desc bool) ([]*models.Product, error) {
	if _, ok := SortableColumns[column]; !ok {
		return nil, fmt.Errorf("sort by %q: %w", column, common.ErrorValidation)
	}
	direction := "ASC"
	if desc {
		direction = "DESC"
	}
	// column is from SortableColumns, never raw input.
	query := `SELECT ` + productColumns + ` FROM products ORDER BY ` + column + ` ` + direction + `, id`
	return r.query(ctx, query)
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]*models.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func affectedOne(res sql.Result, err error) error {
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
