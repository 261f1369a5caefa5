package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-api/internal/models"
)

// ProductRepository handles persistence of products.
type ProductRepository struct {
	db *sqlx.DB
}

// NewProductRepository constructs the repository.
func NewProductRepository(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// List returns all products.
func (r *ProductRepository) List(ctx context.Context) ([]models.Product, error) {
	const query = `SELECT id, name, description, price, owner_id, created_at, updated_at
        FROM products ORDER BY created_at DESC`
	var products []models.Product
	if err := r.db.SelectContext(ctx, &products, query); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// FindByID returns a product by its ID.
func (r *ProductRepository) FindByID(ctx context.Context, id int64) (*models.Product, error) {
	const query = `SELECT id, name, description, price, owner_id, created_at, updated_at
        FROM products WHERE id = $1`
	var product models.Product
	if err := r.db.GetContext(ctx, &product, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find product by id: %w", err)
	}
	return &product, nil
}

// Create inserts a new product and fills in the generated ID.
func (r *ProductRepository) Create(ctx context.Context, product *models.Product) error {
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now

	const query = `INSERT INTO products (name, description, price, owner_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query,
		product.Name, product.Description, product.Price, product.OwnerID,
		product.CreatedAt, product.UpdatedAt,
	).Scan(&product.ID); err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

// Update persists the mutable fields of a product.
func (r *ProductRepository) Update(ctx context.Context, product *models.Product) error {
	product.UpdatedAt = time.Now().UTC()
	const query = `UPDATE products SET name = :name, description = :description, price = :price,
        updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, product); err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

// Delete removes a product row.
func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM products WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}
