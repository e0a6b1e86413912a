package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ecom-api/internal/models"
)

// ProductRepository provides database access for the catalog.
type ProductRepository struct {
	db *sqlx.DB
}

// NewProductRepository creates a new instance of ProductRepository.
func NewProductRepository(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create inserts a new product.
func (r *ProductRepository) Create(ctx context.Context, product *models.Product) error {
	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now

	const query = `INSERT INTO products (id, name, description, price_cents, inventory, created_at, updated_at) VALUES (:id, :name, :description, :price_cents, :inventory, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, product); err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

// List returns all products ordered by creation time.
func (r *ProductRepository) List(ctx context.Context) ([]models.Product, error) {
	const query = `SELECT id, name, description, price_cents, inventory, created_at, updated_at FROM products ORDER BY created_at DESC`
	var products []models.Product
	if err := r.db.SelectContext(ctx, &products, query); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// FindByID returns a product by identifier.
func (r *ProductRepository) FindByID(ctx context.Context, id string) (*models.Product, error) {
	const query = `SELECT id, name, description, price_cents, inventory, created_at, updated_at FROM products WHERE id = $1 LIMIT 1`
	var product models.Product
	if err := r.db.GetContext(ctx, &product, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find product by id: %w", err)
	}
	return &product, nil
}
