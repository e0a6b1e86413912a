package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ecom-api/internal/models"
)

// ErrInsufficientInventory signals an order line asking for more units
// than the product has in stock.
var ErrInsufficientInventory = errors.New("insufficient inventory")

// ErrProductMissing signals an order line referencing an unknown product.
var ErrProductMissing = errors.New("product not found")

// OrderRepository provides database access for orders.
type OrderRepository struct {
	db *sqlx.DB
}

// NewOrderRepository creates a new instance of OrderRepository.
func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create places an order inside one transaction: every inventory
// decrement is conditional on sufficient stock, so a concurrent order
// for the final units loses cleanly instead of driving stock negative.
func (r *OrderRepository) Create(ctx context.Context, userID string, items []models.CreateOrderItem) (*models.Order, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin order tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	order := &models.Order{
		ID:        uuid.NewString(),
		UserID:    userID,
		Status:    models.OrderStatusPaid,
		CreatedAt: time.Now().UTC(),
	}

	for _, item := range items {
		var product struct {
			Name       string `db:"name"`
			PriceCents int64  `db:"price_cents"`
		}
		if err := tx.GetContext(ctx, &product, `SELECT name, price_cents FROM products WHERE id = $1`, item.ProductID); err != nil {
			if err == sql.ErrNoRows {
				return nil, fmt.Errorf("%w: %s", ErrProductMissing, item.ProductID)
			}
			return nil, fmt.Errorf("load product %s: %w", item.ProductID, err)
		}

		res, err := tx.ExecContext(ctx, `UPDATE products SET inventory = inventory - $2, updated_at = $3 WHERE id = $1 AND inventory >= $2`, item.ProductID, item.Quantity, time.Now().UTC())
		if err != nil {
			return nil, fmt.Errorf("decrement inventory for %s: %w", item.ProductID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("decrement inventory result: %w", err)
		}
		if affected == 0 {
			return nil, fmt.Errorf("%w: %s", ErrInsufficientInventory, item.ProductID)
		}

		orderItem := models.OrderItem{
			ID:             uuid.NewString(),
			OrderID:        order.ID,
			ProductID:      item.ProductID,
			ProductName:    product.Name,
			Quantity:       item.Quantity,
			UnitPriceCents: product.PriceCents,
		}
		order.Items = append(order.Items, orderItem)
		order.TotalCents += product.PriceCents * int64(item.Quantity)
	}

	if _, err := tx.NamedExecContext(ctx, `INSERT INTO orders (id, user_id, status, total_cents, created_at) VALUES (:id, :user_id, :status, :total_cents, :created_at)`, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	for i := range order.Items {
		if _, err := tx.NamedExecContext(ctx, `INSERT INTO order_items (id, order_id, product_id, product_name, quantity, unit_price_cents) VALUES (:id, :order_id, :product_id, :product_name, :quantity, :unit_price_cents)`, &order.Items[i]); err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit order tx: %w", err)
	}
	return order, nil
}

// FindByID returns an order with its items.
func (r *OrderRepository) FindByID(ctx context.Context, id string) (*models.Order, error) {
	const query = `SELECT id, user_id, status, total_cents, created_at FROM orders WHERE id = $1 LIMIT 1`
	var order models.Order
	if err := r.db.GetContext(ctx, &order, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find order by id: %w", err)
	}

	const itemsQuery = `SELECT id, order_id, product_id, product_name, quantity, unit_price_cents FROM order_items WHERE order_id = $1`
	if err := r.db.SelectContext(ctx, &order.Items, itemsQuery, id); err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	return &order, nil
}
