package models

import "time"

// OrderStatus is the order lifecycle state.
type OrderStatus string

const (
	OrderStatusPending OrderStatus = "pending"
	OrderStatusPaid    OrderStatus = "paid"
)

// Order groups purchased items for one user.
type Order struct {
	ID         string      `db:"id" json:"id"`
	UserID     string      `db:"user_id" json:"user_id"`
	Status     OrderStatus `db:"status" json:"status"`
	TotalCents int64       `db:"total_cents" json:"total_cents"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
	Items      []OrderItem `db:"-" json:"items,omitempty"`
}

// OrderItem is one product line within an order. The unit price is
// captured at purchase time so later catalog edits do not rewrite
// history.
type OrderItem struct {
	ID             string `db:"id" json:"id"`
	OrderID        string `db:"order_id" json:"order_id"`
	ProductID      string `db:"product_id" json:"product_id"`
	ProductName    string `db:"product_name" json:"product_name"`
	Quantity       int    `db:"quantity" json:"quantity"`
	UnitPriceCents int64  `db:"unit_price_cents" json:"unit_price_cents"`
}

// CreateOrderItem selects a product and quantity for purchase.
type CreateOrderItem struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// CreateOrderRequest is the payload for placing an order.
type CreateOrderRequest struct {
	Items []CreateOrderItem `json:"items" validate:"required,min=1,dive"`
}
