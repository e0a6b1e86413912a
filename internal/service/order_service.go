package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/ecom-api/internal/models"
	"github.com/noah-isme/ecom-api/internal/repository"
	appErrors "github.com/noah-isme/ecom-api/pkg/errors"
	"github.com/noah-isme/ecom-api/pkg/export"
)

type orderRepository interface {
	Create(ctx context.Context, userID string, items []models.CreateOrderItem) (*models.Order, error)
	FindByID(ctx context.Context, id string) (*models.Order, error)
}

type orderUserLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// OrderService places orders on behalf of authenticated users. It
// consumes the user identity resolved by the auth core and otherwise
// performs ordinary catalog plumbing.
type OrderService struct {
	repo      orderRepository
	users     orderUserLookup
	validator *validator.Validate
	logger    *zap.Logger
	receipts  *export.ReceiptRenderer
}

// NewOrderService creates an instance of OrderService.
func NewOrderService(repo orderRepository, users orderUserLookup, validate *validator.Validate, logger *zap.Logger) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &OrderService{repo: repo, users: users, validator: validate, logger: logger, receipts: export.NewReceiptRenderer()}
}

// Create places an order for the given user.
func (s *OrderService) Create(ctx context.Context, userID string, req models.CreateOrderRequest) (*models.Order, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid order payload")
	}

	order, err := s.repo.Create(ctx, userID, req.Items)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrProductMissing):
			return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "product not found")
		case errors.Is(err, repository.ErrInsufficientInventory):
			return nil, appErrors.Wrap(err, appErrors.ErrInsufficientStock.Code, appErrors.ErrInsufficientStock.Status, appErrors.ErrInsufficientStock.Message)
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to place order")
		}
	}

	s.logger.Info("order placed", zap.String("order_id", order.ID), zap.String("user_id", userID), zap.Int64("total_cents", order.TotalCents))
	return order, nil
}

// Get returns an order by ID, restricted to its owner.
func (s *OrderService) Get(ctx context.Context, id, requesterID string) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "order not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load order")
	}
	if order.UserID != requesterID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "order belongs to another user")
	}
	return order, nil
}

// Receipt renders a PDF receipt for an order owned by the requester.
func (s *OrderService) Receipt(ctx context.Context, id, requesterID string) ([]byte, error) {
	order, err := s.Get(ctx, id, requesterID)
	if err != nil {
		return nil, err
	}

	buyer, err := s.users.FindByID(ctx, order.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load buyer")
	}

	receipt := export.Receipt{
		OrderID:    order.ID,
		BuyerEmail: buyer.Email,
		PlacedAt:   order.CreatedAt,
		TotalCents: order.TotalCents,
	}
	for _, item := range order.Items {
		receipt.Lines = append(receipt.Lines, export.ReceiptLine{
			Name:       item.ProductName,
			Quantity:   item.Quantity,
			UnitCents:  item.UnitPriceCents,
			TotalCents: item.UnitPriceCents * int64(item.Quantity),
		})
	}

	payload, err := s.receipts.Render(receipt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render receipt")
	}
	return payload, nil
}
