package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/ecom-api/internal/models"
	appErrors "github.com/noah-isme/ecom-api/pkg/errors"
	"github.com/noah-isme/ecom-api/pkg/export"
)

type productRepository interface {
	Create(ctx context.Context, product *models.Product) error
	List(ctx context.Context) ([]models.Product, error)
	FindByID(ctx context.Context, id string) (*models.Product, error)
}

// ProductService handles catalog reads and writes.
type ProductService struct {
	repo      productRepository
	validator *validator.Validate
	logger    *zap.Logger
	exporter  *export.CSVExporter
}

// NewProductService creates an instance of ProductService.
func NewProductService(repo productRepository, validate *validator.Validate, logger *zap.Logger) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ProductService{repo: repo, validator: validate, logger: logger, exporter: export.NewCSVExporter()}
}

// Create adds a catalog item.
func (s *ProductService) Create(ctx context.Context, req models.CreateProductRequest) (*models.Product, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid product payload")
	}

	product := &models.Product{
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Inventory:   req.Inventory,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create product")
	}
	return product, nil
}

// List returns the full catalog.
func (s *ProductService) List(ctx context.Context) ([]models.Product, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list products")
	}
	return products, nil
}

// Get returns a product by ID.
func (s *ProductService) Get(ctx context.Context, id string) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "product not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load product")
	}
	return product, nil
}

// ExportCSV renders the catalog as CSV for back-office tooling.
func (s *ProductService) ExportCSV(ctx context.Context) ([]byte, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list products")
	}

	dataset := export.Dataset{
		Headers: []string{"id", "name", "price_cents", "inventory"},
	}
	for _, p := range products {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"id":          p.ID,
			"name":        p.Name,
			"price_cents": fmt.Sprintf("%d", p.PriceCents),
			"inventory":   fmt.Sprintf("%d", p.Inventory),
		})
	}

	payload, err := s.exporter.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export catalog")
	}
	return payload, nil
}
