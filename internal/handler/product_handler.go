package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ecom-api/internal/models"
	"github.com/noah-isme/ecom-api/internal/service"
	appErrors "github.com/noah-isme/ecom-api/pkg/errors"
	"github.com/noah-isme/ecom-api/pkg/response"
)

// ProductHandler exposes catalog endpoints.
type ProductHandler struct {
	service *service.ProductService
}

// NewProductHandler creates a new handler.
func NewProductHandler(svc *service.ProductService) *ProductHandler {
	return &ProductHandler{service: svc}
}

// Create godoc
// @Summary Create product
// @Tags Products
// @Accept json
// @Produce json
// @Param payload body models.CreateProductRequest true "Product payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /products [post]
func (h *ProductHandler) Create(c *gin.Context) {
	var req models.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid product payload"))
		return
	}

	product, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, product)
}

// List godoc
// @Summary List products
// @Tags Products
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /products [get]
func (h *ProductHandler) List(c *gin.Context) {
	products, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, products)
}

// Get godoc
// @Summary Get product
// @Tags Products
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /products/{id} [get]
func (h *ProductHandler) Get(c *gin.Context) {
	product, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, product)
}

// Export godoc
// @Summary Export catalog as CSV
// @Tags Products
// @Produce text/csv
// @Success 200 {string} string "CSV payload"
// @Failure 401 {object} response.Envelope
// @Router /products/export [get]
func (h *ProductHandler) Export(c *gin.Context) {
	payload, err := h.service.ExportCSV(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="products.csv"`)
	c.Data(http.StatusOK, "text/csv", payload)
}
