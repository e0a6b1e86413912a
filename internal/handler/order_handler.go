package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ecom-api/internal/middleware"
	"github.com/noah-isme/ecom-api/internal/models"
	"github.com/noah-isme/ecom-api/internal/service"
	appErrors "github.com/noah-isme/ecom-api/pkg/errors"
	"github.com/noah-isme/ecom-api/pkg/response"
)

// OrderHandler exposes order placement and lookup for authenticated
// users.
type OrderHandler struct {
	service *service.OrderService
}

// NewOrderHandler creates a new handler.
func NewOrderHandler(svc *service.OrderService) *OrderHandler {
	return &OrderHandler{service: svc}
}

func currentClaims(c *gin.Context) (*models.JWTClaims, bool) {
	claims, ok := c.Get(middleware.ContextUserKey)
	if !ok {
		return nil, false
	}
	jwtClaims, ok := claims.(*models.JWTClaims)
	return jwtClaims, ok
}

// Create godoc
// @Summary Place order
// @Tags Orders
// @Accept json
// @Produce json
// @Param payload body models.CreateOrderRequest true "Order payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /orders [post]
func (h *OrderHandler) Create(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid order payload"))
		return
	}

	order, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, order)
}

// Get godoc
// @Summary Get order
// @Tags Orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /orders/{id} [get]
func (h *OrderHandler) Get(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	order, err := h.service.Get(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, order)
}

// Receipt godoc
// @Summary Download order receipt PDF
// @Tags Orders
// @Produce application/pdf
// @Param id path string true "Order ID"
// @Success 200 {string} string "PDF payload"
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /orders/{id}/receipt [get]
func (h *OrderHandler) Receipt(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	payload, err := h.service.Receipt(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="receipt.pdf"`)
	c.Data(http.StatusOK, "application/pdf", payload)
}
