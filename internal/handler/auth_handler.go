package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ecom-api/internal/models"
	"github.com/noah-isme/ecom-api/internal/service"
	appErrors "github.com/noah-isme/ecom-api/pkg/errors"
	"github.com/noah-isme/ecom-api/pkg/response"
)

// AuthHandler wires the login/refresh/logout endpoints to the auth
// service, delegating channel selection to the credential transport.
type AuthHandler struct {
	service   *service.AuthService
	metrics   *service.MetricsService
	transport *credentialTransport
}

// NewAuthHandler creates a new handler. refreshTTL bounds the refresh
// cookie lifetime to the credential's own expiry.
func NewAuthHandler(svc *service.AuthService, metrics *service.MetricsService, refreshTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		service:   svc,
		metrics:   metrics,
		transport: newCredentialTransport(int(refreshTTL.Seconds())),
	}
}

// Login godoc
// @Summary Authenticate user
// @Description Authenticate by email and password; set X-Use-Cookie: 1 for cookie delivery
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /users/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	pair, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	body := h.transport.deliver(c, pair, h.transport.wantsCookie(c))
	response.JSON(c, http.StatusOK, body)
}

// Refresh godoc
// @Summary Rotate refresh credential
// @Description Exchange a refresh credential, from body or cookie, for a new pair
// @Tags Authentication
// @Accept json
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /users/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req models.RefreshRequest
	// The body is optional: cookie-mode clients send no JSON at all.
	_ = c.ShouldBindJSON(&req)

	token, fromCookie := h.transport.extract(c, req.RefreshToken)
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrMalformedCredential, "missing refresh token"))
		return
	}

	req.RefreshToken = token
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	pair, err := h.service.Refresh(c.Request.Context(), req)
	if err != nil {
		h.metrics.RecordRotation("rejected")
		response.Error(c, err)
		return
	}
	h.metrics.RecordRotation("success")

	body := h.transport.deliver(c, pair, fromCookie)
	response.JSON(c, http.StatusOK, body)
}

// Logout godoc
// @Summary Revoke refresh credential
// @Description Revoke the presented credential; clears the refresh cookie when one was used
// @Tags Authentication
// @Accept json
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /users/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	var req models.LogoutRequest
	_ = c.ShouldBindJSON(&req)

	token, fromCookie := h.transport.extract(c, req.RefreshToken)
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrMalformedCredential, "missing refresh token"))
		return
	}

	revoked, err := h.service.Logout(c.Request.Context(), token)
	if fromCookie {
		// Cleared even when no record matched.
		h.transport.clear(c)
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, models.LogoutResponse{Revoked: revoked})
}
