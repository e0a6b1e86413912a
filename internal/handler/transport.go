package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ecom-api/internal/models"
	"github.com/noah-isme/ecom-api/internal/service"
)

const (
	// refreshCookieName is fixed by the API contract.
	refreshCookieName = "refresh_token"
	// refreshCookiePath scopes the cookie to the auth endpoints so it is
	// not replayed on every catalog request.
	refreshCookiePath = "/users"
	// useCookieHeader is the login-time signal opting into cookie
	// delivery instead of a bearer-style body response.
	useCookieHeader = "X-Use-Cookie"
)

// credentialTransport concentrates every decision about how the refresh
// credential travels: request body versus HttpOnly cookie. Whichever
// channel supplied a credential is the channel used to answer, and the
// cookie attribute logic lives only here.
type credentialTransport struct {
	cookieMaxAge int
}

func newCredentialTransport(cookieMaxAge int) *credentialTransport {
	return &credentialTransport{cookieMaxAge: cookieMaxAge}
}

// wantsCookie reports whether the login request asked for cookie delivery.
func (t *credentialTransport) wantsCookie(c *gin.Context) bool {
	return c.GetHeader(useCookieHeader) == "1"
}

// extract returns the presented credential, preferring the body and
// falling back to the refresh cookie, plus which channel supplied it.
func (t *credentialTransport) extract(c *gin.Context, bodyToken string) (token string, fromCookie bool) {
	if bodyToken != "" {
		return bodyToken, false
	}
	if cookie, err := c.Cookie(refreshCookieName); err == nil && cookie != "" {
		return cookie, true
	}
	return "", false
}

// deliver sends an issued pair on the requested channel. Cookie mode
// keeps the refresh credential out of the body entirely.
func (t *credentialTransport) deliver(c *gin.Context, pair *service.IssuedPair, viaCookie bool) models.TokenPair {
	resp := models.TokenPair{
		AccessToken: pair.AccessToken,
		TokenType:   "bearer",
		ExpiresIn:   int64(pair.AccessTokenExpiry.Seconds()),
	}
	if viaCookie {
		t.setCookie(c, pair.ClientCredential)
	} else {
		resp.RefreshToken = pair.ClientCredential
	}
	return resp
}

func (t *credentialTransport) setCookie(c *gin.Context, credential string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(refreshCookieName, credential, t.cookieMaxAge, refreshCookiePath, "", requestIsSecure(c), true)
}

// clear expires the refresh cookie on the client.
func (t *credentialTransport) clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(refreshCookieName, "", -1, refreshCookiePath, "", requestIsSecure(c), true)
}

// requestIsSecure reports whether the request arrived over an encrypted
// transport, directly or through a TLS-terminating proxy.
func requestIsSecure(c *gin.Context) bool {
	if c.Request.TLS != nil {
		return true
	}
	return strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https")
}
