package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Ecom API",
        "description": "Storefront API with token-based authentication",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login, refresh and logout"},
        {"name": "Users", "description": "Account registration and profile"},
        {"name": "Products", "description": "Catalog browsing and management"},
        {"name": "Orders", "description": "Order placement and receipts"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/users/register": {
            "post": {
                "tags": ["Users"],
                "summary": "Register a new account",
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Validation failed or email taken"}
                }
            }
        },
        "/users/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate and issue a token pair",
                "description": "Send X-Use-Cookie: 1 to receive the refresh credential as an HttpOnly cookie instead of in the body.",
                "responses": {
                    "200": {"description": "Token pair issued"},
                    "401": {"description": "Invalid credentials"},
                    "429": {"description": "Rate limited"}
                }
            }
        },
        "/users/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Rotate a refresh credential",
                "responses": {
                    "200": {"description": "New token pair issued"},
                    "400": {"description": "Missing or malformed credential"},
                    "401": {"description": "Invalid, expired or revoked credential"},
                    "429": {"description": "Rate limited"}
                }
            }
        },
        "/users/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Revoke a refresh credential",
                "responses": {
                    "200": {"description": "Revocation result"},
                    "400": {"description": "Missing credential"}
                }
            }
        },
        "/users/me": {
            "get": {
                "tags": ["Users"],
                "summary": "Current user info",
                "responses": {
                    "200": {"description": "User info"},
                    "401": {"description": "Unauthorized"}
                }
            }
        },
        "/products": {
            "get": {
                "tags": ["Products"],
                "summary": "List catalog",
                "responses": {
                    "200": {"description": "Products"}
                }
            },
            "post": {
                "tags": ["Products"],
                "summary": "Create product",
                "responses": {
                    "201": {"description": "Created"},
                    "401": {"description": "Unauthorized"}
                }
            }
        },
        "/products/{id}": {
            "get": {
                "tags": ["Products"],
                "summary": "Get product",
                "responses": {
                    "200": {"description": "Product"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/products/export": {
            "get": {
                "tags": ["Products"],
                "summary": "Export catalog CSV",
                "responses": {
                    "200": {"description": "CSV payload"},
                    "401": {"description": "Unauthorized"}
                }
            }
        },
        "/orders": {
            "post": {
                "tags": ["Orders"],
                "summary": "Place order",
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Insufficient inventory"},
                    "401": {"description": "Unauthorized"}
                }
            }
        },
        "/orders/{id}": {
            "get": {
                "tags": ["Orders"],
                "summary": "Get order",
                "responses": {
                    "200": {"description": "Order"},
                    "401": {"description": "Unauthorized"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/orders/{id}/receipt": {
            "get": {
                "tags": ["Orders"],
                "summary": "Download receipt PDF",
                "responses": {
                    "200": {"description": "PDF payload"},
                    "401": {"description": "Unauthorized"},
                    "404": {"description": "Not found"}
                }
            }
        }
    },
    "definitions": {
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
