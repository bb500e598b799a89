package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/iflyair/ifly-backend/internal/api/middleware"
	"github.com/iflyair/ifly-backend/internal/core/domain"
)

// principalOf extracts the principal injected by the Auth middleware.
// nil means the request is anonymous; the policy layer decides whether that
// is acceptable for the attempted action.
func principalOf(c echo.Context) *domain.Principal {
	p, _ := c.Get(middleware.PrincipalKey).(*domain.Principal)
	return p
}
