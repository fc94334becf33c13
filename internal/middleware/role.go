package middleware

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movietix/internal/model"
)

// RequireRole aborts with 403 unless the principal set by JWTAuth holds one
// of roles.  A request that reached it without a principal gets 401.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := Principal(c)
			if !ok {
				return fmt.Errorf("%w: authentication required", model.ErrUnauthorized)
			}
			if !allowed[p.Role] {
				return fmt.Errorf("%w: role %s may not access this resource", model.ErrForbidden, p.Role)
			}
			return next(c)
		}
	}
}
