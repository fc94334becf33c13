package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movietix/internal/handler"
	"github.com/iliyamo/movietix/internal/middleware"
)

// RegisterCustomer registers booking endpoints for any signed-in user.
// Admission gets its own tighter rate limit; writes purge the response
// cache so listed availability catches up.
func RegisterCustomer(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, bookingLimit, purge echo.MiddlewareFunc) {
	g := e.Group("/api/bookings", middleware.JWTAuth(jwtSecret))
	g.POST("", h.Create, bookingLimit, purge)
	g.GET("/my-bookings", h.Mine)
	g.GET("/:id", h.Get)
	g.DELETE("/:id", h.Cancel, purge)
}
