package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movietix/internal/middleware"
	"github.com/iliyamo/movietix/internal/model"
)

// RegisterAdmin registers ADMIN-only management endpoints under
// /api/admin.  Successful writes purge the response cache.
func RegisterAdmin(e *echo.Echo, h Handlers, jwtSecret string, purge echo.MiddlewareFunc) {
	g := e.Group(
		"/api/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
		purge,
	)

	g.POST("/users/:id/make-admin", h.Auth.MakeAdmin)

	g.GET("/movies", h.Catalog.ListMovies)
	g.POST("/movies", h.Catalog.CreateMovie)
	g.GET("/movies/:id", h.Catalog.GetMovie)
	g.PUT("/movies/:id", h.Catalog.UpdateMovie)
	g.DELETE("/movies/:id", h.Catalog.DeleteMovie)

	g.GET("/theaters", h.Catalog.ListTheaters)
	g.POST("/theaters", h.Catalog.CreateTheater)
	g.GET("/theaters/:id", h.Catalog.GetTheater)
	g.PUT("/theaters/:id", h.Catalog.UpdateTheater)
	g.DELETE("/theaters/:id", h.Catalog.DeleteTheater)

	g.GET("/showtimes", h.Showtimes.List)
	g.POST("/showtimes", h.Showtimes.Create)
	g.PUT("/showtimes/:id", h.Showtimes.Update)
	g.DELETE("/showtimes/:id", h.Showtimes.Delete)

	g.GET("/bookings", h.Bookings.ListAll)
	g.GET("/bookings/user/:userId", h.Bookings.ByUser)
	g.PUT("/bookings/:id/status", h.Bookings.UpdateStatus)
	g.DELETE("/bookings/:id", h.Bookings.Delete)
}
