package router // router registers every HTTP route of the API

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/movietix/internal/config"
	"github.com/iliyamo/movietix/internal/handler"
	"github.com/iliyamo/movietix/internal/middleware"
)

// Handlers groups the HTTP handlers mounted by New.
type Handlers struct {
	Auth      *handler.AuthHandler
	Catalog   *handler.CatalogHandler
	Showtimes *handler.ShowtimeHandler
	Bookings  *handler.BookingHandler
	Health    *handler.HealthHandler
}

// Options carries the cross-cutting settings of the HTTP stack.  A nil
// Redis client disables rate limiting and caching.
type Options struct {
	JWTSecret string
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Redis     *redis.Client
	Log       *zap.Logger
}

// New builds the echo instance with global middleware and every route.
func New(h Handlers, opt Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.HTTPErrorHandler(opt.Log)

	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.RecoverWithConfig(echomw.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			opt.Log.Error("panic recovered", zap.Error(err), zap.ByteString("stack", stack))
			return err
		},
	}))
	e.Use(middleware.RequestLogger(opt.Log))
	e.Use(echomw.BodyLimit("1M"))
	e.Use(middleware.NewTokenBucket(opt.RateLimit, opt.Redis, opt.Log))

	purge := middleware.PurgeCache(opt.Cache, opt.Redis, opt.Log)

	RegisterRoutes(e, h.Health)
	RegisterAuth(e, h.Auth, opt.JWTSecret)
	RegisterPublic(e, h.Catalog, h.Showtimes, middleware.NewRedisCache(opt.Cache, opt.Redis, opt.Log))
	RegisterCustomer(e, h.Bookings, opt.JWTSecret,
		middleware.NewTokenBucket(middleware.BookingBucket(opt.RateLimit), opt.Redis, opt.Log), purge)
	RegisterAdmin(e, h, opt.JWTSecret, purge)
	return e
}

// RegisterRoutes registers unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo, health *handler.HealthHandler) {
	e.GET("/healthz", health.Health)
}

// RegisterAuth registers session endpoints under /api/auth and the
// profile endpoint.  Logout accepts an optional bearer token so a caller
// can end every session at once.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/api/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout, middleware.OptionalJWTAuth(jwtSecret))

	e.GET("/api/users/me", a.Me, middleware.JWTAuth(jwtSecret))
}

// RegisterPublic registers the browse endpoints.  Catalog reads go through
// the response cache; availability is always computed live.
func RegisterPublic(e *echo.Echo, catalog *handler.CatalogHandler, st *handler.ShowtimeHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/api")
	g.GET("/movies", catalog.ListMovies, cache)
	g.GET("/movies/search", catalog.SearchMovies, cache)
	g.GET("/movies/:id", catalog.GetMovie, cache)

	g.GET("/theaters", catalog.ListTheaters, cache)
	g.GET("/theaters/:id", catalog.GetTheater, cache)

	g.GET("/showtimes", st.List, cache)
	g.GET("/showtimes/upcoming", st.Upcoming, cache)
	g.GET("/showtimes/movie/:movieId", st.ByMovie, cache)
	g.GET("/showtimes/theater/:theaterId", st.ByTheater, cache)
	g.GET("/showtimes/:id", st.Get, cache)
	g.GET("/showtimes/:id/availability", st.Availability)
}
