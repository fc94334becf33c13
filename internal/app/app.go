// Package app assembles storage, services and the HTTP server and runs them
// until the process is asked to stop.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/movietix/internal/config"
	"github.com/iliyamo/movietix/internal/database"
	"github.com/iliyamo/movietix/internal/handler"
	"github.com/iliyamo/movietix/internal/queue"
	"github.com/iliyamo/movietix/internal/repository"
	"github.com/iliyamo/movietix/internal/repository/memory"
	"github.com/iliyamo/movietix/internal/router"
	"github.com/iliyamo/movietix/internal/service"
)

// auditLogPath is where the in-process audit consumer appends events.
const auditLogPath = "logs/booking.log"

// Stores bundles one implementation of every persistence port.
type Stores struct {
	Movies    service.MovieStore
	Theaters  service.TheaterStore
	Showtimes service.ShowtimeStore
	Ledger    service.BookingLedger
	Users     service.UserStore
	Tokens    service.TokenStore
}

// MemoryStores backs every port with one in-process store.
func MemoryStores() Stores {
	s := memory.New()
	return Stores{Movies: s, Theaters: s, Showtimes: s, Ledger: s, Users: s, Tokens: s}
}

// MySQLStores backs every port with the MySQL repositories.
func MySQLStores(db *sql.DB) Stores {
	return Stores{
		Movies:    repository.NewMovieRepo(db),
		Theaters:  repository.NewTheaterRepo(db),
		Showtimes: repository.NewShowtimeRepo(db),
		Ledger:    repository.NewBookingRepo(db),
		Users:     repository.NewUserRepo(db),
		Tokens:    repository.NewTokenRepo(db),
	}
}

// Services are the application services built over Stores.
type Services struct {
	Auth      *service.AuthService
	Movies    *service.MovieService
	Theaters  *service.TheaterService
	Showtimes *service.ShowtimeService
	Admission *service.AdmissionService
	Bookings  *service.BookingService
	Events    *service.EventEmitter
}

// NewServices wires the services.  Admission and showtime updates share
// one keyed lock so capacity is checked and changed one writer at a time
// per showtime.
func NewServices(st Stores, pub service.EventPublisher, auth service.AuthSettings, log *zap.Logger) Services {
	events := service.NewEventEmitter(pub, log)
	locks := service.NewKeyedMutex()
	return Services{
		Auth:      service.NewAuthService(st.Users, st.Tokens, auth, log),
		Movies:    service.NewMovieService(st.Movies),
		Theaters:  service.NewTheaterService(st.Theaters),
		Showtimes: service.NewShowtimeService(st.Showtimes, st.Movies, st.Theaters, st.Ledger, locks, log),
		Admission: service.NewAdmissionService(st.Showtimes, st.Ledger, locks, events, log),
		Bookings:  service.NewBookingService(st.Ledger, st.Showtimes, st.Movies, st.Theaters, events, log),
		Events:    events,
	}
}

// NewHandlers builds the HTTP handlers of svc.
func NewHandlers(svc Services, health *handler.HealthHandler) router.Handlers {
	return router.Handlers{
		Auth:      handler.NewAuthHandler(svc.Auth),
		Catalog:   handler.NewCatalogHandler(svc.Movies, svc.Theaters),
		Showtimes: handler.NewShowtimeHandler(svc.Showtimes),
		Bookings:  handler.NewBookingHandler(svc.Admission, svc.Bookings),
		Health:    health,
	}
}

type closer struct {
	name string
	fn   func(context.Context) error
}

// App owns every long-lived resource of the server.
type App struct {
	cfg     config.Config
	log     *zap.Logger
	echo    *echo.Echo
	svc     Services
	audit   *queue.AuditConsumer
	closers []closer
}

// New connects to the configured backends and builds the HTTP server.
// Redis and RabbitMQ are optional: without them the server runs with no
// rate limiting or caching and discards booking events.
func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	a := &App{cfg: cfg, log: log}
	checks := map[string]handler.Check{}

	var stores Stores
	switch cfg.Storage {
	case config.StorageMemory:
		stores = MemoryStores()
		log.Warn("using in-memory storage; data is lost on restart")
	default:
		db, err := database.Open(ctx, database.Settings{
			User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
		})
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		a.onClose("mysql", func(context.Context) error { return db.Close() })
		if cfg.AutoMigrate {
			if err := database.Migrate(ctx, db); err != nil {
				a.close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
			log.Info("database migrated")
		}
		stores = MySQLStores(db)
		checks["mysql"] = db.PingContext
		log.Info("database connected", zap.String("host", cfg.DBHost), zap.String("database", cfg.DBName))
	}

	rdb := config.NewRedisClient(ctx, config.LoadRedisConfig())
	if rdb != nil {
		a.onClose("redis", func(context.Context) error { return rdb.Close() })
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		log.Info("redis connected")
	} else {
		log.Warn("redis unavailable; rate limiting and response cache disabled")
	}

	var pub service.EventPublisher = queue.NopPublisher{}
	if cfg.AMQPURL != "" {
		p := queue.NewPublisher(cfg.AMQPURL, log)
		a.onClose("rabbitmq publisher", func(context.Context) error { return p.Close() })
		pub = p
		if cfg.AuditConsumer {
			sink, err := openAuditLog(auditLogPath)
			if err != nil {
				a.close()
				return nil, err
			}
			a.onClose("audit log", func(context.Context) error { return sink.Close() })
			a.audit = queue.NewAuditConsumer(cfg.AMQPURL, sink, log)
		}
	} else {
		log.Warn("RABBITMQ_URL not set; booking events are discarded")
	}

	a.svc = NewServices(stores, pub, service.AuthSettings{
		JWTSecret:  cfg.JWTSecret,
		AccessTTL:  cfg.AccessTTL(),
		RefreshTTL: cfg.RefreshTTL(),
		BcryptCost: cfg.BcryptCost,
	}, log)
	// In-flight event publishes finish before the publisher closes.
	a.onClose("booking events", func(ctx context.Context) error { return waitCtx(ctx, a.svc.Events.Wait) })

	a.echo = router.New(NewHandlers(a.svc, handler.NewHealthHandler(checks)), router.Options{
		JWTSecret: cfg.JWTSecret,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
		Redis:     rdb,
		Log:       log,
	})
	return a, nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() http.Handler { return a.echo }

// Run serves HTTP until ctx is cancelled or the server fails, then shuts
// everything down in reverse order of creation.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	if a.audit != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.audit.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.log.Error("audit consumer stopped", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + a.cfg.Port
		a.log.Info("http server starting", zap.String("addr", addr), zap.String("env", a.cfg.Env))
		if err := a.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
	case runErr = <-errCh:
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	if err := a.echo.Shutdown(shutdownCtx); err != nil {
		a.log.Error("http shutdown", zap.Error(err))
	}
	stop()
	cancel()
	wg.Wait()
	a.close()
	return runErr
}

func (a *App) onClose(name string, fn func(context.Context) error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// close runs the closers last-in first-out, each with its own timeout.
func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		start := time.Now()
		err := c.fn(ctx)
		cancel()
		if err != nil {
			a.log.Error("shutdown step failed", zap.String("name", c.name), zap.Error(err))
			continue
		}
		a.log.Info("shutdown step done", zap.String("name", c.name), zap.Duration("took", time.Since(start)))
	}
	a.closers = nil
}

func waitCtx(ctx context.Context, wait func()) error {
	done := make(chan struct{})
	go func() {
		wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func openAuditLog(path string) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create audit log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return f, nil
}
