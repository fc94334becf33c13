package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/movietix/internal/config"
	"github.com/iliyamo/movietix/internal/handler"
	"github.com/iliyamo/movietix/internal/queue"
	"github.com/iliyamo/movietix/internal/router"
	"github.com/iliyamo/movietix/internal/service"
)

type server struct {
	t   *testing.T
	e   *echo.Echo
	svc Services
}

func newServer(t *testing.T) *server {
	t.Helper()
	log := zap.NewNop()
	svc := NewServices(MemoryStores(), queue.NopPublisher{}, service.AuthSettings{
		JWTSecret:  "e2e-secret",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
		BcryptCost: bcrypt.MinCost,
	}, log)
	e := router.New(NewHandlers(svc, handler.NewHealthHandler(nil)), router.Options{
		JWTSecret: "e2e-secret",
		RateLimit: config.RateLimitConfig{Enabled: false},
		Cache:     config.CacheConfig{Enabled: false},
		Log:       log,
	})
	t.Cleanup(svc.Events.Wait)
	return &server{t: t, e: e, svc: svc}
}

func (s *server) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type authBody struct {
	User struct {
		ID   uint64 `json:"id"`
		Role string `json:"role"`
	} `json:"user"`
	Access struct {
		Token string `json:"token"`
	} `json:"access"`
	Refresh struct {
		Token string `json:"token"`
	} `json:"refresh"`
}

func (s *server) register(email string) authBody {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "User " + email, "email": email, "password": "password123",
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[authBody](s.t, rec)
}

func (s *server) admin() string {
	s.t.Helper()
	a := s.register("admin@example.com")
	_, err := s.svc.Auth.Promote(context.Background(), a.User.ID)
	require.NoError(s.t, err)
	rec := s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "admin@example.com", "password": "password123"})
	require.Equal(s.t, http.StatusOK, rec.Code)
	return decode[authBody](s.t, rec).Access.Token
}

type idBody struct {
	ID uint64 `json:"id"`
}

// schedule creates a movie, a theater and a showtime through the admin API.
func (s *server) schedule(adminToken string, seats int, priceCents int64) uint64 {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/admin/movies", adminToken, map[string]any{
		"title": "Heat", "genre": "Crime", "duration_minutes": 170, "release_date": "1995-12-15",
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	movie := decode[idBody](s.t, rec)

	rec = s.do(http.MethodPost, "/api/admin/theaters", adminToken, map[string]any{
		"name": "Rialto", "location": "Downtown", "seating_capacity": 200,
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	theater := decode[idBody](s.t, rec)

	rec = s.do(http.MethodPost, "/api/admin/showtimes", adminToken, map[string]any{
		"movie_id": movie.ID, "theater_id": theater.ID,
		"starts_at":          time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339),
		"ticket_price_cents": priceCents, "total_seats": seats,
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[idBody](s.t, rec).ID
}

type bookingBody struct {
	ID              uint64 `json:"id"`
	Reference       string `json:"booking_reference"`
	SeatCount       int    `json:"seat_count"`
	TotalPriceCents int64  `json:"total_price_cents"`
	Status          string `json:"status"`
	MovieTitle      string `json:"movie_title"`
	TheaterName     string `json:"theater_name"`
}

func TestBookingFlow(t *testing.T) {
	s := newServer(t)
	adminToken := s.admin()
	showtimeID := s.schedule(adminToken, 10, 1250)
	alice := s.register("alice@example.com").Access.Token
	bob := s.register("bob@example.com").Access.Token

	rec := s.do(http.MethodPost, "/api/bookings", alice, map[string]any{"showtime_id": showtimeID, "seat_count": 4})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	b := decode[bookingBody](t, rec)
	assert.Regexp(t, `^BK-[0-9A-F]{8}$`, b.Reference)
	assert.Equal(t, int64(5000), b.TotalPriceCents)
	assert.Equal(t, "CONFIRMED", b.Status)
	assert.Equal(t, "Heat", b.MovieTitle)
	assert.Equal(t, "Rialto", b.TheaterName)

	avail := s.do(http.MethodGet, fmt.Sprintf("/api/showtimes/%d/availability", showtimeID), "", nil)
	require.Equal(t, http.StatusOK, avail.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"showtime_id":%d,"available_seats":6}`, showtimeID), avail.Body.String())

	rec = s.do(http.MethodPost, "/api/bookings", bob, map[string]any{"showtime_id": showtimeID, "seat_count": 7})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "capacity_exceeded")

	// Bookings of other users are invisible.
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, fmt.Sprintf("/api/bookings/%d", b.ID), bob, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, fmt.Sprintf("/api/bookings/%d", b.ID), bob, nil).Code)

	rec = s.do(http.MethodDelete, fmt.Sprintf("/api/bookings/%d", b.ID), alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "CANCELLED", decode[bookingBody](t, rec).Status)
	assert.Equal(t, http.StatusConflict, s.do(http.MethodDelete, fmt.Sprintf("/api/bookings/%d", b.ID), alice, nil).Code)

	rec = s.do(http.MethodPost, "/api/bookings", bob, map[string]any{"showtime_id": showtimeID, "seat_count": 10})
	assert.Equal(t, http.StatusCreated, rec.Code)

	mine := s.do(http.MethodGet, "/api/bookings/my-bookings", alice, nil)
	require.Equal(t, http.StatusOK, mine.Code)
	assert.Len(t, decode[[]bookingBody](t, mine), 1)
}

func TestBookingValidationAndAuth(t *testing.T) {
	s := newServer(t)
	showtimeID := s.schedule(s.admin(), 5, 100)
	tok := s.register("carol@example.com").Access.Token

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/api/bookings", "", map[string]any{"showtime_id": showtimeID, "seat_count": 1}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/bookings", tok, map[string]any{"showtime_id": showtimeID, "seat_count": 0}).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/api/bookings", tok, map[string]any{"showtime_id": 9999, "seat_count": 1}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/bookings/abc", tok, nil).Code)

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/admin/bookings", tok, nil).Code)
}

func TestConcurrentAdmissionOverHTTP(t *testing.T) {
	s := newServer(t)
	showtimeID := s.schedule(s.admin(), 10, 100)
	tokens := make([]string, 8)
	for i := range tokens {
		tokens[i] = s.register(fmt.Sprintf("u%d@example.com", i)).Access.Token
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for _, tok := range tokens {
		wg.Add(1)
		go func(tok string) {
			defer wg.Done()
			rec := s.do(http.MethodPost, "/api/bookings", tok, map[string]any{"showtime_id": showtimeID, "seat_count": 3})
			if rec.Code == http.StatusCreated {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}(tok)
	}
	wg.Wait()

	assert.Equal(t, 3, accepted)
	avail := s.do(http.MethodGet, fmt.Sprintf("/api/showtimes/%d/availability", showtimeID), "", nil)
	assert.Contains(t, avail.Body.String(), `"available_seats":1`)
}

func TestAdminCatalogAndBookings(t *testing.T) {
	s := newServer(t)
	adminToken := s.admin()
	showtimeID := s.schedule(adminToken, 20, 900)
	user := s.register("dan@example.com")

	rec := s.do(http.MethodPost, "/api/bookings", user.Access.Token, map[string]any{"showtime_id": showtimeID, "seat_count": 2})
	require.Equal(t, http.StatusCreated, rec.Code)
	b := decode[bookingBody](t, rec)

	// A showtime with bookings cannot be deleted or shrunk below them.
	assert.Equal(t, http.StatusConflict, s.do(http.MethodDelete, fmt.Sprintf("/api/admin/showtimes/%d", showtimeID), adminToken, nil).Code)
	assert.Equal(t, http.StatusConflict, s.do(http.MethodPut, fmt.Sprintf("/api/admin/showtimes/%d", showtimeID), adminToken, map[string]any{"total_seats": 1}).Code)

	// Only CONFIRMED -> CANCELLED is allowed, and only cancelled bookings can be deleted.
	assert.Equal(t, http.StatusConflict, s.do(http.MethodDelete, fmt.Sprintf("/api/admin/bookings/%d", b.ID), adminToken, nil).Code)
	rec = s.do(http.MethodPut, fmt.Sprintf("/api/admin/bookings/%d/status", b.ID), adminToken, map[string]string{"status": "CANCELLED"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(http.MethodPut, fmt.Sprintf("/api/admin/bookings/%d/status", b.ID), adminToken, map[string]string{"status": "CONFIRMED"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_transition")
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPut, fmt.Sprintf("/api/admin/bookings/%d/status", b.ID), adminToken, map[string]string{"status": "PENDING"}).Code)

	byUser := s.do(http.MethodGet, fmt.Sprintf("/api/admin/bookings/user/%d", user.User.ID), adminToken, nil)
	require.Equal(t, http.StatusOK, byUser.Code)
	assert.Len(t, decode[[]bookingBody](t, byUser), 1)

	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, fmt.Sprintf("/api/admin/bookings/%d", b.ID), adminToken, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, fmt.Sprintf("/api/bookings/%d", b.ID), user.Access.Token, nil).Code)

	search := s.do(http.MethodGet, "/api/movies/search?title=hea", "", nil)
	require.Equal(t, http.StatusOK, search.Code)
	assert.Len(t, decode[[]idBody](t, search), 1)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/movies/search", "", nil).Code)

	upcoming := s.do(http.MethodGet, "/api/showtimes/upcoming", "", nil)
	require.Equal(t, http.StatusOK, upcoming.Code)
	assert.Len(t, decode[[]idBody](t, upcoming), 1)
}

func TestAuthEndpoints(t *testing.T) {
	s := newServer(t)
	a := s.register("erin@example.com")
	assert.Equal(t, "CUSTOMER", a.User.Role)

	assert.Equal(t, http.StatusConflict, s.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Again", "email": "erin@example.com", "password": "password123",
	}).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "erin@example.com", "password": "nope-nope",
	}).Code)

	me := s.do(http.MethodGet, "/api/users/me", a.Access.Token, nil)
	require.Equal(t, http.StatusOK, me.Code)
	assert.NotContains(t, me.Body.String(), "password")

	rec := s.do(http.MethodPost, "/api/auth/refresh", "", map[string]string{"refresh_token": a.Refresh.Token})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/api/auth/refresh", "", map[string]string{"refresh_token": a.Refresh.Token}).Code)

	rotated := decode[authBody](t, rec)
	assert.Equal(t, http.StatusNoContent, s.do(http.MethodPost, "/api/auth/logout", "", map[string]string{"refresh_token": rotated.Refresh.Token}).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/api/auth/refresh", "", map[string]string{"refresh_token": rotated.Refresh.Token}).Code)

	adminToken := s.admin()
	promoted := s.do(http.MethodPost, fmt.Sprintf("/api/admin/users/%d/make-admin", a.User.ID), adminToken, nil)
	require.Equal(t, http.StatusOK, promoted.Code)
	assert.Contains(t, promoted.Body.String(), `"role":"ADMIN"`)
}

func TestHealthz(t *testing.T) {
	s := newServer(t)
	rec := s.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	h := handler.NewHealthHandler(map[string]handler.Check{
		"mysql": func(context.Context) error { return fmt.Errorf("connection refused") },
	})
	e := echo.New()
	e.GET("/healthz", h.Health)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	out := httptest.NewRecorder()
	e.ServeHTTP(out, req)
	assert.Equal(t, http.StatusServiceUnavailable, out.Code)
	assert.Contains(t, out.Body.String(), "connection refused")
}
