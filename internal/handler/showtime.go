package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movietix/internal/model"
	"github.com/iliyamo/movietix/internal/service"
)

// ShowtimeHandler serves showtime listings, availability and admin edits.
type ShowtimeHandler struct {
	showtimes *service.ShowtimeService
}

// NewShowtimeHandler wires the showtime endpoints.
func NewShowtimeHandler(showtimes *service.ShowtimeService) *ShowtimeHandler {
	return &ShowtimeHandler{showtimes: showtimes}
}

type createShowtimeReq struct {
	MovieID          uint64 `json:"movie_id"`
	TheaterID        uint64 `json:"theater_id"`
	StartsAt         string `json:"starts_at"`
	TicketPriceCents int64  `json:"ticket_price_cents"`
	TotalSeats       *int   `json:"total_seats"`
}

type updateShowtimeReq struct {
	MovieID          *uint64 `json:"movie_id"`
	TheaterID        *uint64 `json:"theater_id"`
	StartsAt         *string `json:"starts_at"`
	TicketPriceCents *int64  `json:"ticket_price_cents"`
	TotalSeats       *int    `json:"total_seats"`
}

type availabilityResp struct {
	ShowtimeID     uint64 `json:"showtime_id"`
	AvailableSeats int    `json:"available_seats"`
}

// List returns all showtimes ordered by start time.
func (h *ShowtimeHandler) List(c echo.Context) error {
	return h.list(c, model.ShowtimeFilter{})
}

// Upcoming returns showtimes that have not started.
func (h *ShowtimeHandler) Upcoming(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	vs, err := h.showtimes.Upcoming(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, showtimeList(vs))
}

// ByMovie returns the showtimes of one movie.
func (h *ShowtimeHandler) ByMovie(c echo.Context) error {
	id, err := pathID(c, "movieId")
	if err != nil {
		return err
	}
	return h.list(c, model.ShowtimeFilter{MovieID: id})
}

// ByTheater returns the showtimes scheduled in one theater.
func (h *ShowtimeHandler) ByTheater(c echo.Context) error {
	id, err := pathID(c, "theaterId")
	if err != nil {
		return err
	}
	return h.list(c, model.ShowtimeFilter{TheaterID: id})
}

func (h *ShowtimeHandler) list(c echo.Context, f model.ShowtimeFilter) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	vs, err := h.showtimes.List(ctx, f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, showtimeList(vs))
}

// Get returns one showtime.
func (h *ShowtimeHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	v, err := h.showtimes.Get(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, showtimeResp(*v))
}

// Availability returns the remaining seats of a showtime.
func (h *ShowtimeHandler) Availability(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	n, err := h.showtimes.Availability(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, availabilityResp{ShowtimeID: id, AvailableSeats: n})
}

// Create schedules a showtime.
func (h *ShowtimeHandler) Create(c echo.Context) error {
	var req createShowtimeReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	v, err := h.showtimes.Create(ctx, service.ShowtimeInput{
		MovieID:          req.MovieID,
		TheaterID:        req.TheaterID,
		StartsAt:         req.StartsAt,
		TicketPriceCents: req.TicketPriceCents,
		TotalSeats:       req.TotalSeats,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, showtimeResp(*v))
}

// Update patches a showtime; omitted fields keep their value.
func (h *ShowtimeHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req updateShowtimeReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	v, err := h.showtimes.Update(ctx, id, service.ShowtimePatch{
		MovieID:          req.MovieID,
		TheaterID:        req.TheaterID,
		StartsAt:         req.StartsAt,
		TicketPriceCents: req.TicketPriceCents,
		TotalSeats:       req.TotalSeats,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, showtimeResp(*v))
}

// Delete removes a showtime without bookings.
func (h *ShowtimeHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.showtimes.Delete(ctx, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
