package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movietix/internal/service"
)

// BookingHandler serves admission and the booking lifecycle.
type BookingHandler struct {
	admission *service.AdmissionService
	bookings  *service.BookingService
}

// NewBookingHandler wires the booking endpoints.
func NewBookingHandler(admission *service.AdmissionService, bookings *service.BookingService) *BookingHandler {
	return &BookingHandler{admission: admission, bookings: bookings}
}

type createBookingReq struct {
	ShowtimeID uint64 `json:"showtime_id"`
	SeatCount  int    `json:"seat_count"`
}

type statusReq struct {
	Status string `json:"status"`
}

// Create admits a booking for the caller.
func (h *BookingHandler) Create(c echo.Context) error {
	p, err := caller(c)
	if err != nil {
		return err
	}
	var req createBookingReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.admission.Admit(ctx, p, req.ShowtimeID, req.SeatCount)
	if err != nil {
		return err
	}
	// The booking is committed; fall back to the bare record if the
	// enriched read fails.
	if v, err := h.bookings.Get(ctx, p, b.ID); err == nil {
		return c.JSON(http.StatusCreated, bookingViewResp(*v))
	}
	return c.JSON(http.StatusCreated, bookingResp(*b))
}

// Mine lists the caller's bookings.
func (h *BookingHandler) Mine(c echo.Context) error {
	p, err := caller(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	vs, err := h.bookings.ListMine(ctx, p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, bookingList(vs))
}

// Get returns one of the caller's bookings; admins see any.
func (h *BookingHandler) Get(c echo.Context) error {
	p, err := caller(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	v, err := h.bookings.Get(ctx, p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, bookingViewResp(*v))
}

// Cancel releases the seats of one of the caller's bookings.
func (h *BookingHandler) Cancel(c echo.Context) error {
	p, err := caller(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	v, err := h.bookings.Cancel(ctx, p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, bookingViewResp(*v))
}

// ListAll returns every booking.
func (h *BookingHandler) ListAll(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	vs, err := h.bookings.ListAll(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, bookingList(vs))
}

// ByUser returns the bookings of the user in the path.
func (h *BookingHandler) ByUser(c echo.Context) error {
	id, err := pathID(c, "userId")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	vs, err := h.bookings.ListByUser(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, bookingList(vs))
}

// UpdateStatus moves a booking along the status transition table.
func (h *BookingHandler) UpdateStatus(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req statusReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	v, err := h.bookings.UpdateStatus(ctx, id, req.Status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, bookingViewResp(*v))
}

// Delete removes a cancelled booking.
func (h *BookingHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.bookings.Delete(ctx, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
