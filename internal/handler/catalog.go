package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movietix/internal/service"
)

// CatalogHandler serves movies and theaters.  Reads are public, writes are
// mounted under the admin group.
type CatalogHandler struct {
	movies   *service.MovieService
	theaters *service.TheaterService
}

// NewCatalogHandler wires the catalog endpoints.
func NewCatalogHandler(movies *service.MovieService, theaters *service.TheaterService) *CatalogHandler {
	return &CatalogHandler{movies: movies, theaters: theaters}
}

type movieReq struct {
	Title           string `json:"title"`
	Genre           string `json:"genre"`
	DurationMinutes int    `json:"duration_minutes"`
	ReleaseDate     string `json:"release_date"`
	Description     string `json:"description"`
}

func (r movieReq) input() service.MovieInput {
	return service.MovieInput{
		Title:           r.Title,
		Genre:           r.Genre,
		DurationMinutes: r.DurationMinutes,
		ReleaseDate:     r.ReleaseDate,
		Description:     r.Description,
	}
}

type theaterReq struct {
	Name            string `json:"name"`
	Location        string `json:"location"`
	SeatingCapacity int    `json:"seating_capacity"`
}

func (r theaterReq) input() service.TheaterInput {
	return service.TheaterInput{Name: r.Name, Location: r.Location, SeatingCapacity: r.SeatingCapacity}
}

// ListMovies returns the whole catalog.
func (h *CatalogHandler) ListMovies(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	ms, err := h.movies.List(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, movieList(ms))
}

// SearchMovies matches ?title= against movie titles.
func (h *CatalogHandler) SearchMovies(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	ms, err := h.movies.Search(ctx, c.QueryParam("title"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, movieList(ms))
}

// GetMovie returns one movie.
func (h *CatalogHandler) GetMovie(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	m, err := h.movies.Get(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, movieResp(*m))
}

// CreateMovie adds a movie.
func (h *CatalogHandler) CreateMovie(c echo.Context) error {
	var req movieReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	m, err := h.movies.Create(ctx, req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, movieResp(*m))
}

// UpdateMovie replaces a movie's fields.
func (h *CatalogHandler) UpdateMovie(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req movieReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	m, err := h.movies.Update(ctx, id, req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, movieResp(*m))
}

// DeleteMovie removes a movie without showtimes.
func (h *CatalogHandler) DeleteMovie(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.movies.Delete(ctx, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ListTheaters returns every theater.
func (h *CatalogHandler) ListTheaters(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	ts, err := h.theaters.List(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, theaterList(ts))
}

// GetTheater returns one theater.
func (h *CatalogHandler) GetTheater(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	t, err := h.theaters.Get(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, theaterResp(*t))
}

// CreateTheater adds a theater.
func (h *CatalogHandler) CreateTheater(c echo.Context) error {
	var req theaterReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	t, err := h.theaters.Create(ctx, req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, theaterResp(*t))
}

// UpdateTheater replaces a theater's fields.
func (h *CatalogHandler) UpdateTheater(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req theaterReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	t, err := h.theaters.Update(ctx, id, req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, theaterResp(*t))
}

// DeleteTheater removes a theater without showtimes.
func (h *CatalogHandler) DeleteTheater(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.theaters.Delete(ctx, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
