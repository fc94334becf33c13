package handler

import (
	"time"

	"github.com/iliyamo/movietix/internal/model"
	"github.com/iliyamo/movietix/internal/service"
)

// MovieResp is the JSON form of a movie.
type MovieResp struct {
	ID              uint64    `json:"id"`
	Title           string    `json:"title"`
	Genre           string    `json:"genre"`
	DurationMinutes int       `json:"duration_minutes"`
	ReleaseDate     string    `json:"release_date"`
	Description     string    `json:"description,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func movieResp(m model.Movie) MovieResp {
	return MovieResp{
		ID:              m.ID,
		Title:           m.Title,
		Genre:           m.Genre,
		DurationMinutes: m.DurationMinutes,
		ReleaseDate:     m.ReleaseDate.Format(model.DateLayout),
		Description:     m.Description,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func movieList(ms []model.Movie) []MovieResp {
	out := make([]MovieResp, 0, len(ms))
	for _, m := range ms {
		out = append(out, movieResp(m))
	}
	return out
}

// TheaterResp is the JSON form of a theater.
type TheaterResp struct {
	ID              uint64    `json:"id"`
	Name            string    `json:"name"`
	Location        string    `json:"location"`
	SeatingCapacity int       `json:"seating_capacity"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func theaterResp(t model.Theater) TheaterResp {
	return TheaterResp{
		ID:              t.ID,
		Name:            t.Name,
		Location:        t.Location,
		SeatingCapacity: t.SeatingCapacity,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

func theaterList(ts []model.Theater) []TheaterResp {
	out := make([]TheaterResp, 0, len(ts))
	for _, t := range ts {
		out = append(out, theaterResp(t))
	}
	return out
}

// ShowtimeResp is a showtime with display names and live availability.
type ShowtimeResp struct {
	ID               uint64    `json:"id"`
	MovieID          uint64    `json:"movie_id"`
	MovieTitle       string    `json:"movie_title"`
	TheaterID        uint64    `json:"theater_id"`
	TheaterName      string    `json:"theater_name"`
	StartsAt         time.Time `json:"starts_at"`
	TicketPriceCents int64     `json:"ticket_price_cents"`
	TotalSeats       int       `json:"total_seats"`
	AvailableSeats   int       `json:"available_seats"`
}

func showtimeResp(v service.ShowtimeView) ShowtimeResp {
	return ShowtimeResp{
		ID:               v.ID,
		MovieID:          v.MovieID,
		MovieTitle:       v.MovieTitle,
		TheaterID:        v.TheaterID,
		TheaterName:      v.TheaterName,
		StartsAt:         v.StartsAt,
		TicketPriceCents: v.TicketPriceCents,
		TotalSeats:       v.TotalSeats,
		AvailableSeats:   v.AvailableSeats,
	}
}

func showtimeList(vs []service.ShowtimeView) []ShowtimeResp {
	out := make([]ShowtimeResp, 0, len(vs))
	for _, v := range vs {
		out = append(out, showtimeResp(v))
	}
	return out
}

// BookingResp is a booking enriched with what the customer needs to show
// at the door.
type BookingResp struct {
	ID               uint64     `json:"id"`
	Reference        string     `json:"booking_reference"`
	UserID           uint64     `json:"user_id"`
	ShowtimeID       uint64     `json:"showtime_id"`
	MovieTitle       string     `json:"movie_title,omitempty"`
	TheaterName      string     `json:"theater_name,omitempty"`
	ShowTime         *time.Time `json:"show_time,omitempty"`
	SeatCount        int        `json:"seat_count"`
	TicketPriceCents int64      `json:"ticket_price_cents,omitempty"`
	TotalPriceCents  int64      `json:"total_price_cents"`
	Status           string     `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func bookingResp(b model.Booking) BookingResp {
	return BookingResp{
		ID:              b.ID,
		Reference:       b.Reference,
		UserID:          b.UserID,
		ShowtimeID:      b.ShowtimeID,
		SeatCount:       b.SeatCount,
		TotalPriceCents: b.TotalPriceCents,
		Status:          string(b.Status),
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

func bookingViewResp(v service.BookingView) BookingResp {
	r := bookingResp(v.Booking)
	r.MovieTitle = v.MovieTitle
	r.TheaterName = v.TheaterName
	r.ShowTime = v.ShowTime
	r.TicketPriceCents = v.TicketPriceCents
	return r
}

func bookingList(vs []service.BookingView) []BookingResp {
	out := make([]BookingResp, 0, len(vs))
	for _, v := range vs {
		out = append(out, bookingViewResp(v))
	}
	return out
}

// UserResp never includes the password hash.
type UserResp struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func userResp(u model.User) UserResp {
	return UserResp{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, CreatedAt: u.CreatedAt}
}
