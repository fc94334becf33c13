// Package repository implements the service storage interfaces on MySQL
// with database/sql and raw SQL.  Each repo wraps the shared *sql.DB; the
// sentinel errors it returns come from internal/model so that handlers can
// map them to HTTP statuses without knowing the backend.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/movietix/internal/model"
)

// MySQL server error numbers the repos translate.
const (
	errDuplicateEntry  = 1062 // ER_DUP_ENTRY
	errRowIsReferenced = 1451 // ER_ROW_IS_REFERENCED_2
	errNoReferencedRow = 1452 // ER_NO_REFERENCED_ROW_2
	errCheckConstraint = 3819 // ER_CHECK_CONSTRAINT_VIOLATED
)

func mysqlErrNumber(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

func isDuplicateKey(err error) bool { return mysqlErrNumber(err) == errDuplicateEntry }

// translate maps driver errors onto the model taxonomy.  what names the
// entity for error messages.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, model.ErrNotFound)
	}
	switch mysqlErrNumber(err) {
	case errDuplicateEntry:
		return fmt.Errorf("%w: %s already exists", model.ErrConflict, what)
	case errRowIsReferenced:
		return fmt.Errorf("%w: %s is still referenced", model.ErrConflict, what)
	case errNoReferencedRow:
		return fmt.Errorf("%s references a missing row: %w", what, model.ErrNotFound)
	case errCheckConstraint:
		return fmt.Errorf("%w: %s violates a constraint", model.ErrValidation, what)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// likePattern builds a case-insensitive LIKE pattern for a substring,
// escaping the wildcard characters of the input.
func likePattern(fragment string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + strings.ToLower(r.Replace(fragment)) + "%"
}

// withTx runs fn in a transaction, committing on nil and rolling back
// otherwise.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// confirmedSeats sums the seats of CONFIRMED bookings of a showtime.
func confirmedSeats(ctx context.Context, q queryer, showtimeID uint64) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(seat_count), 0) FROM bookings WHERE showtime_id = ? AND status = ?",
		showtimeID, model.BookingConfirmed).Scan(&n)
	return n, err
}

// lockTheaterCapacity takes the theater row lock and returns its seating
// capacity.  Theater updates and showtime writes serialize on this lock.
func lockTheaterCapacity(ctx context.Context, tx *sql.Tx, theaterID uint64) (int, error) {
	var capacity int
	err := tx.QueryRowContext(ctx,
		"SELECT seating_capacity FROM theaters WHERE id = ? FOR UPDATE", theaterID).Scan(&capacity)
	if err != nil {
		return 0, translate(err, fmt.Sprintf("theater %d", theaterID))
	}
	return capacity, nil
}

// checkTheaterCapacity rejects showtime seats above the locked capacity.
func checkTheaterCapacity(ctx context.Context, tx *sql.Tx, s *model.Showtime) error {
	capacity, err := lockTheaterCapacity(ctx, tx, s.TheaterID)
	if err != nil {
		return err
	}
	if s.TotalSeats > capacity {
		return fmt.Errorf("%w: total_seats %d exceeds theater capacity %d", model.ErrConflict, s.TotalSeats, capacity)
	}
	return nil
}
