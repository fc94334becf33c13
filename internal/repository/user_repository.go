package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/movietix/internal/model"
)

// UserRepo stores accounts in the `users` table.  Emails arrive already
// normalised by the service layer.
type UserRepo struct{ DB *sql.DB }

// NewUserRepo returns a UserRepo bound to db.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id, name, email, password_hash, role, created_at, updated_at"

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// CreateUser inserts u; a taken email becomes model.ErrConflict.
func (r *UserRepo) CreateUser(ctx context.Context, u *model.User) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, role) VALUES (?, ?, ?, ?)",
		u.Name, u.Email, u.PasswordHash, u.Role)
	if err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("%w: email already exists", model.ErrConflict)
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	saved, err := r.GetUserByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*u = *saved
	return nil
}

// GetUserByEmail fetches a user by email.
func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = ? LIMIT 1", email))
	if err != nil {
		return nil, translate(err, "user")
	}
	return &u, nil
}

// GetUserByID fetches a user by id.
func (r *UserRepo) GetUserByID(ctx context.Context, id uint64) (*model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ? LIMIT 1", id))
	if err != nil {
		return nil, translate(err, fmt.Sprintf("user %d", id))
	}
	return &u, nil
}

// UpdateUserRole changes a user's role.
func (r *UserRepo) UpdateUserRole(ctx context.Context, id uint64, role string) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET role = ? WHERE id = ?", role, id)
	if err != nil {
		return err
	}
	return requireAffected(ctx, res, r.DB, "users", id)
}
