package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"smartbus-service/internal/domain"
)

// uniqueViolation is the Postgres SQLSTATE for a unique constraint breach.
const uniqueViolation = "23505"

// Repository persists users in Postgres.
type Repository struct {
	DB *sql.DB
}

func NewRepository(db *sql.DB) *Repository { return &Repository{DB: db} }

func (r *Repository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE email=$1)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return exists, nil
}

// Create inserts u and fills in CreatedAt. A concurrent insert of the same
// email surfaces as a ConflictError.
func (r *Repository) Create(ctx context.Context, u *User) error {
	err := r.DB.QueryRowContext(ctx,
		`INSERT INTO users (id,email,password_hash,name,phone,role)
		 VALUES ($1,$2,$3,$4,$5,$6) RETURNING created_at`,
		u.ID, u.Email, u.PasswordHash, u.Name, u.Phone, u.Role).Scan(&u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ConflictError{Msg: "User already exists", Err: err}
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getOne(ctx, `SELECT id,email,password_hash,name,phone,role,created_at FROM users WHERE email=$1`, email)
}

func (r *Repository) GetByID(ctx context.Context, id string) (*User, error) {
	return r.getOne(ctx, `SELECT id,email,password_hash,name,phone,role,created_at FROM users WHERE id=$1`, id)
}

func (r *Repository) getOne(ctx context.Context, query, arg string) (*User, error) {
	var u User
	err := r.DB.QueryRowContext(ctx, query, arg).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Phone, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundError{Resource: "User", Err: domain.ErrNoRows}
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}
