package reviews

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"smartbus-service/internal/domain"
)

const uniqueViolation = "23505"

const selectReview = `SELECT id,booking_id,bus_id,user_id,passenger_name,rating,title,comment,
	comfort_rating,cleanliness_rating,punctuality_rating,driver_rating,amenities_rating,
	would_recommend,created_at FROM reviews`

// Repository persists reviews in Postgres.
type Repository struct {
	DB *sql.DB
}

func NewRepository(db *sql.DB) *Repository { return &Repository{DB: db} }

// Insert stores rv and fills in CreatedAt. The unique booking_id index
// turns a second review of the same booking into a ConflictError.
func (r *Repository) Insert(ctx context.Context, rv *Review) error {
	err := r.DB.QueryRowContext(ctx,
		`INSERT INTO reviews (id,booking_id,bus_id,user_id,passenger_name,rating,title,comment,
			comfort_rating,cleanliness_rating,punctuality_rating,driver_rating,amenities_rating,would_recommend)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14) RETURNING created_at`,
		rv.ID, rv.BookingID, rv.BusID, rv.UserID, rv.PassengerName, rv.Rating, rv.Title, rv.Comment,
		rv.ComfortRating, rv.CleanlinessRating, rv.PunctualityRating, rv.DriverRating, rv.AmenitiesRating,
		rv.WouldRecommend).Scan(&rv.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ConflictError{Msg: errAlreadyReviewed, Err: err}
		}
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (r *Repository) ExistsForBooking(ctx context.Context, bookingID string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM reviews WHERE booking_id=$1)`, bookingID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check review: %w", err)
	}
	return exists, nil
}

func (r *Repository) ListByBus(ctx context.Context, busID string) ([]Review, error) {
	return r.list(ctx, selectReview+` WHERE bus_id=$1 ORDER BY created_at DESC`, busID)
}

func (r *Repository) ListByUser(ctx context.Context, userID string) ([]Review, error) {
	return r.list(ctx, selectReview+` WHERE user_id=$1 ORDER BY created_at DESC`, userID)
}

func (r *Repository) list(ctx context.Context, query, arg string) ([]Review, error) {
	rows, err := r.DB.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	out := []Review{}
	for rows.Next() {
		var rv Review
		if err := rows.Scan(&rv.ID, &rv.BookingID, &rv.BusID, &rv.UserID, &rv.PassengerName,
			&rv.Rating, &rv.Title, &rv.Comment, &rv.ComfortRating, &rv.CleanlinessRating,
			&rv.PunctualityRating, &rv.DriverRating, &rv.AmenitiesRating, &rv.WouldRecommend,
			&rv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}
