package bookings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"smartbus-service/internal/domain"
)

const selectJoined = `SELECT bk.id,bk.pnr,bk.user_id,bk.bus_id,bk.seats,bk.passenger_name,bk.passenger_email,
	bk.passenger_phone,bk.travel_date,bk.total_price,bk.status,bk.created_at,
	b.name,b.origin,b.destination,b.departure_time,b.arrival_time
	FROM bookings bk JOIN buses b ON b.id = bk.bus_id`

// Repository persists bookings in Postgres. Seats are stored as a JSON array.
type Repository struct {
	DB *sql.DB
}

func NewRepository(db *sql.DB) *Repository { return &Repository{DB: db} }

// Insert writes b and fills in CreatedAt.
func (r *Repository) Insert(ctx context.Context, b *Booking) error {
	seats, err := json.Marshal(b.Seats)
	if err != nil {
		return fmt.Errorf("encode seats: %w", err)
	}
	err = r.DB.QueryRowContext(ctx,
		`INSERT INTO bookings (id,pnr,user_id,bus_id,seats,passenger_name,passenger_email,passenger_phone,travel_date,total_price,status)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11) RETURNING created_at`,
		b.ID, b.PNR, b.UserID, b.BusID, string(seats), b.PassengerName, b.PassengerEmail,
		b.PassengerPhone, b.TravelDate, b.TotalPrice, b.Status).Scan(&b.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

// ListByUser returns the user's bookings newest first.
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]Booking, error) {
	rows, err := r.DB.QueryContext(ctx, selectJoined+` WHERE bk.user_id=$1 ORDER BY bk.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	out := []Booking{}
	for rows.Next() {
		b, err := scanJoined(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// GetForUser returns the booking only when userID owns it.
func (r *Repository) GetForUser(ctx context.Context, id, userID string) (*Booking, error) {
	return oneJoined(r.DB.QueryRowContext(ctx, selectJoined+` WHERE bk.id=$1 AND bk.user_id=$2`, id, userID))
}

func (r *Repository) GetByPNR(ctx context.Context, pnr string) (*Booking, error) {
	return oneJoined(r.DB.QueryRowContext(ctx, selectJoined+` WHERE bk.pnr=$1`, pnr))
}

// Cancel flips a confirmed booking owned by userID to cancelled. It reports
// false when no such booking exists.
func (r *Repository) Cancel(ctx context.Context, id, userID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE bookings SET status='cancelled' WHERE id=$1 AND user_id=$2 AND status='confirmed'`, id, userID)
	if err != nil {
		return false, fmt.Errorf("cancel booking: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("cancel booking: %w", err)
	}
	return n > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func oneJoined(row *sql.Row) (*Booking, error) {
	b, err := scanJoined(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundError{Resource: "Booking", Err: domain.ErrNoRows}
	}
	return b, err
}

func scanJoined(s scanner) (*Booking, error) {
	var (
		b   Booking
		bus BusSummary
		raw string
	)
	err := s.Scan(&b.ID, &b.PNR, &b.UserID, &b.BusID, &raw, &b.PassengerName, &b.PassengerEmail,
		&b.PassengerPhone, &b.TravelDate, &b.TotalPrice, &b.Status, &b.CreatedAt,
		&bus.Name, &bus.From, &bus.To, &bus.DepartureTime, &bus.ArrivalTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan booking: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &b.Seats); err != nil {
		return nil, fmt.Errorf("decode seats of booking %s: %w", b.ID, err)
	}
	b.Bus = &bus
	return &b, nil
}
