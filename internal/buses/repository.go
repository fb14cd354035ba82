package buses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"smartbus-service/internal/domain"
)

const busColumns = `id,name,operator,origin,destination,price,departure_time,arrival_time,capacity,type,rating,status,created_at`

// Repository reads buses and their confirmed seat assignments.
type Repository struct {
	DB *sql.DB
}

func NewRepository(db *sql.DB) *Repository { return &Repository{DB: db} }

// List returns the buses matching f ordered by departure time.
func (r *Repository) List(ctx context.Context, f Filter) ([]Bus, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond, val string) {
		args = append(args, val)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.From != "" {
		add("origin=$%d", f.From)
	}
	if f.To != "" {
		add("destination=$%d", f.To)
	}
	if f.Type != "" && f.Type != "all" {
		add("type=$%d", f.Type)
	}

	query := "SELECT " + busColumns + " FROM buses"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY departure_time, id"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list buses: %w", err)
	}
	defer rows.Close()

	var out []Bus
	for rows.Next() {
		b, err := scanBus(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (r *Repository) Get(ctx context.Context, id string) (*Bus, error) {
	row := r.DB.QueryRowContext(ctx, "SELECT "+busColumns+" FROM buses WHERE id=$1", id)
	b, err := scanBus(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundError{Resource: "Bus", Err: domain.ErrNoRows}
	}
	return b, err
}

// BookedSeats returns the flattened seat labels of every confirmed booking,
// keyed by bus id. Buses without bookings are absent from the map.
func (r *Repository) BookedSeats(ctx context.Context, busIDs ...string) (map[string][]string, error) {
	out := make(map[string][]string, len(busIDs))
	if len(busIDs) == 0 {
		return out, nil
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT bus_id, seats FROM bookings
		 WHERE status='confirmed' AND bus_id = ANY(string_to_array($1, ','))
		 ORDER BY created_at`, strings.Join(busIDs, ","))
	if err != nil {
		return nil, fmt.Errorf("booked seats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var busID, raw string
		if err := rows.Scan(&busID, &raw); err != nil {
			return nil, fmt.Errorf("scan booked seats: %w", err)
		}
		var seats []string
		if err := json.Unmarshal([]byte(raw), &seats); err != nil {
			return nil, fmt.Errorf("decode seats of bus %s: %w", busID, err)
		}
		out[busID] = append(out[busID], seats...)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBus(s scanner) (*Bus, error) {
	var b Bus
	err := s.Scan(&b.ID, &b.Name, &b.Operator, &b.From, &b.To, &b.Price,
		&b.DepartureTime, &b.ArrivalTime, &b.Capacity, &b.Type, &b.Rating, &b.Status, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan bus: %w", err)
	}
	return &b, nil
}
