package admin

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"smartbus-service/pkg/httpx"
	"smartbus-service/pkg/jwt"
)

// recentLimit is how many bookings the dashboard lists.
const recentLimit = 10

// Stats is the admin dashboard summary. Booking totals and revenue count
// confirmed bookings only; RecentBookings lists any status.
type Stats struct {
	TotalUsers     int             `json:"totalUsers"`
	TotalBuses     int             `json:"totalBuses"`
	TotalBookings  int             `json:"totalBookings"`
	TotalRevenue   float64         `json:"totalRevenue"`
	RecentBookings []RecentBooking `json:"recentBookings"`
}

type RecentBooking struct {
	ID         string    `json:"id"`
	PNR        string    `json:"pnr"`
	BusID      string    `json:"busId"`
	Seats      []string  `json:"seats"`
	TotalPrice float64   `json:"totalPrice"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
	User       struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"user"`
	Bus struct {
		Name string `json:"name"`
		From string `json:"from"`
		To   string `json:"to"`
	} `json:"bus"`
}

// Repository runs the aggregate queries.
type Repository struct {
	DB *sql.DB
}

func NewRepository(db *sql.DB) *Repository { return &Repository{DB: db} }

func (r *Repository) Stats(ctx context.Context) (*Stats, error) {
	var s Stats
	err := r.DB.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM users),
		(SELECT COUNT(*) FROM buses),
		(SELECT COUNT(*) FROM bookings WHERE status='confirmed'),
		(SELECT COALESCE(SUM(total_price),0) FROM bookings WHERE status='confirmed')`).
		Scan(&s.TotalUsers, &s.TotalBuses, &s.TotalBookings, &s.TotalRevenue)
	if err != nil {
		return nil, fmt.Errorf("admin totals: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx,
		`SELECT bk.id,bk.pnr,bk.bus_id,bk.seats,bk.total_price,bk.status,bk.created_at,
		        u.name,u.email,b.name,b.origin,b.destination
		 FROM bookings bk
		 JOIN users u ON u.id = bk.user_id
		 JOIN buses b ON b.id = bk.bus_id
		 ORDER BY bk.created_at DESC LIMIT $1`, recentLimit)
	if err != nil {
		return nil, fmt.Errorf("recent bookings: %w", err)
	}
	defer rows.Close()

	s.RecentBookings = []RecentBooking{}
	for rows.Next() {
		var (
			rb  RecentBooking
			raw string
		)
		if err := rows.Scan(&rb.ID, &rb.PNR, &rb.BusID, &raw, &rb.TotalPrice, &rb.Status, &rb.CreatedAt,
			&rb.User.Name, &rb.User.Email, &rb.Bus.Name, &rb.Bus.From, &rb.Bus.To); err != nil {
			return nil, fmt.Errorf("scan recent booking: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &rb.Seats); err != nil {
			return nil, fmt.Errorf("decode seats of booking %s: %w", rb.ID, err)
		}
		s.RecentBookings = append(s.RecentBookings, rb)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &s, nil
}

// StatsSource is implemented by *Repository.
type StatsSource interface {
	Stats(ctx context.Context) (*Stats, error)
}

// Handler exposes the admin endpoints behind the admin role gate.
type Handler struct{ src StatsSource }

func NewHandler(src StatsSource) *Handler { return &Handler{src: src} }

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(jwt.RequireAuth, jwt.RequireRole(jwt.RoleAdmin))
	r.Get("/stats", h.Stats)
	return r
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	s, err := h.src.Stats(r.Context())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, s)
}
