// Package network serves the descriptive route and stop reference data.
package network

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"smartbus-service/pkg/httpx"
)

type Route struct {
	ID              int    `json:"id"`
	Name            string `json:"name"`
	From            string `json:"from"`
	To              string `json:"to"`
	DistanceKM      int    `json:"distance"`
	DurationMinutes int    `json:"duration"`
	Status          string `json:"status"`
}

type Stop struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	Location  string  `json:"location"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Repository struct {
	DB *sql.DB
}

func NewRepository(db *sql.DB) *Repository { return &Repository{DB: db} }

func (r *Repository) Routes(ctx context.Context) ([]Route, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id,name,origin,destination,distance_km,duration_minutes,status FROM routes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}
	defer rows.Close()

	out := []Route{}
	for rows.Next() {
		var rt Route
		if err := rows.Scan(&rt.ID, &rt.Name, &rt.From, &rt.To, &rt.DistanceKM, &rt.DurationMinutes, &rt.Status); err != nil {
			return nil, fmt.Errorf("scan route: %w", err)
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

func (r *Repository) Stops(ctx context.Context) ([]Stop, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id,name,location,latitude,longitude FROM stops ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list stops: %w", err)
	}
	defer rows.Close()

	out := []Stop{}
	for rows.Next() {
		var s Stop
		if err := rows.Scan(&s.ID, &s.Name, &s.Location, &s.Latitude, &s.Longitude); err != nil {
			return nil, fmt.Errorf("scan stop: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Source is implemented by *Repository.
type Source interface {
	Routes(ctx context.Context) ([]Route, error)
	Stops(ctx context.Context) ([]Stop, error)
}

type Handler struct{ src Source }

func NewHandler(src Source) *Handler { return &Handler{src: src} }

func (h *Handler) ListRoutes(w http.ResponseWriter, r *http.Request) {
	list, err := h.src.Routes(r.Context())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) ListStops(w http.ResponseWriter, r *http.Request) {
	list, err := h.src.Stops(r.Context())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

// Register mounts GET /routes and GET /stops on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/routes", h.ListRoutes)
	r.Get("/stops", h.ListStops)
}
