package bookings

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"smartbus-service/pkg/httpx"
	"smartbus-service/pkg/jwt"
)

// Handler exposes booking HTTP endpoints. Every route requires a token.
type Handler struct{ svc *Service }

// NewHandler wires a handler to the booking service.
func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// Routes returns a chi.Router with all booking routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(jwt.RequireAuth)

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Post("/holds", h.Hold) // must come before /{id}
	r.Delete("/holds", h.Release)
	r.Get("/{id}", h.Get)
	r.Delete("/{id}", h.Cancel)
	r.Get("/{id}/ticket.pdf", h.Ticket)
	r.Get("/{id}/calendar.ics", h.Calendar)

	return r
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	b, err := h.svc.Create(r.Context(), jwt.GetClaims(r.Context()).UserID, req)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"message": "Booking created successfully",
		"booking": b,
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context(), jwt.GetClaims(r.Context()).UserID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"), jwt.GetClaims(r.Context()).UserID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Cancel(r.Context(), chi.URLParam(r, "id"), jwt.GetClaims(r.Context()).UserID); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "Booking cancelled successfully"})
}

func (h *Handler) Hold(w http.ResponseWriter, r *http.Request) {
	var req HoldRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	hold, err := h.svc.Hold(r.Context(), jwt.GetClaims(r.Context()).UserID, req)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, hold)
}

func (h *Handler) Release(w http.ResponseWriter, r *http.Request) {
	var req HoldRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := h.svc.Release(r.Context(), jwt.GetClaims(r.Context()).UserID, req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "Seat holds released"})
}

func (h *Handler) Ticket(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"), jwt.GetClaims(r.Context()).UserID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	pdf, err := RenderTicket(b)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.pdf"`, b.PNR))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

func (h *Handler) Calendar(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"), jwt.GetClaims(r.Context()).UserID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := WriteCalendar(b, &buf); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.ics"`, b.PNR))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
